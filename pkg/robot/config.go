package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/palletizer/internal/logging"
)

const DefaultConfigFile = "palletizer.json"

// Connection defaults.
const (
	DefaultHost     = "127.0.0.1"
	DefaultUDPPort  = 5005
	DefaultBaudRate = 115200

	defaultSettleDelayMs = 2000
)

// Mode selects which backends a controller drives.
type Mode string

const (
	ModeReal    Mode = "real"    // hardware only
	ModeVirtual Mode = "virtual" // simulation only
	ModeBoth    Mode = "both"
)

// ParseMode parses a mode name. Besides the canonical names it accepts
// "hardware" and "sim"/"simulation".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "real", "hardware":
		return ModeReal, nil
	case "virtual", "sim", "simulation":
		return ModeVirtual, nil
	case "both":
		return ModeBoth, nil
	}
	return "", &InvalidConfigError{Reason: fmt.Sprintf("unknown mode %q (want real, virtual or both)", s)}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeReal || m == ModeVirtual || m == ModeBoth
}

// UsesHardware reports whether the mode drives the physical arm.
func (m Mode) UsesHardware() bool {
	return m == ModeReal || m == ModeBoth
}

// UsesSimulation reports whether the mode mirrors commands to the simulator.
func (m Mode) UsesSimulation() bool {
	return m == ModeVirtual || m == ModeBoth
}

// ConnectionConfig holds everything needed to reach the arm and the simulator.
type ConnectionConfig struct {
	Mode     Mode   `json:"mode" yaml:"mode"`
	Port     string `json:"port,omitempty" yaml:"port,omitempty"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	UDPPort  int    `json:"udp_port,omitempty" yaml:"udp_port,omitempty"`
	BaudRate int    `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`

	// ConnectAttempts bounds how often the hardware handshake is tried.
	// 0 or 1 means fail fast.
	ConnectAttempts int `json:"connect_attempts,omitempty" yaml:"connect_attempts,omitempty"`
	RetryDelayMs    int `json:"retry_delay_ms,omitempty" yaml:"retry_delay_ms,omitempty"`
	SettleDelayMs   int `json:"settle_delay_ms,omitempty" yaml:"settle_delay_ms,omitempty"`
}

// WithDefaults returns a copy with zero fields replaced by their defaults.
func (c ConnectionConfig) WithDefaults() ConnectionConfig {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.UDPPort == 0 {
		c.UDPPort = DefaultUDPPort
	}
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ConnectAttempts == 0 {
		c.ConnectAttempts = 1
	}
	if c.SettleDelayMs == 0 {
		c.SettleDelayMs = defaultSettleDelayMs
	}
	return c
}

// Validate checks the static invariants of the configuration.
func (c ConnectionConfig) Validate() error {
	if !c.Mode.Valid() {
		return &InvalidConfigError{Reason: fmt.Sprintf("unknown mode %q (want real, virtual or both)", c.Mode)}
	}
	if c.Mode.UsesHardware() && strings.TrimSpace(c.Port) == "" {
		return &InvalidConfigError{Reason: "mode real or both requires a serial port (e.g. port=COM7)"}
	}
	if c.UDPPort < 1 || c.UDPPort > 65535 {
		return &InvalidConfigError{Reason: fmt.Sprintf("udp port %d must be in range 1..65535", c.UDPPort)}
	}
	if c.BaudRate < 0 {
		return &InvalidConfigError{Reason: fmt.Sprintf("baud rate %d must be positive", c.BaudRate)}
	}
	if c.ConnectAttempts < 0 || c.RetryDelayMs < 0 || c.SettleDelayMs < 0 {
		return &InvalidConfigError{Reason: "connect attempts and delays must not be negative"}
	}
	return nil
}

// Address returns the simulator address as host:port.
func (c ConnectionConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.UDPPort)
}

// ArmOptions derives the hardware connection options.
func (c ConnectionConfig) ArmOptions() ArmOptions {
	return ArmOptions{
		Port:        c.Port,
		BaudRate:    c.BaudRate,
		Attempts:    c.ConnectAttempts,
		RetryDelay:  time.Duration(c.RetryDelayMs) * time.Millisecond,
		SettleDelay: time.Duration(c.SettleDelayMs) * time.Millisecond,
	}
}

// Config holds the palletizer configuration file contents.
type Config struct {
	Connection ConnectionConfig `json:"connection" yaml:"connection"`
	Log        logging.Config   `json:"log" yaml:"log"`
}

// DefaultConfig returns a simulation-only configuration.
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{Mode: ModeVirtual}.WithDefaults(),
		Log:        logging.Config{Level: "info"},
	}
}

// LoadConfigFrom loads configuration from a specific file. Files ending in
// .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if a config file exists at path
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Environment variables read by ApplyEnv.
const (
	EnvMode     = "PALLETIZER_MODE"
	EnvPort     = "PALLETIZER_PORT"
	EnvHost     = "PALLETIZER_HOST"
	EnvUDPPort  = "PALLETIZER_UDP_PORT"
	EnvBaudRate = "PALLETIZER_BAUD"
	EnvLogLevel = "PALLETIZER_LOG_LEVEL"
	EnvLogFile  = "PALLETIZER_LOG_FILE"
)

// LoadEnvFile loads variables from .env files into the process environment.
// Missing files are not an error.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// ApplyEnv overrides configuration values from PALLETIZER_* variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvMode); ok {
		m, err := ParseMode(v)
		if err != nil {
			return err
		}
		c.Connection.Mode = m
	}
	if v, ok := os.LookupEnv(EnvPort); ok {
		c.Connection.Port = v
	}
	if v, ok := os.LookupEnv(EnvHost); ok {
		c.Connection.Host = v
	}
	if v, ok := os.LookupEnv(EnvUDPPort); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &InvalidConfigError{Reason: fmt.Sprintf("%s=%q is not a number", EnvUDPPort, v)}
		}
		c.Connection.UDPPort = n
	}
	if v, ok := os.LookupEnv(EnvBaudRate); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &InvalidConfigError{Reason: fmt.Sprintf("%s=%q is not a number", EnvBaudRate, v)}
		}
		c.Connection.BaudRate = n
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		c.Log.File = v
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
