package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/jessevdk/go-flags"

	palletizer "github.com/gwillem/palletizer"
	"github.com/gwillem/palletizer/internal/logging"
	"github.com/gwillem/palletizer/pkg/robot"
)

type GlobalOptions struct {
	Config   string `long:"config" short:"c" default:"palletizer.json" description:"Configuration file (.json or .yaml)"`
	Mode     string `long:"mode" short:"m" description:"Operating mode: real, virtual or both"`
	Port     string `long:"port" short:"p" description:"Serial port of the arm (e.g. COM7, /dev/ttyUSB0)"`
	Host     string `long:"host" description:"Simulator host"`
	UDPPort  int    `long:"udp-port" description:"Simulator UDP port"`
	LogLevel string `long:"log-level" description:"Log level: debug, info, warn, error, off"`
}

type Options struct {
	Global GlobalOptions `group:"Global Options"`

	Setup    SetupCommand    `command:"setup" description:"Choose mode and serial port, then save the configuration"`
	Ports    PortsCommand    `command:"ports" description:"List serial ports"`
	Move     MoveCommand     `command:"move" description:"Move the joints without waiting"`
	SyncMove SyncMoveCommand `command:"sync-move" description:"Move the joints and wait for arrival"`
	Color    ColorCommand    `command:"color" description:"Set the LED color"`
	Run      RunCommand      `command:"run" description:"Run a motion sequence file"`
	Demo     DemoCommand     `command:"demo" description:"Run the built-in demo sequence"`
	Monitor  MonitorCommand  `command:"monitor" description:"Show the simulator messages arriving on the UDP port"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

// ctx is canceled on Ctrl+C so blocking moves and pauses return.
var ctx context.Context

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func main() {
	var cancel context.CancelFunc
	ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	os.Exit(run(os.Args[1:]))
}

// run parses args and executes the selected command. go-flags prints any
// error, including errors returned by commands.
func run(args []string) int {
	parser.LongDescription = "Palletizer - drive the arm, the simulator, or both"

	_, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return 0
			}
		}
		return 1
	}
	return 0
}

// loadConfig reads the config file (if present), then applies .env,
// PALLETIZER_* variables and command line flags, in that order.
func loadConfig() (*robot.Config, error) {
	robot.LoadEnvFile()

	cfg, err := robot.LoadConfigFrom(opts.Global.Config)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = robot.DefaultConfig()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	g := opts.Global
	if g.Mode != "" {
		mode, err := robot.ParseMode(g.Mode)
		if err != nil {
			return nil, err
		}
		cfg.Connection.Mode = mode
	}
	if g.Port != "" {
		cfg.Connection.Port = g.Port
	}
	if g.Host != "" {
		cfg.Connection.Host = g.Host
	}
	if g.UDPPort != 0 {
		cfg.Connection.UDPPort = g.UDPPort
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	return cfg, nil
}

// withRobot loads the configuration, connects and runs fn, closing the robot
// afterwards.
func withRobot(fn func(r *palletizer.Robot) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log)
	return palletizer.Run(ctx, cfg.Connection, fn, palletizer.WithLogger(log))
}
