package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/palletizer/internal/logging"
	"github.com/gwillem/palletizer/pkg/robot"
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Palletizer Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	if robot.ConfigExists(opts.Global.Config) {
		overwrite := true
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("%s exists. Overwrite it?", opts.Global.Config)).
					Description("Current values are offered as defaults").
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil || !overwrite {
			fmt.Println()
			return nil
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn := &cfg.Connection

	// Step 1: Mode
	mode := string(conn.Mode)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What should commands drive?").
				Options(
					huh.NewOption("Virtual (simulator over UDP only)", string(robot.ModeVirtual)),
					huh.NewOption("Real (serial arm only)", string(robot.ModeReal)),
					huh.NewOption("Both (simulator and arm)", string(robot.ModeBoth)),
				).
				Value(&mode),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	conn.Mode = robot.Mode(mode)

	// Step 2: Serial port
	if conn.Mode.UsesHardware() {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Finding the arm ━━━"))
		fmt.Println()
		port := findArm(*conn)
		if port == "" {
			fmt.Println("No arm identified.")
			fmt.Println("Make sure the arm is connected and powered on.")
			os.Exit(1)
		}
		conn.Port = port
	}

	// Step 3: Simulator address
	if conn.Mode.UsesSimulation() {
		fmt.Println()
		udpPort := strconv.Itoa(conn.UDPPort)
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Simulator host").
					Value(&conn.Host),
				huh.NewInput().
					Title("Simulator UDP port").
					Value(&udpPort).
					Validate(func(s string) error {
						n, err := strconv.Atoi(s)
						if err != nil || n < 1 || n > 65535 {
							return fmt.Errorf("enter a port between 1 and 65535")
						}
						return nil
					}),
			),
		)
		if err := form.Run(); err != nil {
			fmt.Println()
			os.Exit(0)
		}
		conn.UDPPort, _ = strconv.Atoi(udpPort)
	}

	if err := conn.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Global.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Global.Config)
	fmt.Println()
	fmt.Println("Try it with: " + headerStyle.Render("palletizer demo"))

	return nil
}

// findArm probes every serial port for a Palletizer board and asks the user
// to confirm each one by lighting its LED.
func findArm(conn robot.ConnectionConfig) string {
	ports, err := robot.ListPorts()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return ""
	}

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		fmt.Printf("  Probing %s...\n", port)
		if identifyArm(conn, port) {
			return port
		}
	}
	return ""
}

func identifyArm(conn robot.ConnectionConfig, port string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	armOpts := conn.WithDefaults().ArmOptions()
	armOpts.Port = port
	armOpts.Attempts = 1
	armOpts.Logger = logging.Discard()

	arm, err := robot.NewArm(ctx, armOpts)
	if err != nil {
		return false
	}
	defer arm.Close()

	// Blink the LED so the user can tell which arm answered
	for _, c := range []robot.Color{{R: 255}, {G: 255}, {R: 255}, {G: 255}} {
		if err := arm.SetColor(ctx, c); err != nil {
			return false
		}
		time.Sleep(300 * time.Millisecond)
	}

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Is the arm on %s the one that just blinked?", port)).
				Affirmative("Yes").
				Negative("No, keep looking").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return confirmed
}
