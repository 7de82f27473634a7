package main

import (
	"fmt"

	palletizer "github.com/gwillem/palletizer"
	"github.com/gwillem/palletizer/internal/logging"
	"github.com/gwillem/palletizer/pkg/robot"
	"github.com/gwillem/palletizer/pkg/sequence"
)

type jointArgs struct {
	J1 float64 `positional-arg-name:"j1" description:"Base rotation in degrees (-160..160)"`
	J2 float64 `positional-arg-name:"j2" description:"Shoulder in degrees (0..90)"`
	J3 float64 `positional-arg-name:"j3" description:"Elbow in degrees (-60..0)"`
	J4 float64 `positional-arg-name:"j4" description:"Wrist rotation in degrees (-360..360)"`
}

type MoveCommand struct {
	Speed int       `long:"speed" short:"s" default:"40" description:"Speed 1..100"`
	Args  jointArgs `positional-args:"yes" required:"yes"`
}

func (c *MoveCommand) Execute(args []string) error {
	return withRobot(func(r *palletizer.Robot) error {
		a := c.Args
		return r.MoveJoints(ctx, a.J1, a.J2, a.J3, a.J4, c.Speed)
	})
}

type SyncMoveCommand struct {
	Speed int       `long:"speed" short:"s" default:"40" description:"Speed 1..100"`
	Args  jointArgs `positional-args:"yes" required:"yes"`
}

func (c *SyncMoveCommand) Execute(args []string) error {
	return withRobot(func(r *palletizer.Robot) error {
		a := c.Args
		if err := r.SyncMoveJoints(ctx, a.J1, a.J2, a.J3, a.J4, c.Speed); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Arrived."))
		return nil
	})
}

type ColorCommand struct {
	Args struct {
		R int `positional-arg-name:"r"`
		G int `positional-arg-name:"g"`
		B int `positional-arg-name:"b"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ColorCommand) Execute(args []string) error {
	return withRobot(func(r *palletizer.Robot) error {
		return r.SetColor(ctx, c.Args.R, c.Args.G, c.Args.B)
	})
}

type RunCommand struct {
	IgnoreSimErrors bool `long:"ignore-sim-errors" description:"Keep going when the simulator cannot be reached"`
	Args            struct {
		File string `positional-arg-name:"file" description:"Sequence file (.yaml or .json)"`
	} `positional-args:"yes" required:"yes"`
}

func (c *RunCommand) Execute(args []string) error {
	q, err := sequence.Load(c.Args.File)
	if err != nil {
		return err
	}
	return runSequence(q, c.IgnoreSimErrors)
}

type DemoCommand struct {
	IgnoreSimErrors bool `long:"ignore-sim-errors" description:"Keep going when the simulator cannot be reached"`
}

func (c *DemoCommand) Execute(args []string) error {
	return runSequence(sequence.Demo(), c.IgnoreSimErrors)
}

func runSequence(q *sequence.Sequence, ignoreSimErrors bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log)

	fmt.Printf("%s %s (%d steps, mode %s)\n",
		headerStyle.Render("Running"), q.Name, len(q.Steps), cfg.Connection.Mode)

	err = palletizer.Run(ctx, cfg.Connection, func(r *palletizer.Robot) error {
		return sequence.Run(ctx, r, q, sequence.Options{
			Logger:                log,
			IgnoreTransportErrors: ignoreSimErrors,
		})
	}, palletizer.WithLogger(log))
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render("Sequence finished."))
	return nil
}

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := robot.ListPorts()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		fmt.Println(dimStyle.Render("Make sure the arm is connected and powered on."))
		return nil
	}

	fmt.Println(headerStyle.Render("Serial ports"))
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}
	return nil
}
