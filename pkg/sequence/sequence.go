// Package sequence loads and runs scripted arm motion sequences.
//
// A sequence file lists steps, each holding exactly one action:
//
//	name: wave
//	steps:
//	  - color: [0, 255, 0]
//	  - move: [0, 0, 0, 0]
//	    speed: 40
//	  - pause: 3
//	  - sync_move: [-160, 0, 0, 180]
//	    speed: 100
package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/palletizer/pkg/robot"
	"github.com/gwillem/palletizer/pkg/sim"
)

// Runner executes arm commands. *palletizer.Robot satisfies it.
type Runner interface {
	MoveJoints(ctx context.Context, j1, j2, j3, j4 float64, speed int) error
	SyncMoveJoints(ctx context.Context, j1, j2, j3, j4 float64, speed int) error
	SetColor(ctx context.Context, r, g, b int) error
	Pause(ctx context.Context, seconds float64) error
}

// Step is one action in a sequence.
type Step struct {
	Move     []float64 `json:"move,omitempty" yaml:"move,omitempty,flow"`
	SyncMove []float64 `json:"sync_move,omitempty" yaml:"sync_move,omitempty,flow"`
	Speed    *int      `json:"speed,omitempty" yaml:"speed,omitempty"`
	Color    []int     `json:"color,omitempty" yaml:"color,omitempty,flow"`
	Pause    *float64  `json:"pause,omitempty" yaml:"pause,omitempty"`
}

// Sequence is a named list of steps.
type Sequence struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Kind returns the action name of the step, or "" when it has none.
func (s Step) Kind() string {
	switch {
	case s.Move != nil:
		return "move"
	case s.SyncMove != nil:
		return "sync_move"
	case s.Color != nil:
		return "color"
	case s.Pause != nil:
		return "pause"
	}
	return ""
}

// Validate checks that the step has exactly one well-formed action.
func (s Step) Validate() error {
	actions := 0
	for _, set := range []bool{s.Move != nil, s.SyncMove != nil, s.Color != nil, s.Pause != nil} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return fmt.Errorf("step must have exactly one of move, sync_move, color, pause (has %d)", actions)
	}
	if s.Move != nil && len(s.Move) != robot.NumJoints {
		return fmt.Errorf("move needs %d angles, got %d", robot.NumJoints, len(s.Move))
	}
	if s.SyncMove != nil && len(s.SyncMove) != robot.NumJoints {
		return fmt.Errorf("sync_move needs %d angles, got %d", robot.NumJoints, len(s.SyncMove))
	}
	if s.Color != nil && len(s.Color) != 3 {
		return fmt.Errorf("color needs 3 channels, got %d", len(s.Color))
	}
	if s.Speed != nil && s.Move == nil && s.SyncMove == nil {
		return errors.New("speed only applies to move and sync_move")
	}
	return nil
}

func (s Step) speed() int {
	if s.Speed == nil {
		return robot.DefaultSpeed
	}
	return *s.Speed
}

// Validate checks every step.
func (q *Sequence) Validate() error {
	if len(q.Steps) == 0 {
		return errors.New("sequence has no steps")
	}
	for i, s := range q.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// Load reads a sequence from a YAML (.yaml, .yml) or JSON file.
func Load(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var q Sequence
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &q)
	default:
		err = json.Unmarshal(data, &q)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if q.Name == "" {
		q.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &q, nil
}

// Options controls Run.
type Options struct {
	Logger *logrus.Logger
	// IgnoreTransportErrors keeps going when a simulator datagram cannot be
	// sent. Hardware errors always stop the sequence.
	IgnoreTransportErrors bool
}

// Run executes the steps in order and stops at the first error.
func Run(ctx context.Context, r Runner, q *Sequence, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := q.Validate(); err != nil {
		return err
	}

	for i, s := range q.Steps {
		entry := log.WithFields(logrus.Fields{"sequence": q.Name, "step": i + 1, "action": s.Kind()})
		entry.Debug("running step")

		err := runStep(ctx, r, s)
		if err == nil {
			continue
		}
		var te *sim.TransportError
		if opts.IgnoreTransportErrors && errors.As(err, &te) && !hasNonTransport(err) {
			entry.WithError(err).Warn("simulator unreachable, continuing")
			continue
		}
		return fmt.Errorf("step %d (%s): %w", i+1, s.Kind(), err)
	}
	log.WithField("sequence", q.Name).Info("sequence finished")
	return nil
}

func runStep(ctx context.Context, r Runner, s Step) error {
	switch {
	case s.Move != nil:
		return r.MoveJoints(ctx, s.Move[0], s.Move[1], s.Move[2], s.Move[3], s.speed())
	case s.SyncMove != nil:
		return r.SyncMoveJoints(ctx, s.SyncMove[0], s.SyncMove[1], s.SyncMove[2], s.SyncMove[3], s.speed())
	case s.Color != nil:
		return r.SetColor(ctx, s.Color[0], s.Color[1], s.Color[2])
	case s.Pause != nil:
		return r.Pause(ctx, *s.Pause)
	}
	return errors.New("empty step")
}

// hasNonTransport reports whether a joined error contains anything other than
// simulator transport errors.
func hasNonTransport(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if hasNonTransport(e) {
				return true
			}
		}
		return false
	}
	var te *sim.TransportError
	return !errors.As(err, &te)
}
