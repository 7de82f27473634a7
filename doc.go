// Package palletizer drives a 4-joint Palletizer arm and mirrors every
// command to a simulator, behind one interface.
//
// Student code is written against Robot and runs unchanged whether the real
// arm, the simulator, or both are attached:
//
//	err := palletizer.Run(ctx, palletizer.Config{Mode: palletizer.ModeBoth, Port: "COM7"},
//		func(r *palletizer.Robot) error {
//			if err := r.SetColor(ctx, 0, 255, 0); err != nil {
//				return err
//			}
//			return r.MoveJoints(ctx, 0, 0, 0, 0, 40)
//		})
//
// # Installation
//
//	go install github.com/gwillem/palletizer/cmd/palletizer@latest
//
// # Usage
//
// Run setup once to pick the mode and serial port:
//
//	palletizer setup
//
// Then run a sequence, or watch what the simulator receives:
//
//	palletizer run demo.yaml
//	palletizer monitor
//
// One-shot commands take joint angles in degrees; put negative angles after
// "--" so they are not read as flags:
//
//	palletizer move --speed 60 -- -160 0 0 180
//	palletizer color 255 0 0
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/palletizer: CLI with setup, run, monitor and one-shot commands
//   - pkg/robot: Joint limits, clamping, configuration and the serial arm
//   - pkg/protocol: Versioned simulator datagram messages
//   - pkg/sim: UDP sender and receiver for simulator messages
//   - pkg/dispatch: Mode-aware controller fanning commands out to both targets
//   - pkg/sequence: Motion sequence files and the built-in demo
package palletizer
