package palletizer

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/palletizer/internal/logging"
	"github.com/gwillem/palletizer/pkg/dispatch"
	"github.com/gwillem/palletizer/pkg/protocol"
	"github.com/gwillem/palletizer/pkg/robot"
	"github.com/gwillem/palletizer/pkg/sim"
)

type nopHardware struct{ closes int }

func (h *nopHardware) SendAngles(context.Context, robot.Angles, int) error     { return nil }
func (h *nopHardware) SendAnglesSync(context.Context, robot.Angles, int) error { return nil }
func (h *nopHardware) SetColor(context.Context, robot.Color) error             { return nil }
func (h *nopHardware) Close() error                                            { h.closes++; return nil }

type nopNetwork struct{ closes int }

func (n *nopNetwork) Send(protocol.Message) error { return nil }
func (n *nopNetwork) Close() error                { n.closes++; return nil }

type countingDialer struct {
	hwDials, netDials int
	hw                *nopHardware
	net               *nopNetwork
}

func newCountingDialer() *countingDialer {
	return &countingDialer{hw: &nopHardware{}, net: &nopNetwork{}}
}

func (d *countingDialer) option() Option {
	return WithDialer(dispatch.Dialer{
		Hardware: func(context.Context, robot.ConnectionConfig, *logrus.Logger) (dispatch.HardwareSink, error) {
			d.hwDials++
			return d.hw, nil
		},
		Network: func(robot.ConnectionConfig, *logrus.Logger) (dispatch.NetworkSink, error) {
			d.netDials++
			return d.net, nil
		},
	})
}

func quiet() Option {
	return WithLogger(logging.Discard())
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"real without port", Config{Mode: ModeReal}},
		{"both without port", Config{Mode: ModeBoth}},
		{"udp port out of range", Config{Mode: ModeVirtual, UDPPort: 65536}},
		{"unknown mode", Config{Mode: "dual"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newCountingDialer()
			r, err := New(context.Background(), tt.cfg, d.option(), quiet())
			assert.Nil(t, r)

			var ice *InvalidConfigError
			require.True(t, errors.As(err, &ice), "got %v", err)
			assert.NotEmpty(t, ice.Reason)
			assert.Zero(t, d.hwDials, "no serial connection before validation")
			assert.Zero(t, d.netDials, "no socket before validation")
		})
	}
}

func TestNew_VirtualIgnoresPort(t *testing.T) {
	d := newCountingDialer()
	r, err := New(context.Background(), Config{Mode: ModeVirtual, Port: "COM7"}, d.option(), quiet())
	require.NoError(t, err)
	defer r.Close()

	assert.Zero(t, d.hwDials)
	assert.Equal(t, 1, d.netDials)
	assert.Equal(t, ModeVirtual, r.Mode())
}

func TestConstructors(t *testing.T) {
	ctx := context.Background()

	d := newCountingDialer()
	r, err := Connect(ctx, "/dev/ttyUSB0", d.option(), quiet())
	require.NoError(t, err)
	assert.Equal(t, ModeReal, r.Mode())
	assert.Equal(t, "/dev/ttyUSB0", r.Config().Port)
	require.NoError(t, r.Close())

	d = newCountingDialer()
	r, err = Both(ctx, "COM7", "", 5005, d.option(), quiet())
	require.NoError(t, err)
	assert.Equal(t, ModeBoth, r.Mode())
	assert.Equal(t, "127.0.0.1:5005", r.Config().Address())
	assert.Equal(t, 115200, r.Config().BaudRate)
	assert.Equal(t, 1, d.hwDials)
	assert.Equal(t, 1, d.netDials)
	require.NoError(t, r.Close())
}

func TestConstructors_RejectUDPPort(t *testing.T) {
	ctx := context.Background()
	for _, port := range []int{0, -1, 65536} {
		d := newCountingDialer()

		_, err := Sim(ctx, "127.0.0.1", port, d.option(), quiet())
		var ice *InvalidConfigError
		assert.True(t, errors.As(err, &ice), "Sim port %d: %v", port, err)

		_, err = Both(ctx, "COM7", "127.0.0.1", port, d.option(), quiet())
		assert.True(t, errors.As(err, &ice), "Both port %d: %v", port, err)

		assert.Equal(t, 0, d.hwDials)
		assert.Equal(t, 0, d.netDials)
	}
}

func TestSim_SendsToSimulator(t *testing.T) {
	l, err := sim.Listen("127.0.0.1:0", logging.Discard())
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	udpPort := l.Addr().(*net.UDPAddr).Port
	r, err := Sim(ctx, "127.0.0.1", udpPort, quiet())
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.MoveJoints(ctx, 74, 85, 0, 0, 40))

	select {
	case got := <-l.Messages():
		assert.Equal(t, protocol.Move{Joints: protocol.Joints{J1: 74, J2: 85, Speed: 40}}, got.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no datagram received")
	}
}

func TestRun_ClosesOnReturn(t *testing.T) {
	d := newCountingDialer()
	err := Run(context.Background(), Config{Mode: ModeBoth, Port: "COM7"}, func(r *Robot) error {
		return r.SetColor(context.Background(), 0, 255, 0)
	}, d.option(), quiet())

	require.NoError(t, err)
	assert.Equal(t, 1, d.hw.closes)
	assert.Equal(t, 1, d.net.closes)
}

func TestRun_ClosesOnError(t *testing.T) {
	d := newCountingDialer()
	boom := errors.New("student bug")

	err := Run(context.Background(), Config{Mode: ModeBoth, Port: "COM7"}, func(r *Robot) error {
		return boom
	}, d.option(), quiet())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, d.hw.closes)
	assert.Equal(t, 1, d.net.closes)
}

func TestRun_ClosesOnPanic(t *testing.T) {
	d := newCountingDialer()

	assert.Panics(t, func() {
		_ = Run(context.Background(), Config{Mode: ModeReal, Port: "COM7"}, func(r *Robot) error {
			panic("oops")
		}, d.option(), quiet())
	})
	assert.Equal(t, 1, d.hw.closes)
}

func TestRun_InvalidConfigSkipsFn(t *testing.T) {
	called := false
	err := Run(context.Background(), Config{Mode: ModeReal}, func(r *Robot) error {
		called = true
		return nil
	}, quiet())

	var ice *InvalidConfigError
	assert.True(t, errors.As(err, &ice))
	assert.False(t, called)
}

func TestRobot_ClosedOperations(t *testing.T) {
	d := newCountingDialer()
	r, err := New(context.Background(), Config{Mode: ModeBoth, Port: "COM7"}, d.option(), quiet())
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, d.hw.closes)

	ctx := context.Background()
	var cce *ClosedControllerError
	assert.True(t, errors.As(r.MoveJoints(ctx, 0, 0, 0, 0, 40), &cce))
	assert.True(t, errors.As(r.SyncMoveJoints(ctx, 0, 0, 0, 0, 40), &cce))
	assert.True(t, errors.As(r.SetColor(ctx, 0, 0, 0), &cce))
	assert.True(t, errors.As(r.Pause(ctx, 1), &cce))
}
