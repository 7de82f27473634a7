package sim

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/palletizer/internal/logging"
	"github.com/gwillem/palletizer/pkg/protocol"
)

func newPair(t *testing.T) (*Sender, *Listener) {
	t.Helper()
	log := logging.Discard()

	l, err := Listen("127.0.0.1:0", log)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	s, err := Dial(l.Addr().String(), log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, l
}

func receive(t *testing.T, l *Listener) Received {
	t.Helper()
	select {
	case r, ok := <-l.Messages():
		require.True(t, ok, "message channel closed")
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for datagram")
	}
	return Received{}
}

func TestSendReceive(t *testing.T) {
	s, l := newPair(t)

	move := protocol.Move{Joints: protocol.Joints{J1: 74, J2: 85, Speed: 40}}
	require.NoError(t, s.Send(move))
	require.NoError(t, s.Send(protocol.LED{R: 0, G: 0, B: 255}))

	assert.Equal(t, move, receive(t, l).Message)
	assert.Equal(t, protocol.LED{B: 255}, receive(t, l).Message)
}

func TestListener_DropsMalformed(t *testing.T) {
	s, l := newPair(t)

	raw, err := net.DialUDP("udp", nil, l.Addr().(*net.UDPAddr))
	require.NoError(t, err)
	defer raw.Close()

	_, err = raw.Write([]byte("not json"))
	require.NoError(t, err)
	_, err = raw.Write([]byte(`{"v":1,"type":"warp"}`))
	require.NoError(t, err)

	require.NoError(t, s.Send(protocol.SyncMove{Joints: protocol.Joints{J4: 90, Speed: 10}}))

	r := receive(t, l)
	assert.Equal(t, protocol.TypeSyncMove, r.Message.Type())
}

func TestSender_Close(t *testing.T) {
	s, _ := newPair(t)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	err := s.Send(protocol.LED{})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, errSenderClosed)
}

func TestListener_Close(t *testing.T) {
	_, l := newPair(t)

	require.NoError(t, l.Close())
	assert.NoError(t, l.Close())

	_, ok := <-l.Messages()
	assert.False(t, ok, "messages channel should be closed")
}

func TestDial_BadAddress(t *testing.T) {
	_, err := Dial("not-an-address", logging.Discard())
	assert.Error(t, err)
}
