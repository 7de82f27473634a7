package main

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/palletizer/internal/logging"
	"github.com/gwillem/palletizer/pkg/protocol"
	"github.com/gwillem/palletizer/pkg/sim"
)

func TestDescribe(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 30, 15, 250_000_000, time.UTC)

	move := describe(sim.Received{
		Message: protocol.Move{Joints: protocol.Joints{J1: 10, J2: 20, J3: -30, J4: 45, Speed: 50}},
		At:      at,
	})
	assert.Equal(t, "12:30:15.250 move      j1=10.0 j2=20.0 j3=-30.0 j4=45.0 speed=50", move)

	led := describe(sim.Received{Message: protocol.LED{R: 255, G: 0, B: 10}, At: at})
	assert.Equal(t, "12:30:15.250 led       r=255 g=0 b=10", led)
}

func TestMonitorModel_Update(t *testing.T) {
	l, err := sim.Listen("127.0.0.1:0", logging.Discard())
	require.NoError(t, err)
	defer l.Close()

	m := initialMonitorModel(l)

	next, cmd := m.Update(receivedMsg{Message: protocol.LED{R: 1, G: 2, B: 3}, At: time.Now()})
	require.NotNil(t, cmd)
	mm := next.(monitorModel)
	assert.Equal(t, 1, mm.count)
	assert.Equal(t, protocol.LED{R: 1, G: 2, B: 3}, mm.led)
	assert.Len(t, mm.logs, 1)

	for i := 0; i < maxLogs+3; i++ {
		next, _ = mm.Update(receivedMsg{Message: protocol.Move{}, At: time.Now()})
		mm = next.(monitorModel)
	}
	assert.Equal(t, maxLogs+4, mm.count)
	assert.Len(t, mm.logs, maxLogs)

	next, _ = mm.Update(listenerClosedMsg{})
	assert.True(t, next.(monitorModel).quitting)

	next, _ = mm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, "Monitor stopped.\n", next.(monitorModel).View())
}
