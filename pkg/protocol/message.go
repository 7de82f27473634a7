// Package protocol defines the datagram messages mirrored to the simulator.
//
// Every message is a single compact JSON object carrying a schema version
// ("v") and a "type" discriminator:
//
//	{"v":1,"type":"move","j1":0.0,"j2":0.0,"j3":0.0,"j4":0.0,"speed":40.0}
//	{"v":1,"type":"sync_move","j1":0.0,"j2":0.0,"j3":0.0,"j4":0.0,"speed":40.0}
//	{"v":1,"type":"led","r":0,"g":255,"b":128}
package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Version is the schema version stamped on every message.
const Version = 1

// MessageType identifies the kind of message.
type MessageType string

const (
	TypeMove     MessageType = "move"      // fire-and-forget motion
	TypeSyncMove MessageType = "sync_move" // motion the simulator completes before the next command
	TypeLED      MessageType = "led"
)

// Tags used by older simulator bridges, accepted by Decode.
const (
	legacyTypeMove     MessageType = "move_joints"
	legacyTypeSyncMove MessageType = "sync_move_joints"
)

// Message is one of Move, SyncMove or LED.
type Message interface {
	Type() MessageType
	isMessage()
}

// Joints are the four joint angles and the speed of a motion command.
type Joints struct {
	J1, J2, J3, J4 float64
	Speed          int
}

// Move is a fire-and-forget motion command.
type Move struct{ Joints }

// SyncMove is a motion command the receiver finishes before handling the next one.
type SyncMove struct{ Joints }

// LED sets the end-effector color.
type LED struct {
	R, G, B uint8
}

func (Move) Type() MessageType     { return TypeMove }
func (SyncMove) Type() MessageType { return TypeSyncMove }
func (LED) Type() MessageType      { return TypeLED }

func (Move) isMessage()     {}
func (SyncMove) isMessage() {}
func (LED) isMessage()      {}

// Float is a float64 that always encodes with a decimal point (40 -> 40.0),
// keeping floating fields recognisable to loosely typed consumers.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("unsupported float value %v", v)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

type moveWire struct {
	V     int         `json:"v"`
	Type  MessageType `json:"type"`
	J1    Float       `json:"j1"`
	J2    Float       `json:"j2"`
	J3    Float       `json:"j3"`
	J4    Float       `json:"j4"`
	Speed Float       `json:"speed"`
}

type ledWire struct {
	V    int         `json:"v"`
	Type MessageType `json:"type"`
	R    int         `json:"r"`
	G    int         `json:"g"`
	B    int         `json:"b"`
}

// EncodeMove encodes a fire-and-forget move.
func EncodeMove(j Joints) ([]byte, error) {
	return encodeJoints(TypeMove, j)
}

// EncodeSyncMove encodes a synchronized move.
func EncodeSyncMove(j Joints) ([]byte, error) {
	return encodeJoints(TypeSyncMove, j)
}

// EncodeLED encodes a color command.
func EncodeLED(l LED) ([]byte, error) {
	return json.Marshal(ledWire{
		V:    Version,
		Type: TypeLED,
		R:    int(l.R),
		G:    int(l.G),
		B:    int(l.B),
	})
}

// Encode encodes any message variant.
func Encode(m Message) ([]byte, error) {
	switch m := m.(type) {
	case Move:
		return EncodeMove(m.Joints)
	case SyncMove:
		return EncodeSyncMove(m.Joints)
	case LED:
		return EncodeLED(m)
	case nil:
		return nil, fmt.Errorf("encode: nil message")
	}
	return nil, fmt.Errorf("encode: unsupported message %T", m)
}

func encodeJoints(t MessageType, j Joints) ([]byte, error) {
	data, err := json.Marshal(moveWire{
		V:     Version,
		Type:  t,
		J1:    Float(j.J1),
		J2:    Float(j.J2),
		J3:    Float(j.J3),
		J4:    Float(j.J4),
		Speed: Float(j.Speed),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return data, nil
}

// envelope holds the union of all wire fields.
type envelope struct {
	V     *int        `json:"v"`
	Type  MessageType `json:"type"`
	J1    float64     `json:"j1"`
	J2    float64     `json:"j2"`
	J3    float64     `json:"j3"`
	J4    float64     `json:"j4"`
	Speed float64     `json:"speed"`
	R     int         `json:"r"`
	G     int         `json:"g"`
	B     int         `json:"b"`
}

// Decode parses a datagram payload. Messages without a version are accepted
// as version 1; newer versions are rejected.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if env.V != nil && *env.V > Version {
		return nil, fmt.Errorf("unsupported message version %d", *env.V)
	}

	joints := Joints{
		J1:    env.J1,
		J2:    env.J2,
		J3:    env.J3,
		J4:    env.J4,
		Speed: int(math.Round(env.Speed)),
	}

	switch env.Type {
	case TypeMove, legacyTypeMove:
		return Move{joints}, nil
	case TypeSyncMove, legacyTypeSyncMove:
		return SyncMove{joints}, nil
	case TypeLED:
		return LED{R: channel(env.R), G: channel(env.G), B: channel(env.B)}, nil
	case "":
		return nil, fmt.Errorf("message has no type")
	}
	return nil, fmt.Errorf("unknown message type %q", env.Type)
}

func channel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
