package robot

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Controller board framing: 0xFE 0xFE <len> <cmd> <data...> 0xFA,
// where len counts cmd, data and the footer.
const (
	frameHeader = 0xFE
	frameFooter = 0xFA

	// maxFrameLen is the largest len byte the board uses (send angles:
	// cmd, 8 angle bytes, speed, footer) with some headroom.
	maxFrameLen = 16
)

// Controller board command codes.
const (
	cmdPowerOn      byte = 0x10
	cmdGetAngles    byte = 0x20
	cmdSendAngles   byte = 0x22
	cmdIsInPosition byte = 0x2A
	cmdSetColor     byte = 0x6A
)

// frame is one decoded command or reply.
type frame struct {
	cmd  byte
	data []byte
}

func encodeFrame(cmd byte, data ...byte) []byte {
	buf := make([]byte, 0, len(data)+5)
	buf = append(buf, frameHeader, frameHeader, byte(len(data)+2), cmd)
	buf = append(buf, data...)
	return append(buf, frameFooter)
}

// encodeAngles packs angles as big-endian int16 hundredths of a degree.
// Values beyond the int16 range saturate.
func encodeAngles(a Angles) []byte {
	buf := make([]byte, 0, 2*NumJoints)
	for _, v := range a {
		buf = binary.BigEndian.AppendUint16(buf, uint16(angleToInt16(v)))
	}
	return buf
}

func decodeAngles(data []byte) (Angles, error) {
	var a Angles
	if len(data) < 2*NumJoints {
		return a, fmt.Errorf("angles reply too short: %d bytes", len(data))
	}
	for i := range a {
		raw := int16(binary.BigEndian.Uint16(data[2*i:]))
		a[i] = float64(raw) / 100
	}
	return a, nil
}

func angleToInt16(v float64) int16 {
	scaled := math.Round(v * 100)
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

func sendAnglesFrame(a Angles, speed int) []byte {
	data := append(encodeAngles(a), byte(speed))
	return encodeFrame(cmdSendAngles, data...)
}

func isInPositionFrame(a Angles) []byte {
	// Trailing 0 selects angle (not coordinate) comparison.
	data := append(encodeAngles(a), 0)
	return encodeFrame(cmdIsInPosition, data...)
}

func setColorFrame(c Color) []byte {
	return encodeFrame(cmdSetColor, c.R, c.G, c.B)
}

// parseFrame extracts the first complete frame from buf. It returns the
// number of bytes consumed; bytes before a valid header are skipped. When no
// complete frame is available ok is false and n is the count of noise bytes
// that can be dropped.
//
// A header whose length is out of range is noise. An incomplete frame that is
// followed by a complete one is noise too.
func parseFrame(buf []byte) (f frame, n int, ok bool) {
	i := 0
	for i+1 < len(buf) {
		if buf[i] != frameHeader || buf[i+1] != frameHeader {
			i++
			continue
		}
		if i+2 >= len(buf) {
			return frame{}, i, false
		}
		length := int(buf[i+2])
		if length < 2 || length > maxFrameLen {
			i++
			continue
		}
		end := i + 3 + length // exclusive
		if end > len(buf) {
			if f, n, ok := parseFrame(buf[i+1:]); ok {
				return f, i + 1 + n, true
			}
			return frame{}, i, false
		}
		if buf[end-1] != frameFooter {
			i++
			continue
		}
		data := make([]byte, length-2)
		copy(data, buf[i+4:end-1])
		return frame{cmd: buf[i+3], data: data}, end, true
	}
	return frame{}, i, false
}
