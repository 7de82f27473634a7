// Package sim mirrors arm commands to a simulator over UDP and provides the
// receiving side used by the monitor and by tests.
package sim

import (
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/palletizer/pkg/protocol"
)

var errSenderClosed = errors.New("simulation sender closed")

// TransportError reports a datagram that could not be sent.
type TransportError struct {
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send datagram to %s: %v", e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Sender sends one datagram per message to a fixed address. Delivery is best
// effort: nothing is acknowledged or retried.
type Sender struct {
	conn   *net.UDPConn
	addr   *net.UDPAddr
	log    *logrus.Logger
	closed bool
}

// Dial resolves addr and opens an unbound UDP socket for sending to it.
func Dial(addr string, log *logrus.Logger) (*Sender, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	log.WithField("addr", raddr.String()).Info("simulation output ready")
	return &Sender{conn: conn, addr: raddr, log: log}, nil
}

// Addr returns the destination address.
func (s *Sender) Addr() string {
	return s.addr.String()
}

// Send encodes m and transmits it as a single datagram.
func (s *Sender) Send(m protocol.Message) error {
	if s.closed {
		return &TransportError{Addr: s.addr.String(), Err: errSenderClosed}
	}
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if _, err := s.conn.WriteToUDP(data, s.addr); err != nil {
		return &TransportError{Addr: s.addr.String(), Err: err}
	}
	s.log.WithField("payload", string(data)).Debug("datagram sent")
	return nil
}

// Close closes the local socket. It is idempotent.
func (s *Sender) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
