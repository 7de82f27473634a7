package sim

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/palletizer/pkg/protocol"
)

const (
	maxDatagram   = 64 * 1024
	messageBuffer = 256
)

// Received is a decoded datagram.
type Received struct {
	Message protocol.Message
	From    net.Addr
	At      time.Time
}

// Listener receives and decodes simulator datagrams in the background.
// Messages are queued in arrival order; when the queue is full new messages
// are dropped.
type Listener struct {
	conn *net.UDPConn
	log  *logrus.Logger
	msgs chan Received

	closeOnce sync.Once
	done      chan struct{}
}

// Listen binds addr (e.g. ":5005" or "127.0.0.1:0") and starts receiving.
func Listen(addr string, log *logrus.Logger) (*Listener, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	l := &Listener{
		conn: conn,
		log:  log,
		msgs: make(chan Received, messageBuffer),
		done: make(chan struct{}),
	}
	go l.receive()
	log.WithField("addr", conn.LocalAddr().String()).Info("listening for simulation messages")
	return l, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Messages returns the channel of decoded messages. It is closed after Close.
func (l *Listener) Messages() <-chan Received {
	return l.msgs
}

// Close stops receiving. It is idempotent.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.conn.Close()
		<-l.done
	})
	return err
}

func (l *Listener) receive() {
	defer close(l.done)
	defer close(l.msgs)

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.WithError(err).Warn("udp receive error")
			continue
		}

		msg, err := protocol.Decode(buf[:n])
		if err != nil {
			l.log.WithError(err).WithField("from", from.String()).Warn("dropping malformed datagram")
			continue
		}

		select {
		case l.msgs <- Received{Message: msg, From: from, At: time.Now()}:
		default:
			l.log.WithField("type", msg.Type()).Warn("message queue full, dropping")
		}
	}
}
