package dtlstransport

import (
	"net"
	"time"

	"github.com/pion/transport/v3/deadline"
)

// Transport is the raw datagram channel a Session drives its DTLS
// handshake and subsequent demux over — normally an ICE candidate pair's
// selected UDP socket (spec.md §4.5: "attach a memory BIO pair as I/O").
// Recv returns an error once the underlying channel is torn down.
type Transport interface {
	Send(p []byte) error
	Recv() ([]byte, error)
}

// pipeAddr is a placeholder net.Addr: bioConn has no real socket address,
// only the caller-supplied Transport and the demux loop feeding it.
type pipeAddr struct{ role string }

func (a pipeAddr) Network() string { return "dtls-bio" }
func (a pipeAddr) String() string  { return a.role }

// bioConn adapts a classified stream of inbound DTLS datagrams plus a raw
// outbound Transport into a net.Conn, standing in for the memory BIO pair
// spec.md §4.5 describes. Reads never touch the Transport directly — the
// session's demux loop (demux.go) is the only goroutine that calls
// Transport.Recv, classifying each datagram by RFC 7983 first byte and
// handing DTLS-range bytes to this conn's inbound channel. This keeps
// DTLS and SRTP/SRTCP, which share one transport, from colliding in
// pion/dtls's record-layer parser.
type bioConn struct {
	send func([]byte) error

	inbound chan []byte
	closed  chan struct{}

	readDeadline  *deadline.Deadline
	writeDeadline *deadline.Deadline

	pending []byte // leftover from an inbound datagram that didn't fit the caller's buffer
}

func newBioConn(send func([]byte) error) *bioConn {
	return &bioConn{
		send:          send,
		inbound:       make(chan []byte, 64),
		closed:        make(chan struct{}),
		readDeadline:  deadline.New(),
		writeDeadline: deadline.New(),
	}
}

func (c *bioConn) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		select {
		case <-c.readDeadline.Done():
			return 0, errDeadlineExceeded
		default:
		}

		select {
		case datagram, ok := <-c.inbound:
			if !ok {
				return 0, errConnClosed
			}
			c.pending = datagram
		case <-c.closed:
			return 0, errConnClosed
		case <-c.readDeadline.Done():
			return 0, errDeadlineExceeded
		}
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *bioConn) Write(p []byte) (int, error) {
	select {
	case <-c.writeDeadline.Done():
		return 0, errDeadlineExceeded
	default:
	}
	if err := c.send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *bioConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

func (c *bioConn) LocalAddr() net.Addr  { return pipeAddr{"local"} }
func (c *bioConn) RemoteAddr() net.Addr { return pipeAddr{"remote"} }

func (c *bioConn) SetDeadline(t time.Time) error {
	c.readDeadline.Set(t)
	return c.SetWriteDeadline(t)
}

func (c *bioConn) SetReadDeadline(t time.Time) error {
	c.readDeadline.Set(t)
	return nil
}

func (c *bioConn) SetWriteDeadline(t time.Time) error {
	c.writeDeadline.Set(t)
	return nil
}

var _ net.Conn = (*bioConn)(nil)

// deliver hands a classified DTLS-range datagram to the conn's read side.
// Called only by the session's demux loop.
func (c *bioConn) deliver(datagram []byte) {
	select {
	case c.inbound <- datagram:
	case <-c.closed:
	}
}
