package datachannel

import (
	"errors"
	"sync"
)

// ReadyState is a Channel's lifecycle stage (spec.md §4.7's implicit
// open/ack states, named after the browser DataChannel API this protocol
// serves).
type ReadyState int

const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrChannelNotOpen is returned by Send when the channel has not yet
// completed its OPEN/ACK handshake.
var ErrChannelNotOpen = errors.New("datachannel: channel not open")

// Message is a decoded application payload delivered to OnMessage
// (spec.md §4.7 "Receiving").
type Message struct {
	Data     []byte
	IsString bool
}

// Channel is one DCEP-negotiated stream: a label/protocol pair bound to
// an SCTP stream ID, with the reliability/priority fields carried but
// never acted on (spec.md §4.7's "priority:u16, reliability:u32" are
// parsed and stored — SPEC_FULL.md §4.10 "Supplemented features").
type Channel struct {
	transport *Transport
	streamID  uint16

	label    string
	protocol string

	Priority    uint16
	Reliability uint32

	mu               sync.RWMutex
	state            ReadyState
	onMessageHandler func(Message)
	onOpenHandler    func()
	onCloseHandler   func()
}

func newChannel(t *Transport, streamID uint16, label, protocol string, priority uint16, reliability uint32) *Channel {
	return &Channel{
		transport:   t,
		streamID:    streamID,
		label:       label,
		protocol:    protocol,
		Priority:    priority,
		Reliability: reliability,
		state:       StateConnecting,
	}
}

// Label is the application-chosen name for this channel.
func (c *Channel) Label() string { return c.label }

// Protocol is the application sub-protocol string negotiated at open.
func (c *Channel) Protocol() string { return c.protocol }

// StreamID is the SCTP stream this channel is bound to (spec.md §4.7).
func (c *Channel) StreamID() uint16 { return c.streamID }

// ReadyState returns the channel's current lifecycle stage.
func (c *Channel) ReadyState() ReadyState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Channel) setState(s ReadyState) {
	c.mu.Lock()
	c.state = s
	var handler func()
	switch s {
	case StateOpen:
		handler = c.onOpenHandler
	case StateClosed:
		handler = c.onCloseHandler
	}
	c.mu.Unlock()
	if handler != nil {
		handler()
	}
}

// OnOpen registers a callback fired once the channel's DCEP handshake
// completes (our OPEN is ACKed, or a remote OPEN is accepted).
func (c *Channel) OnOpen(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpenHandler = f
}

// OnClose registers a callback fired when the channel is torn down.
func (c *Channel) OnClose(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCloseHandler = f
}

// OnMessage registers a callback fired for every payload message
// delivered on this channel's stream.
func (c *Channel) OnMessage(f func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessageHandler = f
}

func (c *Channel) deliver(msg Message) {
	c.mu.RLock()
	handler := c.onMessageHandler
	c.mu.RUnlock()
	if handler != nil {
		handler(msg)
	}
}

// Send writes a binary message (spec.md §4.7 "Sending payload": empty
// byte string maps to the binary-empty placeholder).
func (c *Channel) Send(data []byte) error {
	return c.send(data, false)
}

// SendText writes a string message (empty string maps to the
// string-empty placeholder).
func (c *Channel) SendText(s string) error {
	return c.send([]byte(s), true)
}

func (c *Channel) send(data []byte, isString bool) error {
	if c.ReadyState() != StateOpen {
		return ErrChannelNotOpen
	}
	ppid, wire := payloadForData(data, isString)
	return c.transport.association.Send(c.streamID, ppid, wire)
}

// Close marks the channel closed locally. SCTP carries no DCEP CLOSE
// message (spec.md §4.7 defines only OPEN/ACK); tearing down the stream
// itself is the association's concern on Shutdown/Abort.
func (c *Channel) Close() {
	if c.ReadyState() == StateClosed {
		return
	}
	c.setState(StateClosed)
}
