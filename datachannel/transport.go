package datachannel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/logging"

	"github.com/webrtcdc/rtcdc/sctp"
)

var (
	// ErrStreamIDInUse is returned when a remote DCEP OPEN names a stream
	// ID this transport already has a channel registered on.
	ErrStreamIDInUse = errors.New("datachannel: stream ID already in use")

	// ErrWrongParity is returned when a remote DCEP OPEN's stream ID has
	// the same parity as this side's own allocator (spec.md §4.7:
	// "require... the *opposite* parity to our allocator seed").
	ErrWrongParity = errors.New("datachannel: stream ID has wrong parity")
)

// Config configures a Transport (spec.md §6 SctpTransport::new).
type Config struct {
	LoggerFactory logging.LoggerFactory
	// OnDataChannel is invoked for every channel opened by the remote
	// peer, once its DCEP handshake completes (spec.md §4.7 "emit a
	// datachannel event").
	OnDataChannel func(*Channel)
}

// Transport interprets DCEP (payload-protocol 50) and four user-payload
// protocol identifiers on top of an sctp.Association, the data-channel
// layer of spec.md §2 item 7.
type Transport struct {
	association *sctp.Association
	isClient    bool
	log         logging.LeveledLogger

	onDataChannel func(*Channel)

	mu       sync.Mutex
	channels map[uint16]*Channel
	nextSeed uint16 // next stream ID this side will allocate
	pending  []*Channel
}

// NewTransport wraps an already-constructed association. isClient
// decides this side's stream-ID parity seed: 0 for the server, 1 for
// the client (spec.md §8: "server starts at 0, client at 1").
func NewTransport(association *sctp.Association, isClient bool, config Config) *Transport {
	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	t := &Transport{
		association:   association,
		isClient:      isClient,
		log:           loggerFactory.NewLogger("datachannel"),
		onDataChannel: config.OnDataChannel,
		channels:      make(map[uint16]*Channel),
	}
	if isClient {
		t.nextSeed = 1
	}
	return t
}

// seedParity is this side's allocator parity: 0 (even) for the server,
// 1 (odd) for the client.
func (t *Transport) seedParity() uint16 {
	if t.isClient {
		return 1
	}
	return 0
}

func (t *Transport) allocateStreamID() uint16 {
	id := t.nextSeed
	t.nextSeed += 2
	return id
}

// OnMessage is the sctp.MessageHandler this transport registers with its
// association: DCEP on ppid 50, everything else routed to the owning
// channel (spec.md §4.7).
func (t *Transport) OnMessage(streamID uint16, ppid uint32, data []byte) {
	if ppid == ppidDCEP {
		t.handleDCEP(streamID, data)
		return
	}

	t.mu.Lock()
	ch := t.channels[streamID]
	t.mu.Unlock()
	if ch == nil {
		t.log.Warnf("message for unknown stream %d (ppid %d)", streamID, ppid)
		return
	}

	payload, isString, ok := dataForPayload(ppid, data)
	if !ok {
		t.log.Warnf("unrecognized payload-protocol identifier %d on stream %d", ppid, streamID)
		return
	}
	ch.deliver(Message{Data: payload, IsString: isString})
}

func (t *Transport) handleDCEP(streamID uint16, data []byte) {
	if len(data) == 0 {
		t.log.Warn("dropping empty DCEP message")
		return
	}

	switch data[0] {
	case dcepTypeOpen:
		t.handleDCEPOpen(streamID, data)
	case dcepTypeACK:
		t.handleDCEPAck(streamID)
	default:
		t.log.Warnf("dropping DCEP message with unknown type %d", data[0])
	}
}

func (t *Transport) handleDCEPOpen(streamID uint16, data []byte) {
	open, err := unmarshalDCEPOpen(data)
	if err != nil {
		t.log.Warnf("dropping malformed DCEP OPEN: %v", err)
		return
	}

	t.mu.Lock()
	if _, exists := t.channels[streamID]; exists {
		t.mu.Unlock()
		t.log.Warnf("%v: stream %d", ErrStreamIDInUse, streamID)
		return
	}
	if streamID%2 == t.seedParity() {
		t.mu.Unlock()
		t.log.Warnf("%v: stream %d", ErrWrongParity, streamID)
		return
	}

	ch := newChannel(t, streamID, open.label, open.protocol, open.priority, open.reliability)
	t.channels[streamID] = ch
	t.mu.Unlock()

	if err := t.association.Send(streamID, ppidDCEP, marshalDCEPAck()); err != nil {
		t.log.Warnf("sending DCEP ACK for stream %d: %v", streamID, err)
	}
	ch.setState(StateOpen)

	if t.onDataChannel != nil {
		t.onDataChannel(ch)
	}
}

func (t *Transport) handleDCEPAck(streamID uint16) {
	t.mu.Lock()
	ch := t.channels[streamID]
	t.mu.Unlock()
	if ch == nil {
		t.log.Warnf("DCEP ACK for unknown stream %d", streamID)
		return
	}
	ch.setState(StateOpen)
}

// Open allocates a stream from this side's parity sequence, registers
// the channel, and enqueues its OPEN message, flushing immediately if
// the association is already ESTABLISHED (spec.md §4.7 "Channel open
// (our side)").
func (t *Transport) Open(label, protocol string) (*Channel, error) {
	t.mu.Lock()
	streamID := t.allocateStreamID()
	ch := newChannel(t, streamID, label, protocol, 0, 0)
	t.channels[streamID] = ch
	established := t.association.IsEstablished()
	if !established {
		t.pending = append(t.pending, ch)
	}
	t.mu.Unlock()

	if established {
		if err := t.sendOpen(ch); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

func (t *Transport) sendOpen(ch *Channel) error {
	open := dcepOpen{
		channelType: channelTypeReliable,
		priority:    ch.Priority,
		reliability: ch.Reliability,
		label:       ch.label,
		protocol:    ch.protocol,
	}
	if err := t.association.Send(ch.streamID, ppidDCEP, marshalDCEPOpen(open)); err != nil {
		return fmt.Errorf("datachannel: sending DCEP OPEN: %w", err)
	}
	return nil
}

// FlushPending sends OPEN for every channel queued before the
// association reached ESTABLISHED (spec.md §4.6: "Entering ESTABLISHED
// triggers flushing the pending data-channel queue"). Register this as
// the association's OnEstablished callback.
func (t *Transport) FlushPending() {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, ch := range pending {
		if err := t.sendOpen(ch); err != nil {
			t.log.Warnf("flushing pending open for stream %d: %v", ch.streamID, err)
		}
	}
}
