// SPDX-License-Identifier: MIT

package sctp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
	"github.com/pion/randutil"
)

// Association states (spec.md §3, §4.6).
const (
	stateClosed uint32 = iota
	stateCookieWait
	stateCookieEchoed
	stateEstablished
	stateShutdownPending
	stateShutdownSent
	stateShutdownReceived
	stateShutdownAckSent
)

func stateString(s uint32) string {
	switch s {
	case stateClosed:
		return "CLOSED"
	case stateCookieWait:
		return "COOKIE_WAIT"
	case stateCookieEchoed:
		return "COOKIE_ECHOED"
	case stateEstablished:
		return "ESTABLISHED"
	case stateShutdownPending:
		return "SHUTDOWN_PENDING"
	case stateShutdownSent:
		return "SHUTDOWN_SENT"
	case stateShutdownReceived:
		return "SHUTDOWN_RECEIVED"
	case stateShutdownAckSent:
		return "SHUTDOWN_ACK_SENT"
	default:
		return fmt.Sprintf("INVALID:%d", s)
	}
}

// fragmentSize is the maximum user-data bytes per DATA chunk fragment
// (spec.md §4.4).
const fragmentSize = 1200

// defaultAdvertisedRwnd and the stream caps are spec.md §3's association
// defaults.
const (
	defaultAdvertisedRwnd = 131072
	defaultStreamCap      = 65535
	hmacKeyLength         = 16
)

// globalMathRandomGenerator mirrors the teacher's package-level generator:
// non-cryptographic randomness is used for verification tags and initial
// TSNs. The HMAC cookie key is read from crypto/rand instead (see
// newAssociation).
var globalMathRandomGenerator = randutil.NewMathRandomGenerator() //nolint:gochecknoglobals

// Transport is the datagram transport an Association sends SCTP packets
// over and reads them from — ordinarily a DTLS session's data channel
// (spec.md §2: "SCTP sits above the DTLS user-data channel"). Recv blocks
// until a datagram arrives and returns ErrConnectionClosed once the
// transport is torn down.
type Transport interface {
	Send(p []byte) error
	Recv() ([]byte, error)
}

// MessageHandler is invoked for every message a stream's reassembler
// completes, and for single-fragment DATA chunks. Implementations (e.g.
// the datachannel package) interpret ppid 50 as DCEP and everything else
// as user payload (spec.md §4.7).
type MessageHandler func(streamID uint16, ppid uint32, data []byte)

// Config configures a new Association (spec.md §6 SctpTransport::new).
type Config struct {
	Net            Transport
	LocalPort      uint16
	RemotePort     uint16
	MaxMessageSize uint32 // 0 means unbounded
	LoggerFactory  logging.LoggerFactory
	OnMessage      MessageHandler
	OnEstablished  func()
	OnClosed       func()
}

// Association is the chunk-driven SCTP state machine (spec.md §2 item 6,
// §4.3–§4.6). readLoop handles every inbound packet and writeLoop is the
// only caller of Transport.Send. State is not confined to one goroutine:
// Send, Shutdown, Abort and Close run on the caller's goroutine, the state
// field is atomic, and the reassemblers, outbound stream sequence numbers
// and SACK bookkeeping are guarded by mu. Outbound packets reach writeLoop
// through the buffered outbound channel.
type Association struct {
	net            Transport
	isClient       bool
	localPort      uint16
	remotePort     uint16
	maxMessageSize uint32
	onMessage      MessageHandler
	onEstablished  func()
	onClosed       func()
	log            logging.LeveledLogger

	state uint32 // atomic, one of the state* constants

	localTag  uint32
	remoteTag uint32

	localTSN         uint32
	lastReceivedTSN  uint32
	haveReceivedData bool

	hmacKey []byte

	advertisedRwnd uint32

	mu                sync.Mutex
	reassemblers      map[uint16]*reassembler
	outboundStreamSeq map[uint16]uint16
	sackDuplicates    []uint32
	sackNeeded        bool

	outbound  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// Server creates an Association that waits passively for an inbound INIT
// (spec.md §4.6 "Server start: stay CLOSED until INIT arrives").
func Server(config Config) (*Association, error) {
	a := newAssociation(config, false)
	go a.readLoop()
	go a.writeLoop()
	return a, nil
}

// Client creates an Association and immediately sends INIT (spec.md §4.6
// "Client start: send INIT → COOKIE_WAIT").
func Client(config Config) (*Association, error) {
	a := newAssociation(config, true)
	go a.readLoop()
	go a.writeLoop()
	if err := a.sendInit(); err != nil {
		return nil, err
	}
	a.setState(stateCookieWait)
	return a, nil
}

func newAssociation(config Config, isClient bool) *Association {
	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	hmacKey := make([]byte, hmacKeyLength)
	_, _ = rand.Read(hmacKey)

	return &Association{
		net:               config.Net,
		isClient:          isClient,
		localPort:         orDefaultPort(config.LocalPort),
		remotePort:        orDefaultPort(config.RemotePort),
		maxMessageSize:    config.MaxMessageSize,
		onMessage:         config.OnMessage,
		onEstablished:     config.OnEstablished,
		onClosed:          config.OnClosed,
		log:               loggerFactory.NewLogger("sctp"),
		state:             stateClosed,
		localTag:          nonZeroRandomUint32(),
		localTSN:          globalMathRandomGenerator.Uint32(),
		hmacKey:           hmacKey,
		advertisedRwnd:    defaultAdvertisedRwnd,
		reassemblers:      make(map[uint16]*reassembler),
		outboundStreamSeq: make(map[uint16]uint16),
		outbound:          make(chan []byte, 64),
		closed:            make(chan struct{}),
	}
}

func orDefaultPort(p uint16) uint16 {
	if p == 0 {
		return 5000
	}
	return p
}

func nonZeroRandomUint32() uint32 {
	for {
		if v := globalMathRandomGenerator.Uint32(); v != 0 {
			return v
		}
	}
}

func (a *Association) setState(newState uint32) {
	old := atomic.SwapUint32(&a.state, newState)
	if old != newState {
		a.log.Debugf("state change: %s -> %s", stateString(old), stateString(newState))
	}
	if newState == stateEstablished && old != stateEstablished && a.onEstablished != nil {
		a.onEstablished()
	}
}

// State returns the association's current state.
func (a *Association) State() uint32 { return atomic.LoadUint32(&a.state) }

// IsEstablished reports whether the association has completed its
// handshake and not yet begun shutting down (spec.md §4.6). Callers
// outside this package (the data-channel layer deciding whether to flush
// its pending-open queue) have no visibility into the numeric state
// constants, only this predicate.
func (a *Association) IsEstablished() bool { return a.State() == stateEstablished }

func (a *Association) generateNextTSN() uint32 {
	tsn := a.localTSN
	a.localTSN++
	return tsn
}

// Send fragments payload into at-most-fragmentSize DATA chunks and queues
// them for transmission on streamID (spec.md §4.4). There is no
// retransmit queue: correctness is delegated to the enclosing DTLS/UDP
// association's ordering and zero-packet-loss contract.
func (a *Association) Send(streamID uint16, ppid uint32, payload []byte) error {
	if a.maxMessageSize != 0 && uint32(len(payload)) > a.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(payload), a.maxMessageSize)
	}
	if a.State() != stateEstablished {
		return fmt.Errorf("sctp: cannot send before ESTABLISHED (state=%s)", stateString(a.State()))
	}

	// mu is held while the message is numbered and queued, so the
	// fragments of concurrent Sends never interleave their TSNs.
	a.mu.Lock()
	defer a.mu.Unlock()
	seq := a.outboundStreamSeq[streamID]
	a.outboundStreamSeq[streamID] = seq + 1

	fragments := fragmentPayload(payload)
	for i, frag := range fragments {
		dc := &chunkData{
			streamID:          streamID,
			streamSeq:         seq,
			protocol:          ppid,
			userData:          frag,
			beginningFragment: i == 0,
			endingFragment:    i == len(fragments)-1,
		}
		dc.tsn = a.generateNextTSN()

		pkt := &packet{
			sourcePort:      a.localPort,
			destinationPort: a.remotePort,
			verificationTag: a.remoteTag,
			chunks:          []chunk{dc},
		}
		if err := a.sendPacket(pkt); err != nil {
			return err
		}
	}
	return nil
}

func fragmentPayload(payload []byte) [][]byte {
	if len(payload) == 0 {
		return [][]byte{{}}
	}
	var out [][]byte
	for offset := 0; offset < len(payload); offset += fragmentSize {
		end := offset + fragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		out = append(out, payload[offset:end])
	}
	return out
}

func (a *Association) sendInit() error {
	pkt := &packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: 0,
		chunks: []chunk{&chunkInit{initCommon{
			initiateTag:     a.localTag,
			advertisedRwnd:  a.advertisedRwnd,
			outboundStreams: defaultStreamCap,
			inboundStreams:  defaultStreamCap,
			initialTSN:      a.localTSN,
		}}},
	}
	return a.sendPacket(pkt)
}

func (a *Association) sendPacket(pkt *packet) error {
	raw, err := pkt.marshal()
	if err != nil {
		return err
	}
	select {
	case a.outbound <- raw:
		return nil
	case <-a.closed:
		return ErrConnectionClosed
	}
}

func (a *Association) writeLoop() {
	for {
		select {
		case raw := <-a.outbound:
			if err := a.net.Send(raw); err != nil {
				a.log.Warnf("send failed: %v", err)
			}
		case <-a.closed:
			return
		}
	}
}

func (a *Association) readLoop() {
	for {
		raw, err := a.net.Recv()
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				a.finish()
				return
			}
			a.log.Warnf("recv failed: %v", err)
			continue
		}

		var pkt packet
		if err := pkt.unmarshal(raw); err != nil {
			a.log.Debugf("dropping packet: %v", err)
			continue
		}
		if err := a.checkPacket(&pkt); err != nil {
			a.log.Debugf("dropping packet: %v", err)
			continue
		}

		for _, c := range pkt.chunks {
			a.handleChunk(&pkt, c)
		}

		a.mu.Lock()
		needSack := a.sackNeeded
		a.mu.Unlock()
		if needSack {
			a.sendSack()
		}

		if a.State() == stateClosed {
			a.finish()
			return
		}
	}
}

func (a *Association) finish() {
	a.closeOnce.Do(func() {
		close(a.closed)
		if a.onClosed != nil {
			a.onClosed()
		}
	})
}

// checkPacket enforces spec.md §4.3's tag-check invariants: an INIT packet
// must be alone with a zero tag; every other packet's tag must match
// localTag.
func (a *Association) checkPacket(pkt *packet) error {
	var initCount int
	for _, c := range pkt.chunks {
		if c.chunkType() == ctInit {
			initCount++
		}
	}
	if initCount > 0 {
		if len(pkt.chunks) != 1 {
			return ErrInitNotAlone
		}
		if pkt.verificationTag != 0 {
			return ErrInitTagNotZero
		}
		return nil
	}
	if pkt.verificationTag != a.localTag {
		return ErrVerificationTagMismatch
	}
	return nil
}

func (a *Association) handleChunk(pkt *packet, c chunk) { //nolint:cyclop
	switch v := c.(type) {
	case *chunkInit:
		if a.isClient {
			return
		}
		a.handleInit(v)
	case *chunkInitAck:
		if !a.isClient {
			return
		}
		a.handleInitAck(v)
	case *chunkCookieEcho:
		if a.isClient {
			return
		}
		a.handleCookieEcho(v)
	case *chunkCookieAck:
		if !a.isClient {
			return
		}
		a.handleCookieAck()
	case *chunkData:
		a.handleData(v)
	case *chunkSack:
		// Parsed, never acted on: no retransmit queue exists to retire
		// (Non-goals: congestion control / selective retransmit).
	case *chunkHeartbeat:
		a.handleHeartbeat(v)
	case *chunkHeartbeatAck:
		// No heartbeat timer is implemented; nothing to reconcile.
	case *chunkAbort:
		a.handleAbort(v)
	case *chunkError:
		if a.isClient && (a.State() == stateCookieWait || a.State() == stateCookieEchoed) {
			a.setState(stateClosed)
		}
	case *chunkShutdown:
		a.handleShutdown(v)
	case *chunkShutdownAck:
		a.handleShutdownAck()
	case *chunkShutdownComplete:
		a.setState(stateClosed)
	}
	_ = pkt
}

func (a *Association) handleInit(c *chunkInit) {
	a.lastReceivedTSN = c.initialTSN - 1
	a.remoteTag = c.initiateTag

	cookie := mintCookie(a.hmacKey, time.Now().Unix())
	reply := &chunkInitAck{initCommon{
		initiateTag:     a.localTag,
		advertisedRwnd:  a.advertisedRwnd,
		outboundStreams: defaultStreamCap,
		inboundStreams:  defaultStreamCap,
		initialTSN:      a.localTSN,
		params:          []param{{paramType: paramStateCookie, value: cookie}},
	}}

	_ = a.sendPacket(&packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: c.initiateTag,
		chunks:          []chunk{reply},
	})
}

func (a *Association) handleInitAck(c *chunkInitAck) {
	if a.State() != stateCookieWait {
		return
	}
	a.lastReceivedTSN = c.initialTSN - 1
	a.remoteTag = c.initiateTag

	cookieParam, ok := c.paramByType(paramStateCookie)
	if !ok {
		a.log.Warnf("INIT_ACK missing state cookie")
		return
	}

	echo := &chunkCookieEcho{cookie: cookieParam.value}
	if err := a.sendPacket(&packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: a.remoteTag,
		chunks:          []chunk{echo},
	}); err != nil {
		return
	}
	a.setState(stateCookieEchoed)
}

func (a *Association) handleCookieEcho(c *chunkCookieEcho) {
	if err := verifyCookie(a.hmacKey, c.cookie, time.Now().Unix()); err != nil {
		if errors.Is(err, ErrCookieStale) {
			_ = a.sendPacket(&packet{
				sourcePort:      a.localPort,
				destinationPort: a.remotePort,
				verificationTag: a.remoteTag,
				chunks:          []chunk{newStaleCookieError()},
			})
		}
		a.log.Debugf("rejecting cookie echo: %v", err)
		return
	}

	_ = a.sendPacket(&packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: a.remoteTag,
		chunks:          []chunk{&chunkCookieAck{}},
	})
	a.setState(stateEstablished)
}

func (a *Association) handleCookieAck() {
	if a.State() != stateCookieEchoed {
		return
	}
	a.setState(stateEstablished)
}

func (a *Association) handleHeartbeat(c *chunkHeartbeat) {
	_ = a.sendPacket(&packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: a.remoteTag,
		chunks:          []chunk{&chunkHeartbeatAck{paramCarrier{params: c.params}}},
	})
}

func (a *Association) handleData(c *chunkData) { //nolint:cyclop
	a.mu.Lock()

	if a.haveReceivedData && tsnGTE(a.lastReceivedTSN, c.tsn) {
		a.sackDuplicates = append(a.sackDuplicates, c.tsn)
		a.sackNeeded = true
		a.mu.Unlock()
		return
	}
	if a.haveReceivedData && c.tsn != a.lastReceivedTSN+1 {
		a.sackNeeded = true
		a.mu.Unlock()
		return
	}

	a.lastReceivedTSN = c.tsn
	a.haveReceivedData = true
	a.sackNeeded = true

	re, ok := a.reassemblers[c.streamID]
	if !ok {
		re = &reassembler{}
		a.reassemblers[c.streamID] = re
	}
	re.insert(c)
	msgs := re.drain()
	// Deliver without holding mu: the handler may call Send (a DCEP ACK).
	a.mu.Unlock()

	for _, msg := range msgs {
		if a.onMessage != nil {
			a.onMessage(msg.streamID, msg.protocol, msg.userData)
		}
	}
}

func (a *Association) sendSack() {
	a.mu.Lock()
	dups := a.sackDuplicates
	a.sackDuplicates = nil
	a.sackNeeded = false
	cum := a.lastReceivedTSN
	a.mu.Unlock()

	_ = a.sendPacket(&packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: a.remoteTag,
		chunks: []chunk{&chunkSack{
			cumulativeTSN:  cum,
			advertisedRwnd: a.advertisedRwnd,
			duplicateTSNs:  dups,
		}},
	})
}

func (a *Association) handleAbort(_ *chunkAbort) {
	a.setState(stateClosed)
}

func (a *Association) handleShutdown(_ *chunkShutdown) {
	a.setState(stateShutdownReceived)
	_ = a.sendPacket(&packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: a.remoteTag,
		chunks:          []chunk{&chunkShutdownAck{}},
	})
	a.setState(stateShutdownAckSent)
}

func (a *Association) handleShutdownAck() {
	_ = a.sendPacket(&packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: a.remoteTag,
		chunks:          []chunk{&chunkShutdownComplete{}},
	})
	a.setState(stateClosed)
}

// Shutdown initiates the graceful four-way close (spec.md §4.4, §4.6).
// Idempotent: calling it on a CLOSED association is a no-op.
func (a *Association) Shutdown(ctx context.Context) error {
	if a.State() == stateClosed {
		return nil
	}
	if err := a.sendPacket(&packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: a.remoteTag,
		chunks:          []chunk{&chunkShutdown{cumulativeTSN: a.lastReceivedTSN}},
	}); err != nil {
		return err
	}
	a.setState(stateShutdownSent)

	select {
	case <-a.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort tears the association down immediately, sending ABORT first
// (spec.md §4.4).
func (a *Association) Abort(reason string) {
	_ = a.sendPacket(&packet{
		sourcePort:      a.localPort,
		destinationPort: a.remotePort,
		verificationTag: a.remoteTag,
		chunks: []chunk{&chunkAbort{paramCarrier{params: []param{{
			paramType: paramType(causeProtocolViolation),
			value:     []byte(reason),
		}}}}},
	})
	a.setState(stateClosed)
	a.finish()
}

// Close tears the association down without notifying the peer.
func (a *Association) Close() error {
	a.setState(stateClosed)
	a.finish()
	return nil
}

// SetMaxMessageSize configures the negotiated maximum message size
// (SPEC_FULL.md §4.10); 0 means unbounded.
func (a *Association) SetMaxMessageSize(max uint32) { a.maxMessageSize = max }

// MaxMessageSize returns the current negotiated bound.
func (a *Association) MaxMessageSize() uint32 { return a.maxMessageSize }
