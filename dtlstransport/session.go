package dtlstransport

import (
	"context"
	"crypto/x509"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/dtls/v3"
	"github.com/pion/logging"

	"github.com/webrtcdc/rtcdc/srtppair"
)

// Session states (spec.md §3 "DTLS session" field `state`).
const (
	StateClosed uint32 = iota
	StateConnecting
	StateConnected
)

func stateString(s uint32) string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return fmt.Sprintf("INVALID:%d", s)
	}
}

// keyingMaterialLength is the 60 bytes spec.md §4.5 exports: two 16-byte
// keys plus two 14-byte salts.
const keyingMaterialLength = 2*srtppair.KeyLength + 2*srtppair.SaltLength

// keyingMaterialLabel is the fixed exporter label for DTLS-SRTP
// (RFC 5764 §4.2, spec.md §4.5).
const keyingMaterialLabel = "EXTRACTOR-dtls_srtp"

// Session is a single peer connection's DTLS handshake-then-demux state
// machine (spec.md §2 item 4, §4.5). Connect starts the demux loop, the
// only reader of the raw Transport, and after the handshake an
// application-data loop; Connect and Close set the atomic state field on
// the caller's goroutine.
type Session struct {
	isServer     bool
	config       *dtls.Config
	conn         *bioConn
	rawTransport Transport
	dtls         *dtls.Conn

	remoteFingerprint string
	localFingerprint  string

	state uint32 // atomic, one of State*

	data chan []byte // DTLS application data, consumed by SCTP
	rtp  chan []byte // decrypted RTP/RTCP, consumed by a media layer

	srtp *srtppair.Pair

	closeOnce sync.Once
	closed    chan struct{}

	log logging.LeveledLogger
}

// NewSession allocates a session bound to transport t, ready for Connect
// (spec.md §4.5 "Per-session setup").
func (c *Context) NewSession(t Transport, isServer bool, remoteFingerprint string) *Session {
	return &Session{
		isServer:          isServer,
		config:            c.config,
		conn:              newBioConn(t.Send),
		rawTransport:      t,
		remoteFingerprint: remoteFingerprint,
		localFingerprint:  c.localFingerprint,
		data:              make(chan []byte, 64),
		rtp:               make(chan []byte, 64),
		closed:            make(chan struct{}),
		log:               c.loggerFactory.NewLogger("dtlstransport"),
	}
}

// Connect starts the demux loop, drives the DTLS handshake to completion
// over it, verifies the peer certificate's fingerprint, derives the SRTP
// key pair from the exported keying material, and starts the
// application-data loop (spec.md §4.5 `connect()` through "Post-handshake
// loop"). It uses the dtls.Config
// built once by the Context this session was created from.
func (s *Session) Connect(ctx context.Context) error {
	atomic.StoreUint32(&s.state, StateConnecting)

	// The demux loop must be running before the handshake starts: the
	// handshake's own flights arrive as DTLS-range datagrams that only
	// this loop delivers into s.conn (spec.md §4.5 "attach a memory BIO
	// pair as I/O" precedes "drive handshake to completion").
	go s.demuxLoop(s.rawTransport)

	var dtlsConn *dtls.Conn
	var err error
	if s.isServer {
		dtlsConn, err = dtls.ServerWithContext(ctx, s.conn, s.config)
	} else {
		dtlsConn, err = dtls.ClientWithContext(ctx, s.conn, s.config)
	}
	if err != nil {
		atomic.StoreUint32(&s.state, StateClosed)
		return fmt.Errorf("dtlstransport: handshake: %w", err)
	}
	s.dtls = dtlsConn

	if err := s.verifyPeerFingerprint(); err != nil {
		_ = dtlsConn.Close()
		atomic.StoreUint32(&s.state, StateClosed)
		return err
	}

	pair, err := s.deriveSRTPPair()
	if err != nil {
		_ = dtlsConn.Close()
		atomic.StoreUint32(&s.state, StateClosed)
		return err
	}
	s.srtp = pair

	atomic.StoreUint32(&s.state, StateConnected)
	go s.applicationDataLoop()
	return nil
}

func (s *Session) verifyPeerFingerprint() error {
	chains := s.dtls.ConnectionState().PeerCertificates
	if len(chains) == 0 {
		return fmt.Errorf("%w: peer presented no certificate", ErrFingerprintMismatch)
	}
	leaf, err := x509.ParseCertificate(chains[0])
	if err != nil {
		return fmt.Errorf("dtlstransport: parsing peer certificate: %w", err)
	}
	actual := computeFingerprint(leaf.Raw)
	if !fingerprintsEqual(actual, s.remoteFingerprint) {
		return fmt.Errorf("%w: got %s, want %s", ErrFingerprintMismatch, actual, s.remoteFingerprint)
	}
	return nil
}

// deriveSRTPPair exports keying material and partitions it into the
// inbound/outbound key||salt buffers, swapping the TX/RX index by role
// (spec.md §4.5: "Server uses index 1 for TX, 0 for RX; client uses the
// opposite").
func (s *Session) deriveSRTPPair() (*srtppair.Pair, error) {
	material, err := s.dtls.ExportKeyingMaterial(keyingMaterialLabel, nil, keyingMaterialLength)
	if err != nil {
		return nil, fmt.Errorf("dtlstransport: exporting keying material: %w", err)
	}

	const ks = srtppair.KeyLength + srtppair.SaltLength
	key0 := material[0:srtppair.KeyLength]
	key1 := material[srtppair.KeyLength : 2*srtppair.KeyLength]
	salt0 := material[2*srtppair.KeyLength : 2*srtppair.KeyLength+srtppair.SaltLength]
	salt1 := material[2*srtppair.KeyLength+srtppair.SaltLength : 2*srtppair.KeyLength+2*srtppair.SaltLength]

	keySalt0 := append(append(make([]byte, 0, ks), key0...), salt0...)
	keySalt1 := append(append(make([]byte, 0, ks), key1...), salt1...)

	if s.isServer {
		return srtppair.New(keySalt0, keySalt1) // RX=0, TX=1
	}
	return srtppair.New(keySalt1, keySalt0) // RX=1, TX=0
}

// State returns the session's current state.
func (s *Session) State() uint32 { return atomic.LoadUint32(&s.state) }

// LocalFingerprint is this session's (process-wide) certificate
// fingerprint.
func (s *Session) LocalFingerprint() string { return s.localFingerprint }

// SendData writes plaintext application data into the DTLS engine
// (spec.md §4.5 `send_data`); SCTP packets travel this path.
func (s *Session) SendData(p []byte) error {
	if s.State() != StateConnected {
		return ErrNotConnected
	}
	_, err := s.dtls.Write(p)
	return err
}

// RecvData blocks until the next decrypted application-data datagram
// arrives, or the session closes.
func (s *Session) RecvData() ([]byte, error) {
	select {
	case p, ok := <-s.data:
		if !ok {
			return nil, ErrSessionClosed
		}
		return p, nil
	case <-s.closed:
		return nil, ErrSessionClosed
	}
}

// SendRTP protects and sends an RTP packet (spec.md §4.5 `send_rtp`).
func (s *Session) SendRTP(plaintext []byte) error {
	if s.State() != StateConnected {
		return ErrNotConnected
	}
	ciphertext, err := s.srtp.ProtectRTP(plaintext)
	if err != nil {
		return err
	}
	return s.rawTransport.Send(ciphertext)
}

// SendRTCP protects and sends an RTCP packet.
func (s *Session) SendRTCP(plaintext []byte) error {
	if s.State() != StateConnected {
		return ErrNotConnected
	}
	ciphertext, err := s.srtp.ProtectRTCP(plaintext)
	if err != nil {
		return err
	}
	return s.rawTransport.Send(ciphertext)
}

// RecvRTP blocks until the next unprotected RTP/RTCP datagram arrives.
func (s *Session) RecvRTP() ([]byte, error) {
	select {
	case p, ok := <-s.rtp:
		if !ok {
			return nil, ErrSessionClosed
		}
		return p, nil
	case <-s.closed:
		return nil, ErrSessionClosed
	}
}

// Close sends a DTLS close-notify and releases the session (spec.md
// §4.5 `close()`). Idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.dtls != nil {
			err = s.dtls.Close()
		}
		_ = s.conn.Close()
		atomic.StoreUint32(&s.state, StateClosed)
		close(s.closed)
	})
	return err
}
