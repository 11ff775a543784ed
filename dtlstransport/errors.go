package dtlstransport

import "errors"

var (
	errDeadlineExceeded = errors.New("dtlstransport: i/o deadline exceeded")
	errConnClosed       = errors.New("dtlstransport: bio connection closed")

	// ErrFingerprintMismatch is returned by Connect when the peer
	// certificate's SHA-256 fingerprint does not match the expected
	// remote fingerprint supplied out-of-band (spec.md §4.5, §7 AuthError).
	ErrFingerprintMismatch = errors.New("dtlstransport: peer certificate fingerprint does not match remote_fingerprint")

	// ErrNotConnected is returned by SendData, SendRTP and SendRTCP when the
	// session is not CONNECTED, including after Close.
	ErrNotConnected = errors.New("dtlstransport: session is not CONNECTED")

	// ErrSessionClosed is returned by RecvData and RecvRTP once the session
	// is closed.
	ErrSessionClosed = errors.New("dtlstransport: session closed")
)
