// Package sctp implements the subset of RFC 4960 this module needs: a
// packet/chunk codec, a per-stream reassembler, and a cookie-authenticated
// association state machine carrying DCEP and user data over a DTLS channel.
package sctp

import "errors"

// Decode errors (spec.md §7 DecodeError): malformed bytes off the wire.
// Callers drop the packet silently; these are surfaced to the codec's own
// tests.
var (
	ErrTruncatedPacket    = errors.New("sctp: raw packet shorter than the 12-byte common header")
	ErrInvalidChecksum    = errors.New("sctp: crc32c checksum mismatch")
	ErrTruncatedChunk     = errors.New("sctp: not enough bytes for a complete chunk header")
	ErrTruncatedParam     = errors.New("sctp: not enough bytes for a complete parameter header")
	ErrChunkTooShort      = errors.New("sctp: chunk value shorter than its mandatory fields")
	ErrWrongChunkType     = errors.New("sctp: unmarshal called with mismatched chunk type")
)

// Protocol errors (spec.md §7 ProtocolError).
var (
	ErrVerificationTagMismatch = errors.New("sctp: verification tag does not match")
	ErrInitNotAlone            = errors.New("sctp: INIT chunk must be the only chunk in its packet")
	ErrInitTagNotZero          = errors.New("sctp: packet carrying INIT must have a zero verification tag")
)

// Auth errors (spec.md §7 AuthError).
var (
	ErrCookieMACMismatch = errors.New("sctp: state cookie HMAC does not match")
	ErrCookieStale       = errors.New("sctp: state cookie timestamp outside the acceptance window")
	ErrCookieWrongLength = errors.New("sctp: state cookie has the wrong length")
)

// ErrConnectionClosed is the distinguished sentinel raised by receive
// primitives when the association's closed signal fires (spec.md §7
// ConnectionClosed).
var ErrConnectionClosed = errors.New("sctp: association closed")

// ErrMessageTooLarge is returned by Send when a payload exceeds the
// negotiated maximum message size (SPEC_FULL.md §4.10).
var ErrMessageTooLarge = errors.New("sctp: message exceeds the negotiated maximum size")

// ErrShutdownNotEstablished names a shutdown requested outside ESTABLISHED
// (mirrors the teacher's ErrShutdownNonEstablished). Shutdown does not
// return it: it sends SHUTDOWN from any state other than CLOSED.
var ErrShutdownNotEstablished = errors.New("sctp: shutdown requested outside an established association")
