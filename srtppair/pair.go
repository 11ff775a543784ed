// Package srtppair wraps a pair of per-direction SRTP/SRTCP sessions keyed
// from DTLS-exported keying material (spec.md §3/§4.5: "two opaque
// per-direction sessions, keyed from the exported secret").
package srtppair

import (
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/srtp/v3"
)

// KeyLength and SaltLength are the sizes the exported DTLS-SRTP keying
// material is partitioned into: a 16-byte key and a 14-byte salt per
// direction.
const (
	KeyLength  = 16
	SaltLength = 14
)

// Protection is the negotiated DTLS-SRTP protection profile this pair
// always uses: AES_CM_128_HMAC_SHA1_80 (spec.md §4.5's `use_srtp`
// advertisement).
const Protection = srtp.ProtectionProfileAes128CmHmacSha1_80

// Pair is two independent SRTP contexts, one per direction, each keyed
// with its own 30-byte key||salt slice (spec.md §3).
type Pair struct {
	inbound  *srtp.Context
	outbound *srtp.Context
}

// New builds a Pair from two already-partitioned 30-byte key||salt
// buffers. Partitioning the exported keying material into these two
// buffers (and picking which is inbound vs outbound by role) is the
// caller's job — see dtlstransport/session.go.
func New(inboundKeySalt, outboundKeySalt []byte) (*Pair, error) {
	inCtx, err := newContext(inboundKeySalt)
	if err != nil {
		return nil, fmt.Errorf("srtppair: inbound context: %w", err)
	}
	outCtx, err := newContext(outboundKeySalt)
	if err != nil {
		return nil, fmt.Errorf("srtppair: outbound context: %w", err)
	}
	return &Pair{inbound: inCtx, outbound: outCtx}, nil
}

func newContext(keySalt []byte) (*srtp.Context, error) {
	if len(keySalt) != KeyLength+SaltLength {
		return nil, fmt.Errorf("srtppair: key||salt must be %d bytes, got %d", KeyLength+SaltLength, len(keySalt))
	}
	return srtp.CreateContext(keySalt[:KeyLength], keySalt[KeyLength:], Protection)
}

// ProtectRTP encrypts an outbound RTP packet.
func (p *Pair) ProtectRTP(plaintext []byte) ([]byte, error) {
	return p.outbound.EncryptRTP(nil, plaintext, &rtp.Header{})
}

// UnprotectRTP decrypts an inbound RTP packet.
func (p *Pair) UnprotectRTP(ciphertext []byte) ([]byte, error) {
	return p.inbound.DecryptRTP(nil, ciphertext, &rtp.Header{})
}

// ProtectRTCP encrypts an outbound RTCP packet.
func (p *Pair) ProtectRTCP(plaintext []byte) ([]byte, error) {
	return p.outbound.EncryptRTCP(nil, plaintext, nil)
}

// UnprotectRTCP decrypts an inbound RTCP packet.
func (p *Pair) UnprotectRTCP(ciphertext []byte) ([]byte, error) {
	return p.inbound.DecryptRTCP(nil, ciphertext, nil)
}
