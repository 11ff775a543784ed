// Package dtlstransport implements the DTLS/SRTP security envelope that
// fronts an SCTP association: a process-wide handshake context, a
// per-session handshake-then-demux state machine, and SHA-256 fingerprint
// binding to an out-of-band SDP identity.
package dtlstransport

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/pion/dtls/v3"
	"github.com/pion/logging"
)

// Context is the process-wide DTLS configuration (spec.md §2 item 3, §4.5
// "Acquisition (once per process)"): one certificate/key pair, a fixed
// cipher and SRTP-profile set, and peer-certificate-required
// authentication with the actual identity check deferred to the
// fingerprint comparison in Connect.
type Context struct {
	config           *dtls.Config
	localFingerprint string
	loggerFactory    logging.LoggerFactory
}

// NewContext builds the shared DTLS context used by every Session the
// process creates (spec.md §4.5). loggerFactory may be nil, in which case
// a default logger is used.
func NewContext(loggerFactory logging.LoggerFactory) (*Context, error) {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	cert, fingerprint, err := generateCertificate()
	if err != nil {
		return nil, err
	}

	return &Context{
		config: &dtls.Config{
			Certificates: []tls.Certificate{cert},
			// The corpus's OpenSSL-string cipher policy ("HIGH:!CAMELLIA:
			// !aNULL") has no literal equivalent in pion/dtls's discrete
			// CipherSuiteID enum; this is the closest modern, AEAD-first
			// subset of what that policy would have selected.
			CipherSuites: []dtls.CipherSuiteID{
				dtls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				dtls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				dtls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
				dtls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
			},
			SRTPProtectionProfiles: []dtls.SRTPProtectionProfile{
				dtls.SRTP_AES128_CM_HMAC_SHA1_80,
			},
			ClientAuth: dtls.RequireAnyClientCert,
			// The peer certificate is never checked against a CA chain:
			// WebRTC identity is fingerprint-bound, checked out-of-band
			// against the SDP-supplied remote_fingerprint after handshake
			// (spec.md §4.5, §7 AuthError).
			InsecureSkipVerify:    true,
			VerifyPeerCertificate: func([][]byte, [][]*x509.Certificate) error { return nil },
			LoggerFactory:         loggerFactory,
		},
		localFingerprint: fingerprint,
		loggerFactory:    loggerFactory,
	}, nil
}

// LocalFingerprint is this process's certificate fingerprint, the value
// advertised in outbound SDP (spec.md §3 "local_fingerprint").
func (c *Context) LocalFingerprint() string { return c.localFingerprint }
