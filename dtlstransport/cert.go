package dtlstransport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/pion/dtls/v3"
)

// generateCertificate builds the process-wide self-signed certificate
// spec.md §4.5 calls "a certificate/private-key pair loaded from an
// in-binary asset": generated once at context construction rather than
// read from disk, since this transport's identity is bound to its SDP
// fingerprint, not to a CA-issued chain.
func generateCertificate() (tls.Certificate, string, error) {
	cert, err := dtls.GenerateSelfSigned()
	if err != nil {
		return tls.Certificate{}, "", fmt.Errorf("dtlstransport: generating self-signed certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, "", fmt.Errorf("dtlstransport: parsing generated certificate: %w", err)
	}

	return cert, computeFingerprint(leaf.Raw), nil
}
