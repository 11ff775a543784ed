package sctp

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // RFC 4960's cookie MAC is specified as HMAC-SHA1.
	"encoding/binary"
	"fmt"
)

// cookieLength is the fixed size of this association's state cookie:
// a 4-byte big-endian timestamp followed by a 20-byte HMAC-SHA1 (spec.md
// §4.3, GLOSSARY "Cookie").
const cookieLength = 4 + sha1.Size

// cookieStaleWindow is how far in the past a cookie's timestamp may be
// before it is rejected as stale (spec.md §4.3: "now - 60 <= timestamp").
const cookieStaleWindow = 60

// mintCookie builds a self-contained, stateless cookie binding a mint
// timestamp to an HMAC over that timestamp, keyed by the association's
// per-run HMAC key. No per-peer state is retained between INIT and
// COOKIE_ECHO.
func mintCookie(hmacKey []byte, now int64) []byte {
	cookie := make([]byte, cookieLength)
	binary.BigEndian.PutUint32(cookie[0:4], uint32(now)) //nolint:gosec // wire format is a 32-bit timestamp.

	mac := hmac.New(sha1.New, hmacKey)
	mac.Write(cookie[0:4])
	copy(cookie[4:], mac.Sum(nil))

	return cookie
}

// verifyCookie checks a COOKIE_ECHO's cookie against the per-association
// HMAC key and the acceptance window around now (spec.md §4.3).
func verifyCookie(hmacKey, cookie []byte, now int64) error {
	if len(cookie) != cookieLength {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrCookieWrongLength, len(cookie), cookieLength)
	}

	mac := hmac.New(sha1.New, hmacKey)
	mac.Write(cookie[0:4])
	if !hmac.Equal(mac.Sum(nil), cookie[4:]) {
		return ErrCookieMACMismatch
	}

	timestamp := int64(binary.BigEndian.Uint32(cookie[0:4]))
	if timestamp < now-cookieStaleWindow || timestamp > now {
		return fmt.Errorf("%w: timestamp=%d now=%d", ErrCookieStale, timestamp, now)
	}

	return nil
}
