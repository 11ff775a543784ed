package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookie_RoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef")
	cookie := mintCookie(key, 1000)
	require.Len(t, cookie, cookieLength)
	assert.NoError(t, verifyCookie(key, cookie, 1000))
	assert.NoError(t, verifyCookie(key, cookie, 1000+cookieStaleWindow))
}

func TestCookie_StaleRejected(t *testing.T) {
	key := []byte("0123456789abcdef")
	cookie := mintCookie(key, 1000)
	err := verifyCookie(key, cookie, 1000+cookieStaleWindow+1)
	assert.ErrorIs(t, err, ErrCookieStale)
}

func TestCookie_FutureTimestampRejected(t *testing.T) {
	key := []byte("0123456789abcdef")
	cookie := mintCookie(key, 1000)
	err := verifyCookie(key, cookie, 999)
	assert.ErrorIs(t, err, ErrCookieStale)
}

func TestCookie_WrongKeyRejected(t *testing.T) {
	cookie := mintCookie([]byte("0123456789abcdef"), 1000)
	err := verifyCookie([]byte("fedcba9876543210"), cookie, 1000)
	assert.ErrorIs(t, err, ErrCookieMACMismatch)
}

func TestCookie_WrongLengthRejected(t *testing.T) {
	err := verifyCookie([]byte("0123456789abcdef"), []byte{1, 2, 3}, 1000)
	assert.ErrorIs(t, err, ErrCookieWrongLength)
}
