package srtppair

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedKeySalt(seed byte) []byte {
	buf := make([]byte, KeyLength+SaltLength)
	for i := range buf {
		buf[i] = seed + byte(i)
	}
	return buf
}

func TestPair_NewRejectsWrongLength(t *testing.T) {
	_, err := New(fixedKeySalt(1)[:10], fixedKeySalt(2))
	assert.Error(t, err)
}

func TestPair_ProtectUnprotectRoundTrip(t *testing.T) {
	clientKeySalt := fixedKeySalt(1)
	serverKeySalt := fixedKeySalt(2)

	// The client's outbound key is the server's inbound key, and vice
	// versa, mirroring the TX/RX index swap in spec.md §4.5.
	clientPair, err := New(serverKeySalt, clientKeySalt)
	require.NoError(t, err)
	serverPair, err := New(clientKeySalt, serverKeySalt)
	require.NoError(t, err)

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    111,
			SequenceNumber: 1,
			Timestamp:      1000,
			SSRC:           0xCAFE,
		},
		Payload: []byte("hello media"),
	}
	plaintext, err := pkt.Marshal()
	require.NoError(t, err)

	ciphertext, err := clientPair.ProtectRTP(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := serverPair.UnprotectRTP(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}
