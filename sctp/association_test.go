package sctp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wiredTransport connects two Associations directly, standing in for the
// DTLS data channel in these tests (an association is transport-agnostic
// above any reliable, in-order datagram channel).
type wiredTransport struct {
	send chan []byte
	recv chan []byte
}

func newWiredPair() (*wiredTransport, *wiredTransport) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	return &wiredTransport{send: ab, recv: ba}, &wiredTransport{send: ba, recv: ab}
}

func (w *wiredTransport) Send(p []byte) error {
	cp := append([]byte(nil), p...)
	select {
	case w.send <- cp:
		return nil
	case <-time.After(time.Second):
		return ErrConnectionClosed
	}
}

func (w *wiredTransport) Recv() ([]byte, error) {
	select {
	case p := <-w.recv:
		return p, nil
	case <-time.After(5 * time.Second):
		return nil, ErrConnectionClosed
	}
}

func waitForState(t *testing.T, a *Association, want uint32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if a.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for state %s, still %s", stateString(want), stateString(a.State()))
		case <-time.After(time.Millisecond):
		}
	}
}

func TestAssociation_Handshake(t *testing.T) {
	clientTransport, serverTransport := newWiredPair()

	server, err := Server(Config{Net: serverTransport})
	require.NoError(t, err)

	client, err := Client(Config{Net: clientTransport})
	require.NoError(t, err)

	waitForState(t, client, stateEstablished)
	waitForState(t, server, stateEstablished)
}

func TestAssociation_DataExchange(t *testing.T) {
	clientTransport, serverTransport := newWiredPair()

	received := make(chan string, 1)
	server, err := Server(Config{
		Net: serverTransport,
		OnMessage: func(streamID uint16, ppid uint32, data []byte) {
			received <- string(data)
		},
	})
	require.NoError(t, err)

	client, err := Client(Config{Net: clientTransport})
	require.NoError(t, err)

	waitForState(t, client, stateEstablished)
	waitForState(t, server, stateEstablished)

	require.NoError(t, client.Send(0, 51, []byte("hello from client")))

	select {
	case msg := <-received:
		assert.Equal(t, "hello from client", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestAssociation_FragmentedMessage(t *testing.T) {
	clientTransport, serverTransport := newWiredPair()

	received := make(chan []byte, 1)
	server, err := Server(Config{
		Net: serverTransport,
		OnMessage: func(streamID uint16, ppid uint32, data []byte) {
			received <- data
		},
	})
	require.NoError(t, err)

	client, err := Client(Config{Net: clientTransport})
	require.NoError(t, err)

	waitForState(t, client, stateEstablished)
	waitForState(t, server, stateEstablished)

	payload := make([]byte, fragmentSize*3+17)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, client.Send(0, 53, payload))

	select {
	case msg := <-received:
		assert.Equal(t, payload, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestAssociation_ShutdownHandshake(t *testing.T) {
	clientTransport, serverTransport := newWiredPair()

	server, err := Server(Config{Net: serverTransport})
	require.NoError(t, err)

	client, err := Client(Config{Net: clientTransport})
	require.NoError(t, err)

	waitForState(t, client, stateEstablished)
	waitForState(t, server, stateEstablished)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Shutdown(ctx))

	waitForState(t, server, stateClosed)
}

func TestAssociation_MessageTooLargeRejected(t *testing.T) {
	clientTransport, serverTransport := newWiredPair()

	_, err := Server(Config{Net: serverTransport})
	require.NoError(t, err)

	client, err := Client(Config{Net: clientTransport, MaxMessageSize: 10})
	require.NoError(t, err)

	waitForState(t, client, stateEstablished)

	err = client.Send(0, 51, make([]byte, 11))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestAssociation_SendBeforeEstablishedRejected(t *testing.T) {
	clientTransport, serverTransport := newWiredPair()
	_, err := Server(Config{Net: serverTransport})
	require.NoError(t, err)

	client, err := Client(Config{Net: clientTransport})
	require.NoError(t, err)

	err = client.Send(0, 51, []byte("too soon"))
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ESTABLISHED", stateString(stateEstablished))
	assert.Contains(t, stateString(99), "INVALID")
}

func TestFragmentPayload(t *testing.T) {
	assert.Equal(t, [][]byte{{}}, fragmentPayload(nil))

	payload := make([]byte, fragmentSize+1)
	frags := fragmentPayload(payload)
	require.Len(t, frags, 2)
	assert.Len(t, frags[0], fragmentSize)
	assert.Len(t, frags[1], 1)
}
