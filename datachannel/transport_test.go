package datachannel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtcdc/rtcdc/sctp"
)

// wiredTransport connects two sctp.Associations directly, mirroring the
// sctp package's own test transport, so a Transport pair here can drive a
// full OPEN/ACK handshake without a real network or DTLS session.
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
		return sctp.ErrConnectionClosed
	}
}

func (w *wiredTransport) Recv() ([]byte, error) {
	select {
	case p := <-w.recv:
		return p, nil
	case <-time.After(5 * time.Second):
		return nil, sctp.ErrConnectionClosed
	}
}

func connectTransportPair(t *testing.T) (server, client *Transport) {
	t.Helper()

	serverNet, clientNet := newWiredPair()

	var serverDC, clientDC *Transport

	serverEstablished := make(chan struct{}, 1)
	clientEstablished := make(chan struct{}, 1)

	serverAssoc, err := sctp.Server(sctp.Config{
		Net:           serverNet,
		OnMessage:     func(streamID uint16, ppid uint32, data []byte) { serverDC.OnMessage(streamID, ppid, data) },
		OnEstablished: func() { serverDC.FlushPending(); serverEstablished <- struct{}{} },
	})
	require.NoError(t, err)
	serverDC = NewTransport(serverAssoc, false, Config{})

	clientAssoc, err := sctp.Client(sctp.Config{
		Net:           clientNet,
		OnMessage:     func(streamID uint16, ppid uint32, data []byte) { clientDC.OnMessage(streamID, ppid, data) },
		OnEstablished: func() { clientDC.FlushPending(); clientEstablished <- struct{}{} },
	})
	require.NoError(t, err)
	clientDC = NewTransport(clientAssoc, true, Config{})

	select {
	case <-serverEstablished:
	case <-time.After(5 * time.Second):
		t.Fatal("server association never reached ESTABLISHED")
	}
	select {
	case <-clientEstablished:
	case <-time.After(5 * time.Second):
		t.Fatal("client association never reached ESTABLISHED")
	}

	return serverDC, clientDC
}

func TestTransport_SeedParity(t *testing.T) {
	server := NewTransport(nil, false, Config{})
	client := NewTransport(nil, true, Config{})

	assert.Equal(t, uint16(0), server.allocateStreamID())
	assert.Equal(t, uint16(2), server.allocateStreamID())
	assert.Equal(t, uint16(1), client.allocateStreamID())
	assert.Equal(t, uint16(3), client.allocateStreamID())
}

func TestTransport_OpenAndOnDataChannel(t *testing.T) {
	var gotChannel *Channel
	opened := make(chan struct{})

	serverNet, clientNet := newWiredPair()
	var serverDC, clientDC *Transport

	serverAssoc, err := sctp.Server(sctp.Config{
		Net:           serverNet,
		OnMessage:     func(streamID uint16, ppid uint32, data []byte) { serverDC.OnMessage(streamID, ppid, data) },
		OnEstablished: func() { serverDC.FlushPending() },
	})
	require.NoError(t, err)
	serverDC = NewTransport(serverAssoc, false, Config{
		OnDataChannel: func(ch *Channel) {
			gotChannel = ch
			close(opened)
		},
	})

	clientAssoc, err := sctp.Client(sctp.Config{
		Net:           clientNet,
		OnMessage:     func(streamID uint16, ppid uint32, data []byte) { clientDC.OnMessage(streamID, ppid, data) },
		OnEstablished: func() { clientDC.FlushPending() },
	})
	require.NoError(t, err)
	clientDC = NewTransport(clientAssoc, true, Config{})

	ch, err := clientDC.Open("chat", "json")
	require.NoError(t, err)

	select {
	case <-opened:
	case <-time.After(5 * time.Second):
		t.Fatal("server never received data channel")
	}

	assert.Equal(t, "chat", gotChannel.Label())
	assert.Equal(t, "json", gotChannel.Protocol())
	assert.Equal(t, uint16(1), gotChannel.StreamID())

	require.Eventually(t, func() bool { return ch.ReadyState() == StateOpen }, time.Second, 10*time.Millisecond)
}

func TestTransport_SendAndReceiveAcrossPair(t *testing.T) {
	server, client := connectTransportPair(t)

	received := make(chan Message, 1)
	server.onDataChannel = func(ch *Channel) {
		ch.OnMessage(func(m Message) { received <- m })
	}

	ch, err := client.Open("chat", "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ch.ReadyState() == StateOpen }, time.Second, 10*time.Millisecond)

	require.NoError(t, ch.SendText("hello"))

	select {
	case msg := <-received:
		assert.Equal(t, "hello", string(msg.Data))
		assert.True(t, msg.IsString)
	case <-time.After(5 * time.Second):
		t.Fatal("message never arrived")
	}
}

func TestTransport_HandleDCEPOpenWrongParityRejected(t *testing.T) {
	server := NewTransport(nil, false, Config{})

	// Server allocator parity is even; a remote OPEN naming an even
	// stream ID violates spec.md §4.7's opposite-parity requirement.
	open := dcepOpen{channelType: channelTypeReliable, label: "chat"}
	server.handleDCEP(2, marshalDCEPOpen(open))

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Empty(t, server.channels)
}

func TestTransport_HandleDCEPOpenDuplicateStreamRejected(t *testing.T) {
	server := NewTransport(nil, false, Config{})
	server.channels[1] = newChannel(server, 1, "existing", "", 0, 0)

	open := dcepOpen{channelType: channelTypeReliable, label: "chat"}
	server.handleDCEP(1, marshalDCEPOpen(open))

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, "existing", server.channels[1].Label())
}

func TestTransport_HandleDCEPAckForUnknownStreamDoesNotPanic(t *testing.T) {
	server := NewTransport(nil, false, Config{})
	assert.NotPanics(t, func() { server.handleDCEPAck(7) })
}

func TestTransport_OnMessageForUnknownStreamDoesNotPanic(t *testing.T) {
	server := NewTransport(nil, false, Config{})
	assert.NotPanics(t, func() { server.OnMessage(9, ppidString, []byte("hi")) })
}
