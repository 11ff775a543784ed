package datachannel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", ReadyState(99).String())
}

func TestChannel_SendBeforeOpenRejected(t *testing.T) {
	ch := newChannel(nil, 2, "chat", "", 0, 0)
	assert.ErrorIs(t, ch.Send([]byte("hi")), ErrChannelNotOpen)
	assert.ErrorIs(t, ch.SendText("hi"), ErrChannelNotOpen)
}

func TestChannel_OnOpenFiresOnEverySetStateOpen(t *testing.T) {
	ch := newChannel(nil, 2, "chat", "", 0, 0)

	fired := 0
	ch.OnOpen(func() { fired++ })

	ch.setState(StateOpen)
	assert.Equal(t, 1, fired)
	assert.Equal(t, StateOpen, ch.ReadyState())

	// A second transition to the same state still invokes the handler;
	// dedup (if any) is the caller's concern, not Channel's.
	ch.setState(StateOpen)
	assert.Equal(t, 2, fired)
}

func TestChannel_OnCloseFiresOnClose(t *testing.T) {
	ch := newChannel(nil, 2, "chat", "", 0, 0)

	closed := false
	ch.OnClose(func() { closed = true })

	ch.Close()
	assert.True(t, closed)
	assert.Equal(t, StateClosed, ch.ReadyState())
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	ch := newChannel(nil, 2, "chat", "", 0, 0)

	calls := 0
	ch.OnClose(func() { calls++ })

	ch.Close()
	ch.Close()
	assert.Equal(t, 1, calls)
}

func TestChannel_DeliverInvokesOnMessage(t *testing.T) {
	ch := newChannel(nil, 2, "chat", "", 0, 0)

	var got Message
	ch.OnMessage(func(m Message) { got = m })

	ch.deliver(Message{Data: []byte("hi"), IsString: true})
	assert.Equal(t, Message{Data: []byte("hi"), IsString: true}, got)
}

func TestChannel_DeliverWithoutHandlerDoesNotPanic(t *testing.T) {
	ch := newChannel(nil, 2, "chat", "", 0, 0)
	assert.NotPanics(t, func() { ch.deliver(Message{Data: []byte("hi")}) })
}

func TestChannel_Accessors(t *testing.T) {
	ch := newChannel(nil, 4, "chat", "json", 128, 3)
	assert.Equal(t, "chat", ch.Label())
	assert.Equal(t, "json", ch.Protocol())
	assert.Equal(t, uint16(4), ch.StreamID())
	assert.Equal(t, uint16(128), ch.Priority)
	assert.Equal(t, uint32(3), ch.Reliability)
}
