package sctp

import (
	"encoding/binary"
	"fmt"
)

// paramCarrier is shared by the chunk types whose value is just a list of
// TLV parameters (ABORT, ERROR, HEARTBEAT, HEARTBEAT_ACK).
type paramCarrier struct {
	params []param
}

func (p *paramCarrier) unmarshalParams(value []byte) error {
	params, err := parseParams(value)
	if err != nil {
		return err
	}
	p.params = params
	return nil
}

func (p *paramCarrier) marshalParams() []byte {
	return marshalParams(p.params)
}

// chunkAbort signals immediate termination (spec.md §4.3/§4.6).
type chunkAbort struct{ paramCarrier }

func (c *chunkAbort) chunkType() chunkType { return ctAbort }

func (c *chunkAbort) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctAbort {
		return fmt.Errorf("%w: expected ABORT, got %s", ErrWrongChunkType, hdr.typ)
	}
	return c.unmarshalParams(hdr.value)
}

func (c *chunkAbort) marshal() ([]byte, error) {
	return marshalChunk(c, 0, c.marshalParams()), nil
}

func (c *chunkAbort) String() string { return "ABORT" }

// chunkError carries one or more cause codes (spec.md §3). This
// association only ever emits the STALE_COOKIE cause during the cookie
// handshake (spec.md §4.3); other causes are parsed for decode fidelity
// against a real peer (SPEC_FULL.md §4.10).
type chunkError struct{ paramCarrier }

func (c *chunkError) chunkType() chunkType { return ctError }

func (c *chunkError) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctError {
		return fmt.Errorf("%w: expected ERROR, got %s", ErrWrongChunkType, hdr.typ)
	}
	return c.unmarshalParams(hdr.value)
}

func (c *chunkError) marshal() ([]byte, error) {
	return marshalChunk(c, 0, c.marshalParams()), nil
}

func (c *chunkError) String() string { return "ERROR" }

// newStaleCookieError builds the ERROR(STALE_COOKIE) reply spec.md §4.3
// describes: cause STALE_COOKIE(3), 8 zero bytes of payload.
func newStaleCookieError() *chunkError {
	return &chunkError{paramCarrier{params: []param{{
		paramType: paramType(causeStaleCookie),
		value:     make([]byte, 8),
	}}}}
}

// chunkHeartbeat/chunkHeartbeatAck carry an opaque parameter list that is
// echoed back verbatim (spec.md §4.3: "reply HEARTBEAT_ACK echoing
// parameters"). No timer drives outbound HEARTBEATs in this core.
type chunkHeartbeat struct{ paramCarrier }

func (c *chunkHeartbeat) chunkType() chunkType { return ctHeartbeat }

func (c *chunkHeartbeat) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctHeartbeat {
		return fmt.Errorf("%w: expected HEARTBEAT, got %s", ErrWrongChunkType, hdr.typ)
	}
	return c.unmarshalParams(hdr.value)
}

func (c *chunkHeartbeat) marshal() ([]byte, error) {
	return marshalChunk(c, 0, c.marshalParams()), nil
}

func (c *chunkHeartbeat) String() string { return "HEARTBEAT" }

type chunkHeartbeatAck struct{ paramCarrier }

func (c *chunkHeartbeatAck) chunkType() chunkType { return ctHeartbeatAck }

func (c *chunkHeartbeatAck) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctHeartbeatAck {
		return fmt.Errorf("%w: expected HEARTBEAT_ACK, got %s", ErrWrongChunkType, hdr.typ)
	}
	return c.unmarshalParams(hdr.value)
}

func (c *chunkHeartbeatAck) marshal() ([]byte, error) {
	return marshalChunk(c, 0, c.marshalParams()), nil
}

func (c *chunkHeartbeatAck) String() string { return "HEARTBEAT_ACK" }

// chunkShutdown carries the sender's last-received (cumulative) TSN
// (spec.md §3).
type chunkShutdown struct {
	cumulativeTSN uint32
}

func (c *chunkShutdown) chunkType() chunkType { return ctShutdown }

func (c *chunkShutdown) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctShutdown {
		return fmt.Errorf("%w: expected SHUTDOWN, got %s", ErrWrongChunkType, hdr.typ)
	}
	if len(hdr.value) < 4 {
		return fmt.Errorf("%w: SHUTDOWN needs 4 bytes, got %d", ErrChunkTooShort, len(hdr.value))
	}
	c.cumulativeTSN = binary.BigEndian.Uint32(hdr.value[0:])
	return nil
}

func (c *chunkShutdown) marshal() ([]byte, error) {
	value := make([]byte, 4)
	binary.BigEndian.PutUint32(value, c.cumulativeTSN)
	return marshalChunk(c, 0, value), nil
}

func (c *chunkShutdown) String() string {
	return fmt.Sprintf("SHUTDOWN cum_tsn=%d", c.cumulativeTSN)
}

type chunkShutdownAck struct{}

func (c *chunkShutdownAck) chunkType() chunkType { return ctShutdownAck }

func (c *chunkShutdownAck) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctShutdownAck {
		return fmt.Errorf("%w: expected SHUTDOWN_ACK, got %s", ErrWrongChunkType, hdr.typ)
	}
	return nil
}

func (c *chunkShutdownAck) marshal() ([]byte, error) {
	return marshalChunk(c, 0, nil), nil
}

func (c *chunkShutdownAck) String() string { return "SHUTDOWN_ACK" }

type chunkShutdownComplete struct{}

func (c *chunkShutdownComplete) chunkType() chunkType { return ctShutdownComplete }

func (c *chunkShutdownComplete) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctShutdownComplete {
		return fmt.Errorf("%w: expected SHUTDOWN_COMPLETE, got %s", ErrWrongChunkType, hdr.typ)
	}
	return nil
}

func (c *chunkShutdownComplete) marshal() ([]byte, error) {
	return marshalChunk(c, 0, nil), nil
}

func (c *chunkShutdownComplete) String() string { return "SHUTDOWN_COMPLETE" }
