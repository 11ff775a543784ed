package sctp

import (
	"encoding/binary"
	"fmt"
)

// initCommonLength is the size of INIT/INIT_ACK's mandatory fixed fields,
// following the chunk header (spec.md §3).
const initCommonLength = 16

// initCommon holds the fields shared by INIT and INIT_ACK.
type initCommon struct {
	initiateTag      uint32
	advertisedRwnd   uint32
	outboundStreams  uint16
	inboundStreams   uint16
	initialTSN       uint32
	params           []param
}

func (i *initCommon) unmarshalCommon(value []byte) error {
	if len(value) < initCommonLength {
		return fmt.Errorf("%w: INIT common fields need %d bytes, got %d", ErrChunkTooShort, initCommonLength, len(value))
	}
	i.initiateTag = binary.BigEndian.Uint32(value[0:])
	i.advertisedRwnd = binary.BigEndian.Uint32(value[4:])
	i.outboundStreams = binary.BigEndian.Uint16(value[8:])
	i.inboundStreams = binary.BigEndian.Uint16(value[10:])
	i.initialTSN = binary.BigEndian.Uint32(value[12:])
	params, err := parseParams(value[initCommonLength:])
	if err != nil {
		return err
	}
	i.params = params
	return nil
}

func (i *initCommon) marshalCommon() []byte {
	value := make([]byte, initCommonLength)
	binary.BigEndian.PutUint32(value[0:], i.initiateTag)
	binary.BigEndian.PutUint32(value[4:], i.advertisedRwnd)
	binary.BigEndian.PutUint16(value[8:], i.outboundStreams)
	binary.BigEndian.PutUint16(value[10:], i.inboundStreams)
	binary.BigEndian.PutUint32(value[12:], i.initialTSN)
	return append(value, marshalParams(i.params)...)
}

// paramByType returns the first parameter of the given type, if present.
func (i *initCommon) paramByType(t paramType) (param, bool) {
	for _, p := range i.params {
		if p.paramType == t {
			return p, true
		}
	}
	return param{}, false
}

// chunkInit is the INIT chunk (spec.md §3). Its flags are reserved and
// must be zero.
type chunkInit struct {
	initCommon
}

func (c *chunkInit) chunkType() chunkType { return ctInit }

func (c *chunkInit) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctInit {
		return fmt.Errorf("%w: expected INIT, got %s", ErrWrongChunkType, hdr.typ)
	}
	return c.unmarshalCommon(hdr.value)
}

func (c *chunkInit) marshal() ([]byte, error) {
	return marshalChunk(c, 0, c.marshalCommon()), nil
}

func (c *chunkInit) String() string {
	return fmt.Sprintf("INIT tag=%d tsn=%d", c.initiateTag, c.initialTSN)
}

// chunkInitAck is the INIT_ACK chunk (spec.md §3); it carries the
// STATE_COOKIE parameter among initCommon.params.
type chunkInitAck struct {
	initCommon
}

func (c *chunkInitAck) chunkType() chunkType { return ctInitAck }

func (c *chunkInitAck) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctInitAck {
		return fmt.Errorf("%w: expected INIT_ACK, got %s", ErrWrongChunkType, hdr.typ)
	}
	return c.unmarshalCommon(hdr.value)
}

func (c *chunkInitAck) marshal() ([]byte, error) {
	return marshalChunk(c, 0, c.marshalCommon()), nil
}

func (c *chunkInitAck) String() string {
	return fmt.Sprintf("INIT_ACK tag=%d tsn=%d", c.initiateTag, c.initialTSN)
}

// chunkCookieEcho carries the opaque state cookie echoed back by the
// client (spec.md §3).
type chunkCookieEcho struct {
	cookie []byte
}

func (c *chunkCookieEcho) chunkType() chunkType { return ctCookieEcho }

func (c *chunkCookieEcho) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctCookieEcho {
		return fmt.Errorf("%w: expected COOKIE_ECHO, got %s", ErrWrongChunkType, hdr.typ)
	}
	c.cookie = append([]byte(nil), hdr.value...)
	return nil
}

func (c *chunkCookieEcho) marshal() ([]byte, error) {
	return marshalChunk(c, 0, c.cookie), nil
}

func (c *chunkCookieEcho) String() string {
	return fmt.Sprintf("COOKIE_ECHO len=%d", len(c.cookie))
}

// chunkCookieAck has no body.
type chunkCookieAck struct{}

func (c *chunkCookieAck) chunkType() chunkType { return ctCookieAck }

func (c *chunkCookieAck) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctCookieAck {
		return fmt.Errorf("%w: expected COOKIE_ACK, got %s", ErrWrongChunkType, hdr.typ)
	}
	return nil
}

func (c *chunkCookieAck) marshal() ([]byte, error) {
	return marshalChunk(c, 0, nil), nil
}

func (c *chunkCookieAck) String() string { return "COOKIE_ACK" }
