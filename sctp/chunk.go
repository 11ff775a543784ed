package sctp

import (
	"encoding/binary"
	"fmt"
)

// chunkHeaderSize is the fixed type(1)+flags(1)+length(2) prefix every
// chunk carries (spec.md §3).
const chunkHeaderSize = 4

// chunk is the tagged-sum abstraction from spec.md §9 "Dynamic chunk
// polymorphism": one variant per recognized chunk type, dispatched by tag
// on encode and mapped from the wire type byte on decode. Unknown types
// are skipped, never represented as a variant.
type chunk interface {
	chunkType() chunkType
	marshal() ([]byte, error)
	unmarshal(raw []byte) error
}

// marshalChunk wraps a chunk's value bytes with the common header and pads
// the result to a 4-byte boundary, per spec.md §3/§4.1.
func marshalChunk(c chunk, flags uint8, value []byte) []byte {
	length := chunkHeaderSize + len(value)
	raw := make([]byte, chunkHeaderSize, length+getPadding(length))
	raw[0] = uint8(c.chunkType())
	raw[1] = flags
	binary.BigEndian.PutUint16(raw[2:], uint16(length))
	raw = append(raw, value...)
	raw = append(raw, make([]byte, getPadding(length))...)
	return raw
}

// chunkHeader captures the common header fields needed before the
// type-specific parse, and validates them against raw.
type chunkHeader struct {
	typ    chunkType
	flags  uint8
	length int
	value  []byte
}

func parseChunkHeader(raw []byte) (chunkHeader, error) {
	if len(raw) < chunkHeaderSize {
		return chunkHeader{}, fmt.Errorf("%w: %d bytes remain", ErrTruncatedChunk, len(raw))
	}
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize || length > len(raw) {
		return chunkHeader{}, fmt.Errorf("%w: declared length %d, have %d", ErrTruncatedChunk, length, len(raw))
	}
	return chunkHeader{
		typ:    chunkType(raw[0]),
		flags:  raw[1],
		length: length,
		value:  raw[chunkHeaderSize:length],
	}, nil
}

// newChunk allocates the zero-value variant for a recognized wire type, or
// reports that the type is unknown so the caller can skip it.
func newChunk(typ chunkType) (chunk, bool) {
	switch typ {
	case ctData:
		return &chunkData{}, true
	case ctInit:
		return &chunkInit{}, true
	case ctInitAck:
		return &chunkInitAck{}, true
	case ctSack:
		return &chunkSack{}, true
	case ctHeartbeat:
		return &chunkHeartbeat{}, true
	case ctHeartbeatAck:
		return &chunkHeartbeatAck{}, true
	case ctAbort:
		return &chunkAbort{}, true
	case ctShutdown:
		return &chunkShutdown{}, true
	case ctShutdownAck:
		return &chunkShutdownAck{}, true
	case ctError:
		return &chunkError{}, true
	case ctCookieEcho:
		return &chunkCookieEcho{}, true
	case ctCookieAck:
		return &chunkCookieAck{}, true
	case ctShutdownComplete:
		return &chunkShutdownComplete{}, true
	default:
		return nil, false
	}
}
