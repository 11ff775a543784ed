package sctp

import (
	"encoding/binary"
	"fmt"
)

// paramHeaderSize is the fixed type+length prefix of a variable-length
// parameter (spec.md §3).
const paramHeaderSize = 4

// paramType is the two-byte type field of a TLV parameter.
type paramType uint16

// paramStateCookie is the distinguished STATE_COOKIE parameter type
// (spec.md §3).
const paramStateCookie paramType = 0x0007

// param is a decoded variable-length parameter: type plus raw value bytes
// (the 0..3 padding bytes are never part of value).
type param struct {
	paramType paramType
	value     []byte
}

// marshal serializes p as type(2) + length(2) + value + zero padding to the
// next 4-byte boundary. The padding bytes are NOT counted in length, per
// spec.md §3.
func (p param) marshal() []byte {
	length := paramHeaderSize + len(p.value)
	padded := length + getPadding(length)
	raw := make([]byte, padded)
	binary.BigEndian.PutUint16(raw[0:], uint16(p.paramType))
	binary.BigEndian.PutUint16(raw[2:], uint16(length))
	copy(raw[paramHeaderSize:], p.value)
	return raw
}

// parseParams walks a sequence of TLV parameters until raw is exhausted,
// advancing past each parameter's padding as it goes.
func parseParams(raw []byte) ([]param, error) {
	var params []param
	offset := 0
	for offset < len(raw) {
		if len(raw)-offset < paramHeaderSize {
			return nil, fmt.Errorf("%w: %d bytes remain", ErrTruncatedParam, len(raw)-offset)
		}
		pType := paramType(binary.BigEndian.Uint16(raw[offset:]))
		pLen := int(binary.BigEndian.Uint16(raw[offset+2:]))
		if pLen < paramHeaderSize || offset+pLen > len(raw) {
			return nil, fmt.Errorf("%w: declared length %d at offset %d", ErrTruncatedParam, pLen, offset)
		}
		params = append(params, param{
			paramType: pType,
			value:     append([]byte(nil), raw[offset+paramHeaderSize:offset+pLen]...),
		})
		offset += pLen + getPadding(pLen)
	}
	return params, nil
}

func marshalParams(params []param) []byte {
	var raw []byte
	for _, p := range params {
		raw = append(raw, p.marshal()...)
	}
	return raw
}

// getPadding returns the 0..3 zero bytes needed to round length up to the
// next multiple of 4.
func getPadding(length int) int {
	return (4 - (length % 4)) % 4
}
