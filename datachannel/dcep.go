// Package datachannel implements WebRTC Data Channel Establishment
// Protocol framing atop an SCTP association: DCEP OPEN/ACK negotiation,
// a per-channel ready-state machine, and the payload-protocol-identifier
// mapping between Go strings/byte slices and the wire's four PPID
// variants.
package datachannel

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Stream payload-protocol identifiers (spec.md §4.7).
const (
	ppidDCEP        uint32 = 50
	ppidString      uint32 = 51
	ppidBinary      uint32 = 53
	ppidStringEmpty uint32 = 56
	ppidBinaryEmpty uint32 = 57
)

// DCEP message types (spec.md §4.7).
const (
	dcepTypeACK  uint8 = 2
	dcepTypeOpen uint8 = 3
)

// channelTypeReliable is the only channel_type this repo ever sends:
// partial reliability and unordered delivery are out of scope (spec.md
// Non-goals). The channel_type of a remote OPEN is parsed but not checked.
const channelTypeReliable uint8 = 0

var (
	// ErrTruncatedDCEP is returned when a DCEP OPEN message's declared
	// label/protocol lengths overrun the bytes actually present.
	ErrTruncatedDCEP = errors.New("datachannel: truncated DCEP message")

	// ErrUnknownDCEPType names a DCEP message type byte other than OPEN or
	// ACK. Transport does not return it: such messages are logged and
	// dropped.
	ErrUnknownDCEPType = errors.New("datachannel: unknown DCEP message type")
)

// dcepOpen is the decoded form of a DCEP OPEN message (spec.md §4.7).
type dcepOpen struct {
	channelType uint8
	priority    uint16
	reliability uint32
	label       string
	protocol    string
}

const dcepOpenHeaderLength = 1 + 1 + 2 + 4 + 2 + 2

func marshalDCEPOpen(o dcepOpen) []byte {
	label := []byte(o.label)
	protocol := []byte(o.protocol)

	buf := make([]byte, dcepOpenHeaderLength+len(label)+len(protocol))
	buf[0] = dcepTypeOpen
	buf[1] = o.channelType
	binary.BigEndian.PutUint16(buf[2:4], o.priority)
	binary.BigEndian.PutUint32(buf[4:8], o.reliability)
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(label)))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(protocol)))
	n := copy(buf[dcepOpenHeaderLength:], label)
	copy(buf[dcepOpenHeaderLength+n:], protocol)
	return buf
}

func unmarshalDCEPOpen(b []byte) (dcepOpen, error) {
	if len(b) < dcepOpenHeaderLength {
		return dcepOpen{}, fmt.Errorf("%w: OPEN header needs %d bytes, got %d", ErrTruncatedDCEP, dcepOpenHeaderLength, len(b))
	}

	labelLen := int(binary.BigEndian.Uint16(b[8:10]))
	protocolLen := int(binary.BigEndian.Uint16(b[10:12]))
	want := dcepOpenHeaderLength + labelLen + protocolLen
	if len(b) < want {
		return dcepOpen{}, fmt.Errorf("%w: OPEN body needs %d bytes, got %d", ErrTruncatedDCEP, want, len(b))
	}

	label := string(b[dcepOpenHeaderLength : dcepOpenHeaderLength+labelLen])
	protocol := string(b[dcepOpenHeaderLength+labelLen : want])

	return dcepOpen{
		channelType: b[1],
		priority:    binary.BigEndian.Uint16(b[2:4]),
		reliability: binary.BigEndian.Uint32(b[4:8]),
		label:       label,
		protocol:    protocol,
	}, nil
}

func marshalDCEPAck() []byte {
	return []byte{dcepTypeACK}
}

// payloadForData maps outbound Go data to its (ppid, wire bytes) pair
// (spec.md §4.7 "Sending payload").
func payloadForData(data []byte, isString bool) (uint32, []byte) {
	if isString {
		if len(data) == 0 {
			return ppidStringEmpty, []byte{0}
		}
		return ppidString, data
	}
	if len(data) == 0 {
		return ppidBinaryEmpty, []byte{0}
	}
	return ppidBinary, data
}

// dataForPayload maps an inbound (ppid, wire bytes) pair back to the
// delivered value and whether it is a string (spec.md §4.7 "Receiving":
// empty variants deliver an empty value regardless of the placeholder
// byte).
func dataForPayload(ppid uint32, wire []byte) (data []byte, isString bool, ok bool) {
	switch ppid {
	case ppidString:
		return wire, true, true
	case ppidStringEmpty:
		return nil, true, true
	case ppidBinary:
		return wire, false, true
	case ppidBinaryEmpty:
		return nil, false, true
	default:
		return nil, false, false
	}
}
