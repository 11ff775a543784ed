// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// castagnoliTable is the CRC32c table spec.md §4.1 requires.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli) //nolint:gochecknoglobals

// fourZeroes stands in for the zeroed checksum field while computing the
// CRC, avoiding an extra allocation/clear per packet.
var fourZeroes [4]byte //nolint:gochecknoglobals

// packetHeaderSize is the 12-byte common header (spec.md §3).
const packetHeaderSize = 12

/*
packet is an SCTP packet (spec.md §3): a 12-byte common header followed by
zero or more chunks, each padded to a 4-byte boundary.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|          Source Port          |       Destination Port        |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                      Verification Tag                         |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                 Checksum (byte-swapped CRC32c)                |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type packet struct {
	sourcePort      uint16
	destinationPort uint16
	verificationTag uint32
	chunks          []chunk
}

// unmarshal decodes raw into p, validating the checksum unconditionally
// (spec.md §4.1: both truncation and checksum mismatch are decode
// failures). Unknown chunk types are skipped rather than rejected.
func (p *packet) unmarshal(raw []byte) error {
	if len(raw) < packetHeaderSize {
		return fmt.Errorf("%w: got %d bytes, need %d", ErrTruncatedPacket, len(raw), packetHeaderSize)
	}

	theirChecksum := binary.LittleEndian.Uint32(raw[8:])
	ourChecksum := generatePacketChecksum(raw)
	if theirChecksum != ourChecksum {
		return fmt.Errorf("%w: theirs=%d ours=%d", ErrInvalidChecksum, theirChecksum, ourChecksum)
	}

	p.sourcePort = binary.BigEndian.Uint16(raw[0:])
	p.destinationPort = binary.BigEndian.Uint16(raw[2:])
	p.verificationTag = binary.BigEndian.Uint32(raw[4:])
	p.chunks = nil

	offset := packetHeaderSize
	for offset != len(raw) {
		if offset+chunkHeaderSize > len(raw) {
			return fmt.Errorf("%w: offset %d remaining %d", ErrTruncatedChunk, offset, len(raw)-offset)
		}

		length := int(binary.BigEndian.Uint16(raw[offset+2:]))
		if length < chunkHeaderSize || offset+length > len(raw) {
			return fmt.Errorf("%w: declared length %d at offset %d", ErrTruncatedChunk, length, offset)
		}

		typ := chunkType(raw[offset])
		if c, ok := newChunk(typ); ok {
			if err := c.unmarshal(raw[offset:]); err != nil {
				return err
			}
			p.chunks = append(p.chunks, c)
		}

		offset += length + getPadding(length)
	}

	return nil
}

// marshal encodes p, computing the CRC32c checksum over the whole buffer
// with the checksum field held at zero, then substituting the
// byte-swapped value (spec.md §4.1).
func (p *packet) marshal() ([]byte, error) {
	raw := make([]byte, packetHeaderSize)
	binary.BigEndian.PutUint16(raw[0:], p.sourcePort)
	binary.BigEndian.PutUint16(raw[2:], p.destinationPort)
	binary.BigEndian.PutUint32(raw[4:], p.verificationTag)

	for _, c := range p.chunks {
		chunkRaw, err := c.marshal()
		if err != nil {
			return nil, err
		}
		raw = append(raw, chunkRaw...)
	}

	// Golang's CRC32C uses reflected input/output; the net effect is that
	// the bytes come out flipped relative to the RFC's non-reflected
	// checksum. Writing the result with LittleEndian avoids flipping the
	// bytes a second time, producing the spec-compliant on-wire order.
	binary.LittleEndian.PutUint32(raw[8:], generatePacketChecksum(raw))

	return raw, nil
}

func generatePacketChecksum(raw []byte) (sum uint32) {
	sum = crc32.Update(sum, castagnoliTable, raw[0:8])
	sum = crc32.Update(sum, castagnoliTable, fourZeroes[:])
	sum = crc32.Update(sum, castagnoliTable, raw[12:])
	return sum
}

func (p *packet) String() string {
	s := fmt.Sprintf("packet: src=%d dst=%d tag=%d chunks=%d",
		p.sourcePort, p.destinationPort, p.verificationTag, len(p.chunks))
	for i, c := range p.chunks {
		s += fmt.Sprintf("\n  [%d] %v", i, c)
	}
	return s
}
