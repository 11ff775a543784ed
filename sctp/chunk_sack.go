package sctp

import (
	"encoding/binary"
	"fmt"
)

// sackHeaderLength is chunkSack's fixed fields: cumulative_tsn, a_rwnd,
// number of gap-ack blocks, number of duplicate TSNs (spec.md §3).
const sackHeaderLength = 12

// gapBlock is a (start, end) pair relative to cumulativeTSN, unused by
// this association (no gap blocks are ever populated, per spec.md §4.3 and
// SPEC_FULL.md §9) but parsed for decode fidelity against a real peer.
type gapBlock struct {
	start uint16
	end   uint16
}

// chunkSack is the SACK chunk (spec.md §3). This association parses
// inbound SACKs but never acts on them — no retransmit queue exists to
// retire (Non-goals: congestion control / selective retransmit).
type chunkSack struct {
	cumulativeTSN uint32
	advertisedRwnd uint32
	gapBlocks      []gapBlock
	duplicateTSNs  []uint32
}

func (c *chunkSack) chunkType() chunkType { return ctSack }

func (c *chunkSack) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctSack {
		return fmt.Errorf("%w: expected SACK, got %s", ErrWrongChunkType, hdr.typ)
	}
	if len(hdr.value) < sackHeaderLength {
		return fmt.Errorf("%w: SACK needs %d bytes, got %d", ErrChunkTooShort, sackHeaderLength, len(hdr.value))
	}
	c.cumulativeTSN = binary.BigEndian.Uint32(hdr.value[0:])
	c.advertisedRwnd = binary.BigEndian.Uint32(hdr.value[4:])
	numGap := int(binary.BigEndian.Uint16(hdr.value[8:]))
	numDup := int(binary.BigEndian.Uint16(hdr.value[10:]))

	offset := sackHeaderLength
	for i := 0; i < numGap; i++ {
		if offset+4 > len(hdr.value) {
			return fmt.Errorf("%w: SACK gap block %d truncated", ErrChunkTooShort, i)
		}
		c.gapBlocks = append(c.gapBlocks, gapBlock{
			start: binary.BigEndian.Uint16(hdr.value[offset:]),
			end:   binary.BigEndian.Uint16(hdr.value[offset+2:]),
		})
		offset += 4
	}
	for i := 0; i < numDup; i++ {
		if offset+4 > len(hdr.value) {
			return fmt.Errorf("%w: SACK duplicate %d truncated", ErrChunkTooShort, i)
		}
		c.duplicateTSNs = append(c.duplicateTSNs, binary.BigEndian.Uint32(hdr.value[offset:]))
		offset += 4
	}
	return nil
}

func (c *chunkSack) marshal() ([]byte, error) {
	value := make([]byte, sackHeaderLength)
	binary.BigEndian.PutUint32(value[0:], c.cumulativeTSN)
	binary.BigEndian.PutUint32(value[4:], c.advertisedRwnd)
	binary.BigEndian.PutUint16(value[8:], uint16(len(c.gapBlocks)))
	binary.BigEndian.PutUint16(value[10:], uint16(len(c.duplicateTSNs)))
	for _, g := range c.gapBlocks {
		b := make([]byte, 4)
		binary.BigEndian.PutUint16(b[0:], g.start)
		binary.BigEndian.PutUint16(b[2:], g.end)
		value = append(value, b...)
	}
	for _, d := range c.duplicateTSNs {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, d)
		value = append(value, b...)
	}
	return marshalChunk(c, 0, value), nil
}

func (c *chunkSack) String() string {
	return fmt.Sprintf("SACK cum_tsn=%d rwnd=%d dups=%d", c.cumulativeTSN, c.advertisedRwnd, len(c.duplicateTSNs))
}
