package sctp

import (
	"encoding/binary"
	"fmt"
)

// dataHeaderLength is chunkData's fixed fields following the chunk header
// (tsn, stream_id, stream_seq, protocol — spec.md §3).
const dataHeaderLength = 12

// chunkData is the DATA chunk (spec.md §3): one fragment of a user
// message, numbered by TSN, grouped into a message by stream_seq.
type chunkData struct {
	tsn        uint32
	streamID   uint16
	streamSeq  uint16
	protocol   uint32
	userData   []byte

	beginningFragment bool
	endingFragment    bool
	unordered         bool
}

func (c *chunkData) chunkType() chunkType { return ctData }

func (c *chunkData) unmarshal(raw []byte) error {
	hdr, err := parseChunkHeader(raw)
	if err != nil {
		return err
	}
	if hdr.typ != ctData {
		return fmt.Errorf("%w: expected DATA, got %s", ErrWrongChunkType, hdr.typ)
	}
	if len(hdr.value) < dataHeaderLength {
		return fmt.Errorf("%w: DATA needs %d bytes, got %d", ErrChunkTooShort, dataHeaderLength, len(hdr.value))
	}
	c.beginningFragment = hdr.flags&flagFirstFrag != 0
	c.endingFragment = hdr.flags&flagLastFrag != 0
	c.unordered = hdr.flags&flagUnordered != 0
	c.tsn = binary.BigEndian.Uint32(hdr.value[0:])
	c.streamID = binary.BigEndian.Uint16(hdr.value[4:])
	c.streamSeq = binary.BigEndian.Uint16(hdr.value[6:])
	c.protocol = binary.BigEndian.Uint32(hdr.value[8:])
	c.userData = append([]byte(nil), hdr.value[dataHeaderLength:]...)
	return nil
}

func (c *chunkData) marshal() ([]byte, error) {
	var flags uint8
	if c.endingFragment {
		flags |= flagLastFrag
	}
	if c.beginningFragment {
		flags |= flagFirstFrag
	}
	if c.unordered {
		flags |= flagUnordered
	}

	value := make([]byte, dataHeaderLength, dataHeaderLength+len(c.userData))
	binary.BigEndian.PutUint32(value[0:], c.tsn)
	binary.BigEndian.PutUint16(value[4:], c.streamID)
	binary.BigEndian.PutUint16(value[6:], c.streamSeq)
	binary.BigEndian.PutUint32(value[8:], c.protocol)
	value = append(value, c.userData...)

	return marshalChunk(c, flags, value), nil
}

func (c *chunkData) String() string {
	return fmt.Sprintf("DATA tsn=%d sid=%d ssn=%d ppid=%d len=%d first=%v last=%v",
		c.tsn, c.streamID, c.streamSeq, c.protocol, len(c.userData), c.beginningFragment, c.endingFragment)
}
