package sctp

import "sort"

// reassembledMessage is one complete user message yielded by a
// reassembler's drain (spec.md §4.2).
type reassembledMessage struct {
	streamID uint16
	protocol uint32
	userData []byte
}

// reassembler buffers out-of-order DATA chunks for a single inbound stream
// and yields complete, in-order user messages (spec.md §4.2). Grounded on
// original_source/aiortc/rtcsctptransport.py's contiguous-TSN reassembly
// loop — the older aiowebrtc/sctp.py concatenation-only path (which never
// validates fragment contiguity) is intentionally not reproduced, per
// spec.md §9's open-question resolution.
type reassembler struct {
	pending      []*chunkData // sorted ascending by TSN (modular)
	expectedSeq  uint16
}

// insert adds a DATA chunk to the pending set in TSN order, dropping exact
// TSN duplicates.
func (r *reassembler) insert(c *chunkData) {
	idx := sort.Search(len(r.pending), func(i int) bool {
		return !tsnGT(c.tsn, r.pending[i].tsn)
	})
	if idx < len(r.pending) && r.pending[idx].tsn == c.tsn {
		return // exact TSN duplicate
	}
	r.pending = append(r.pending, nil)
	copy(r.pending[idx+1:], r.pending[idx:])
	r.pending[idx] = c
}

// drain repeatedly looks at the head of the pending buffer and emits every
// complete, in-order message it can assemble, per the algorithm in
// spec.md §4.2.
func (r *reassembler) drain() []reassembledMessage {
	var out []reassembledMessage

	for {
		if len(r.pending) == 0 || r.pending[0].streamSeq != r.expectedSeq {
			return out
		}
		if !r.pending[0].beginningFragment {
			return out
		}

		end := 0
		tsn := r.pending[0].tsn
		complete := false
		for end < len(r.pending) {
			if r.pending[end].tsn != tsn {
				break
			}
			if r.pending[end].endingFragment {
				complete = true
				end++
				break
			}
			tsn++
			end++
		}

		if !complete {
			return out
		}

		var data []byte
		for _, c := range r.pending[:end] {
			data = append(data, c.userData...)
		}

		out = append(out, reassembledMessage{
			streamID: r.pending[0].streamID,
			protocol: r.pending[0].protocol,
			userData: data,
		})

		r.pending = r.pending[end:]
		r.expectedSeq++
	}
}
