package dtlstransport

import "github.com/pion/rtcp"

// RFC 7983's first-byte classification ranges (spec.md §4.5
// "Post-handshake loop"; GLOSSARY "RFC-7983 demux").
const (
	demuxRangeSTUNLow   = 0
	demuxRangeSTUNHigh  = 3
	demuxRangeZRTPLow   = 16
	demuxRangeZRTPHigh  = 19
	demuxRangeDTLSLow   = 20
	demuxRangeDTLSHigh  = 63
	demuxRangeSRTPLow   = 128
	demuxRangeSRTPHigh  = 191
	rtcpPayloadTypeLow  = 192
	rtcpPayloadTypeHigh = 223
)

type demuxClass int

const (
	demuxDiscard demuxClass = iota
	demuxDTLS
	demuxSRTP
)

func classifyFirstByte(b byte) demuxClass {
	switch {
	case b >= demuxRangeDTLSLow && b <= demuxRangeDTLSHigh:
		return demuxDTLS
	case b >= demuxRangeSRTPLow && b <= demuxRangeSRTPHigh:
		return demuxSRTP
	default:
		return demuxDiscard
	}
}

// isRTCP distinguishes an SRTP-range datagram's inner RTCP packets from
// RTP ones by the second byte's payload-type field (RFC 5761; spec.md
// §4.5 "distinguish RTCP vs RTP by payload type").
func isRTCP(buf []byte) bool {
	if len(buf) < 2 {
		return false
	}
	pt := buf[1]
	return pt >= rtcpPayloadTypeLow && pt <= rtcpPayloadTypeHigh
}

// demuxLoop is the single goroutine that ever calls the raw Transport's
// Recv: it classifies every inbound datagram and routes DTLS-range bytes
// to the bioConn pion/dtls reads from, and SRTP/SRTCP-range bytes through
// the session's SRTP pair onto the rtp channel (spec.md §4.5
// "Post-handshake loop"). It starts before the handshake and keeps
// running for the session's lifetime, since DTLS and SRTP/SRTCP share one
// transport for the whole connection.
func (s *Session) demuxLoop(t Transport) {
	defer close(s.rtp)
	for {
		datagram, err := t.Recv()
		if err != nil {
			s.conn.Close()
			return
		}
		if len(datagram) == 0 {
			continue
		}

		switch classifyFirstByte(datagram[0]) {
		case demuxDTLS:
			s.conn.deliver(datagram)
		case demuxSRTP:
			s.handleSRTP(datagram)
		default:
			s.log.Debugf("dropping datagram: unrecognized first byte 0x%02x", datagram[0])
		}

		select {
		case <-s.closed:
			return
		default:
		}
	}
}

func (s *Session) handleSRTP(datagram []byte) {
	if s.State() != StateConnected {
		s.log.Debug("dropping SRTP datagram: session not yet connected")
		return
	}

	var plaintext []byte
	var err error
	if isRTCP(datagram) {
		plaintext, err = s.srtp.UnprotectRTCP(datagram)
	} else {
		plaintext, err = s.srtp.UnprotectRTP(datagram)
	}
	if err != nil {
		s.log.Debugf("dropping undecryptable SRTP datagram: %v", err)
		return
	}

	if isRTCP(datagram) {
		if packets, err := rtcp.Unmarshal(plaintext); err != nil {
			s.log.Debugf("received malformed RTCP compound packet: %v", err)
		} else {
			for _, pkt := range packets {
				s.log.Tracef("received RTCP packet: %T", pkt)
			}
		}
	}

	select {
	case s.rtp <- plaintext:
	case <-s.closed:
	}
}

// applicationDataLoop pumps decrypted DTLS application data onto the
// data channel SCTP reads from (spec.md §4.5: "if the engine yields
// plaintext, enqueue on the data channel").
func (s *Session) applicationDataLoop() {
	defer close(s.data)
	buf := make([]byte, maxApplicationDatagram)
	for {
		n, err := s.dtls.Read(buf)
		if err != nil {
			return
		}
		datagram := append([]byte(nil), buf[:n]...)
		select {
		case s.data <- datagram:
		case <-s.closed:
			return
		}
	}
}

// maxApplicationDatagram bounds a single Read from the DTLS engine;
// SCTP packets are small (spec.md's 1200-byte fragment size plus header
// overhead), so this comfortably holds one.
const maxApplicationDatagram = 4096
