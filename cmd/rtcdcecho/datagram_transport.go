package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// datagramTransport frames datagrams over a net.Pipe()'s reliable byte
// stream with a 4-byte big-endian length prefix, so the stream-oriented
// pipe can stand in for the unreliable UDP socket dtlstransport.Transport
// models (spec.md §6's transport_send/transport_recv contract).
type datagramTransport struct {
	conn net.Conn
}

func newDatagramTransport(conn net.Conn) *datagramTransport {
	return &datagramTransport{conn: conn}
}

func (t *datagramTransport) Send(p []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(p)))
	if _, err := t.conn.Write(header[:]); err != nil {
		return fmt.Errorf("rtcdcecho: writing datagram length: %w", err)
	}
	if _, err := t.conn.Write(p); err != nil {
		return fmt.Errorf("rtcdcecho: writing datagram: %w", err)
	}
	return nil
}

func (t *datagramTransport) Recv() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(t.conn, header[:]); err != nil {
		return nil, fmt.Errorf("rtcdcecho: reading datagram length: %w", err)
	}
	buf := make([]byte, binary.BigEndian.Uint32(header[:]))
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		return nil, fmt.Errorf("rtcdcecho: reading datagram: %w", err)
	}
	return buf, nil
}
