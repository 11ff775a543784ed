// Command rtcdcecho wires dtlstransport, sctp, and datachannel together
// over a single in-process loopback transport: one side opens a data
// channel, the other echoes every message back. It exists to give the
// three core packages an executable integration point for manual smoke
// testing; it carries none of their invariants itself.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/pion/logging"

	"github.com/webrtcdc/rtcdc/datachannel"
	"github.com/webrtcdc/rtcdc/dtlstransport"
	"github.com/webrtcdc/rtcdc/sctp"
)

var (
	flagLabel   string
	flagMessage string
	flagTimeout time.Duration
)

func init() {
	flag.StringVarP(&flagLabel, "label", "l", "echo", "Data channel label")
	flag.StringVarP(&flagMessage, "message", "m", "ping", "Message the client sends")
	flag.DurationVarP(&flagTimeout, "timeout", "t", 5*time.Second, "Overall run timeout")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	loggerFactory := logging.NewDefaultLoggerFactory()

	serverConn, clientConn := net.Pipe()
	serverTransport := newDatagramTransport(serverConn)
	clientTransport := newDatagramTransport(clientConn)

	serverCtx, err := dtlstransport.NewContext(loggerFactory)
	if err != nil {
		return fmt.Errorf("server dtls context: %w", err)
	}
	clientCtx, err := dtlstransport.NewContext(loggerFactory)
	if err != nil {
		return fmt.Errorf("client dtls context: %w", err)
	}

	serverSession := serverCtx.NewSession(serverTransport, true, clientCtx.LocalFingerprint())
	clientSession := clientCtx.NewSession(clientTransport, false, serverCtx.LocalFingerprint())

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	handshakeErrs := make(chan error, 2)
	go func() { handshakeErrs <- serverSession.Connect(ctx) }()
	go func() { handshakeErrs <- clientSession.Connect(ctx) }()
	if err := <-handshakeErrs; err != nil {
		return fmt.Errorf("dtls handshake: %w", err)
	}
	if err := <-handshakeErrs; err != nil {
		return fmt.Errorf("dtls handshake: %w", err)
	}

	done := make(chan struct{})

	// serverDC/clientDC are assigned right after their association
	// constructors return, before any SCTP handshake traffic can reach
	// the OnMessage/OnEstablished closures below — the association's
	// read/write loops only start doing chunk work on later round trips.
	var serverDC, clientDC *datachannel.Transport

	serverAssoc, err := sctp.Server(sctp.Config{
		Net:           sessionDataTransport{serverSession},
		LoggerFactory: loggerFactory,
		OnMessage:     func(streamID uint16, ppid uint32, data []byte) { serverDC.OnMessage(streamID, ppid, data) },
		OnEstablished: func() { serverDC.FlushPending() },
	})
	if err != nil {
		return fmt.Errorf("server association: %w", err)
	}
	serverDC = datachannel.NewTransport(serverAssoc, false, datachannel.Config{
		OnDataChannel: func(ch *datachannel.Channel) {
			ch.OnMessage(func(msg datachannel.Message) {
				if msg.IsString {
					_ = ch.SendText(string(msg.Data))
				} else {
					_ = ch.Send(msg.Data)
				}
			})
		},
	})

	clientAssoc, err := sctp.Client(sctp.Config{
		Net:           sessionDataTransport{clientSession},
		LoggerFactory: loggerFactory,
		OnMessage:     func(streamID uint16, ppid uint32, data []byte) { clientDC.OnMessage(streamID, ppid, data) },
		OnEstablished: func() { clientDC.FlushPending() },
	})
	if err != nil {
		return fmt.Errorf("client association: %w", err)
	}
	clientDC = datachannel.NewTransport(clientAssoc, true, datachannel.Config{})

	dc, err := clientDC.Open(flagLabel, "")
	if err != nil {
		return fmt.Errorf("open data channel: %w", err)
	}
	dc.OnOpen(func() {
		if err := dc.SendText(flagMessage); err != nil {
			log.Printf("send: %v", err)
		}
	})
	dc.OnMessage(func(msg datachannel.Message) {
		log.Printf("echoed: %q", string(msg.Data))
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for echo: %w", ctx.Err())
	}
}

// sessionDataTransport adapts a dtlstransport.Session's application-data
// methods to the sctp.Transport interface.
type sessionDataTransport struct {
	session *dtlstransport.Session
}

func (t sessionDataTransport) Send(p []byte) error { return t.session.SendData(p) }
func (t sessionDataTransport) Recv() ([]byte, error) {
	p, err := t.session.RecvData()
	if err != nil {
		// RecvData fails only once the session is closed; sctp.Transport
		// reports that as sctp.ErrConnectionClosed.
		return nil, fmt.Errorf("%w: %w", sctp.ErrConnectionClosed, err)
	}
	return p, nil
}
