package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/net/http2"
)

// ProtocolSupport is the protocol a server selected during ALPN.
type ProtocolSupport int

const (
	ProtocolUnknown ProtocolSupport = iota
	ProtocolHTTP11
	ProtocolH2
)

func (p ProtocolSupport) String() string {
	switch p {
	case ProtocolHTTP11:
		return "http/1.1"
	case ProtocolH2:
		return http2.NextProtoTLS
	}
	return "unknown"
}

func (p ProtocolSupport) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ProtocolSupport) UnmarshalText(b []byte) error {
	switch string(b) {
	case http2.NextProtoTLS:
		*p = ProtocolH2
	case "http/1.1":
		*p = ProtocolHTTP11
	default:
		*p = ProtocolUnknown
	}
	return nil
}

// ProbeResult is the outcome of one probe connection.
type ProbeResult struct {
	Hostname string
	Protocol ProtocolSupport
	// Confirmed is set when the server answered the HTTP/2 preface with
	// SETTINGS.
	Confirmed bool
	Err       error
}

// SupportsH2 reports whether the server selected h2.
func (r ProbeResult) SupportsH2() bool {
	return r.Protocol == ProtocolH2
}

var probeProtocols = []string{"http/1.1", http2.NextProtoTLS}

// Probe opens a separate TLS connection to hostname offering http/1.1 and h2
// and reports which one the server selected. No request is sent. A failed
// probe reports ProtocolUnknown with Err set.
func (c *Client) Probe(ctx context.Context, hostname string) ProbeResult {
	res := ProbeResult{Hostname: hostname}
	logger := c.logger.WithField("host", hostname)

	conn, err := c.dialTLS(ctx, hostname, probeProtocols)
	if err != nil {
		logger.WithError(err).Debug("protocol probe failed")
		res.Err = err
		return res
	}
	defer conn.Close()

	switch conn.ConnectionState().NegotiatedProtocol {
	case http2.NextProtoTLS:
		res.Protocol = ProtocolH2
	case "http/1.1":
		res.Protocol = ProtocolHTTP11
	}

	if res.Protocol == ProtocolH2 && c.confirmH2 {
		if err := confirmH2(conn, c.idleTimeout); err != nil {
			logger.WithError(err).Debug("h2 negotiated but not confirmed")
		} else {
			res.Confirmed = true
		}
	}
	logger.WithField("proto", res.Protocol.String()).Debug("protocol probed")
	return res
}

// confirmH2 sends the client preface and an empty SETTINGS frame and expects
// the server's first frame to be SETTINGS.
func confirmH2(conn net.Conn, timeout time.Duration) error {
	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}
	if _, err := io.WriteString(conn, http2.ClientPreface); err != nil {
		return err
	}
	fr := http2.NewFramer(conn, conn)
	if err := fr.WriteSettings(); err != nil {
		return err
	}
	f, err := fr.ReadFrame()
	if err != nil {
		return err
	}
	if _, ok := f.(*http2.SettingsFrame); !ok {
		return fmt.Errorf("first frame is %s, want SETTINGS", f.Header().Type)
	}
	return nil
}
