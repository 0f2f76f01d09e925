package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	tls "github.com/refraction-networking/utls"
)

// dialTLS opens a verified TLS connection to hostname, advertising protos
// through ALPN when non-empty. The TCP connection is closed if the handshake
// fails. There is no retry.
func (c *Client) dialTLS(ctx context.Context, hostname string, protos []string) (*tls.UConn, error) {
	serverName, addr := c.splitAddr(hostname)

	if c.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}

	tcpConn, err := c.dialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, connError("dial", hostname, err)
	}

	cfg := &tls.Config{
		ServerName: serverName,
		RootCAs:    c.rootCAs,
		NextProtos: protos,
	}
	spec, err := c.fingerprint.helloSpec(protos)
	if err != nil {
		tcpConn.Close()
		return nil, connError("client hello", hostname, err)
	}

	var tlsConn *tls.UConn
	if spec != nil {
		tlsConn = tls.UClient(tcpConn, cfg, tls.HelloCustom)
		if err := tlsConn.ApplyPreset(spec); err != nil {
			tcpConn.Close()
			return nil, connError("client hello", hostname, fmt.Errorf("apply preset: %w", err))
		}
	} else {
		tlsConn = tls.UClient(tcpConn, cfg, c.fingerprint.ID)
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		tcpConn.Close()
		return nil, connError("tls handshake", hostname, err)
	}
	c.logger.WithField("host", hostname).
		WithField("alpn", tlsConn.ConnectionState().NegotiatedProtocol).
		Debug("tls connection established")
	return tlsConn, nil
}

// splitAddr returns the TLS server name and the dial address for hostname.
// A hostname that already names a port keeps it.
func (c *Client) splitAddr(hostname string) (serverName, addr string) {
	if host, port, err := net.SplitHostPort(hostname); err == nil {
		return host, net.JoinHostPort(host, port)
	}
	host := strings.TrimSuffix(strings.TrimPrefix(hostname, "["), "]")
	return host, net.JoinHostPort(host, strconv.Itoa(c.port))
}
