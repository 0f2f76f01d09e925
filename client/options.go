package client

import (
	"context"
	"crypto/x509"
	"net"
	"time"

	"github.com/apex/log"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

// DialContextFunc opens the TCP connection underneath TLS.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type identMaxRedirects struct{}

func (identMaxRedirects) String() string { return "WithMaxRedirects" }

type identFollowRedirects struct{}

func (identFollowRedirects) String() string { return "WithFollowRedirects" }

type identIdleTimeout struct{}

func (identIdleTimeout) String() string { return "WithIdleTimeout" }

type identDialTimeout struct{}

func (identDialTimeout) String() string { return "WithDialTimeout" }

type identDialContext struct{}

func (identDialContext) String() string { return "WithDialContext" }

type identPort struct{}

func (identPort) String() string { return "WithPort" }

type identRootCAs struct{}

func (identRootCAs) String() string { return "WithRootCAs" }

type identFingerprint struct{}

func (identFingerprint) String() string { return "WithFingerprint" }

type identProbe struct{}

func (identProbe) String() string { return "WithProbe" }

type identConfirmH2 struct{}

func (identConfirmH2) String() string { return "WithConfirmH2" }

type identMaxResponseSize struct{}

func (identMaxResponseSize) String() string { return "WithMaxResponseSize" }

type identStrictDecode struct{}

func (identStrictDecode) String() string { return "WithStrictDecode" }

type identLogger struct{}

func (identLogger) String() string { return "WithLogger" }

// WithMaxRedirects caps the number of redirects Fetch follows. Going past it
// fails with ErrTooManyHops.
func WithMaxRedirects(n int) Option {
	return option.New(identMaxRedirects{}, n)
}

// WithFollowRedirects disables redirect following when false. The Location
// value is still reported on the hop.
func WithFollowRedirects(v bool) Option {
	return option.New(identFollowRedirects{}, v)
}

// WithIdleTimeout bounds each read and write on a connection. Zero waits
// forever.
func WithIdleTimeout(d time.Duration) Option {
	return option.New(identIdleTimeout{}, d)
}

// WithDialTimeout bounds DNS resolution, TCP connect and the TLS handshake.
func WithDialTimeout(d time.Duration) Option {
	return option.New(identDialTimeout{}, d)
}

// WithDialContext replaces the TCP dialer.
func WithDialContext(fn DialContextFunc) Option {
	return option.New(identDialContext{}, fn)
}

// WithPort changes the port used for hostnames that carry none. The default
// is 443.
func WithPort(port int) Option {
	return option.New(identPort{}, port)
}

// WithRootCAs sets the trust roots used to verify servers. Nil means the
// system pool.
func WithRootCAs(pool *x509.CertPool) Option {
	return option.New(identRootCAs{}, pool)
}

// WithFingerprint selects a ClientHello preset by name, or a JA3 string.
func WithFingerprint(fp string) Option {
	return option.New(identFingerprint{}, fp)
}

// WithProbe enables or disables the HTTP/2 probe connection.
func WithProbe(v bool) Option {
	return option.New(identProbe{}, v)
}

// WithConfirmH2 makes the probe exchange SETTINGS frames after h2 is
// negotiated.
func WithConfirmH2(v bool) Option {
	return option.New(identConfirmH2{}, v)
}

// WithMaxResponseSize caps the bytes read for one response. Zero disables
// the cap.
func WithMaxResponseSize(n int) Option {
	return option.New(identMaxResponseSize{}, n)
}

// WithStrictDecode makes invalid UTF-8 in a body an ErrDecode failure
// instead of being repaired.
func WithStrictDecode(v bool) Option {
	return option.New(identStrictDecode{}, v)
}

// WithLogger sets the logger. The default is log.Log.
func WithLogger(l log.Interface) Option {
	return option.New(identLogger{}, l)
}
