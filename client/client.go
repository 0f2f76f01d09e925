// Package client fetches a URL over HTTP/1.1 on a raw TLS stream and parses
// the response into status, headers, cookies and body text. It follows
// Location redirects hop by hop and probes each host for HTTP/2 support
// through ALPN.
package client

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/apex/log"
	"golang.org/x/net/http2"
)

const (
	defaultPort            = 443
	defaultMaxRedirects    = 10
	defaultIdleTimeout     = 30 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultMaxResponseSize = 16 << 20
)

// Client runs the request pipeline. It is immutable after New and safe for
// concurrent use.
type Client struct {
	port            int
	maxRedirects    int
	followRedirects bool
	idleTimeout     time.Duration
	dialTimeout     time.Duration
	dialContext     DialContextFunc
	rootCAs         *x509.CertPool
	fingerprint     FingerprintSpec
	probe           bool
	confirmH2       bool
	maxResponseSize int
	strictDecode    bool
	logger          log.Interface
}

// New returns a Client configured by options.
func New(options ...Option) *Client {
	c := &Client{
		port:            defaultPort,
		maxRedirects:    defaultMaxRedirects,
		followRedirects: true,
		idleTimeout:     defaultIdleTimeout,
		dialTimeout:     defaultDialTimeout,
		probe:           true,
		maxResponseSize: defaultMaxResponseSize,
		logger:          log.Log,
	}
	fingerprint := ""
	for _, o := range options {
		switch o.Ident() {
		case identMaxRedirects{}:
			c.maxRedirects = o.Value().(int)
		case identFollowRedirects{}:
			c.followRedirects = o.Value().(bool)
		case identIdleTimeout{}:
			c.idleTimeout = o.Value().(time.Duration)
		case identDialTimeout{}:
			c.dialTimeout = o.Value().(time.Duration)
		case identDialContext{}:
			c.dialContext = o.Value().(DialContextFunc)
		case identPort{}:
			c.port = o.Value().(int)
		case identRootCAs{}:
			c.rootCAs = o.Value().(*x509.CertPool)
		case identFingerprint{}:
			fingerprint = o.Value().(string)
		case identProbe{}:
			c.probe = o.Value().(bool)
		case identConfirmH2{}:
			c.confirmH2 = o.Value().(bool)
		case identMaxResponseSize{}:
			c.maxResponseSize = o.Value().(int)
		case identStrictDecode{}:
			c.strictDecode = o.Value().(bool)
		case identLogger{}:
			c.logger = o.Value().(log.Interface)
		}
	}
	if c.maxRedirects < 0 {
		c.maxRedirects = 0
	}
	if c.dialContext == nil {
		d := &net.Dialer{Timeout: c.dialTimeout}
		c.dialContext = d.DialContext
	}

	fp, err := resolveFingerprint(fingerprint)
	if err != nil {
		c.logger.WithError(err).Warn("falling back to the default ClientHello")
	}
	c.fingerprint = fp
	return c
}

// Response is one parsed HTTP response.
type Response struct {
	Status   StatusLine
	Headers  *HeaderMap
	Header   []byte
	Body     []byte
	BodyText string
}

// ParseResponse splits and parses a raw response buffer.
func ParseResponse(raw []byte) *Response {
	header, body := SplitResponse(raw)
	block := string(header)
	statusLine, _, _ := strings.Cut(block, "\r\n")
	return &Response{
		Status:   ParseStatusLine(statusLine),
		Headers:  ParseHeaders(block),
		Header:   header,
		Body:     body,
		BodyText: BodyText(body),
	}
}

// Location returns the redirect target, if any.
func (r *Response) Location() (string, bool) {
	return r.Headers.Location()
}

// Cookies returns every cookie the response sets.
func (r *Response) Cookies() []CookieAttributes {
	return r.Headers.Cookies()
}

// Decoded returns the body with chunked framing and content codings removed.
func (r *Response) Decoded() ([]byte, error) {
	return DecodeBody(r.Headers, r.Body)
}

// Do performs a single request for u on a fresh connection. It does not
// follow redirects or probe.
func (c *Client) Do(ctx context.Context, u URL) (*Response, error) {
	logger := c.logger.WithFields(log.Fields{"host": u.Hostname, "path": u.Path})

	conn, err := c.dialTLS(ctx, u.Hostname, nil)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		return nil, connError("alpn", u.Hostname, errors.New("peer selected h2 for an HTTP/1.1 request"))
	}

	if c.idleTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.idleTimeout))
	}
	req := BuildRequest(u)
	if _, err := conn.Write(req); err != nil {
		return nil, transportError("write", u.Hostname, err)
	}
	logger.WithField("bytes", len(req)).Debug("request sent")

	raw, err := ReadResponse(ctx, conn, ReadOptions{
		IdleTimeout: c.idleTimeout,
		MaxSize:     c.maxResponseSize,
		Host:        u.Hostname,
	})
	if err != nil {
		return nil, err
	}
	logger.WithField("bytes", len(raw)).Debug("response read")

	resp := ParseResponse(raw)
	if c.strictDecode {
		if _, err := StrictBodyText(resp.Body); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
