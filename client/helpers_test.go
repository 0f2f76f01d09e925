package client_test

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/stretchr/testify/require"

	"github.com/webpeel/smartclient/client"
)

var testLogger = &log.Logger{Handler: discard.Default, Level: log.DebugLevel}

// testServer is a local TLS listener that every hostname resolves to.
type testServer struct {
	ln   net.Listener
	pool *x509.CertPool
	leaf *x509.Certificate

	mu       sync.Mutex
	requests []string
}

func newTestCert(t *testing.T, hosts ...string) (tls.Certificate, *x509.CertPool) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "smartclient test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              hosts,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, pool
}

// startTLSServer serves handle on every accepted connection after the
// handshake. protos are the server's ALPN preferences.
func startTLSServer(t *testing.T, protos []string, handle func(s *testServer, conn *tls.Conn)) *testServer {
	t.Helper()
	return startTLSServerFor(t, []string{"a.test", "b.test", "c.test", "localhost"}, protos, handle)
}

// startTLSServerFor is startTLSServer with a certificate valid only for hosts.
func startTLSServerFor(t *testing.T, hosts, protos []string, handle func(s *testServer, conn *tls.Conn)) *testServer {
	t.Helper()

	cert, pool := newTestCert(t, hosts...)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   protos,
	})
	require.NoError(t, err)

	s := &testServer{ln: ln, pool: pool, leaf: cert.Leaf}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				tc := c.(*tls.Conn)
				if err := tc.Handshake(); err != nil {
					return
				}
				handle(s, tc)
			}()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return s
}

// respondByHost answers each request with the response registered for its
// Host header, then closes the connection.
func respondByHost(responses map[string]string) func(s *testServer, conn *tls.Conn) {
	return func(s *testServer, conn *tls.Conn) {
		req, err := readRequest(conn)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		for _, line := range strings.Split(req, "\r\n") {
			if host, ok := strings.CutPrefix(line, "Host: "); ok {
				conn.Write([]byte(responses[host]))
				return
			}
		}
	}
}

func readRequest(conn net.Conn) (string, error) {
	br := bufio.NewReader(conn)
	var sb strings.Builder
	for {
		line, err := br.ReadString('\n')
		sb.WriteString(line)
		if err != nil {
			return sb.String(), err
		}
		if line == "\r\n" {
			return sb.String(), nil
		}
	}
}

// joinPools trusts the certificates of every server.
func joinPools(t *testing.T, servers ...*testServer) *x509.CertPool {
	t.Helper()
	pool := x509.NewCertPool()
	for _, s := range servers {
		pool.AddCert(s.leaf)
	}
	return pool
}

func (s *testServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// options routes every dial to the server and trusts its certificate.
func (s *testServer) options(extra ...client.Option) []client.Option {
	dial := func(ctx context.Context, network, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, s.ln.Addr().String())
	}
	options := []client.Option{
		client.WithDialContext(dial),
		client.WithRootCAs(s.pool),
		client.WithLogger(testLogger),
		client.WithIdleTimeout(5 * time.Second),
	}
	return append(options, extra...)
}
