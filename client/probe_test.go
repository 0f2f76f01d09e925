package client_test

import (
	"context"
	"crypto/tls"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"github.com/webpeel/smartclient/client"
)

func idle(s *testServer, conn *tls.Conn) {
	io.Copy(io.Discard, conn)
}

func TestProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("h2", func(t *testing.T) {
		srv := startTLSServer(t, []string{"h2", "http/1.1"}, idle)
		res := client.New(srv.options()...).Probe(ctx, "a.test")
		require.NoError(t, res.Err)
		require.Equal(t, client.ProtocolH2, res.Protocol)
		require.Equal(t, "h2", res.Protocol.String())
		require.False(t, res.Confirmed)
	})

	t.Run("http/1.1 only", func(t *testing.T) {
		srv := startTLSServer(t, []string{"http/1.1"}, idle)
		res := client.New(srv.options()...).Probe(ctx, "a.test")
		require.NoError(t, res.Err)
		require.Equal(t, client.ProtocolHTTP11, res.Protocol)
		require.False(t, res.SupportsH2())
	})

	t.Run("no ALPN", func(t *testing.T) {
		srv := startTLSServer(t, nil, idle)
		res := client.New(srv.options()...).Probe(ctx, "a.test")
		require.NoError(t, res.Err)
		require.Equal(t, client.ProtocolUnknown, res.Protocol)
	})

	t.Run("handshake failure is not fatal", func(t *testing.T) {
		srv := startTLSServer(t, []string{"h2"}, idle)
		res := client.New(srv.options()...).Probe(ctx, "unknown.example")
		require.ErrorIs(t, res.Err, client.ErrConnection)
		require.Equal(t, client.ProtocolUnknown, res.Protocol)
	})
}

func TestProbeConfirmH2(t *testing.T) {
	ctx := context.Background()

	t.Run("server answers with SETTINGS", func(t *testing.T) {
		srv := startTLSServer(t, []string{"h2"}, func(s *testServer, conn *tls.Conn) {
			preface := make([]byte, len(http2.ClientPreface))
			if _, err := io.ReadFull(conn, preface); err != nil {
				return
			}
			fr := http2.NewFramer(conn, conn)
			if err := fr.WriteSettings(http2.Setting{ID: http2.SettingMaxConcurrentStreams, Val: 100}); err != nil {
				return
			}
			fr.ReadFrame()
		})
		res := client.New(srv.options(client.WithConfirmH2(true))...).Probe(ctx, "a.test")
		require.Equal(t, client.ProtocolH2, res.Protocol)
		require.True(t, res.Confirmed)
	})

	t.Run("server closes without frames", func(t *testing.T) {
		srv := startTLSServer(t, []string{"h2"}, func(s *testServer, conn *tls.Conn) {
			preface := make([]byte, len(http2.ClientPreface))
			io.ReadFull(conn, preface)
		})
		res := client.New(srv.options(client.WithConfirmH2(true))...).Probe(ctx, "a.test")
		require.Equal(t, client.ProtocolH2, res.Protocol)
		require.False(t, res.Confirmed)
		require.NoError(t, res.Err)
	})
}

func TestProtocolSupportText(t *testing.T) {
	for p, want := range map[client.ProtocolSupport]string{
		client.ProtocolUnknown: "unknown",
		client.ProtocolHTTP11:  "http/1.1",
		client.ProtocolH2:      "h2",
	} {
		b, err := p.MarshalText()
		require.NoError(t, err)
		require.Equal(t, want, string(b))
	}
}
