package client_test

import (
	"context"
	"crypto/tls"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webpeel/smartclient/client"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("no route to host")
	err := &client.Error{Kind: client.KindConnection, Op: "dial", Host: "a.test", Err: cause}

	require.Equal(t, "dial: connection error (a.test): no route to host", err.Error())
	require.ErrorIs(t, err, client.ErrConnection)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, client.ErrTransport)
	require.NotErrorIs(t, err, client.ErrURLFormat)

	var target *client.Error
	require.ErrorAs(t, err, &target)
	require.Equal(t, client.KindConnection, target.Kind)
}

func TestStrictDecodeOption(t *testing.T) {
	srv := startTLSServer(t, nil, respondByHost(map[string]string{
		"a.test": "HTTP/1.1 200 OK\r\n\r\nbad \xff bytes",
	}))

	res, err := client.New(srv.options(client.WithProbe(false))...).Fetch(context.Background(), "https://a.test/")
	require.NoError(t, err)
	require.Equal(t, "bad � bytes", res.Final().Response.BodyText)

	_, err = client.New(srv.options(client.WithProbe(false), client.WithStrictDecode(true))...).Fetch(context.Background(), "https://a.test/")
	require.ErrorIs(t, err, client.ErrDecode)
}

func TestDoWithBrowserFingerprint(t *testing.T) {
	// a browser ClientHello always carries ALPN; it is rewritten to http/1.1
	srv := startTLSServer(t, []string{"h2", "http/1.1"}, func(s *testServer, conn *tls.Conn) {
		if conn.ConnectionState().NegotiatedProtocol != "http/1.1" {
			return
		}
		respondByHost(map[string]string{"a.test": "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"})(s, conn)
	})
	c := client.New(srv.options(client.WithProbe(false), client.WithFingerprint("chrome-120"))...)

	u, err := client.ParseURL("a.test")
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), u)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.BodyText)
}
