package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webpeel/smartclient/client"
)

func sampleResult(t *testing.T) *client.Result {
	t.Helper()
	a, err := client.ParseURL("https://a.test/")
	require.NoError(t, err)
	b, err := client.ParseURL("https://b.test/login")
	require.NoError(t, err)

	return &client.Result{Hops: []*client.Hop{
		{
			URL:      a,
			Response: client.ParseResponse([]byte("HTTP/1.1 302 Found\r\nLocation: https://b.test/login\r\n\r\n")),
			Probe:    client.ProbeResult{Hostname: "a.test", Protocol: client.ProtocolH2},
			Redirect: "https://b.test/login",
			Elapsed:  15 * time.Millisecond,
		},
		{
			URL: b,
			Response: client.ParseResponse([]byte("HTTP/1.1 401 Unauthorized\r\n" +
				"Set-Cookie: sid=abc; Domain=.b.test; Expires=Wed, 21 Oct 2026 07:28:00 GMT\r\n" +
				"Set-Cookie: pref=1; Max-Age=60\r\n\r\nlogin\r\n")),
			Probe: client.ProbeResult{Hostname: "b.test", Protocol: client.ProtocolHTTP11},
		},
	}}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	writeText(&buf, sampleResult(t), nil, reportOptions{Body: true})
	out := buf.String()

	require.Contains(t, out, "GET / HTTP/1.1\r\nHost: a.test\r\nConnection: close\r\n---Request End---")
	require.Contains(t, out, "---Redirected to https://b.test/login---")
	require.Contains(t, out, "website: a.test\n1. Supports http2: Yes")
	require.Contains(t, out, "website: b.test\n1. Supports http2: No")
	require.Contains(t, out, "cookie name: sid, expires time: Wed, 21 Oct 2026 07:28:00 GMT, domain name: .b.test")
	require.Contains(t, out, "cookie name: pref, max age: 60")
	require.Contains(t, out, "3. Password-protected: Yes")
	require.Contains(t, out, "---Response body---\nlogin\r\n")
}

func TestWriteTextFailedHop(t *testing.T) {
	u, err := client.ParseURL("a.test")
	require.NoError(t, err)
	hopErr := &client.Error{Kind: client.KindConnection, Op: "dial", Host: "a.test", Err: errors.New("refused")}
	res := &client.Result{Hops: []*client.Hop{{URL: u, Err: hopErr}}}

	var buf bytes.Buffer
	writeText(&buf, res, hopErr, reportOptions{})
	out := buf.String()
	require.Contains(t, out, "An error occurred: dial: connection error (a.test): refused")
	require.Contains(t, out, "1. Supports http2: No")
	require.NotContains(t, out, "List of Cookies")
	require.Contains(t, out, "error: dial: connection error")
}

func TestBuildReport(t *testing.T) {
	report := buildReport(sampleResult(t), nil, time.Second, reportOptions{})
	require.Equal(t, "https://b.test/login", report.FinalURL)
	require.Equal(t, 401, report.Status)
	require.Equal(t, int64(1000), report.TotalMS)
	require.Len(t, report.Hops, 2)
	require.Empty(t, report.Hops[1].Body)

	b, err := json.Marshal(report.Hops[0])
	require.NoError(t, err)
	require.JSONEq(t, `{
		"url": "https://a.test/",
		"statusLine": "HTTP/1.1 302 Found",
		"status": 302,
		"headers": {"Location": "https://b.test/login"},
		"protocol": "h2",
		"redirect": "https://b.test/login",
		"elapsedMs": 15
	}`, string(b))
}
