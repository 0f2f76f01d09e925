package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/webpeel/smartclient/client"
)

// reportOptions controls what the reporters include.
type reportOptions struct {
	Body   bool
	Decode bool
}

// HopReport is the JSON form of one hop.
type HopReport struct {
	URL         string                    `json:"url"`
	StatusLine  string                    `json:"statusLine,omitempty"`
	Status      int                       `json:"status,omitempty"`
	Headers     *client.HeaderMap         `json:"headers,omitempty"`
	Cookies     []client.CookieAttributes `json:"cookies,omitempty"`
	Body        string                    `json:"body,omitempty"`
	Protocol    client.ProtocolSupport    `json:"protocol"`
	H2Confirmed bool                      `json:"h2Confirmed,omitempty"`
	Redirect    string                    `json:"redirect,omitempty"`
	Error       string                    `json:"error,omitempty"`
	ElapsedMS   int64                     `json:"elapsedMs"`
}

// FetchResponse is the JSON report of a whole chain.
type FetchResponse struct {
	Hops     []HopReport `json:"hops,omitempty"`
	FinalURL string      `json:"finalUrl,omitempty"`
	Status   int         `json:"status,omitempty"`
	TotalMS  int64       `json:"totalMs"`
	Error    string      `json:"error,omitempty"`
}

func buildReport(res *client.Result, err error, total time.Duration, opts reportOptions) FetchResponse {
	out := FetchResponse{TotalMS: total.Milliseconds()}
	for _, hop := range res.Hops {
		out.Hops = append(out.Hops, hopReport(hop, opts))
	}
	if final := res.Final(); final != nil {
		out.FinalURL = final.URL.String()
		if final.Response != nil {
			out.Status = final.Response.Status.Code
		}
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func hopReport(hop *client.Hop, opts reportOptions) HopReport {
	r := HopReport{
		URL:         hop.URL.String(),
		Protocol:    hop.Probe.Protocol,
		H2Confirmed: hop.Probe.Confirmed,
		Redirect:    hop.Redirect,
		ElapsedMS:   hop.Elapsed.Milliseconds(),
	}
	if hop.Err != nil {
		r.Error = hop.Err.Error()
	}
	if resp := hop.Response; resp != nil {
		r.StatusLine = resp.Status.Text
		r.Status = resp.Status.Code
		r.Headers = resp.Headers
		r.Cookies = resp.Cookies()
		if opts.Body {
			r.Body = bodyFor(resp, opts)
		}
	}
	return r
}

// bodyFor returns the body as the text reporter and JSON report show it.
func bodyFor(resp *client.Response, opts reportOptions) string {
	if !opts.Decode {
		return resp.BodyText
	}
	b, err := resp.Decoded()
	if err != nil {
		return fmt.Sprintf("[%s]", err)
	}
	return client.BodyText(b)
}

func writeJSON(w io.Writer, res *client.Result, err error, total time.Duration, opts reportOptions) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildReport(res, err, total, opts))
}

// writeText prints a human-readable summary of every hop.
func writeText(w io.Writer, res *client.Result, err error, opts reportOptions) {
	for i, hop := range res.Hops {
		if i > 0 {
			fmt.Fprintf(w, "\n---Redirected to %s---\n\n", res.Hops[i-1].Redirect)
		}
		writeHop(w, hop, opts)
	}
	if err != nil {
		fmt.Fprintf(w, "\nerror: %s\n", err)
	}
}

func writeHop(w io.Writer, hop *client.Hop, opts reportOptions) {
	fmt.Fprintln(w, "---Request Begin---")
	fmt.Fprint(w, strings.TrimSuffix(string(client.BuildRequest(hop.URL)), "\r\n"))
	fmt.Fprintln(w, "---Request End---")

	if hop.Err != nil {
		fmt.Fprintf(w, "An error occurred: %s\n", hop.Err)
	} else {
		resp := hop.Response
		fmt.Fprintln(w, "---Response headers---")
		fmt.Fprintln(w, string(resp.Header))
		if opts.Body {
			fmt.Fprintln(w, "---Response body---")
			fmt.Fprintln(w, bodyFor(resp, opts))
		}
	}

	fmt.Fprintf(w, "website: %s\n", hop.URL.Hostname)
	fmt.Fprintf(w, "1. Supports http2: %s\n", yesNo(hop.Probe.SupportsH2()))
	if hop.Response == nil {
		return
	}
	fmt.Fprintln(w, "2. List of Cookies:")
	for _, c := range hop.Response.Cookies() {
		fmt.Fprintln(w, cookieLine(c))
	}
	fmt.Fprintf(w, "3. Password-protected: %s\n", yesNo(hop.Response.Status.Code == 401))
}

func cookieLine(c client.CookieAttributes) string {
	parts := []string{"cookie name: " + c.Name()}
	if v, ok := c.Get("Expires"); ok {
		parts = append(parts, "expires time: "+v.String())
	}
	if v, ok := c.Get("Max-Age"); ok {
		parts = append(parts, "max age: "+v.String())
	}
	if v, ok := c.Get("Domain"); ok {
		parts = append(parts, "domain name: "+v.String())
	}
	return strings.Join(parts, ", ")
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
