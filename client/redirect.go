package client

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
)

// Hop is one request/response cycle of a redirect chain.
type Hop struct {
	URL      URL
	Response *Response
	Probe    ProbeResult
	// Redirect is the raw Location value that led to the next hop.
	Redirect string
	Err      error
	Elapsed  time.Duration
}

// Failed reports whether the hop produced no response.
func (h *Hop) Failed() bool {
	return h.Err != nil
}

// Result is every hop of one Fetch, in order.
type Result struct {
	Hops []*Hop
	err  error
}

// Final returns the last hop, or nil when none ran.
func (r *Result) Final() *Hop {
	if len(r.Hops) == 0 {
		return nil
	}
	return r.Hops[len(r.Hops)-1]
}

// Err returns the error that ended the chain, if any.
func (r *Result) Err() error {
	return r.err
}

// Fetch requests rawURL and follows Location headers. Each hop opens a new
// connection. Hostnames are probed once per Fetch. The chain ends at the
// first response without Location, at the first failing hop, on a revisited
// URL, or when the redirect limit is exceeded. The partial Result is returned
// along with the error.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	res := &Result{}
	u, err := ParseURL(rawURL)
	if err != nil {
		res.err = err
		return res, err
	}

	visited := make(map[string]bool)
	probes := make(map[string]ProbeResult)
	redirects := 0

	for {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res, err
		}
		key := u.Hostname + u.Path
		if visited[key] {
			res.err = redirectError(u.Hostname, ErrRedirectLoop)
			return res, res.err
		}
		visited[key] = true

		hop := c.hop(ctx, u, len(res.Hops), probes)
		res.Hops = append(res.Hops, hop)
		if hop.Err != nil {
			res.err = hop.Err
			return res, hop.Err
		}

		loc, ok := hop.Response.Location()
		if !ok {
			return res, nil
		}
		hop.Redirect = loc
		if !c.followRedirects {
			return res, nil
		}
		if redirects >= c.maxRedirects {
			res.err = redirectError(u.Hostname, fmt.Errorf("%w (max %d)", ErrTooManyHops, c.maxRedirects))
			return res, res.err
		}
		next, err := u.Resolve(loc)
		if err != nil {
			res.err = err
			return res, err
		}
		c.logger.WithFields(log.Fields{
			"from": u.String(),
			"to":   next.String(),
		}).Info("following redirect")
		redirects++
		u = next
	}
}

func (c *Client) hop(ctx context.Context, u URL, n int, probes map[string]ProbeResult) *Hop {
	hop := &Hop{URL: u}
	logger := c.logger.WithFields(log.Fields{"hop": n, "host": u.Hostname, "path": u.Path})

	start := time.Now()
	resp, err := c.Do(ctx, u)
	hop.Elapsed = time.Since(start)
	if err != nil {
		logger.WithError(err).Warn("request failed")
		hop.Err = err
	} else {
		hop.Response = resp
		logger.WithField("status", resp.Status.Code).Info("response received")
	}

	if c.probe {
		p, ok := probes[u.Hostname]
		if !ok {
			p = c.Probe(ctx, u.Hostname)
			probes[u.Hostname] = p
		}
		hop.Probe = p
	}
	return hop
}
