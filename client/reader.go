package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

const readChunkSize = 1024

var (
	headerTerminator = []byte("\r\n\r\n")
	crlf             = []byte("\r\n")
)

// ReadOptions controls ReadResponse.
type ReadOptions struct {
	// IdleTimeout bounds every single read. Zero disables it.
	IdleTimeout time.Duration
	// MaxSize caps the accumulated response. Zero disables it.
	MaxSize int
	// Host is only used to annotate errors.
	Host string
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// ReadResponse accumulates the response from r. It stops when the peer closes
// the stream, or earlier when the headers declare a Content-Length that has
// been fully received or a chunked body whose last chunk has arrived.
func ReadResponse(ctx context.Context, r io.Reader, opts ReadOptions) ([]byte, error) {
	dl, hasDeadline := r.(readDeadliner)
	if hasDeadline {
		stop := context.AfterFunc(ctx, func() {
			_ = dl.SetReadDeadline(time.Now())
		})
		defer stop()
	}

	var (
		acc   []byte
		buf   = make([]byte, readChunkSize)
		frame = framing{headerEnd: -1, contentLength: -1}
	)
	for {
		if hasDeadline && opts.IdleTimeout > 0 && ctx.Err() == nil {
			_ = dl.SetReadDeadline(time.Now().Add(opts.IdleTimeout))
		}
		n, err := r.Read(buf)
		acc = append(acc, buf[:n]...)
		if opts.MaxSize > 0 && len(acc) > opts.MaxSize {
			return acc, transportError("read", opts.Host, fmt.Errorf("response exceeds %d bytes", opts.MaxSize))
		}
		if n > 0 && frame.complete(acc) {
			return acc, nil
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return acc, nil
			case errors.Is(err, io.ErrUnexpectedEOF) && len(acc) > 0:
				// peer closed the TCP stream without a close_notify alert
				return acc, nil
			case ctx.Err() != nil:
				err = ctx.Err()
			}
			return acc, transportError("read", opts.Host, err)
		}
		if n == 0 {
			return acc, nil
		}
	}
}

// framing tracks what the response headers say about the body length.
type framing struct {
	headerEnd     int
	contentLength int
	chunked       bool
	unbounded     bool
}

func (f *framing) complete(acc []byte) bool {
	if f.headerEnd < 0 {
		idx := bytes.Index(acc, headerTerminator)
		if idx < 0 {
			return false
		}
		f.headerEnd = idx + len(headerTerminator)
		f.inspect(string(acc[:idx]))
	}
	body := acc[f.headerEnd:]
	switch {
	case f.unbounded:
		return false
	case f.chunked:
		return chunkedComplete(body)
	case f.contentLength >= 0:
		return len(body) >= f.contentLength
	}
	return false
}

func (f *framing) inspect(block string) {
	statusLine, _, _ := strings.Cut(block, "\r\n")
	status := ParseStatusLine(statusLine)
	headers := ParseHeaders(block)

	if te, ok := headers.GetFold("Transfer-Encoding"); ok {
		if httpguts.HeaderValuesContainsToken([]string{te}, "chunked") {
			f.chunked = true
			return
		}
		// some other coding with no length signal: only close ends it
		f.unbounded = true
		return
	}
	if status.Code == 204 || status.Code == 304 {
		f.contentLength = 0
		return
	}
	if cl, ok := headers.GetFold("Content-Length"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(cl)); err == nil && n >= 0 {
			f.contentLength = n
		}
	}
}

// chunkedComplete reports whether body holds the terminal zero-length chunk
// and the (possibly empty) trailer section after it.
func chunkedComplete(body []byte) bool {
	for {
		line, rest, ok := bytes.Cut(body, crlf)
		if !ok {
			return false
		}
		sizeField, _, _ := bytes.Cut(line, []byte(";"))
		size, err := strconv.ParseUint(string(bytes.TrimSpace(sizeField)), 16, 31)
		if err != nil {
			return false
		}
		if size == 0 {
			return bytes.HasPrefix(rest, crlf) || bytes.Contains(rest, headerTerminator)
		}
		if uint64(len(rest)) < size+2 {
			return false
		}
		body = rest[size+2:]
	}
}
