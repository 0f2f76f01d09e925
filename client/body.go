package client

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http/httputil"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/http/httpguts"
)

// zeroChunkSuffix is the tail of a chunked body: the last chunk-data CRLF
// is not included, only its LF.
const zeroChunkSuffix = "\n0\r\n\r\n"

// BodyText renders a body for display. A body without any CRLF is taken as
// is. Otherwise the bytes are cut at the first NUL and a trailing zero-length
// chunk is removed. This is not a chunked decoder: chunk-size lines stay in
// the text. Invalid UTF-8 is replaced.
func BodyText(body []byte) string {
	text, _ := bodyText(body)
	return text
}

// StrictBodyText is BodyText that fails with ErrDecode instead of repairing
// invalid UTF-8.
func StrictBodyText(body []byte) (string, error) {
	text, ok := bodyText(body)
	if !ok {
		return text, decodeError("body", errors.New("invalid UTF-8"))
	}
	return text, nil
}

func bodyText(body []byte) (string, bool) {
	if !bytes.Contains(body, crlf) {
		if utf8.Valid(body) {
			return string(body), true
		}
		return strings.ToValidUTF8(string(body), string(utf8.RuneError)), false
	}
	if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}
	valid := utf8.Valid(body)
	var text string
	if valid {
		text = string(body)
	} else {
		text = latin1(body)
	}
	return strings.TrimSuffix(text, zeroChunkSuffix), valid
}

func latin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// DecodeBody undoes the transfer and content codings declared in headers:
// chunked framing, then gzip, deflate, br or zstd in reverse order of
// application.
func DecodeBody(headers *HeaderMap, body []byte) ([]byte, error) {
	if te, ok := headers.GetFold("Transfer-Encoding"); ok && httpguts.HeaderValuesContainsToken([]string{te}, "chunked") {
		b, err := io.ReadAll(httputil.NewChunkedReader(bytes.NewReader(body)))
		if err != nil {
			return nil, decodeError("dechunk", err)
		}
		body = b
	}

	ce, ok := headers.GetFold("Content-Encoding")
	if !ok {
		return body, nil
	}
	codings := strings.Split(ce, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		b, err := decompress(coding, body)
		if err != nil {
			return nil, decodeError(coding, err)
		}
		body = b
	}
	return body, nil
}

func decompress(coding string, data []byte) ([]byte, error) {
	switch coding {
	case "", "identity":
		return data, nil
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return io.ReadAll(gr)
	case "deflate":
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			// raw DEFLATE without the zlib wrapper
			fr := flate.NewReader(bytes.NewReader(data))
			defer fr.Close()
			return io.ReadAll(fr)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	case "zstd":
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	}
	return nil, fmt.Errorf("unsupported content coding %q", coding)
}
