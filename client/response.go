package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// SplitResponse separates raw at the first blank line. Without one, the whole
// buffer is the header block and the body is empty.
func SplitResponse(raw []byte) (header, body []byte) {
	idx := bytes.Index(raw, headerTerminator)
	if idx < 0 {
		return raw, nil
	}
	return raw[:idx], raw[idx+len(headerTerminator):]
}

// StatusLine is the first line of a response.
type StatusLine struct {
	Text   string
	Proto  string
	Code   int
	Reason string
}

// ParseStatusLine parses "HTTP/1.1 200 OK". Malformed lines keep their Text
// and leave Code at zero.
func ParseStatusLine(line string) StatusLine {
	s := StatusLine{Text: line}
	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return s
	}
	s.Proto = proto
	code, reason, _ := strings.Cut(rest, " ")
	if n, err := strconv.Atoi(code); err == nil && len(code) == 3 {
		s.Code = n
		s.Reason = reason
	}
	return s
}

// IsRedirect reports whether the status is a 3xx.
func (s StatusLine) IsRedirect() bool {
	return s.Code >= 300 && s.Code <= 399
}

// HeaderValue holds either the text of a header or, for a repeated
// Set-Cookie, the parsed cookies in arrival order.
type HeaderValue struct {
	text    string
	cookies []CookieAttributes
}

// IsCookieList reports whether the value was folded into a cookie list.
func (v HeaderValue) IsCookieList() bool { return v.cookies != nil }

// Text returns the header text. It is empty for a cookie list.
func (v HeaderValue) Text() string { return v.text }

// Cookies returns the folded cookie list, or nil.
func (v HeaderValue) Cookies() []CookieAttributes { return v.cookies }

func (v HeaderValue) String() string {
	if v.cookies == nil {
		return v.text
	}
	raws := make([]string, len(v.cookies))
	for i, c := range v.cookies {
		raws[i] = c.Raw
	}
	return strings.Join(raws, ", ")
}

func (v HeaderValue) MarshalJSON() ([]byte, error) {
	if v.cookies != nil {
		return json.Marshal(v.cookies)
	}
	return json.Marshal(v.text)
}

// HeaderMap maps header names, case-sensitive as received, to values. Keys
// keep the order of their first occurrence.
type HeaderMap struct {
	keys   []string
	values map[string]HeaderValue
}

func NewHeaderMap() *HeaderMap {
	return &HeaderMap{values: make(map[string]HeaderValue)}
}

// ParseHeaders builds a HeaderMap from a header block. Lines without ": ",
// such as the status line, are skipped. A repeated Set-Cookie becomes a
// cookie list; any other repeated header keeps its last value.
func ParseHeaders(block string) *HeaderMap {
	h := NewHeaderMap()
	for _, line := range strings.Split(block, "\r\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		h.Add(key, value)
	}
	return h
}

// Add records one header line. The zero HeaderMap is ready to use.
func (h *HeaderMap) Add(key, value string) {
	if h.values == nil {
		h.values = make(map[string]HeaderValue)
	}
	existing, ok := h.values[key]
	if !ok {
		h.keys = append(h.keys, key)
		h.values[key] = HeaderValue{text: value}
		return
	}
	if strings.EqualFold(key, "Set-Cookie") {
		if existing.cookies == nil {
			existing = HeaderValue{cookies: []CookieAttributes{ParseCookie(existing.text)}}
		}
		existing.cookies = append(existing.cookies, ParseCookie(value))
		h.values[key] = existing
		return
	}
	h.values[key] = HeaderValue{text: value}
}

// Get returns the value stored under exactly key.
func (h *HeaderMap) Get(key string) (HeaderValue, bool) {
	v, ok := h.values[key]
	return v, ok
}

// GetFold returns the text of the first key matching name case-insensitively.
func (h *HeaderMap) GetFold(name string) (string, bool) {
	for _, k := range h.keys {
		if strings.EqualFold(k, name) {
			return h.values[k].String(), true
		}
	}
	return "", false
}

// Keys returns the header names in first-occurrence order.
func (h *HeaderMap) Keys() []string {
	return append([]string(nil), h.keys...)
}

func (h *HeaderMap) Len() int { return len(h.keys) }

// Cookies returns every Set-Cookie value parsed, whether or not it was
// repeated.
func (h *HeaderMap) Cookies() []CookieAttributes {
	var out []CookieAttributes
	for _, k := range h.keys {
		if !strings.EqualFold(k, "Set-Cookie") {
			continue
		}
		v := h.values[k]
		if v.cookies != nil {
			out = append(out, v.cookies...)
		} else {
			out = append(out, ParseCookie(v.text))
		}
	}
	return out
}

// Location returns the redirect target, if any.
func (h *HeaderMap) Location() (string, bool) {
	return h.GetFold("Location")
}

// MarshalJSON keeps header order.
func (h *HeaderMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range h.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := h.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
