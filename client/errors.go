package client

import (
	"errors"
	"fmt"
)

// Kind is the category of a client error.
type Kind int

const (
	KindUnknown Kind = iota
	KindURLFormat
	KindConnection
	KindTransport
	KindDecode
	KindRedirect
)

func (k Kind) String() string {
	switch k {
	case KindURLFormat:
		return "url format error"
	case KindConnection:
		return "connection error"
	case KindTransport:
		return "transport error"
	case KindDecode:
		return "decode error"
	case KindRedirect:
		return "redirect error"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrURLFormat  = errors.New("url format error")
	ErrConnection = errors.New("connection error")
	ErrTransport  = errors.New("transport error")
	ErrDecode     = errors.New("decode error")

	ErrRedirectLoop = errors.New("redirect loop detected")
	ErrTooManyHops  = errors.New("too many redirects")
)

// Error is the error type returned by the client pipeline.
type Error struct {
	Kind Kind
	Op   string
	Host string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Host != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Host)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching the error's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrURLFormat:
		return e.Kind == KindURLFormat
	case ErrConnection:
		return e.Kind == KindConnection
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

func urlError(raw string, err error) *Error {
	return &Error{Kind: KindURLFormat, Op: fmt.Sprintf("parse %q", raw), Err: err}
}

func connError(op, host string, err error) *Error {
	return &Error{Kind: KindConnection, Op: op, Host: host, Err: err}
}

func transportError(op, host string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Host: host, Err: err}
}

func decodeError(op string, err error) *Error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}

func redirectError(host string, err error) *Error {
	return &Error{Kind: KindRedirect, Op: "redirect", Host: host, Err: err}
}
