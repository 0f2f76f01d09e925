package client

import (
	"errors"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// URL is a decomposed request target. Path always begins with "/".
type URL struct {
	Scheme   string
	Hostname string
	Path     string
}

// String renders the URL as it is requested on the wire, always over https.
func (u URL) String() string {
	return "https://" + u.Hostname + u.Path
}

// ParseURL splits raw into hostname and path. An http:// or https:// prefix is
// stripped, as is a single trailing slash. Ports and IP literals stay part of
// the hostname.
func ParseURL(raw string) (URL, error) {
	rest := strings.TrimSpace(raw)
	scheme := "http"
	switch {
	case hasPrefixFold(rest, "https://"):
		scheme = "https"
		rest = rest[len("https://"):]
	case hasPrefixFold(rest, "http://"):
		rest = rest[len("http://"):]
	}
	rest = strings.TrimSuffix(rest, "/")

	host, path, found := strings.Cut(rest, "/")
	if found {
		path = "/" + path
	} else {
		path = "/"
	}
	if host == "" {
		return URL{}, urlError(raw, errors.New("empty host"))
	}

	ascii, err := httpguts.PunycodeHostPort(host)
	if err != nil {
		return URL{}, urlError(raw, err)
	}
	if !httpguts.ValidHostHeader(ascii) {
		return URL{}, urlError(raw, errors.New("invalid host "+host))
	}
	return URL{Scheme: scheme, Hostname: ascii, Path: path}, nil
}

// Resolve interprets a Location value relative to u. Absolute-path references
// keep u's hostname; everything else is decomposed as a new URL.
func (u URL) Resolve(location string) (URL, error) {
	location = strings.TrimSpace(location)
	switch {
	case strings.HasPrefix(location, "//"):
		return ParseURL(location[2:])
	case strings.HasPrefix(location, "/"):
		return URL{Scheme: u.Scheme, Hostname: u.Hostname, Path: location}, nil
	}
	return ParseURL(location)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
