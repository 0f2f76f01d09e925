package client

// BuildRequest formats the GET request for u. Only Host and Connection are
// sent; "Connection: close" is what lets the reader treat EOF as the end of
// the response.
func BuildRequest(u URL) []byte {
	buf := make([]byte, 0, 64+len(u.Path)+len(u.Hostname))
	buf = append(buf, "GET "...)
	buf = append(buf, u.Path...)
	buf = append(buf, " HTTP/1.1\r\n"...)
	buf = append(buf, "Host: "...)
	buf = append(buf, u.Hostname...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, "Connection: close\r\n\r\n"...)
	return buf
}
