// Package request models raw HTTP requests captured for injection testing:
// parsing Burp-format exports, enumerating injectable parameters, and
// producing mutated copies without touching the original.
package request

import (
	"fmt"
	"strings"
)

// Header is one request header with its original casing preserved.
type Header struct {
	Name  string
	Value string
}

// Request is a parsed HTTP request. Headers keep their document order and
// original casing; lookups are case-insensitive. Mutating helpers return a
// modified copy, never touching the receiver.
type Request struct {
	Method  string
	Path    string // includes the query string
	Proto   string // e.g. "HTTP/1.1"
	Headers []Header
	Body    []byte
	Host    string
}

// HeaderValue returns the value of the named header, matched
// case-insensitively, and whether it was present.
func (r Request) HeaderValue(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// ContentType returns the lowercased Content-Type header value, or "".
func (r Request) ContentType() string {
	v, _ := r.HeaderValue("Content-Type")
	return strings.ToLower(v)
}

// Clone returns a deep copy of the request.
func (r Request) Clone() Request {
	out := r
	out.Headers = make([]Header, len(r.Headers))
	copy(out.Headers, r.Headers)
	if r.Body != nil {
		out.Body = make([]byte, len(r.Body))
		copy(out.Body, r.Body)
	}
	return out
}

// WithPath returns a copy of the request with a new path.
func (r Request) WithPath(path string) Request {
	out := r.Clone()
	out.Path = path
	return out
}

// WithHeaderValue returns a copy with the named header's value replaced.
// The match is case-insensitive; the original casing of every header is
// preserved. A missing header leaves the copy unchanged.
func (r Request) WithHeaderValue(name, value string) Request {
	out := r.Clone()
	for i, h := range out.Headers {
		if strings.EqualFold(h.Name, name) {
			out.Headers[i].Value = value
			break
		}
	}
	return out
}

// WithBody returns a copy with the body replaced and Content-Length updated
// to match.
func (r Request) WithBody(body []byte) Request {
	out := r.Clone()
	out.Body = body
	for i, h := range out.Headers {
		if strings.EqualFold(h.Name, "Content-Length") {
			out.Headers[i].Value = fmt.Sprintf("%d", len(body))
			return out
		}
	}
	out.Headers = append(out.Headers, Header{Name: "Content-Length", Value: fmt.Sprintf("%d", len(body))})
	return out
}

// BuildURL assembles the full URL for the request.
func BuildURL(r Request, useHTTPS bool) string {
	scheme := "http"
	if useHTTPS {
		scheme = "https"
	}
	path := r.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return scheme + "://" + r.Host + path
}
