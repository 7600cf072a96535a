package request

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a raw request cannot be parsed: empty input,
// an unusable request line, or a missing Host header.
var ErrMalformed = errors.New("request: malformed request")

// Parse parses a Burp-format raw HTTP request. Burp exports use CRLF line
// endings; the header section ends at the first blank line and anything
// after it is the body.
func Parse(content []byte) (Request, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return Request{}, fmt.Errorf("%w: empty content", ErrMalformed)
	}

	var headerSection, body []byte
	if i := bytes.Index(content, []byte("\r\n\r\n")); i >= 0 {
		headerSection = content[:i]
		rest := content[i+4:]
		if len(rest) > 0 {
			body = rest
		}
	} else {
		headerSection = content
	}

	lines := bytes.Split(headerSection, []byte("\r\n"))
	if len(lines) == 0 || len(lines[0]) == 0 {
		return Request{}, fmt.Errorf("%w: missing request line", ErrMalformed)
	}

	parts := strings.Split(string(lines[0]), " ")
	if len(parts) < 2 {
		return Request{}, fmt.Errorf("%w: request line %q", ErrMalformed, string(lines[0]))
	}

	req := Request{
		Method: parts[0],
		Path:   parts[1],
		Proto:  "HTTP/1.1",
		Body:   body,
	}
	if len(parts) >= 3 {
		req.Proto = parts[2]
	}

	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		name, value, ok := strings.Cut(string(line), ":")
		if !ok {
			continue
		}
		req.Headers = append(req.Headers, Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}

	host, ok := req.HeaderValue("Host")
	if !ok || host == "" {
		return Request{}, fmt.Errorf("%w: missing Host header", ErrMalformed)
	}
	req.Host = host

	return req, nil
}

// ParseString parses a raw request from a string, normalizing LF or bare CR
// line endings to CRLF first.
func ParseString(content string) (Request, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = strings.ReplaceAll(normalized, "\n", "\r\n")
	return Parse([]byte(normalized))
}
