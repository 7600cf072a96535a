// Package httpclient sends prepared injection and probe requests. It exists
// so the injector can transmit a request exactly as mutated: headers keep
// their casing, TLS verification is off by default (self-signed targets are
// the norm in security testing), and an explicit proxy overrides the
// environment.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ricochetsec/ricochet/internal/request"
)

var (
	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("httpclient: request timed out")

	// ErrConnection indicates the request failed before any deadline:
	// DNS resolution, connection refused, TLS handshake.
	ErrConnection = errors.New("httpclient: connection failed")
)

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Options describes one outbound request.
type Options struct {
	Method          string
	URL             string
	Headers         []request.Header
	Body            []byte
	Timeout         time.Duration // zero means DefaultTimeout
	VerifyTLS       bool          // default false: accept self-signed certs
	DisableRedirect bool          // default false: redirects are followed
	ProxyURL        string        // overrides environment proxy detection
}

// Response is the outcome of a completed request. 4xx and 5xx statuses are
// successful completions, not errors.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
	URL     string // final URL after redirects
}

// Send transmits the request and classifies failures as ErrTimeout or
// ErrConnection. The method, headers, and body go out exactly as prepared.
func Send(ctx context.Context, opts Options) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.VerifyTLS},
	}
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("%w: bad proxy URL %q: %v", ErrConnection, opts.ProxyURL, err)
		}
		// Both http and https targets route through the proxy.
		transport.Proxy = http.ProxyURL(proxy)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
	if opts.DisableRedirect {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	// Assign header map entries directly so the original casing survives;
	// Header.Set would canonicalize the names.
	for _, h := range opts.Headers {
		if h.Name == "Host" || h.Name == "host" {
			req.Host = h.Value
			continue
		}
		req.Header[h.Name] = append(req.Header[h.Name], h.Value)
	}
	if opts.Body != nil {
		req.ContentLength = int64(len(opts.Body))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    respBody,
		URL:     resp.Request.URL.String(),
	}, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
