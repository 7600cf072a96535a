// Package server hosts the HTTP and DNS callback listeners that receive
// out-of-band interactions and attribute them to recorded injections.
package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ricochetsec/ricochet/internal/correlation"
	"github.com/ricochetsec/ricochet/internal/metrics"
	"github.com/ricochetsec/ricochet/internal/store"
	"github.com/rs/zerolog/log"
)

// maxCallbackBody caps how much of a callback body is persisted. Payload
// exfiltration over OOB channels is small; anything larger is truncated.
const maxCallbackBody = 1 << 20

// HTTPServer receives HTTP callbacks. Every request gets the same minimal
// 200 response so a probing target learns nothing about which IDs exist.
type HTTPServer struct {
	Addr  string
	Store *store.Store
}

// Handler returns the callback handler. Exposed for tests.
func (s *HTTPServer) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

// Run serves callbacks on Addr until ctx is cancelled, then drains in-flight
// requests and closes the listener.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Msg("HTTP callback server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Msg("HTTP callback server stopped")
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	// The response never varies. Known, unknown, and malformed IDs all get
	// the same bytes so an observer cannot enumerate live correlation IDs.
	defer func() {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", "2")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "OK")
	}()

	candidate := lastPathSegment(r.URL.Path)
	if !correlation.ValidID(candidate) {
		metrics.RecordCallback("http", false)
		return
	}

	var body []byte
	if r.ContentLength > 0 {
		body, _ = io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	}

	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		headers[name] = strings.Join(values, ", ")
	}

	sourceIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		sourceIP = host
	}

	known, err := s.Store.RecordCallback(candidate, sourceIP, r.URL.Path, headers, body)
	if err != nil {
		log.Error().Err(err).Str("correlation_id", candidate).Msg("Failed to record HTTP callback")
		return
	}
	metrics.RecordCallback("http", known)

	if known {
		log.Info().
			Str("correlation_id", candidate).
			Str("source_ip", sourceIP).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("HTTP callback received")
	} else {
		log.Debug().
			Str("candidate", candidate).
			Str("source_ip", sourceIP).
			Msg("HTTP callback with unknown correlation ID discarded")
	}
}

// lastPathSegment returns the final non-empty segment of a URL path.
func lastPathSegment(path string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
