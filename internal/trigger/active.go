// Package trigger nudges injected payloads toward execution. Second-order
// sinks often live behind back-office pages that render stored input; the
// prober visits the usual suspects, and the suggestion table tells a human
// where to look when no automated trigger exists.
package trigger

import (
	"context"
	"strings"
	"time"

	"github.com/ricochetsec/ricochet/internal/httpclient"
	"github.com/ricochetsec/ricochet/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// defaultEndpoints are the paths most likely to render stored input: admin
// panels, support queues, analytics dashboards, and export jobs.
var defaultEndpoints = []string{
	"/admin",
	"/admin/users",
	"/admin/comments",
	"/admin/messages",
	"/admin/logs",
	"/admin/dashboard",
	"/dashboard",
	"/support",
	"/support/tickets",
	"/analytics",
	"/analytics/visitors",
	"/reports",
	"/export",
	"/export/csv",
	"/export/pdf",
	"/preview",
	"/moderation",
	"/moderation/queue",
}

// ProbeResult is the outcome of one endpoint visit. A transport failure is
// reported in Err; HTTP error statuses are ordinary results.
type ProbeResult struct {
	Endpoint     string
	Status       int
	ResponseSize int
	Err          error
}

// Prober visits trigger endpoints under a target base URL.
type Prober struct {
	Endpoints []string      // nil means the built-in list
	Timeout   time.Duration // per request; zero means httpclient default
	ProxyURL  string
	OnResult  func(ProbeResult) // optional, called per endpoint in order

	limiter *ratelimit.Limiter
}

// NewProber creates a prober with its own rate limiter. A ratePerSec of
// zero or less uses the default 2 req/s.
func NewProber(ratePerSec float64) (*Prober, error) {
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	limiter, err := ratelimit.New(ratePerSec, 1)
	if err != nil {
		return nil, err
	}
	return &Prober{limiter: limiter}, nil
}

// Probe visits every endpoint under baseURL, rate limited, and returns one
// result per endpoint. It stops early only on context cancellation.
func (p *Prober) Probe(ctx context.Context, baseURL string) ([]ProbeResult, error) {
	base := strings.TrimRight(baseURL, "/")
	endpoints := p.Endpoints
	if endpoints == nil {
		endpoints = defaultEndpoints
	}

	results := make([]ProbeResult, 0, len(endpoints))
	for _, endpoint := range endpoints {
		if err := p.limiter.Acquire(ctx); err != nil {
			return results, err
		}

		result := ProbeResult{Endpoint: endpoint}
		resp, err := httpclient.Send(ctx, httpclient.Options{
			Method:   "GET",
			URL:      base + endpoint,
			Timeout:  p.Timeout,
			ProxyURL: p.ProxyURL,
		})
		if err != nil {
			result.Err = err
			log.Debug().Str("endpoint", endpoint).Err(err).Msg("Trigger probe failed")
		} else {
			result.Status = resp.Status
			result.ResponseSize = len(resp.Body)
			log.Debug().Str("endpoint", endpoint).Int("status", resp.Status).Msg("Trigger probe")
		}

		results = append(results, result)
		if p.OnResult != nil {
			p.OnResult(result)
		}
	}
	return results, nil
}
