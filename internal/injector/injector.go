// Package injector plants correlation-tagged payloads into target requests
// and records every attempt so later callbacks can be attributed.
package injector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ricochetsec/ricochet/internal/correlation"
	"github.com/ricochetsec/ricochet/internal/httpclient"
	"github.com/ricochetsec/ricochet/internal/metrics"
	"github.com/ricochetsec/ricochet/internal/ratelimit"
	"github.com/ricochetsec/ricochet/internal/request"
	"github.com/ricochetsec/ricochet/internal/store"
	"github.com/rs/zerolog/log"
)

// Outcome tags how an injection attempt ended.
type Outcome string

const (
	OutcomeSent            Outcome = "sent"
	OutcomeDryRun          Outcome = "dry-run"
	OutcomeTimeout         Outcome = "timeout"
	OutcomeConnectionError Outcome = "connection-error"
)

// Result is the outcome of a single injection attempt. Transmission
// failures are reported here, not as errors: the injection row is recorded
// either way so a callback that arrives regardless can still correlate.
type Result struct {
	CorrelationID string
	Vector        request.Vector
	URL           string
	HTTPStatus    int // zero unless OutcomeSent
	Outcome       Outcome
	Err           error // transmission error for timeout/connection outcomes
}

// Sent reports whether the request completed with an HTTP response.
func (r Result) Sent() bool { return r.Outcome == OutcomeSent }

// Config configures an Injector.
type Config struct {
	Store        *store.Store
	Limiter      *ratelimit.Limiter // nil means 10 req/s, burst 1
	CallbackBase string             // base URL of the callback listener
	Timeout      time.Duration      // per-request; zero means httpclient default
	ProxyURL     string
	VerifyTLS    bool
	UseHTTPS     bool
	DryRun       bool // substitute and record but never transmit
}

// Injector coordinates payload substitution, request mutation, persistence,
// rate limiting, and transmission for injection attempts.
type Injector struct {
	cfg     Config
	limiter *ratelimit.Limiter
}

// New creates an Injector. The store and callback base are required.
func New(cfg Config) (*Injector, error) {
	if cfg.Store == nil {
		return nil, errors.New("injector: store is required")
	}
	if cfg.CallbackBase == "" {
		return nil, errors.New("injector: callback base URL is required")
	}
	limiter := cfg.Limiter
	if limiter == nil {
		var err error
		limiter, err = ratelimit.New(10, 1)
		if err != nil {
			return nil, err
		}
	}
	return &Injector{cfg: cfg, limiter: limiter}, nil
}

// InjectVector runs one injection: substitute the callback placeholder with
// a fresh correlation ID, mutate the request at the vector, persist the
// injection row, and transmit.
//
// The ordering is deliberate: record, then acquire a token, then send. A
// callback racing the HTTP response (typical for DNS callbacks fired from
// inside a SQL engine) must find its row already present.
func (inj *Injector) InjectVector(ctx context.Context, req request.Request, v request.Vector, payloadTemplate, contextTag string) (Result, error) {
	correlationID, err := correlation.NewID()
	if err != nil {
		return Result{}, err
	}

	payload := SubstituteCallback(payloadTemplate, inj.cfg.CallbackBase, correlationID)
	mutated := Mutate(req, v, payload)
	targetURL := request.BuildURL(mutated, inj.cfg.UseHTTPS)

	rec := store.InjectionRecord{
		ID:         correlationID,
		TargetURL:  targetURL,
		Parameter:  v.Qualified(),
		Payload:    payload,
		Context:    contextTag,
		InjectedAt: float64(time.Now().UnixNano()) / 1e9,
	}
	if err := inj.cfg.Store.RecordInjection(rec); err != nil {
		return Result{}, fmt.Errorf("injector: %w", err)
	}

	result := Result{
		CorrelationID: correlationID,
		Vector:        v,
		URL:           targetURL,
	}

	if inj.cfg.DryRun {
		result.Outcome = OutcomeDryRun
		metrics.RecordInjection(string(OutcomeDryRun))
		log.Debug().
			Str("correlation_id", correlationID).
			Str("parameter", v.Qualified()).
			Msg("Dry run, request not sent")
		return result, nil
	}

	if err := inj.limiter.Acquire(ctx); err != nil {
		return Result{}, fmt.Errorf("injector: %w", err)
	}

	resp, err := httpclient.Send(ctx, httpclient.Options{
		Method:    mutated.Method,
		URL:       targetURL,
		Headers:   mutated.Headers,
		Body:      mutated.Body,
		Timeout:   inj.cfg.Timeout,
		ProxyURL:  inj.cfg.ProxyURL,
		VerifyTLS: inj.cfg.VerifyTLS,
	})
	switch {
	case err == nil:
		result.Outcome = OutcomeSent
		result.HTTPStatus = resp.Status
	case errors.Is(err, httpclient.ErrTimeout):
		result.Outcome = OutcomeTimeout
		result.Err = err
	default:
		result.Outcome = OutcomeConnectionError
		result.Err = err
	}
	metrics.RecordInjection(string(result.Outcome))

	if result.Err != nil {
		log.Warn().
			Str("correlation_id", correlationID).
			Str("url", targetURL).
			Err(result.Err).
			Msg("Injection transmission failed, row kept for correlation")
	} else {
		log.Info().
			Str("correlation_id", correlationID).
			Str("parameter", v.Qualified()).
			Int("status", result.HTTPStatus).
			Msg("Injection sent")
	}

	return result, nil
}

// InjectAll injects the payload template into every vector of the request,
// in extraction order.
func (inj *Injector) InjectAll(ctx context.Context, req request.Request, payloadTemplate, contextTag string) ([]Result, error) {
	var results []Result
	for _, v := range request.ExtractVectors(req) {
		result, err := inj.InjectVector(ctx, req, v, payloadTemplate, contextTag)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// InjectParam injects into the first vector whose parameter name matches.
// It returns nil if no vector carries that name.
func (inj *Injector) InjectParam(ctx context.Context, req request.Request, paramName, payloadTemplate, contextTag string) (*Result, error) {
	for _, v := range request.ExtractVectors(req) {
		if v.Name == paramName {
			result, err := inj.InjectVector(ctx, req, v, payloadTemplate, contextTag)
			if err != nil {
				return nil, err
			}
			return &result, nil
		}
	}
	return nil, nil
}
