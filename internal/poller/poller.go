// Package poller runs the correlation loop: repeatedly query the findings
// join and emit new findings, backing off while the channel stays quiet.
package poller

import (
	"context"
	"time"

	"github.com/ricochetsec/ricochet/internal/metrics"
	"github.com/ricochetsec/ricochet/internal/store"
	"github.com/rs/zerolog/log"
)

// quietThreshold is how many consecutive empty polls are tolerated before
// the interval starts growing.
const quietThreshold = 5

// Config tunes the polling loop.
type Config struct {
	BaseInterval    time.Duration
	MaxInterval     time.Duration
	BackoffFactor   float64
	ResetOnCallback bool
	Timeout         time.Duration // zero means poll forever
}

// DefaultConfig returns the stock polling parameters.
func DefaultConfig() Config {
	return Config{
		BaseInterval:    5 * time.Second,
		MaxInterval:     60 * time.Second,
		BackoffFactor:   1.5,
		ResetOnCallback: true,
		Timeout:         time.Hour,
	}
}

// Strategy tracks the adaptive interval. Empty polls past the quiet
// threshold multiply the interval up to the max; a finding snaps it back to
// base when ResetOnCallback is set. Elapsed time uses the monotonic clock.
type Strategy struct {
	cfg        Config
	interval   time.Duration
	quietPolls int
	started    time.Time
}

// NewStrategy starts a strategy at the base interval.
func NewStrategy(cfg Config) *Strategy {
	return &Strategy{cfg: cfg, interval: cfg.BaseInterval, started: time.Now()}
}

// Interval returns the current wait between polls.
func (s *Strategy) Interval() time.Duration { return s.interval }

// Observe feeds one poll result into the state machine.
func (s *Strategy) Observe(foundCallback bool) {
	if foundCallback {
		s.quietPolls = 0
		if s.cfg.ResetOnCallback {
			s.interval = s.cfg.BaseInterval
		}
		return
	}

	s.quietPolls++
	if s.quietPolls <= quietThreshold {
		return
	}
	next := time.Duration(float64(s.interval) * s.cfg.BackoffFactor)
	if next > s.cfg.MaxInterval {
		next = s.cfg.MaxInterval
	}
	s.interval = next
}

// TimedOut reports whether the configured poll duration has elapsed.
func (s *Strategy) TimedOut() bool {
	return s.cfg.Timeout > 0 && time.Since(s.started) >= s.cfg.Timeout
}

// Poll queries the store for new findings until the timeout or ctx
// cancellation, invoking fn for each finding exactly once. Findings present
// before the first poll are emitted in the first batch. It returns the total
// number of findings seen.
func Poll(ctx context.Context, st *store.Store, cfg Config, minSeverity store.Severity, fn func(store.Finding)) (int, error) {
	strategy := NewStrategy(cfg)

	total := 0
	since := 0.0
	for {
		// Captured before the query so a callback arriving mid-query is
		// never skipped; the strict > filter keeps batches disjoint.
		captured := float64(time.Now().UnixNano()) / 1e9

		findings, err := st.Findings(store.FindingFilter{Since: &since, MinSeverity: minSeverity})
		if err != nil {
			log.Warn().Err(err).Msg("Findings query failed, will retry")
			findings = nil
		}

		newest := captured
		for _, f := range findings {
			if f.ReceivedAt > newest {
				newest = f.ReceivedAt
			}
			if fn != nil {
				fn(f)
			}
		}
		since = newest
		total += len(findings)
		if len(findings) > 0 {
			metrics.RecordFindings(len(findings))
			log.Info().Int("count", len(findings)).Msg("New findings")
		}

		strategy.Observe(len(findings) > 0)
		if strategy.TimedOut() {
			log.Info().Int("total", total).Msg("Polling timeout reached")
			return total, nil
		}

		wait := strategy.Interval()
		if cfg.Timeout > 0 {
			if remaining := cfg.Timeout - time.Since(strategy.started); remaining < wait {
				wait = remaining
			}
		}
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return total, ctx.Err()
		case <-timer.C:
		}
	}
}
