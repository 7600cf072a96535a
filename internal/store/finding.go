package store

import (
	"fmt"
	"strings"
)

// Severity ranks how serious a confirmed finding is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

// String returns the lowercase label for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "info"
	}
}

// ParseSeverity maps a label to a Severity. Unknown labels fall back to
// info so a bad filter never hides findings; the error lets callers warn.
func ParseSeverity(label string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "info":
		return SeverityInfo, nil
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", label)
	}
}

// DeriveSeverity maps an injection context tag to a severity by substring
// match, case-insensitive. Precedence when several classes appear in one
// tag: ssti, then sqli, then xss.
func DeriveSeverity(context string) Severity {
	ctx := strings.ToLower(context)
	switch {
	case strings.Contains(ctx, "ssti"):
		return SeverityHigh
	case strings.Contains(ctx, "sqli"):
		return SeverityHigh
	case strings.Contains(ctx, "xss"):
		return SeverityMedium
	default:
		return SeverityInfo
	}
}

// Finding is one materialized (injection, callback) pair sharing a
// correlation ID.
type Finding struct {
	CorrelationID   string
	TargetURL       string
	Parameter       string
	Payload         string
	Context         string
	InjectedAt      float64
	CallbackID      int64
	SourceIP        string
	RequestPath     string
	CallbackHeaders map[string]string
	CallbackBody    []byte
	ReceivedAt      float64

	// DelaySeconds is ReceivedAt - InjectedAt. Clock skew between the
	// injecting host and the listener can make it negative.
	DelaySeconds float64
}

// Severity derives the finding's severity from its injection context.
func (f Finding) Severity() Severity {
	return DeriveSeverity(f.Context)
}
