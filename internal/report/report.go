// Package report renders findings for humans and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ricochetsec/ricochet/internal/store"
)

// Report is a point-in-time snapshot of the findings join, grouped per
// correlation ID.
type Report struct {
	ID          string         `json:"id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Findings    int            `json:"findings"`
	Injections  []InjectionRow `json:"injections"`
}

// InjectionRow is one confirmed injection with all of its callbacks.
type InjectionRow struct {
	CorrelationID string        `json:"correlation_id"`
	TargetURL     string        `json:"target_url"`
	Parameter     string        `json:"parameter"`
	Payload       string        `json:"payload"`
	Context       string        `json:"context,omitempty"`
	Severity      string        `json:"severity"`
	InjectedAt    float64       `json:"injected_at"`
	Callbacks     []CallbackRow `json:"callbacks"`
}

// CallbackRow is one out-of-band interaction.
type CallbackRow struct {
	SourceIP     string            `json:"source_ip"`
	RequestPath  string            `json:"request_path"`
	Headers      map[string]string `json:"headers,omitempty"`
	ReceivedAt   float64           `json:"received_at"`
	DelaySeconds float64           `json:"delay_seconds"`
}

// Build groups findings into a report. Input order (newest callback first)
// determines both group order and callback order within a group.
func Build(findings []store.Finding) Report {
	r := Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Findings:    len(findings),
	}

	index := map[string]int{}
	for _, f := range findings {
		i, seen := index[f.CorrelationID]
		if !seen {
			i = len(r.Injections)
			index[f.CorrelationID] = i
			r.Injections = append(r.Injections, InjectionRow{
				CorrelationID: f.CorrelationID,
				TargetURL:     f.TargetURL,
				Parameter:     f.Parameter,
				Payload:       f.Payload,
				Context:       f.Context,
				Severity:      f.Severity().String(),
				InjectedAt:    f.InjectedAt,
			})
		}
		r.Injections[i].Callbacks = append(r.Injections[i].Callbacks, CallbackRow{
			SourceIP:     f.SourceIP,
			RequestPath:  f.RequestPath,
			Headers:      f.CallbackHeaders,
			ReceivedAt:   f.ReceivedAt,
			DelaySeconds: f.DelaySeconds,
		})
	}
	return r
}

// WriteJSON renders the findings as an indented JSON report.
func WriteJSON(w io.Writer, findings []store.Finding) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(findings))
}

// WriteText renders the findings as a readable text report.
func WriteText(w io.Writer, findings []store.Finding) error {
	r := Build(findings)

	fmt.Fprintf(w, "Ricochet findings report %s\n", r.ID)
	fmt.Fprintf(w, "Generated %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	if len(r.Injections) == 0 {
		_, err := fmt.Fprintln(w, "No findings.")
		return err
	}

	fmt.Fprintf(w, "%d finding(s) across %d injection(s)\n\n", r.Findings, len(r.Injections))
	for _, inj := range r.Injections {
		fmt.Fprintf(w, "[%s] %s\n", inj.Severity, inj.CorrelationID)
		fmt.Fprintf(w, "  Target:    %s\n", inj.TargetURL)
		fmt.Fprintf(w, "  Parameter: %s\n", inj.Parameter)
		if inj.Context != "" {
			fmt.Fprintf(w, "  Context:   %s\n", inj.Context)
		}
		fmt.Fprintf(w, "  Payload:   %s\n", inj.Payload)
		fmt.Fprintf(w, "  Injected:  %s\n", formatEpoch(inj.InjectedAt))
		for _, cb := range inj.Callbacks {
			fmt.Fprintf(w, "  Callback from %s at %s (delay %s)\n",
				cb.SourceIP, formatEpoch(cb.ReceivedAt), formatDelay(cb.DelaySeconds))
			fmt.Fprintf(w, "    %s\n", cb.RequestPath)
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func formatEpoch(seconds float64) string {
	return time.Unix(0, int64(seconds*1e9)).UTC().Format(time.RFC3339)
}

func formatDelay(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	return (time.Duration(seconds*1e9) * time.Nanosecond).Round(time.Millisecond).String()
}
