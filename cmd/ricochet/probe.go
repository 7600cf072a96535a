package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/ricochetsec/ricochet/internal/trigger"
	"github.com/spf13/cobra"
)

var probeFlags struct {
	rate    float64
	timeout time.Duration
}

var probeCmd = &cobra.Command{
	Use:   "probe BASE_URL",
	Short: "Visit common trigger endpoints on the target",
	Long:  `Request the admin, support, analytics, and export pages most likely to render stored input, nudging dormant second-order payloads into executing.`,
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(args[0])
	},
}

func init() {
	probeCmd.Flags().Float64Var(&probeFlags.rate, "rate", 2, "requests per second")
	probeCmd.Flags().DurationVar(&probeFlags.timeout, "timeout", 0, "per-request timeout (default from configuration)")
}

func runProbe(baseURL string) error {
	p, err := trigger.NewProber(probeFlags.rate)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	p.Timeout = probeFlags.timeout
	if p.Timeout == 0 {
		p.Timeout = cfg.Timeout
	}
	p.ProxyURL = cfg.ProxyURL
	p.OnResult = func(r trigger.ProbeResult) {
		if r.Err != nil {
			fmt.Printf("  %-24s error: %v\n", r.Endpoint, r.Err)
			return
		}
		fmt.Printf("  %-24s %d  (%d bytes)\n", r.Endpoint, r.Status, r.ResponseSize)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Probing trigger endpoints on %s\n\n", baseURL)
	results, err := p.Probe(ctx, baseURL)
	if err != nil {
		return err
	}

	reachable := 0
	for _, r := range results {
		if r.Err == nil {
			reachable++
		}
	}
	fmt.Printf("\n%d/%d endpoints reachable. Keep the listener running; callbacks may take a while.\n", reachable, len(results))
	return nil
}

var suggestCmd = &cobra.Command{
	Use:   "suggest PARAMETER",
	Short: "Show likely second-order sinks for a parameter",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suggestions := trigger.SuggestFor(args[0])
		fmt.Printf("Likely sinks for %q:\n\n", args[0])
		for _, s := range suggestions {
			fmt.Printf("  [%s] %s\n", s.Likelihood, s.Sink)
			for _, step := range s.Steps {
				fmt.Printf("      - %s\n", step)
			}
		}
		return nil
	},
}
