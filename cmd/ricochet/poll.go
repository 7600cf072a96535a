package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ricochetsec/ricochet/internal/poller"
	"github.com/ricochetsec/ricochet/internal/store"
	"github.com/ricochetsec/ricochet/internal/trigger"
	"github.com/spf13/cobra"
)

var pollFlags struct {
	timeout     time.Duration
	interval    time.Duration
	minSeverity string
	suggest     bool
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Wait for callbacks and print findings as they arrive",
	Long:  `Repeatedly query the findings join and print new findings. The poll interval backs off while the channel is quiet and snaps back when a callback lands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPoll()
	},
}

func init() {
	pollCmd.Flags().DurationVar(&pollFlags.timeout, "timeout", 0, "stop polling after this long (default from configuration)")
	pollCmd.Flags().DurationVar(&pollFlags.interval, "interval", 0, "base poll interval (default from configuration)")
	pollCmd.Flags().StringVar(&pollFlags.minSeverity, "min-severity", "info", "lowest severity to report (info, low, medium, high)")
	pollCmd.Flags().BoolVar(&pollFlags.suggest, "suggest", false, "print trigger suggestions with each finding")
}

func runPoll() error {
	minSeverity, err := store.ParseSeverity(pollFlags.minSeverity)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	pcfg := poller.Config{
		BaseInterval:    cfg.PollBaseInterval,
		MaxInterval:     cfg.PollMaxInterval,
		BackoffFactor:   cfg.PollBackoffFactor,
		ResetOnCallback: true,
		Timeout:         cfg.PollTimeout,
	}
	if pollFlags.interval > 0 {
		pcfg.BaseInterval = pollFlags.interval
	}
	if pollFlags.timeout > 0 {
		pcfg.Timeout = pollFlags.timeout
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Polling for callbacks (timeout %s, Ctrl-C to stop)...\n\n", pcfg.Timeout)

	total, err := poller.Poll(ctx, st, pcfg, minSeverity, printFinding)
	if errors.Is(err, context.Canceled) {
		fmt.Printf("\nInterrupted. %d finding(s) seen.\n", total)
		st.Close()
		os.Exit(130)
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nDone. %d finding(s) seen.\n", total)
	return nil
}

func printFinding(f store.Finding) {
	fmt.Printf("[%s] %s\n", f.Severity(), f.CorrelationID)
	fmt.Printf("  Target:    %s\n", f.TargetURL)
	fmt.Printf("  Parameter: %s\n", f.Parameter)
	if f.Context != "" {
		fmt.Printf("  Context:   %s\n", f.Context)
	}
	fmt.Printf("  Callback:  %s from %s after %.1fs\n", f.RequestPath, f.SourceIP, f.DelaySeconds)

	if pollFlags.suggest {
		for _, s := range trigger.SuggestFor(f.Parameter) {
			fmt.Printf("  Suggestion (%s): %s\n", s.Likelihood, s.Sink)
		}
	}
	fmt.Println()
}
