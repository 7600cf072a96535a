package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ricochetsec/ricochet/internal/report"
	"github.com/ricochetsec/ricochet/internal/store"
	"github.com/spf13/cobra"
)

var findingsFlags struct {
	json        bool
	minSeverity string
	since       time.Duration
}

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Show confirmed findings",
	Long:  `Join recorded injections with received callbacks and print one finding per pair, newest callback first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFindings()
	},
}

func init() {
	findingsCmd.Flags().BoolVar(&findingsFlags.json, "json", false, "emit a JSON report")
	findingsCmd.Flags().StringVar(&findingsFlags.minSeverity, "min-severity", "info", "lowest severity to include")
	findingsCmd.Flags().DurationVar(&findingsFlags.since, "since", 0, "only callbacks received within this window (0 means all)")
}

func runFindings() error {
	minSeverity, err := store.ParseSeverity(findingsFlags.minSeverity)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	filter := store.FindingFilter{MinSeverity: minSeverity}
	if findingsFlags.since > 0 {
		cutoff := float64(time.Now().Add(-findingsFlags.since).UnixNano()) / 1e9
		filter.Since = &cutoff
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	findings, err := st.Findings(filter)
	if err != nil {
		return err
	}

	if findingsFlags.json {
		return report.WriteJSON(os.Stdout, findings)
	}
	return report.WriteText(os.Stdout, findings)
}

var injectionsFlags struct {
	limit     int
	confirmed bool
}

var injectionsCmd = &cobra.Command{
	Use:   "injections",
	Short: "List recorded injections",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInjections()
	},
}

func init() {
	injectionsCmd.Flags().IntVar(&injectionsFlags.limit, "limit", 50, "maximum rows to show (0 means all)")
	injectionsCmd.Flags().BoolVar(&injectionsFlags.confirmed, "confirmed", false, "only injections that received callbacks")
}

func runInjections() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if injectionsFlags.confirmed {
		rows, err := st.InjectionsWithCallbacks()
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No confirmed injections.")
			return nil
		}
		for _, row := range rows {
			fmt.Printf("%s  %-18s %2d callback(s), last %s\n",
				row.Injection.ID, row.Injection.Parameter,
				row.CallbackCount, formatEpoch(row.LastCallback))
			fmt.Printf("  %s\n", row.Injection.TargetURL)
		}
		return nil
	}

	rows, err := st.ListInjections(injectionsFlags.limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No injections recorded.")
		return nil
	}
	for _, rec := range rows {
		fmt.Printf("%s  %-18s %s  %s\n",
			rec.ID, rec.Parameter, formatEpoch(rec.InjectedAt), rec.TargetURL)
	}
	return nil
}

func formatEpoch(seconds float64) string {
	return time.Unix(0, int64(seconds*1e9)).UTC().Format(time.RFC3339)
}
