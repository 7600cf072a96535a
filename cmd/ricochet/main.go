// Ricochet finds second-order vulnerabilities by planting correlation-tagged
// out-of-band payloads and listening for the callbacks they trigger.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ricochetsec/ricochet/internal/config"
	"github.com/ricochetsec/ricochet/internal/logging"
	"github.com/ricochetsec/ricochet/internal/store"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// errUsage marks argument errors so main can exit with the usage code.
var errUsage = errors.New("usage error")

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:     "ricochet",
	Short:   "Ricochet - second-order vulnerability detector",
	Long:    `Ricochet injects correlation-tagged out-of-band payloads into web requests and correlates the HTTP and DNS callbacks they trigger, catching vulnerabilities that never reflect in a response.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logging.Init(logging.Config{
			Format:    cfg.LogFormat,
			Level:     cfg.LogLevel,
			Component: "ricochet",
		})
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Ricochet %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	// Flag parse failures are argument errors; tag them so main exits 2.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(injectCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(findingsCmd)
	rootCmd.AddCommand(injectionsCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if isUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// isUsageError reports whether err is an argument error. Unknown commands
// and unset required flags surface as plain errors from cobra, so they are
// matched by message.
func isUsageError(err error) bool {
	if errors.Is(err, errUsage) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.Contains(msg, "required flag(s)")
}

// exactArgs wraps cobra.ExactArgs so positional-argument mismatches carry
// the usage tag.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

// openStore resolves the database path from flags and configuration.
func openStore() (*store.Store, error) {
	path := cfg.DatabasePath
	if path == "" {
		var err error
		path, err = store.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}
