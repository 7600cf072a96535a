package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ricochetsec/ricochet/internal/injector"
	"github.com/ricochetsec/ricochet/internal/payloads"
	"github.com/ricochetsec/ricochet/internal/ratelimit"
	"github.com/ricochetsec/ricochet/internal/request"
	"github.com/spf13/cobra"
)

var injectFlags struct {
	requestFile string
	param       string
	payload     string
	category    string
	callback    string
	useHTTPS    bool
	dryRun      bool
	rate        float64
	burst       int
	timeout     time.Duration
}

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Inject payloads into a captured request",
	Long:  `Parse a raw HTTP request (Burp-style capture), substitute a fresh correlation ID into each payload, and send one mutated request per injection point.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInject()
	},
}

func init() {
	injectCmd.Flags().StringVar(&injectFlags.requestFile, "request", "", "file holding the raw HTTP request (required)")
	injectCmd.Flags().StringVar(&injectFlags.param, "param", "", "inject only into this parameter")
	injectCmd.Flags().StringVar(&injectFlags.payload, "payload", "", "payload template with a {{CALLBACK}} placeholder")
	injectCmd.Flags().StringVar(&injectFlags.category, "category", "", "built-in payload category (xss, ssti, sqli, polyglot)")
	injectCmd.Flags().StringVar(&injectFlags.callback, "callback", "", "callback base URL (default from configuration)")
	injectCmd.Flags().BoolVar(&injectFlags.useHTTPS, "https", false, "send to the target over HTTPS")
	injectCmd.Flags().BoolVar(&injectFlags.dryRun, "dry-run", false, "record injections without transmitting")
	injectCmd.Flags().Float64Var(&injectFlags.rate, "rate", 0, "requests per second (default from configuration)")
	injectCmd.Flags().IntVar(&injectFlags.burst, "burst", 0, "rate limiter burst (default from configuration)")
	injectCmd.Flags().DurationVar(&injectFlags.timeout, "timeout", 0, "per-request timeout (default from configuration)")
	_ = injectCmd.MarkFlagRequired("request")
}

func runInject() error {
	if injectFlags.payload == "" && injectFlags.category == "" {
		return fmt.Errorf("%w: one of --payload or --category is required", errUsage)
	}
	if injectFlags.payload != "" && injectFlags.category != "" {
		return fmt.Errorf("%w: --payload and --category are mutually exclusive", errUsage)
	}

	raw, err := os.ReadFile(injectFlags.requestFile)
	if err != nil {
		return err
	}
	req, err := request.ParseString(string(raw))
	if err != nil {
		return err
	}

	var selected []payloads.Payload
	if injectFlags.payload != "" {
		selected = []payloads.Payload{{Template: injectFlags.payload}}
	} else {
		selected, err = payloads.ForCategory(injectFlags.category)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
	}

	rate := injectFlags.rate
	if rate == 0 {
		rate = cfg.Rate
	}
	burst := injectFlags.burst
	if burst == 0 {
		burst = cfg.Burst
	}
	limiter, err := ratelimit.New(rate, burst)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	timeout := injectFlags.timeout
	if timeout == 0 {
		timeout = cfg.Timeout
	}
	callback := injectFlags.callback
	if callback == "" {
		callback = cfg.DefaultCallbackURL()
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	inj, err := injector.New(injector.Config{
		Store:        st,
		Limiter:      limiter,
		CallbackBase: callback,
		Timeout:      timeout,
		ProxyURL:     cfg.ProxyURL,
		VerifyTLS:    cfg.VerifyTLS,
		UseHTTPS:     injectFlags.useHTTPS,
		DryRun:       injectFlags.dryRun,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	total := 0
	for _, p := range selected {
		var results []injector.Result
		if injectFlags.param != "" {
			result, err := inj.InjectParam(ctx, req, injectFlags.param, p.Template, p.Context)
			if err != nil {
				return err
			}
			if result == nil {
				return fmt.Errorf("%w: parameter %q not found in request", errUsage, injectFlags.param)
			}
			results = []injector.Result{*result}
		} else {
			results, err = inj.InjectAll(ctx, req, p.Template, p.Context)
			if err != nil {
				return err
			}
		}

		for _, r := range results {
			printResult(r)
			total++
		}
	}

	fmt.Printf("\n%d injection(s) recorded. Run 'ricochet poll' to wait for callbacks.\n", total)
	return nil
}

func printResult(r injector.Result) {
	switch r.Outcome {
	case injector.OutcomeSent:
		fmt.Printf("  %s  %-18s %d  %s\n", r.CorrelationID, r.Vector.Qualified(), r.HTTPStatus, r.URL)
	case injector.OutcomeDryRun:
		fmt.Printf("  %s  %-18s dry-run  %s\n", r.CorrelationID, r.Vector.Qualified(), r.URL)
	default:
		fmt.Printf("  %s  %-18s %s: %v\n", r.CorrelationID, r.Vector.Qualified(), r.Outcome, r.Err)
	}
}
