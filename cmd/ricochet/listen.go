package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ricochetsec/ricochet/internal/metrics"
	"github.com/ricochetsec/ricochet/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var listenFlags struct {
	http    bool
	dns     bool
	host    string
	port    int
	dnsPort int
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Start the callback servers",
	Long:  `Start the HTTP and DNS callback listeners and record every out-of-band interaction whose correlation ID matches a recorded injection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListen()
	},
}

func init() {
	listenCmd.Flags().BoolVar(&listenFlags.http, "http", true, "serve the HTTP callback listener")
	listenCmd.Flags().BoolVar(&listenFlags.dns, "dns", false, "serve the DNS callback listener")
	listenCmd.Flags().StringVar(&listenFlags.host, "host", "", "bind address (default from configuration)")
	listenCmd.Flags().IntVar(&listenFlags.port, "port", 0, "HTTP listener port (default from configuration)")
	listenCmd.Flags().IntVar(&listenFlags.dnsPort, "dns-port", 0, "DNS listener port (default from configuration)")
}

func runListen() error {
	if !listenFlags.http && !listenFlags.dns {
		return fmt.Errorf("%w: at least one of --http or --dns is required", errUsage)
	}

	host := listenFlags.host
	if host == "" {
		host = cfg.HTTPHost
	}
	httpPort := listenFlags.port
	if httpPort == 0 {
		httpPort = cfg.HTTPPort
	}
	dnsPort := listenFlags.dnsPort
	if dnsPort == 0 {
		dnsPort = cfg.DNSPort
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		metrics.StartServer(ctx, cfg.MetricsAddr)
	}

	g, ctx := errgroup.WithContext(ctx)
	if listenFlags.http {
		httpSrv := &server.HTTPServer{
			Addr:  fmt.Sprintf("%s:%d", host, httpPort),
			Store: st,
		}
		g.Go(func() error { return httpSrv.Run(ctx) })
	}
	if listenFlags.dns {
		dnsSrv := &server.DNSServer{
			Addr:  fmt.Sprintf("%s:%d", host, dnsPort),
			Store: st,
		}
		g.Go(func() error { return dnsSrv.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		st.Close()
		log.Info().Msg("Shutdown complete")
		os.Exit(130)
	}
	return nil
}
