package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danmuck/trailctl/internal/logging"
	"github.com/danmuck/trailctl/internal/observability"
	"github.com/danmuck/trailctl/internal/protocol/session"
	"github.com/rs/zerolog"
)

type options struct {
	config      string
	metricsAddr string
}

func main() {
	opts := parseFlags()

	cfg, err := loadAppConfig(opts.config)
	if err != nil {
		fatalf("%v", err)
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
	logging.ApplyEnv(&cfg.Session.Log, os.Getenv)

	// stdout belongs to the engine; everything human-readable goes to stderr.
	log := logging.New(os.Stderr, cfg.Session.Log).With().Str("app", "trailctl").Logger()

	if cfg.MetricsAddr != "" {
		cfg.Session.Metrics = true
		go serveMetrics(log, cfg.MetricsAddr)
	}

	loop := session.New(cfg.Session, session.Channels{
		In:         os.Stdin,
		Protocol:   os.Stdout,
		Diagnostic: os.Stderr,
	}, firstOpen(log))

	sum, err := loop.Run()
	if err != nil {
		log.Error().Err(err).Str("session", sum.SessionID).Int("turns", sum.Turns).Msg("session aborted")
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.config, "config", "", "path to a trailctl TOML config file")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (overrides config)")
	flag.Parse()
	return opts
}

func serveMetrics(log zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn().Err(err).Str("addr", addr).Msg("metrics listener stopped")
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "trailctl: "+format+"\n", args...)
	os.Exit(1)
}
