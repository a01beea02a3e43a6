package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/moveoracle/bootstrap"
	"github.com/domino14/moveoracle/bot"
	"github.com/domino14/moveoracle/config"
)

const (
	GracefulShutdownTimeout = 20 * time.Second
)

func main() {
	// Determine the directory of the executable. A relative engine path is
	// resolved against it.
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad-flags")
	}
	cfg.AdjustRelativePaths(exPath)
	log.Info().Interface("config", cfg.SanitizedSettings()).Str("exPath", exPath).Msg("loaded-config")

	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	idleConnsClosed := make(chan struct{})
	sig := make(chan os.Signal, 1)
	go func() {
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		// We received an interrupt signal, shut down.
		log.Info().Msg("got quit signal...")
		cancel()
		close(idleConnsClosed)
	}()

	stack, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build-failed")
	}
	go stack.Run(ctx)

	var metrics *http.Server
	if addr := cfg.GetString(config.ConfigMetricsAddr); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metrics = &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Err(err).Msg("metrics-server")
			}
		}()
	}

	nc, err := nats.Connect(cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().AnErr("natsConnectErr", err).Msg(":(")
	}

	svc := bot.NewService(stack.Orchestrator, stack.Aggregator, bot.Defaults{
		Depth:      cfg.GetInt(config.ConfigDefaultDepth),
		TimeBudget: cfg.GetDuration(config.ConfigDefaultTimeBudget),
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := bot.Main(ctx, nc, cfg.GetString(config.ConfigBotSubject), svc); err != nil {
			log.Err(err).Msg("bot-stopped")
		}
	}()

	<-idleConnsClosed
	log.Info().Msg("server gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer shutdownCancel()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("timed out draining requests")
	}
	if metrics != nil {
		metrics.Shutdown(shutdownCtx)
	}
	nc.Close()
	if err := stack.Close(); err != nil {
		log.Err(err).Msg("stack-close")
	}
}
