// Command analyze answers a single request and prints the JSON response.
//
//	analyze [--flag=value ...] "<fen>" [backend ...]
//
// With no backend the full fallback chain runs, with one only that backend
// is asked, and with several they vote.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/moveoracle/api"
	"github.com/domino14/moveoracle/bootstrap"
	"github.com/domino14/moveoracle/bot"
	"github.com/domino14/moveoracle/config"
)

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	var flags, rest []string
	for i, a := range os.Args[1:] {
		if !strings.HasPrefix(a, "--") {
			rest = os.Args[1+i:]
			break
		}
		flags = append(flags, a)
	}
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, `usage: analyze [--flag=value ...] "<fen>" [backend ...]`)
		os.Exit(2)
	}

	cfg := &config.Config{}
	if err := cfg.Load(flags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.AdjustRelativePaths(exPath)

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build-failed")
	}
	defer stack.Close()

	req := api.Request{Position: rest[0]}
	switch backends := rest[1:]; len(backends) {
	case 0:
	case 1:
		req.Backend = backends[0]
	default:
		req.Backends = backends
	}
	svc := bot.NewService(stack.Orchestrator, stack.Aggregator, bot.Defaults{
		Depth:      cfg.GetInt(config.ConfigDefaultDepth),
		TimeBudget: cfg.GetDuration(config.ConfigDefaultTimeBudget),
	})
	resp := svc.Handle(ctx, req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Fatal().Err(err).Msg("encode")
	}
	if resp.Code != "" {
		stack.Close()
		os.Exit(1)
	}
}
