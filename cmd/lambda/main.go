package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/moveoracle/api"
	"github.com/domino14/moveoracle/bootstrap"
	"github.com/domino14/moveoracle/bot"
	"github.com/domino14/moveoracle/config"
)

var svc *bot.Service
var nc *nats.Conn

const replyAttempts = 5

func HandleRequest(ctx context.Context, req api.Request) (*api.Response, error) {
	logger := log.With().Str("req", req.ID).Str("position", req.Position).Logger()

	resp := svc.Handle(logger.WithContext(ctx), req)

	if req.ReplySubject != "" && nc != nil {
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("analysis-done-sending-via-nats")
		err = retry.Do(
			func() error {
				// We're just waiting for an acknowledgement. The actual
				// data doesn't matter.
				_, err := nc.Request(req.ReplySubject, data, 3*time.Second)
				return err
			},
			retry.Attempts(replyAttempts),
			retry.Context(ctx),
			retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
				logger.Err(err).Uint("n", n).
					Msg("did-not-receive-ack-try-again")
				return retry.BackOffDelay(n, err, config)
			}),
		)
		if err != nil {
			logger.Err(err).Msg("reply-failed")
		}
	}
	logger.Info().Msg("exiting-fn")
	return resp, nil
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad-flags")
	}
	log.Info().Interface("config", cfg.SanitizedSettings()).Msg("loaded-config")
	cfg.AdjustRelativePaths(exPath)
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// A Lambda must not call itself.
	cfg.Set(config.ConfigLambdaFunction, "")
	stack, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build-failed")
	}
	svc = bot.NewService(stack.Orchestrator, stack.Aggregator, bot.Defaults{
		Depth:      cfg.GetInt(config.ConfigDefaultDepth),
		TimeBudget: cfg.GetDuration(config.ConfigDefaultTimeBudget),
	})

	nc, err = nats.Connect(cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		// Replies then only go back through the Lambda response.
		log.Warn().AnErr("natsConnectErr", err).Msg("no-nats")
		nc = nil
	}

	lambda.Start(HandleRequest)
}
