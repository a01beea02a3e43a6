// Package bootstrap builds the adapters, health monitor, orchestrator and
// ensemble aggregator from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/rs/zerolog/log"

	"github.com/domino14/moveoracle/backend"
	"github.com/domino14/moveoracle/config"
	"github.com/domino14/moveoracle/ensemble"
	"github.com/domino14/moveoracle/health"
	"github.com/domino14/moveoracle/orchestrator"
)

type Stack struct {
	Orchestrator *orchestrator.Orchestrator
	Aggregator   *ensemble.Aggregator
	Monitor      *health.Monitor

	cfg    *config.Config
	engine *backend.UCIEngine
}

// RemoteAdapters builds the remote services named in names, in that order.
func RemoteAdapters(cfg *config.Config, names []string, client *http.Client) ([]backend.Adapter, error) {
	timeout := cfg.GetDuration(config.ConfigRemoteCallTimeout)
	var adapters []backend.Adapter
	for _, n := range names {
		opts := backend.RemoteOptions{Client: client, Timeout: timeout}
		switch n {
		case backend.NameLichess:
			opts.BaseURL = cfg.GetString(config.ConfigLichessURL)
			adapters = append(adapters, backend.NewLichessAdapter(opts))
		case backend.NameChessDB:
			opts.BaseURL = cfg.GetString(config.ConfigChessDBURL)
			adapters = append(adapters, backend.NewChessDBAdapter(opts))
		case backend.NameStockfishOnline:
			opts.BaseURL = cfg.GetString(config.ConfigStockfishOnlineURL)
			adapters = append(adapters, backend.NewStockfishOnlineAdapter(opts))
		default:
			return nil, fmt.Errorf("unknown remote backend %q", n)
		}
	}
	return adapters, nil
}

// Build starts the local engine if one is configured, probes every backend
// once and wires the fallback chain. A local engine that fails to start is
// logged and left out rather than failing the build.
func Build(ctx context.Context, cfg *config.Config) (*Stack, error) {
	s := &Stack{cfg: cfg}

	remotes, err := RemoteAdapters(cfg, cfg.GetStringSlice(config.ConfigRemoteBackends), nil)
	if err != nil {
		return nil, err
	}
	if fn := cfg.GetString(config.ConfigLambdaFunction); fn != "" {
		awscfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		remotes = append(remotes, backend.NewLambdaAdapter(lambda.NewFromConfig(awscfg), fn,
			backend.RemoteOptions{Timeout: cfg.GetDuration(config.ConfigRemoteCallTimeout)}))
	}

	var local backend.Adapter
	if path := cfg.GetString(config.ConfigEnginePath); path != "" {
		engine, err := backend.StartUCIEngine(ctx, path, backend.EngineOptions{
			Threads: cfg.GetInt(config.ConfigEngineThreads),
			HashMB:  cfg.GetInt(config.ConfigEngineHashMB),
		})
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("local-engine-disabled")
		} else {
			s.engine = engine
			local = backend.NewLocalAdapter(engine, cfg.GetDuration(config.ConfigLocalTimeoutMargin))
		}
	}

	heur := backend.NewHeuristicAdapter(nil)
	random := backend.NewRandomAdapter()

	monitored := append([]backend.Adapter{}, remotes...)
	if local != nil {
		monitored = append([]backend.Adapter{local}, monitored...)
	}
	s.Monitor = health.NewMonitor(monitored, cfg.GetDuration(config.ConfigHealthProbeTimeout))

	opts := []orchestrator.Option{
		orchestrator.WithRemotes(remotes...),
		orchestrator.WithHeuristic(heur),
		orchestrator.WithExtra(random),
		orchestrator.WithHealth(s.Monitor),
		orchestrator.WithRaceCeiling(cfg.GetDuration(config.ConfigRaceCeiling)),
	}
	if local != nil {
		opts = append(opts, orchestrator.WithLocal(local))
	}
	s.Orchestrator = orchestrator.New(opts...)
	s.Aggregator = ensemble.NewAggregator(s.Orchestrator, cfg.GetDuration(config.ConfigEnsembleCeiling))

	s.Monitor.Check(ctx)
	log.Info().Strs("backends", s.Orchestrator.Names()).Msg("stack-ready")
	return s, nil
}

// Run re-probes backends on the configured interval until ctx is done.
func (s *Stack) Run(ctx context.Context) {
	s.Monitor.Run(ctx, s.cfg.GetDuration(config.ConfigHealthCheckInterval))
}

func (s *Stack) Close() error {
	if s.engine == nil {
		return nil
	}
	return s.engine.Close()
}
