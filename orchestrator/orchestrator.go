// Package orchestrator answers analysis requests by walking a fallback
// chain: the local engine if it is healthy, then a race between the remote
// services, then the heuristic evaluator, which cannot fail while a legal
// move exists.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/backend"
	"github.com/domino14/moveoracle/health"
	"github.com/domino14/moveoracle/notation"
	"github.com/domino14/moveoracle/race"
)

// DefaultRaceCeiling bounds the remote race regardless of per-call timeouts.
const DefaultRaceCeiling = 10 * time.Second

// ErrUnknownBackend is returned by AnalyzeWith for a name with no adapter.
var ErrUnknownBackend = errors.New("unknown backend")

const (
	stageLocal     = "local"
	stageRemote    = "remote-race"
	stageHeuristic = "heuristic"
	stageSingle    = "single"
)

type Orchestrator struct {
	local     backend.Adapter
	remotes   []backend.Adapter
	extra     []backend.Adapter
	heuristic backend.Adapter
	byName    map[string]backend.Adapter
	order     []string
	health    health.Source
	ceiling   time.Duration
}

type Option func(*Orchestrator)

func WithLocal(a backend.Adapter) Option {
	return func(o *Orchestrator) { o.local = a }
}

func WithRemotes(as ...backend.Adapter) Option {
	return func(o *Orchestrator) { o.remotes = append(o.remotes, as...) }
}

func WithHeuristic(a backend.Adapter) Option {
	return func(o *Orchestrator) { o.heuristic = a }
}

// WithExtra registers adapters that only AnalyzeWith can reach, such as the
// random mover.
func WithExtra(as ...backend.Adapter) Option {
	return func(o *Orchestrator) { o.extra = append(o.extra, as...) }
}

// WithHealth sets where the local engine's availability comes from. Without
// it the local engine is assumed available.
func WithHealth(src health.Source) Option {
	return func(o *Orchestrator) { o.health = src }
}

func WithRaceCeiling(d time.Duration) Option {
	return func(o *Orchestrator) { o.ceiling = d }
}

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		byName:  map[string]backend.Adapter{},
		ceiling: DefaultRaceCeiling,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.heuristic == nil {
		o.heuristic = backend.NewHeuristicAdapter(nil)
	}
	if o.local != nil {
		o.register(o.local)
		if o.health == nil {
			o.health = health.Fixed(map[string]bool{o.local.Name(): true})
		}
	}
	for _, a := range o.remotes {
		o.register(a)
	}
	for _, a := range o.extra {
		o.register(a)
	}
	o.register(o.heuristic)
	return o
}

func (o *Orchestrator) register(a backend.Adapter) {
	if _, ok := o.byName[a.Name()]; !ok {
		o.order = append(o.order, a.Name())
	}
	o.byName[a.Name()] = a
}

// Knows reports whether AnalyzeWith accepts name.
func (o *Orchestrator) Knows(name string) bool {
	_, ok := o.byName[name]
	return ok
}

// Names lists every adapter in registration order.
func (o *Orchestrator) Names() []string {
	return append([]string(nil), o.order...)
}

// Adapters lists every adapter in registration order.
func (o *Orchestrator) Adapters() []backend.Adapter {
	return lo.Map(o.order, func(n string, _ int) backend.Adapter { return o.byName[n] })
}

func (o *Orchestrator) healthy(a backend.Adapter) bool {
	if a.Kind() != backend.LocalProcess {
		return true
	}
	return o.health != nil && o.health.Snapshot().Available(a.Name())
}

// Analyze returns a legal best move for req.Position. The only error it
// returns for a valid position is analysis.ErrNoLegalMoves, for checkmate
// and stalemate.
func (o *Orchestrator) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	if req.Position.Terminal() {
		return nil, analysis.ErrNoLegalMoves
	}
	if o.local != nil && o.healthy(o.local) {
		if res, ok := o.stage(ctx, stageLocal, req, o.single(o.local)); ok {
			return res, nil
		}
	} else if o.local != nil {
		zerolog.Ctx(ctx).Debug().Str("backend", o.local.Name()).Msg("local-engine-unavailable")
	}
	if len(o.remotes) > 0 {
		if res, ok := o.stage(ctx, stageRemote, req, o.raceRemotes); ok {
			return res, nil
		}
	}
	return o.fallback(ctx, req)
}

// AnalyzeWith asks only the named adapter, falling back to the heuristic
// evaluator if it fails.
func (o *Orchestrator) AnalyzeWith(ctx context.Context, name string, req analysis.Request) (*analysis.Result, error) {
	a, ok := o.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	if req.Position.Terminal() {
		return nil, analysis.ErrNoLegalMoves
	}
	if a != o.heuristic && o.healthy(a) {
		if res, ok := o.stage(ctx, stageSingle, req, o.single(a)); ok {
			return res, nil
		}
	}
	return o.fallback(ctx, req)
}

func (o *Orchestrator) fallback(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	if res, ok := o.stage(ctx, stageHeuristic, req, o.single(o.heuristic)); ok {
		return res, nil
	}
	// Only reachable if the heuristic evaluator broke its contract.
	return nil, fmt.Errorf("heuristic produced no move for %s", req.Position.FEN())
}

type stageFunc func(ctx context.Context, req analysis.Request) (*analysis.Result, error)

func (o *Orchestrator) single(a backend.Adapter) stageFunc {
	return func(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
		res, err := a.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
		return accept(req, a.Name(), res)
	}
}

// raceRemotes validates inside each task so that only an acceptable result
// can win the race.
func (o *Orchestrator) raceRemotes(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	tasks := lo.Map(o.remotes, func(a backend.Adapter, _ int) race.Task[*analysis.Result] {
		run := o.single(a)
		return func(ctx context.Context) (*analysis.Result, error) {
			res, err := run(ctx, req)
			if err != nil {
				zerolog.Ctx(ctx).Debug().Err(err).Str("backend", a.Name()).Msg("remote-failed")
			}
			return res, err
		}
	})
	return race.First(ctx, o.ceiling, tasks...)
}

func (o *Orchestrator) stage(ctx context.Context, stage string, req analysis.Request, fn stageFunc) (*analysis.Result, bool) {
	start := time.Now()
	res, err := fn(ctx, req)
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	logger := zerolog.Ctx(ctx)
	if err != nil {
		stageTotal.WithLabelValues(stage, "failed").Inc()
		logger.Warn().Err(err).Str("stage", stage).Dur("elapsed", time.Since(start)).Msg("stage-failed")
		return nil, false
	}
	stageTotal.WithLabelValues(stage, "ok").Inc()
	logger.Debug().Str("stage", stage).Str("engine", res.EngineUsed).Str("move", res.BestMove).
		Dur("elapsed", time.Since(start)).Msg("stage-succeeded")
	return res, true
}

// accept turns a raw adapter result into one that is safe to return: a
// canonical legal move, exactly one of cp or mate, a principal variation
// that starts with the move and holds at most notation.PVLimit moves, and a
// depth no deeper than requested.
func accept(req analysis.Request, name string, res *analysis.Result) (*analysis.Result, error) {
	if res == nil {
		return nil, fmt.Errorf("%s: empty result", name)
	}
	mv, err := notation.Normalize(res.BestMove)
	if err != nil {
		return nil, err
	}
	if !req.Position.IsLegal(mv) {
		return nil, fmt.Errorf("%w: %s proposed %s", analysis.ErrIllegalMove, name, mv)
	}
	if !res.Evaluation.Valid() {
		return nil, fmt.Errorf("%s: %w", name, analysis.ErrBadEvaluation)
	}
	pv := notation.Line(res.PrincipalVariation)
	if len(pv) == 0 || pv[0] != mv {
		pv = []string{mv}
	}
	engine := res.EngineUsed
	if engine == "" {
		engine = name
	}
	return &analysis.Result{
		BestMove:           mv,
		Evaluation:         res.Evaluation,
		EngineUsed:         engine,
		DepthReached:       max(0, min(res.DepthReached, req.Depth)),
		PrincipalVariation: pv,
	}, nil
}
