// Package ensemble asks several backends for a move and picks the one with
// the most vote weight behind it.
package ensemble

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/moveoracle/analysis"
)

// ErrAllBackendsFailed means no vote was collected. With the heuristic
// fallback behind every named backend this only happens when no requested
// name is known.
var ErrAllBackendsFailed = errors.New("all backends failed")

const (
	DefaultWeight  = 0.5
	DefaultCeiling = 10 * time.Second
)

var weights = map[string]float64{
	"stockfish":        0.8,
	"lichess":          0.7,
	"chessdb":          0.7,
	"stockfish-online": 0.7,
	"lambda":           0.7,
	"heuristic":        0.4,
	"random":           0.2,
}

// Weight is the vote weight of a backend name.
func Weight(name string) float64 {
	if w, ok := weights[name]; ok {
		return w
	}
	return DefaultWeight
}

type Vote struct {
	Backend string           `json:"backend"`
	Move    string           `json:"move"`
	Weight  float64          `json:"weight"`
	Result  *analysis.Result `json:"result,omitempty"`
}

type Consensus struct {
	Move       string             `json:"consensus_move"`
	Confidence float64            `json:"confidence"`
	Tally      map[string]float64 `json:"tally"`
	Votes      []Vote             `json:"votes"`
	Unknown    []string           `json:"unknown,omitempty"`
}

// tieEpsilon absorbs float rounding, so 0.7+0.7 ties with 0.8+0.4+0.2.
const tieEpsilon = 1e-9

// Tally sums vote weight per move. The heaviest move wins, ties going to the
// move proposed first. Confidence is the winning weight per distinct move
// proposed, as a percentage capped at 100 and rounded to one decimal. This
// divides by distinct moves, not by the number of votes collected.
func Tally(votes []Vote) (*Consensus, error) {
	if len(votes) == 0 {
		return nil, ErrAllBackendsFailed
	}
	tally := map[string]float64{}
	var order []string
	for _, v := range votes {
		if _, ok := tally[v.Move]; !ok {
			order = append(order, v.Move)
		}
		tally[v.Move] += v.Weight
	}
	best := order[0]
	for _, mv := range order[1:] {
		if tally[mv]-tally[best] > tieEpsilon {
			best = mv
		}
	}
	conf := math.Min(100, tally[best]/float64(len(order))*100)
	return &Consensus{
		Move:       best,
		Confidence: math.Round(conf*10) / 10,
		Tally:      tally,
		Votes:      votes,
	}, nil
}

// Analyzer runs a single named backend.
type Analyzer interface {
	AnalyzeWith(ctx context.Context, name string, req analysis.Request) (*analysis.Result, error)
	Knows(name string) bool
}

type Aggregator struct {
	analyzer Analyzer
	ceiling  time.Duration
}

func NewAggregator(a Analyzer, ceiling time.Duration) *Aggregator {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Aggregator{analyzer: a, ceiling: ceiling}
}

// Run asks every known backend in names concurrently and tallies the
// answers. Votes keep the order of names.
func (ag *Aggregator) Run(ctx context.Context, names []string, req analysis.Request) (*Consensus, error) {
	ctx, cancel := context.WithTimeout(ctx, ag.ceiling)
	defer cancel()
	logger := zerolog.Ctx(ctx)

	known, unknown := lo.FilterReject(names, func(n string, _ int) bool {
		return ag.analyzer.Knows(n)
	})
	results := make([]*analysis.Result, len(known))
	g := errgroup.Group{}
	for i, name := range known {
		g.Go(func() error {
			res, err := ag.analyzer.AnalyzeWith(ctx, name, req)
			if err != nil {
				logger.Warn().Err(err).Str("backend", name).Msg("ensemble-member-failed")
				return nil
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	var votes []Vote
	for i, res := range results {
		if res == nil {
			continue
		}
		votes = append(votes, Vote{
			Backend: known[i],
			Move:    res.BestMove,
			Weight:  Weight(known[i]),
			Result:  res,
		})
	}
	if len(votes) == 0 && len(known) > 0 && req.Position.Terminal() {
		return nil, analysis.ErrNoLegalMoves
	}
	c, err := Tally(votes)
	if err != nil {
		return nil, err
	}
	c.Unknown = unknown
	logger.Info().Str("move", c.Move).Float64("confidence", c.Confidence).
		Int("votes", len(votes)).Msg("ensemble-consensus")
	return c, nil
}
