// Package bot serves analysis requests over NATS.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/api"
	"github.com/domino14/moveoracle/ensemble"
	"github.com/domino14/moveoracle/orchestrator"
	"github.com/domino14/moveoracle/position"
)

type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
	AnalyzeWith(ctx context.Context, name string, req analysis.Request) (*analysis.Result, error)
}

type Ensembler interface {
	Run(ctx context.Context, names []string, req analysis.Request) (*ensemble.Consensus, error)
}

// Defaults fill in requests that leave depth or time budget unset.
type Defaults struct {
	Depth      int
	TimeBudget time.Duration
}

type Service struct {
	analyzer  Analyzer
	ensembler Ensembler
	defaults  Defaults
}

func NewService(a Analyzer, e Ensembler, d Defaults) *Service {
	if d.Depth <= 0 {
		d.Depth = analysis.DefaultDepth
	}
	if d.TimeBudget <= 0 {
		d.TimeBudget = analysis.DefaultTimeBudget
	}
	return &Service{analyzer: a, ensembler: e, defaults: d}
}

// Handle answers one request. Failures are reported in the response, never
// as a Go error, so every request gets a reply.
func (s *Service) Handle(ctx context.Context, req api.Request) *api.Response {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := log.With().Str("req", req.ID).Logger()
	ctx = logger.WithContext(ctx)

	resp := s.handle(ctx, req)
	resp.ID = req.ID
	resp.ElapsedMS = time.Since(start).Milliseconds()
	if resp.Code != "" {
		logger.Info().Str("code", resp.Code).Str("err", resp.Error).Int64("elapsed-ms", resp.ElapsedMS).
			Msg("request-failed")
	} else {
		logger.Info().Int64("elapsed-ms", resp.ElapsedMS).Msg("request-answered")
	}
	return resp
}

func (s *Service) handle(ctx context.Context, req api.Request) *api.Response {
	pos, err := position.Parse(req.Position)
	if err != nil {
		return api.ErrorResponse(req.ID, api.CodeInvalidPosition, err)
	}
	depth := req.Depth
	if depth <= 0 {
		depth = s.defaults.Depth
	}
	budget := req.TimeBudget()
	if budget <= 0 {
		budget = s.defaults.TimeBudget
	}
	areq := analysis.NewRequest(pos, depth, budget)

	if len(req.Backends) > 0 {
		c, err := s.ensembler.Run(ctx, req.Backends, areq)
		if err != nil {
			return api.ErrorResponse(req.ID, errorCode(err), err)
		}
		return &api.Response{Consensus: c}
	}

	var res *analysis.Result
	if req.Backend != "" {
		res, err = s.analyzer.AnalyzeWith(ctx, req.Backend, areq)
	} else {
		res, err = s.analyzer.Analyze(ctx, areq)
	}
	if err != nil {
		return api.ErrorResponse(req.ID, errorCode(err), err)
	}
	return &api.Response{Result: res}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, analysis.ErrNoLegalMoves):
		return api.CodeNoLegalMoves
	case errors.Is(err, orchestrator.ErrUnknownBackend):
		return api.CodeUnknownBackend
	case errors.Is(err, ensemble.ErrAllBackendsFailed):
		return api.CodeAllBackendsFailed
	}
	return api.CodeInternal
}

// HandleBytes decodes a JSON request, handles it and encodes the response.
func (s *Service) HandleBytes(ctx context.Context, data []byte) []byte {
	var req api.Request
	var resp *api.Response
	if err := json.Unmarshal(data, &req); err != nil {
		resp = api.ErrorResponse("", api.CodeBadRequest, err)
	} else {
		resp = s.Handle(ctx, req)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		// Should never happen.
		out, _ = json.Marshal(api.ErrorResponse(resp.ID, api.CodeInternal, err))
	}
	return out
}
