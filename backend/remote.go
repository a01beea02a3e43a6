package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/notnil/chess"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/position"
)

const (
	DefaultRemoteTimeout = 2 * time.Second

	DefaultLichessURL         = "https://lichess.org"
	DefaultChessDBURL         = "http://www.chessdb.cn"
	DefaultStockfishOnlineURL = "https://stockfish.online"

	// stockfish.online refuses deeper searches.
	stockfishOnlineMaxDepth = 15
	maxBody                 = 1 << 20
)

// decodeFunc turns a 200 response body into a result. The request is passed
// so scores can be put into the side to move's perspective.
type decodeFunc func(body []byte, req analysis.Request) (*analysis.Result, error)

// RemoteAdapter queries one HTTP evaluation service. Each call is a single
// GET bounded by its own timeout; cancelling ctx aborts the request.
type RemoteAdapter struct {
	name     string
	client   *http.Client
	timeout  time.Duration
	buildURL func(req analysis.Request) string
	decode   decodeFunc
}

func (a *RemoteAdapter) Name() string { return a.name }
func (a *RemoteAdapter) Kind() Kind   { return Remote }

func (a *RemoteAdapter) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.buildURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	resp, err := a.client.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", analysis.ErrBackendTimeout, a.name)
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: unexpected status %d", analysis.ErrUnavailable, a.name, resp.StatusCode)
	}
	res, err := a.decode(body, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	res.EngineUsed = a.name
	return res, nil
}

type RemoteOptions struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

func (o RemoteOptions) withDefaults(base string) RemoteOptions {
	if o.BaseURL == "" {
		o.BaseURL = base
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultRemoteTimeout
	}
	return o
}

// fromWhite converts a White-relative evaluation to the side to move's.
func fromWhite(pos *position.Position, e analysis.Evaluation) analysis.Evaluation {
	if pos.SideToMove() == chess.Black {
		return e.Negate()
	}
	return e
}

// NewLichessAdapter queries the lichess cloud evaluation cache. It answers
// only for positions someone has analysed before, but answers quickly.
func NewLichessAdapter(opts RemoteOptions) *RemoteAdapter {
	opts = opts.withDefaults(DefaultLichessURL)
	return &RemoteAdapter{
		name:    NameLichess,
		client:  opts.Client,
		timeout: opts.Timeout,
		buildURL: func(req analysis.Request) string {
			q := url.Values{}
			q.Set("fen", req.Position.FEN())
			q.Set("multiPv", "1")
			q.Set("variant", "standard")
			return opts.BaseURL + "/api/cloud-eval?" + q.Encode()
		},
		decode: decodeLichess,
	}
}

func decodeLichess(body []byte, req analysis.Request) (*analysis.Result, error) {
	var data struct {
		Depth int `json:"depth"`
		PVs   []struct {
			Moves string `json:"moves"`
			CP    *int   `json:"cp"`
			Mate  *int   `json:"mate"`
		} `json:"pvs"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(data.PVs) == 0 || strings.TrimSpace(data.PVs[0].Moves) == "" {
		return nil, fmt.Errorf("%w: no principal variation", analysis.ErrUnavailable)
	}
	pv := data.PVs[0]
	ev := analysis.Evaluation{CP: pv.CP, Mate: pv.Mate}
	if pv.Mate != nil {
		ev.CP = nil
	}
	if !ev.Valid() {
		return nil, analysis.ErrBadEvaluation
	}
	moves := strings.Fields(pv.Moves)
	return &analysis.Result{
		BestMove:           moves[0],
		Evaluation:         fromWhite(req.Position, ev),
		DepthReached:       data.Depth,
		PrincipalVariation: moves,
	}, nil
}

// NewChessDBAdapter queries the chessdb.cn opening and endgame database.
func NewChessDBAdapter(opts RemoteOptions) *RemoteAdapter {
	opts = opts.withDefaults(DefaultChessDBURL)
	return &RemoteAdapter{
		name:    NameChessDB,
		client:  opts.Client,
		timeout: opts.Timeout,
		buildURL: func(req analysis.Request) string {
			q := url.Values{}
			q.Set("action", "querypv")
			q.Set("board", req.Position.FEN())
			q.Set("json", "1")
			return opts.BaseURL + "/cdb.php?" + q.Encode()
		},
		decode: decodeChessDB,
	}
}

func decodeChessDB(body []byte, req analysis.Request) (*analysis.Result, error) {
	var data struct {
		Status string          `json:"status"`
		Score  *int            `json:"score"`
		Depth  int             `json:"depth"`
		PV     json.RawMessage `json:"pv"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if data.Status != "ok" {
		return nil, fmt.Errorf("%w: status %q", analysis.ErrUnavailable, data.Status)
	}
	// The pv is a list of moves, or a single space-separated string in
	// older responses.
	var moves []string
	if err := json.Unmarshal(data.PV, &moves); err != nil {
		var s string
		if err := json.Unmarshal(data.PV, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pv: %w", err)
		}
		moves = strings.Fields(s)
	}
	if len(moves) == 0 {
		return nil, fmt.Errorf("%w: no principal variation", analysis.ErrUnavailable)
	}
	if data.Score == nil {
		return nil, analysis.ErrBadEvaluation
	}
	return &analysis.Result{
		BestMove:           moves[0],
		Evaluation:         analysis.Centipawns(*data.Score),
		DepthReached:       data.Depth,
		PrincipalVariation: moves,
	}, nil
}

// NewStockfishOnlineAdapter queries the stockfish.online REST API.
func NewStockfishOnlineAdapter(opts RemoteOptions) *RemoteAdapter {
	opts = opts.withDefaults(DefaultStockfishOnlineURL)
	return &RemoteAdapter{
		name:    NameStockfishOnline,
		client:  opts.Client,
		timeout: opts.Timeout,
		buildURL: func(req analysis.Request) string {
			q := url.Values{}
			q.Set("fen", req.Position.FEN())
			q.Set("depth", strconv.Itoa(min(req.Depth, stockfishOnlineMaxDepth)))
			q.Set("mode", "bestmove")
			return opts.BaseURL + "/api/s/v2.php?" + q.Encode()
		},
		decode: decodeStockfishOnline,
	}
}

func decodeStockfishOnline(body []byte, req analysis.Request) (*analysis.Result, error) {
	var data struct {
		Success      bool     `json:"success"`
		Evaluation   *float64 `json:"evaluation"`
		Mate         *int     `json:"mate"`
		BestMove     string   `json:"bestmove"`
		Continuation string   `json:"continuation"`
		Data         string   `json:"data"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !data.Success || data.BestMove == "" {
		return nil, fmt.Errorf("%w: %s", analysis.ErrUnavailable, data.Data)
	}
	var ev analysis.Evaluation
	switch {
	case data.Mate != nil:
		ev = analysis.MateIn(*data.Mate)
	case data.Evaluation != nil:
		// Reported in pawns.
		ev = analysis.Centipawns(int(math.Round(*data.Evaluation * 100)))
	default:
		return nil, analysis.ErrBadEvaluation
	}
	return &analysis.Result{
		BestMove:           data.BestMove,
		Evaluation:         fromWhite(req.Position, ev),
		DepthReached:       min(req.Depth, stockfishOnlineMaxDepth),
		PrincipalVariation: strings.Fields(data.Continuation),
	}, nil
}
