// Package api defines the JSON messages exchanged with moveoracle over NATS,
// AWS Lambda and the command line.
package api

import (
	"time"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/ensemble"
)

// Request asks for a single analysis, or a consensus when Backends is set.
type Request struct {
	ID                string   `json:"id,omitempty"`
	Position          string   `json:"position"`
	Depth             int      `json:"depth,omitempty"`
	TimeBudgetSeconds float64  `json:"time_budget_seconds,omitempty"`
	Backend           string   `json:"backend,omitempty"`
	Backends          []string `json:"backends,omitempty"`
	// ReplySubject, if set, is a NATS subject the Lambda handler publishes
	// its response to in addition to returning it.
	ReplySubject string `json:"reply_subject,omitempty"`
}

func (r Request) TimeBudget() time.Duration {
	return time.Duration(r.TimeBudgetSeconds * float64(time.Second))
}

// Error codes.
const (
	CodeInvalidPosition   = "invalid_position"
	CodeNoLegalMoves      = "no_legal_moves"
	CodeUnknownBackend    = "unknown_backend"
	CodeAllBackendsFailed = "all_backends_failed"
	CodeBadRequest        = "bad_request"
	CodeInternal          = "internal"
)

type Response struct {
	ID        string              `json:"id,omitempty"`
	Result    *analysis.Result    `json:"result,omitempty"`
	Consensus *ensemble.Consensus `json:"consensus,omitempty"`
	Code      string              `json:"code,omitempty"`
	Error     string              `json:"error,omitempty"`
	ElapsedMS int64               `json:"elapsed_ms"`
}

func ErrorResponse(id, code string, err error) *Response {
	return &Response{ID: id, Code: code, Error: err.Error()}
}
