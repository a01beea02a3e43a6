// Package notation turns free-form backend output into canonical
// coordinate move tokens such as "e2e4" or "e7e8q".
package notation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidMoveFormat means no canonical move token could be extracted.
var ErrInvalidMoveFormat = errors.New("invalid move format")

// PVLimit is the longest principal variation we ever report.
const PVLimit = 3

var moveToken = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// Normalize extracts the first candidate token from raw and validates it.
// Accepted inputs include "bestmove e2e4 ponder e7e5", "e2e4" and "e7e8q".
func Normalize(raw string) (string, error) {
	fields := strings.Fields(raw)
	if len(fields) > 0 && strings.EqualFold(fields[0], "bestmove") {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMoveFormat, raw)
	}
	tok := strings.ToLower(fields[0])
	if !moveToken.MatchString(tok) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMoveFormat, raw)
	}
	return tok, nil
}

// Valid reports whether tok already is a canonical token.
func Valid(tok string) bool {
	return moveToken.MatchString(tok)
}

// Line normalizes a principal variation. Tokens are taken in order until the
// first one that fails to normalize, and at most PVLimit are kept.
func Line(tokens []string) []string {
	out := make([]string, 0, PVLimit)
	for _, t := range tokens {
		if len(out) == PVLimit {
			break
		}
		mv, err := Normalize(t)
		if err != nil {
			break
		}
		out = append(out, mv)
	}
	return out
}

// SplitLine is Line over a whitespace-separated string.
func SplitLine(s string) []string {
	return Line(strings.Fields(s))
}
