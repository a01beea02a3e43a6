package notation

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestNormalize(t *testing.T) {
	is := is.New(t)
	type testcase struct {
		raw  string
		want string
	}
	for _, tc := range []testcase{
		{"bestmove e2e4 ponder e7e5", "e2e4"},
		{"e7e8q", "e7e8q"},
		{"  g1f3  ", "g1f3"},
		{"bestmove c7c6 ponder d5c4", "c7c6"},
		{"E2E4", "e2e4"},
		{"d2d4 d7d5 c2c4", "d2d4"},
		{"BESTMOVE a7a8N", "a7a8n"},
	} {
		got, err := Normalize(tc.raw)
		is.NoErr(err)
		is.Equal(got, tc.want)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	is := is.New(t)
	for _, raw := range []string{
		"",
		"   ",
		"bestmove",
		"bestmove (none)",
		"e2",
		"e2e9",
		"i2e4",
		"e2e4k",
		"e2e4qq",
		"Nf3",
		"0000",
	} {
		_, err := Normalize(raw)
		is.True(errors.Is(err, ErrInvalidMoveFormat))
	}
}

func TestLine(t *testing.T) {
	is := is.New(t)
	is.Equal(SplitLine("e2e4 e7e5 g1f3 b8c6"), []string{"e2e4", "e7e5", "g1f3"})
	is.Equal(SplitLine("e2e4 Nf6 g1f3"), []string{"e2e4"})
	is.Equal(Line(nil), []string{})
	is.True(Valid("h7h8r"))
	is.True(!Valid("bestmove h7h8r"))
}
