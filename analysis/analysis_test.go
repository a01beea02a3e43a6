package analysis

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/moveoracle/position"
)

func TestEvaluationValid(t *testing.T) {
	is := is.New(t)
	is.True(Centipawns(0).Valid())
	is.True(MateIn(-3).Valid())
	is.True(!Evaluation{}.Valid())
	cp, m := 5, 2
	is.True(!Evaluation{CP: &cp, Mate: &m}.Valid())
}

func TestNegate(t *testing.T) {
	is := is.New(t)
	is.Equal(*Centipawns(35).Negate().CP, -35)
	is.Equal(*MateIn(2).Negate().Mate, -2)
	is.Equal(Centipawns(-150).String(), "-1.50")
	is.Equal(MateIn(3).String(), "#3")
}

func TestWinningChances(t *testing.T) {
	is := is.New(t)
	is.Equal(WinningChances(MateIn(2)), 100.0)
	is.Equal(WinningChances(MateIn(-1)), 0.0)
	is.Equal(WinningChances(Centipawns(0)), 50.0)
	is.Equal(WinningChances(Centipawns(150)), 65.0)
	is.Equal(WinningChances(Centipawns(-900)), 0.0)
	is.Equal(WinningChances(Evaluation{}), 50.0)
}

func TestNewRequestDefaults(t *testing.T) {
	is := is.New(t)
	req := NewRequest(position.MustParse(position.StartFEN), 0, 0)
	is.Equal(req.Depth, 1)
	is.Equal(req.TimeBudget, DefaultTimeBudget)
}
