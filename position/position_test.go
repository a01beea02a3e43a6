package position

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/notnil/chess"
)

func TestParseStart(t *testing.T) {
	is := is.New(t)
	p, err := Parse(StartFEN)
	is.NoErr(err)
	is.Equal(p.SideToMove(), chess.White)
	is.Equal(p.CastlingRights(), "KQkq")
	is.Equal(p.EnPassant(), "-")
	is.Equal(p.HalfMoveClock(), 0)
	is.Equal(p.FullMoveNumber(), 1)
	is.Equal(len(p.LegalMoves()), 20)
	is.True(p.IsLegal("e2e4"))
	is.True(p.IsLegal("g1f3"))
	is.True(!p.IsLegal("e2e5"))
	is.Equal(p.Key(), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq")
	is.Equal(p.Phase(), Opening)
}

func TestParseNormalizesWhitespace(t *testing.T) {
	is := is.New(t)
	p, err := Parse("  rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR   b KQkq e3 0 1 ")
	is.NoErr(err)
	is.Equal(p.FEN(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	is.Equal(p.SideToMove(), chess.Black)
}

func TestParseInvalid(t *testing.T) {
	is := is.New(t)
	for _, fen := range []string{
		"",
		"not a fen",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQXBNR w KQkq - 0 1",
		"rnbqqbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/44/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkk - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e3 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - -1 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0",
		"pnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	} {
		_, err := Parse(fen)
		is.True(errors.Is(err, ErrInvalidPosition))
	}
}

func TestTerminalPositions(t *testing.T) {
	is := is.New(t)
	// fool's mate
	mated := MustParse("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	is.True(mated.Terminal())
	is.Equal(len(mated.LegalMoves()), 0)

	stalemate := MustParse("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	is.True(stalemate.Terminal())
}

func TestPromotionTokens(t *testing.T) {
	is := is.New(t)
	p := MustParse("8/4P3/8/8/8/8/k7/7K w - - 0 1")
	is.True(p.IsLegal("e7e8q"))
	is.True(p.IsLegal("e7e8n"))
	is.True(!p.IsLegal("e7e8"))
}

func TestPhase(t *testing.T) {
	is := is.New(t)
	is.Equal(MustParse("4k3/8/8/8/8/8/8/4K3 w - - 0 25").Phase(), Middlegame)
	is.Equal(MustParse("4k3/8/8/8/8/8/8/4K3 w - - 0 41").Phase(), Endgame)
	is.Equal(Endgame.String(), "endgame")
}

func TestPlay(t *testing.T) {
	is := is.New(t)
	p := MustParse(StartFEN)
	next, err := p.Play("e2e4")
	is.NoErr(err)
	is.Equal(next.Placement(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR")
	is.Equal(next.FullMoveNumber(), 1)
	is.Equal(next.SideToMove(), chess.Black)

	_, err = p.Play("e2e5")
	is.True(err != nil)
}
