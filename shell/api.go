package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/notnil/chess"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/config"
	"github.com/domino14/moveoracle/ensemble"
	"github.com/domino14/moveoracle/heuristic"
	"github.com/domino14/moveoracle/notation"
	"github.com/domino14/moveoracle/position"
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) FloatDefault(key string, defaultF float64) (float64, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultF, nil
	}
	return strconv.ParseFloat(v[0], 64)
}

func (c CmdOptions) StringArray(key string) []string {
	return c[key]
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(usage()), nil
	}
	return msg(usageTopic(cmd.args[0])), nil
}

func (sc *ShellController) newPosition(cmd *shellcmd) (*Response, error) {
	sc.pos = position.MustParse(position.StartFEN)
	sc.moves = nil
	return msg(sc.display()), nil
}

// setPosition accepts the FEN either quoted or as separate words.
func (sc *ShellController) setPosition(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(sc.pos.FEN()), nil
	}
	pos, err := position.Parse(strings.Join(cmd.args, " "))
	if err != nil {
		return nil, err
	}
	sc.pos = pos
	sc.moves = nil
	return msg(sc.display()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	return msg(sc.display()), nil
}

func (sc *ShellController) display() string {
	var b strings.Builder
	b.WriteString(sc.pos.Board().Draw())
	b.WriteString("\n")
	side := "white"
	if sc.pos.SideToMove() == chess.Black {
		side = "black"
	}
	fmt.Fprintf(&b, "%s to move, move %d, %s\n", side, sc.pos.FullMoveNumber(), sc.pos.Phase())
	fmt.Fprintf(&b, "FEN: %s\n", sc.pos.FEN())
	if len(sc.moves) > 0 {
		fmt.Fprintf(&b, "Played: %s\n", strings.Join(sc.moves, " "))
	}
	if sc.pos.Terminal() {
		b.WriteString("No legal moves.\n")
	}
	return b.String()
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("play <move> [move...]")
	}
	pos := sc.pos
	var played []string
	for _, raw := range cmd.args {
		mv, err := notation.Normalize(raw)
		if err != nil {
			return nil, err
		}
		next, err := pos.Play(mv)
		if err != nil {
			return nil, err
		}
		pos = next
		played = append(played, mv)
	}
	sc.pos = pos
	sc.moves = append(sc.moves, played...)
	return msg(sc.display()), nil
}

func (sc *ShellController) request(cmd *shellcmd) (analysis.Request, error) {
	defDepth, defBudget := analysis.DefaultDepth, analysis.DefaultTimeBudget
	if sc.cfg != nil {
		defDepth = sc.cfg.GetInt(config.ConfigDefaultDepth)
		defBudget = sc.cfg.GetDuration(config.ConfigDefaultTimeBudget)
	}
	depth, err := cmd.options.IntDefault("depth", defDepth)
	if err != nil {
		return analysis.Request{}, err
	}
	secs, err := cmd.options.FloatDefault("time", defBudget.Seconds())
	if err != nil {
		return analysis.Request{}, err
	}
	return analysis.NewRequest(sc.pos, depth, time.Duration(secs*float64(time.Second))), nil
}

func (sc *ShellController) analyze(cmd *shellcmd) (*Response, error) {
	if sc.stack == nil {
		return nil, errNoStack
	}
	req, err := sc.request(cmd)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	var res *analysis.Result
	if name := cmd.options.String("backend"); name != "" {
		res, err = sc.stack.Orchestrator.AnalyzeWith(sc.ctx, name, req)
	} else {
		res, err = sc.stack.Orchestrator.Analyze(sc.ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("Best move: %s\nEvaluation: %s\nEngine: %s\nDepth: %d\nPV: %s\nTook: %s",
		res.BestMove, res.Evaluation, res.EngineUsed, res.DepthReached,
		strings.Join(res.PrincipalVariation, " "), time.Since(start).Round(time.Millisecond))), nil
}

func (sc *ShellController) ensemble(cmd *shellcmd) (*Response, error) {
	if sc.stack == nil {
		return nil, errNoStack
	}
	req, err := sc.request(cmd)
	if err != nil {
		return nil, err
	}
	names := cmd.args
	if len(names) == 0 {
		names = sc.stack.Orchestrator.Names()
	}
	c, err := sc.stack.Aggregator.Run(sc.ctx, names, req)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Consensus: %s (confidence %.1f%%)\n", c.Move, c.Confidence)
	fmt.Fprintf(&b, "%-18s%-8s%-8s%-10s%s\n", "Backend", "Move", "Weight", "Eval", "Engine")
	for _, v := range c.Votes {
		fmt.Fprintf(&b, "%-18s%-8s%-8.1f%-10s%s\n", v.Backend, v.Move, v.Weight,
			v.Result.Evaluation, v.Result.EngineUsed)
	}
	if len(c.Unknown) > 0 {
		fmt.Fprintf(&b, "Unknown backends: %s\n", strings.Join(c.Unknown, ", "))
	}
	return msg(b.String()), nil
}

func (sc *ShellController) rank(cmd *shellcmd) (*Response, error) {
	n, err := cmd.options.IntDefault("n", 15)
	if err != nil {
		return nil, err
	}
	if sc.pos.Terminal() {
		return nil, analysis.ErrNoLegalMoves
	}
	var b strings.Builder
	if mv, ok := sc.eval.Book().Lookup(sc.pos); ok {
		fmt.Fprintf(&b, "Book move: %s\n", mv)
	}
	fmt.Fprintf(&b, "%-4s%-8s%-8s\n", "#", "Move", "Score")
	for i, sm := range sc.eval.Rank(sc.pos) {
		if i == n {
			break
		}
		flag := ""
		if sm.Blunder() {
			flag = "  blunder"
		}
		fmt.Fprintf(&b, "%-4d%-8s%-8d%s\n", i+1, sm.Move, sm.Score, flag)
	}
	return msg(b.String()), nil
}

func (sc *ShellController) staticEval(cmd *shellcmd) (*Response, error) {
	return msg(fmt.Sprintf("Material: %s (side to move)", analysis.Centipawns(heuristic.Evaluate(sc.pos)))), nil
}

func (sc *ShellController) health(cmd *shellcmd) (*Response, error) {
	if sc.stack == nil {
		return nil, errNoStack
	}
	snap := sc.stack.Monitor.Snapshot()
	if cmd.options.String("recheck") == "true" {
		snap = sc.stack.Monitor.Check(sc.ctx)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s%-11s%-10s%-10s%-10s%-22s%s\n", "Backend", "Available", "Latency",
		"Mean", "95% up", "Tested", "Error")
	for _, name := range snap.Names() {
		st, _ := snap.Status(name)
		fmt.Fprintf(&b, "%-18s%-11v%-10s%-10s%-10s%-22s%s\n", name, st.Available,
			st.Latency.Round(time.Millisecond), st.History.Mean.Round(time.Millisecond),
			st.History.Upper.Round(time.Millisecond), st.LastTestedAt.Format(time.DateTime), st.Error)
	}
	return msg(b.String()), nil
}

func (sc *ShellController) backends(cmd *shellcmd) (*Response, error) {
	if sc.stack == nil {
		return nil, errNoStack
	}
	var b strings.Builder
	for _, a := range sc.stack.Orchestrator.Adapters() {
		fmt.Fprintf(&b, "%-18s%-14s%.1f\n", a.Name(), a.Kind(), ensemble.Weight(a.Name()))
	}
	return msg(b.String()), nil
}
