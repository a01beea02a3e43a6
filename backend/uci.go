package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/moveoracle/analysis"
)

// ErrEngineBroken is returned once the engine process has stopped answering.
var ErrEngineBroken = errors.New("engine unresponsive")

const (
	// stopGrace is how long we wait for a bestmove after sending stop.
	stopGrace   = 500 * time.Millisecond
	quitTimeout = 2 * time.Second
)

type EngineOptions struct {
	Threads int
	// HashMB of zero sizes the hash table from system memory.
	HashMB int
}

// HashSize returns a transposition table size in MB for a machine with the
// given total memory: a sixteenth of it, between 16MB and 1GB.
func HashSize(total uint64) int {
	mb := int(total / (1 << 20) / 16)
	return max(16, min(mb, 1024))
}

// SearchResult is what the engine reported by the time it printed bestmove.
type SearchResult struct {
	// BestMove is the raw bestmove line.
	BestMove string
	Depth    int
	Eval     analysis.Evaluation
	PV       []string
}

// UCIEngine is a single long-lived engine process. Searches are serialized;
// the UCI protocol has one request in flight per process.
type UCIEngine struct {
	// sem holds one token while a caller owns the process. Waiting for it
	// honors the caller's context.
	sem    chan struct{}
	cmd    *exec.Cmd
	in     *bufio.Writer
	lines  chan string
	id     string
	broken atomic.Bool
}

func newUCIEngine(w io.Writer, r io.Reader) *UCIEngine {
	e := &UCIEngine{
		sem:   make(chan struct{}, 1),
		in:    bufio.NewWriter(w),
		lines: make(chan string, 64),
	}
	go e.pump(r)
	return e
}

func (e *UCIEngine) pump(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		e.lines <- sc.Text()
	}
	close(e.lines)
}

// StartUCIEngine spawns the engine binary at path and completes the UCI
// handshake before returning.
func StartUCIEngine(ctx context.Context, path string, opts EngineOptions) (*UCIEngine, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine %s: %w", path, err)
	}
	e := newUCIEngine(stdin, stdout)
	e.cmd = cmd
	if err := e.handshake(ctx, opts); err != nil {
		e.Close()
		return nil, fmt.Errorf("engine handshake failed: %w", err)
	}
	log.Info().Str("path", path).Str("id", e.id).Int("threads", opts.Threads).
		Msg("engine-started")
	return e, nil
}

func (e *UCIEngine) acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *UCIEngine) release() { <-e.sem }

func (e *UCIEngine) handshake(ctx context.Context, opts EngineOptions) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()
	if err := e.send("uci"); err != nil {
		return err
	}
	for {
		line, err := e.next(ctx)
		if err != nil {
			return err
		}
		if strings.HasPrefix(line, "id name ") {
			e.id = strings.TrimPrefix(line, "id name ")
		}
		if line == "uciok" {
			break
		}
	}
	if opts.Threads > 0 {
		if err := e.send(fmt.Sprintf("setoption name Threads value %d", opts.Threads)); err != nil {
			return err
		}
	}
	hash := opts.HashMB
	if hash <= 0 {
		hash = HashSize(memory.TotalMemory())
	}
	if err := e.send(fmt.Sprintf("setoption name Hash value %d", hash)); err != nil {
		return err
	}
	if err := e.send("ucinewgame"); err != nil {
		return err
	}
	return e.sync(ctx)
}

// ID is the engine's self-reported name.
func (e *UCIEngine) ID() string { return e.id }

// Healthy is false once the engine failed to answer a stop or its output
// stream ended.
func (e *UCIEngine) Healthy() bool { return !e.broken.Load() }

// Search analyses fen until depth is reached or movetime elapses. If ctx is
// done first the search is stopped and ctx's error returned. A caller
// queued behind another search gives up when ctx is done.
func (e *UCIEngine) Search(ctx context.Context, fen string, depth int, movetime time.Duration) (SearchResult, error) {
	if err := e.acquire(ctx); err != nil {
		return SearchResult{}, err
	}
	defer e.release()
	if e.broken.Load() {
		return SearchResult{}, ErrEngineBroken
	}
	if err := e.sync(ctx); err != nil {
		return SearchResult{}, err
	}
	goCmd := fmt.Sprintf("go depth %d", max(depth, 1))
	if movetime > 0 {
		goCmd += fmt.Sprintf(" movetime %d", movetime.Milliseconds())
	}
	if err := e.send("position fen " + fen); err != nil {
		return SearchResult{}, err
	}
	if err := e.send(goCmd); err != nil {
		return SearchResult{}, err
	}
	var res SearchResult
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				e.broken.Store(true)
				return res, ErrEngineBroken
			}
			if strings.HasPrefix(line, "bestmove") {
				res.BestMove = line
				return res, nil
			}
			parseInfo(line, &res)
		case <-ctx.Done():
			e.stop(ctx)
			return res, ctx.Err()
		}
	}
}

// stop interrupts a running search and drains output up to its bestmove so
// the next search starts from a clean stream.
func (e *UCIEngine) stop(ctx context.Context) {
	if err := e.send("stop"); err != nil {
		e.broken.Store(true)
		return
	}
	timer := time.NewTimer(stopGrace)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				e.broken.Store(true)
				return
			}
			if strings.HasPrefix(line, "bestmove") {
				return
			}
		case <-timer.C:
			zerolog.Ctx(ctx).Warn().Str("engine", e.id).Msg("engine-ignored-stop")
			e.broken.Store(true)
			return
		}
	}
}

// sync waits for readyok, discarding anything left over in the stream.
func (e *UCIEngine) sync(ctx context.Context) error {
	if err := e.send("isready"); err != nil {
		return err
	}
	for {
		line, err := e.next(ctx)
		if err != nil {
			return err
		}
		if line == "readyok" {
			return nil
		}
	}
}

func (e *UCIEngine) next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-e.lines:
		if !ok {
			e.broken.Store(true)
			return "", ErrEngineBroken
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *UCIEngine) send(cmd string) error {
	if _, err := fmt.Fprintln(e.in, cmd); err != nil {
		return err
	}
	return e.in.Flush()
}

// Close asks the engine to quit and kills it if it does not.
func (e *UCIEngine) Close() error {
	e.sem <- struct{}{}
	defer e.release()
	_ = e.send("quit")
	e.broken.Store(true)
	if e.cmd == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(quitTimeout):
		_ = e.cmd.Process.Kill()
		return <-done
	}
}

// parseInfo folds one "info ..." line into res. Only the first PV line of a
// multipv search is used.
func parseInfo(line string, res *SearchResult) {
	f := strings.Fields(line)
	if len(f) == 0 || f[0] != "info" {
		return
	}
	for i := 1; i < len(f); i++ {
		switch f[i] {
		case "string":
			return
		case "multipv":
			if i+1 < len(f) && f[i+1] != "1" {
				return
			}
			i++
		case "depth":
			if i+1 < len(f) {
				if n, err := strconv.Atoi(f[i+1]); err == nil {
					res.Depth = n
				}
				i++
			}
		case "score":
			if i+2 < len(f) {
				n, err := strconv.Atoi(f[i+2])
				if err == nil {
					switch f[i+1] {
					case "cp":
						res.Eval = analysis.Centipawns(n)
					case "mate":
						res.Eval = analysis.MateIn(n)
					}
				}
				i += 2
			}
		case "pv":
			res.PV = append([]string(nil), f[i+1:]...)
			return
		}
	}
}
