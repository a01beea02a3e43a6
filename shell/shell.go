package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/moveoracle/bootstrap"
	"github.com/domino14/moveoracle/config"
	"github.com/domino14/moveoracle/heuristic"
	"github.com/domino14/moveoracle/position"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errNoStack           = errors.New("no backends are configured")
)

type ShellController struct {
	l   *readline.Instance
	out io.Writer

	cfg        *config.Config
	execPath   string
	gitVersion string

	stack *bootstrap.Stack
	eval  *heuristic.Evaluator

	pos   *position.Position
	moves []string

	ctx    context.Context
	cancel context.CancelFunc
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController builds the backend stack and the readline instance.
// Backends are probed once before it returns.
func NewShellController(cfg *config.Config, execPath, gitVersion string) *ShellController {
	sc := newController(context.Background(), nil, os.Stderr)
	sc.cfg = cfg
	sc.execPath = execPath
	sc.gitVersion = gitVersion

	stack, err := bootstrap.Build(sc.ctx, cfg)
	if err != nil {
		panic(err)
	}
	sc.stack = stack
	go stack.Run(sc.ctx)

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mmoveoracle>\033[0m ",
		HistoryFile:     "/tmp/moveoracle-readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(sc),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc
}

func newController(ctx context.Context, stack *bootstrap.Stack, out io.Writer) *ShellController {
	ctx, cancel := context.WithCancel(ctx)
	return &ShellController{
		out:    out,
		stack:  stack,
		eval:   heuristic.NewEvaluator(),
		pos:    position.MustParse(position.StartFEN),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

// extractFields splits a line into a command, positional arguments and
// -name value options. Quoting follows shell rules.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := &shellcmd{cmd: fields[0], options: CmdOptions{}}
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		if len(f) > 1 && strings.HasPrefix(f, "-") {
			if _, err := strconv.ParseFloat(f, 64); err != nil {
				if i+1 >= len(fields) {
					return nil, errWrongOptionSyntax
				}
				key := f[1:]
				cmd.options[key] = append(cmd.options[key], fields[i+1])
				i++
				continue
			}
		}
		cmd.args = append(cmd.args, f)
	}
	return cmd, nil
}

func (sc *ShellController) handle(line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "help", "h":
		return sc.help(cmd)
	case "new", "n":
		return sc.newPosition(cmd)
	case "position", "fen", "pos":
		return sc.setPosition(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "play", "p":
		return sc.play(cmd)
	case "analyze", "a":
		return sc.analyze(cmd)
	case "ensemble", "e":
		return sc.ensemble(cmd)
	case "moves", "gen":
		return sc.rank(cmd)
	case "eval":
		return sc.staticEval(cmd)
	case "health":
		return sc.health(cmd)
	case "backends":
		return sc.backends(cmd)
	default:
		msg := fmt.Sprintf("command %v not found", strconv.Quote(cmd.cmd))
		log.Info().Msg(msg)
		return nil, errors.New(msg)
	}
}

func (sc *ShellController) execute(line string) {
	resp, err := sc.handle(line)
	if err != nil {
		sc.showError(err)
	} else if resp != nil {
		sc.showMessage(resp.message)
	}
}

// Execute runs the ;-separated commands in line without starting the
// interactive loop.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	for _, c := range strings.Split(line, ";") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if c == "exit" {
			sig <- syscall.SIGINT
			return
		}
		sc.execute(c)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {

	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			sig <- syscall.SIGINT
			break
		}
		sc.execute(line)
	}
	log.Debug().Msgf("Exiting readline loop...")
}

func (sc *ShellController) Cleanup() {
	sc.cancel()
	if sc.stack != nil {
		if err := sc.stack.Close(); err != nil {
			log.Err(err).Msg("stack-close")
		}
	}
}
