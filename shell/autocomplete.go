package shell

import (
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"analyze": {Options: []string{"-backend", "-depth", "-time"}},
	"ensemble": {Options: []string{"-depth", "-time"}},
	"moves":    {Options: []string{"-n"}},
	"health":   {Options: []string{"-recheck"}},
	"help":     {Args: []string{"analyze", "ensemble", "position"}},
}

var commandNames = []string{
	"help", "new", "position", "fen", "show", "play", "analyze", "ensemble",
	"moves", "eval", "health", "backends", "exit",
}

var boolValues = []string{"true", "false"}

func (c *ShellCompleter) backendNames() []string {
	if c.sc.stack == nil {
		return nil
	}
	return c.sc.stack.Orchestrator.Names()
}

// legalMoves lists the legal moves of the current position, for play.
func (c *ShellCompleter) legalMoves() []string {
	var moves []string
	for _, m := range c.sc.pos.LegalMoves() {
		moves = append(moves, m.String())
	}
	sort.Strings(moves)
	return moves
}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}

		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if strings.HasPrefix(lastCompleteField, "-") {
			switch strings.TrimPrefix(lastCompleteField, "-") {
			case "backend":
				completions = c.backendNames()
			case "recheck":
				completions = boolValues
			}
		}

		if completions == nil {
			switch {
			case strings.HasPrefix(prefix, "-"):
				completions = commandMetadata[cmdName].Options
			case cmdName == "play" || cmdName == "p":
				completions = c.legalMoves()
			case cmdName == "ensemble" || cmdName == "e":
				completions = c.backendNames()
			default:
				md := commandMetadata[cmdName]
				completions = md.Args
				if len(completions) == 0 {
					completions = md.Options
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
