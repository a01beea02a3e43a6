package heuristic

import (
	_ "embed"
	"fmt"

	"github.com/cespare/xxhash"
	"gopkg.in/yaml.v3"

	"github.com/domino14/moveoracle/position"
)

//go:embed book.yaml
var defaultBookYAML []byte

type BookEntry struct {
	Name string `yaml:"name"`
	FEN  string `yaml:"fen"`
	Move string `yaml:"move"`
}

type bookLine struct {
	key  string
	move string
}

// Book maps a position key to a fixed reply.
type Book struct {
	lines map[uint64]bookLine
}

// LoadBook parses a YAML list of book entries. Every entry must be a valid
// position whose move is legal.
func LoadBook(data []byte) (*Book, error) {
	var entries []BookEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse book: %w", err)
	}
	b := &Book{lines: make(map[uint64]bookLine, len(entries))}
	for _, e := range entries {
		pos, err := position.Parse(e.FEN)
		if err != nil {
			return nil, fmt.Errorf("book entry %s: %w", e.Name, err)
		}
		if !pos.IsLegal(e.Move) {
			return nil, fmt.Errorf("book entry %s: move %s is not legal", e.Name, e.Move)
		}
		key := pos.Key()
		b.lines[xxhash.Sum64String(key)] = bookLine{key: key, move: e.Move}
	}
	return b, nil
}

// DefaultBook returns the built-in book.
func DefaultBook() *Book {
	b, err := LoadBook(defaultBookYAML)
	if err != nil {
		panic(err)
	}
	return b
}

// Lookup returns the book reply for pos, if any.
func (b *Book) Lookup(pos *position.Position) (string, bool) {
	if b == nil {
		return "", false
	}
	key := pos.Key()
	line, ok := b.lines[xxhash.Sum64String(key)]
	if !ok || line.key != key || !pos.IsLegal(line.move) {
		return "", false
	}
	return line.move, true
}

func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.lines)
}
