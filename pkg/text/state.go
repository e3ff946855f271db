package text

import (
	"fmt"
	"slices"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/cespare/xxhash/v2"
)

// State is a plain-text document. Positions are rune offsets.
type State struct {
	content []rune
}

var (
	_ domain.State  = (*State)(nil)
	_ domain.Cloner = (*State)(nil)
)

// NewState creates a state holding s.
func NewState(s string) *State {
	return &State{content: []rune(s)}
}

// Get returns the content as a string.
func (s *State) Get() any { return string(s.content) }

func (s *State) String() string { return string(s.content) }

// Len returns the length in runes.
func (s *State) Len() int { return len(s.content) }

// Hash returns the hex xxhash of the content.
func (s *State) Hash() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(string(s.content)))
}

// Clone returns an independent copy.
func (s *State) Clone() domain.State {
	return &State{content: slices.Clone(s.content)}
}

func (s *State) insert(pos int, text string) error {
	if pos < 0 || pos > len(s.content) {
		return fmt.Errorf("%w: insert at %d, length %d", ErrOutOfRange, pos, len(s.content))
	}
	s.content = slices.Insert(s.content, pos, []rune(text)...)
	return nil
}

func (s *State) remove(pos, n int) error {
	if pos < 0 || n < 0 || pos+n > len(s.content) {
		return fmt.Errorf("%w: delete %d at %d, length %d", ErrOutOfRange, n, pos, len(s.content))
	}
	s.content = slices.Delete(s.content, pos, pos+n)
	return nil
}
