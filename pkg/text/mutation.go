package text

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/aretw0/otec/pkg/domain"
)

var (
	// ErrOutOfRange is returned when a mutation addresses positions outside the document.
	ErrOutOfRange = errors.New("position out of range")

	// ErrUnsupportedState is returned when a text mutation is applied to a foreign State.
	ErrUnsupportedState = errors.New("state is not a text state")

	// ErrUnsupportedMutation is returned for mutations this package cannot transform or encode.
	ErrUnsupportedMutation = errors.New("unsupported mutation")
)

// Insert adds Text at rune offset Pos.
type Insert struct {
	Pos  int    `mapstructure:"pos" yaml:"pos"`
	Text string `mapstructure:"text" yaml:"text"`
}

// Delete removes Len runes starting at Pos.
type Delete struct {
	Pos int `mapstructure:"pos" yaml:"pos"`
	Len int `mapstructure:"len" yaml:"len"`
}

var (
	_ domain.Mutation = Insert{}
	_ domain.Mutation = Delete{}
)

func (m Insert) Apply(s domain.State) error {
	ts, ok := s.(*State)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedState, s)
	}
	return ts.insert(m.Pos, m.Text)
}

func (m Insert) Key() string { return fmt.Sprintf("ins(%d,%q)", m.Pos, m.Text) }

func (m Insert) Data() any { return map[string]any{"pos": m.Pos, "text": m.Text} }

func (m Insert) String() string { return m.Key() }

func (m Insert) runeLen() int { return utf8.RuneCountInString(m.Text) }

func (m Delete) Apply(s domain.State) error {
	ts, ok := s.(*State)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedState, s)
	}
	return ts.remove(m.Pos, m.Len)
}

func (m Delete) Key() string { return fmt.Sprintf("del(%d,%d)", m.Pos, m.Len) }

func (m Delete) Data() any { return map[string]any{"pos": m.Pos, "len": m.Len} }

func (m Delete) String() string { return m.Key() }
