package text_test

import (
	"testing"

	"github.com/aretw0/otec/pkg/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Mutations(t *testing.T) {
	s := text.NewState("héllo")

	require.NoError(t, text.Insert{Pos: 5, Text: " wörld"}.Apply(s))
	assert.Equal(t, "héllo wörld", s.String())
	assert.Equal(t, 11, s.Len())

	require.NoError(t, text.Delete{Pos: 0, Len: 6}.Apply(s))
	assert.Equal(t, "wörld", s.Get())

	assert.ErrorIs(t, text.Insert{Pos: 9, Text: "x"}.Apply(s), text.ErrOutOfRange)
	assert.ErrorIs(t, text.Delete{Pos: 3, Len: 5}.Apply(s), text.ErrOutOfRange)
	assert.ErrorIs(t, text.Delete{Pos: -1, Len: 1}.Apply(s), text.ErrOutOfRange)
}

func TestState_HashAndClone(t *testing.T) {
	s := text.NewState("abc")
	c := s.Clone().(*text.State)
	assert.Equal(t, s.Hash(), c.Hash())

	require.NoError(t, text.Delete{Pos: 0, Len: 1}.Apply(c))
	assert.NotEqual(t, s.Hash(), c.Hash())
	assert.Equal(t, "abc", s.String())
	assert.Len(t, s.Hash(), 16)
}

type otherState struct{}

func (otherState) Get() any     { return nil }
func (otherState) Hash() string { return "" }

func TestMutation_ForeignState(t *testing.T) {
	assert.ErrorIs(t, text.Insert{Pos: 0, Text: "x"}.Apply(otherState{}), text.ErrUnsupportedState)
	assert.ErrorIs(t, text.Delete{Pos: 0, Len: 1}.Apply(otherState{}), text.ErrUnsupportedState)
}

func TestMutation_Keys(t *testing.T) {
	assert.Equal(t, `ins(1,"a\nb")`, text.Insert{Pos: 1, Text: "a\nb"}.Key())
	assert.Equal(t, "del(4,2)", text.Delete{Pos: 4, Len: 2}.String())
	assert.Equal(t, map[string]any{"pos": 4, "len": 2}, text.Delete{Pos: 4, Len: 2}.Data())
}
