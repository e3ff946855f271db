package lineage_test

import (
	"testing"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/lineage"
	"github.com/aretw0/otec/pkg/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEngine struct{}

func (testEngine) ID() string { return "test" }

func newOp(s string) *domain.Operation {
	return domain.CreateOperation(testEngine{}, "a", []domain.Mutation{text.Insert{Pos: 0, Text: s}}, 1, 0, "", nil)
}

func TestIndex_Reflexive(t *testing.T) {
	idx := lineage.New()
	op := newOp("a")

	assert.Same(t, op, idx.OuterPath(op))
	assert.Same(t, op, idx.Resolve(op))

	idx.Register(op)
	assert.Equal(t, 1, idx.Len())
	assert.Same(t, op, idx.OuterPath(op))
}

func TestIndex_ResolveFollowsChain(t *testing.T) {
	idx := lineage.New()
	a, b, c := newOp("a"), newOp("b"), newOp("c")

	require.NoError(t, idx.Publish(domain.LineageEvent{Superseded: a, Successor: b}))
	require.NoError(t, idx.SetOuterPath(b, c))

	assert.Same(t, b, idx.OuterPath(a), "one step")
	assert.Same(t, c, idx.Resolve(a))
	assert.Same(t, c, idx.OuterPath(a), "compressed after resolve")
	assert.Same(t, c, idx.Resolve(c))
	assert.Equal(t, 3, idx.Len())
}

func TestIndex_PublishIdempotent(t *testing.T) {
	idx := lineage.New()
	a, b := newOp("a"), newOp("b")
	ev := domain.LineageEvent{Superseded: a, Successor: b}

	require.NoError(t, idx.Publish(ev))
	require.NoError(t, idx.Publish(ev))
	assert.Same(t, b, idx.Resolve(a))

	assert.NoError(t, idx.Publish(domain.LineageEvent{}))
}

func TestIndex_RejectsCycles(t *testing.T) {
	idx := lineage.New()
	a, b, c := newOp("a"), newOp("b"), newOp("c")

	err := idx.SetOuterPath(a, a)
	assert.ErrorIs(t, err, domain.ErrLineageCycle)

	require.NoError(t, idx.SetOuterPath(a, b))
	require.NoError(t, idx.SetOuterPath(b, c))

	err = idx.SetOuterPath(c, a)
	assert.ErrorIs(t, err, domain.ErrLineageCycle)
	assert.Same(t, c, idx.Resolve(a), "index unchanged")
}

func TestIndex_ResolveActionable(t *testing.T) {
	idx := lineage.New()
	a, b := newOp("a"), newOp("b")
	require.NoError(t, idx.SetOuterPath(a, b))

	got, err := idx.ResolveActionable(a)
	require.NoError(t, err)
	assert.Same(t, b, got)

	b.Invalidate()
	_, err = idx.ResolveActionable(a)
	assert.ErrorIs(t, err, domain.ErrStaleLineage)

	a.Invalidate()
	_, err = idx.ResolveActionable(newOp("fresh"))
	assert.NoError(t, err)
}
