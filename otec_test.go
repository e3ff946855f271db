package otec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/otec"
	"github.com/aretw0/otec/pkg/adapters/memory"
	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, name string, opts ...otec.Option) *otec.Engine {
	t.Helper()
	eng, err := otec.New(append([]otec.Option{otec.WithName(name)}, opts...)...)
	require.NoError(t, err)
	return eng
}

func contentOf(t *testing.T, eng *otec.Engine, id int) string {
	t.Helper()
	doc, err := eng.Snapshot(context.Background(), id)
	require.NoError(t, err)
	return doc.State().(*text.State).String()
}

func ins(pos int, s string) []domain.Mutation {
	return []domain.Mutation{text.Insert{Pos: pos, Text: s}}
}

func del(pos, n int) []domain.Mutation {
	return []domain.Mutation{text.Delete{Pos: pos, Len: n}}
}

func TestEngine_SubmitCreatesRevision(t *testing.T) {
	eng := newEngine(t, "e1")
	ctx := context.Background()

	op1, err := eng.Submit(ctx, 1, "alice", ins(0, "hello"))
	require.NoError(t, err)

	assert.Equal(t, 0, op1.Revision())
	assert.True(t, op1.ShouldPropagate())
	assert.Equal(t, "e1", op1.Engine().ID())

	doc, err := eng.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Revision())
	assert.Equal(t, 1, doc.Log().Len())
	assert.Equal(t, "hello", contentOf(t, eng, 1))
}

func TestEngine_SubmitNoop(t *testing.T) {
	eng := newEngine(t, "e1")
	ctx := context.Background()

	op, err := eng.Submit(ctx, 1, "alice", nil)
	require.NoError(t, err)
	assert.True(t, op.IsNoop())

	history, err := eng.History(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestEngine_SubmitLocalOnly(t *testing.T) {
	eng := newEngine(t, "e1")
	op, err := eng.SubmitLocalOnly(context.Background(), 1, "alice", ins(0, "x"))
	require.NoError(t, err)
	assert.False(t, op.ShouldPropagate())
	assert.Equal(t, "x", contentOf(t, eng, 1))
}

// exchange submits one edit on each replica concurrently, then delivers each to the other.
func exchange(t *testing.T, a, b *otec.Engine, am, bm []domain.Mutation) {
	t.Helper()
	ctx := context.Background()

	opA, err := a.Submit(ctx, 1, "alice", am)
	require.NoError(t, err)
	opB, err := b.Submit(ctx, 1, "bob", bm)
	require.NoError(t, err)

	_, err = a.Receive(ctx, opB)
	require.NoError(t, err)
	_, err = b.Receive(ctx, opA)
	require.NoError(t, err)
}

func TestEngine_ReplicasConverge(t *testing.T) {
	ctx := context.Background()
	a, b := newEngine(t, "a"), newEngine(t, "b")

	seed, err := a.Submit(ctx, 1, "alice", ins(0, "the quick fox"))
	require.NoError(t, err)
	_, err = b.Receive(ctx, seed)
	require.NoError(t, err)

	exchange(t, a, b, ins(4, "very "), del(4, 6))
	assert.Equal(t, contentOf(t, a, 1), contentOf(t, b, 1))
	assert.Equal(t, "the very fox", contentOf(t, a, 1))

	exchange(t, a, b, ins(0, "A"), ins(0, "B"))
	assert.Equal(t, "ABthe very fox", contentOf(t, a, 1))
	assert.Equal(t, contentOf(t, a, 1), contentOf(t, b, 1))

	da, err := a.Snapshot(ctx, 1)
	require.NoError(t, err)
	db, err := b.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, da.Revision(), db.Revision())
	assert.Equal(t, 5, da.Revision())
}

func TestEngine_ReceiveAgainstSeveralConcurrent(t *testing.T) {
	ctx := context.Background()
	server := newEngine(t, "server")

	// Two edits land on the server while the remote op is in flight.
	_, err := server.Submit(ctx, 1, "alice", ins(0, "abc"))
	require.NoError(t, err)
	base, err := server.Snapshot(ctx, 1)
	require.NoError(t, err)

	remote := domain.CreateOperation(server, "carol", ins(3, "!"), 1, base.Revision(), base.State().Hash(), nil)

	_, err = server.Submit(ctx, 1, "alice", ins(0, "<"))
	require.NoError(t, err)
	_, err = server.Submit(ctx, 1, "bob", del(1, 1))
	require.NoError(t, err)

	applied, err := server.Receive(ctx, remote)
	require.NoError(t, err)
	assert.True(t, applied.IsResolvedConflict())
	assert.Equal(t, 3, applied.Revision())
	assert.Equal(t, "<bc!", contentOf(t, server, 1))

	latest, err := server.Resolve(ctx, remote)
	require.NoError(t, err)
	assert.Same(t, applied, latest)
}

func TestEngine_ReceiveDuplicate(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, "e1")

	_, err := eng.Submit(ctx, 1, "alice", ins(0, "abc"))
	require.NoError(t, err)
	existing, err := eng.Submit(ctx, 1, "alice", del(0, 1))
	require.NoError(t, err)

	dup := domain.CreateOperation(eng, "bob", del(0, 1), 1, 1, "", nil)
	got, err := eng.Receive(ctx, dup)
	require.NoError(t, err)

	assert.Same(t, existing, got)
	assert.False(t, dup.IsCanon())
	assert.True(t, dup.IsResolvedConflict())
	assert.Equal(t, "bc", contentOf(t, eng, 1))

	latest, err := eng.Resolve(ctx, dup)
	require.NoError(t, err)
	assert.Same(t, existing, latest)

	// Delivering an already integrated operation again changes nothing.
	again, err := eng.Receive(ctx, existing)
	require.NoError(t, err)
	assert.Same(t, existing, again)
	assert.Equal(t, "bc", contentOf(t, eng, 1))
}

func TestEngine_ReceiveRejects(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, "e1")

	invalid := domain.CreateOperation(eng, "x", ins(0, "a"), 1, 0, "", nil)
	invalid.Invalidate()
	_, err := eng.Receive(ctx, invalid)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	ahead := domain.CreateOperation(eng, "x", ins(0, "a"), 1, 5, "", nil)
	_, err = eng.Receive(ctx, ahead)
	assert.ErrorIs(t, err, domain.ErrRevisionAhead)

	// An op whose latest version was invalidated is stale.
	_, err = eng.Submit(ctx, 1, "alice", ins(0, "zz"))
	require.NoError(t, err)
	stale := domain.CreateOperation(eng, "bob", ins(0, "q"), 1, 0, "", nil)
	applied, err := eng.Receive(ctx, stale)
	require.NoError(t, err)
	applied.Invalidate()

	_, err = eng.Receive(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrStaleLineage)
}

func TestEngine_Preview(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, "e1")
	_, err := eng.Submit(ctx, 1, "alice", ins(0, "abc"))
	require.NoError(t, err)

	op := domain.CreateOperation(eng, "bob", del(0, 2), 1, domain.UnassignedRevision, "", nil)
	state, err := eng.Preview(ctx, 1, op)
	require.NoError(t, err)

	assert.Equal(t, "c", state.Get())
	assert.Equal(t, "abc", contentOf(t, eng, 1))
	assert.Equal(t, domain.UnassignedRevision, op.Revision(), "caller's op untouched")

	history, err := eng.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	rebased := eng.Rebase(op, 1)
	assert.Equal(t, 1, rebased.Revision())
	assert.True(t, rebased.Equal(op))
}

type opaqueState struct{}

func (opaqueState) Get() any     { return nil }
func (opaqueState) Hash() string { return "opaque" }

func TestEngine_SnapshotUnsupported(t *testing.T) {
	eng := newEngine(t, "e1", otec.WithStateFactory(func(int) domain.State { return opaqueState{} }))
	_, err := eng.Snapshot(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrSnapshotUnsupported)
}

func TestEngine_PersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	a := newEngine(t, "a", otec.WithStore(store))
	_, err := a.Submit(ctx, 9, "alice", ins(0, "abc"))
	require.NoError(t, err)
	remote := domain.CreateOperation(a, "bob", ins(0, "d"), 9, 0, "", nil)
	_, err = a.Receive(ctx, remote)
	require.NoError(t, err)

	b := newEngine(t, "b", otec.WithStore(store))
	assert.Equal(t, "abcd", contentOf(t, b, 9))

	history, err := b.History(ctx, 9)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[1].IsResolvedConflict())
	assert.Equal(t, "b", history[1].Engine().ID())

	ids, err := b.Entities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{9}, ids)

	require.NoError(t, b.Delete(ctx, 9))
	ids, err = b.Entities(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEngine_Hooks(t *testing.T) {
	ctx := context.Background()
	var applies, transforms, lineage int
	eng := newEngine(t, "e1", otec.WithLifecycleHooks(domain.LifecycleHooks{
		OnApply:     func(context.Context, *domain.ApplyEvent) { applies++ },
		OnTransform: func(context.Context, *domain.TransformEvent) { transforms++ },
		OnLineage:   func(context.Context, *domain.LineageEvent) { lineage++ },
	}))

	_, err := eng.Submit(ctx, 1, "alice", ins(0, "a"))
	require.NoError(t, err)
	_, err = eng.Receive(ctx, domain.CreateOperation(eng, "bob", ins(0, "b"), 1, 0, "", nil))
	require.NoError(t, err)

	assert.Equal(t, 2, applies)
	assert.Equal(t, 1, transforms)
	assert.Equal(t, 2, lineage, "published by the engine and reported again by apply")
}

type brokenTransformer struct{}

func (brokenTransformer) Transform(_, _ *domain.Operation) (domain.TransformPair, error) {
	return domain.TransformPair{}, errors.New("no rules")
}

func TestEngine_TransformError(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, "e1", otec.WithTransformer(brokenTransformer{}))
	_, err := eng.Submit(ctx, 1, "alice", ins(0, "a"))
	require.NoError(t, err)

	_, err = eng.Receive(ctx, domain.CreateOperation(eng, "bob", ins(0, "b"), 1, 0, "", nil))
	assert.ErrorContains(t, err, "no rules")
	assert.Equal(t, "a", contentOf(t, eng, 1))
}

func TestEngine_ExportImport(t *testing.T) {
	ctx := context.Background()
	a, b := newEngine(t, "a"), newEngine(t, "b")

	op, err := a.Submit(ctx, 1, "alice", ins(0, "héllo"))
	require.NoError(t, err)

	rec, err := a.Export(op)
	require.NoError(t, err)
	assert.Equal(t, op.ID().String(), rec.OperationID)

	imported, err := b.Import(rec)
	require.NoError(t, err)
	assert.Equal(t, op.ID(), imported.ID())
	assert.True(t, imported.Equal(op))
	assert.Equal(t, "b", imported.Engine().ID())

	_, err = b.Receive(ctx, imported)
	require.NoError(t, err)
	assert.Equal(t, "héllo", contentOf(t, b, 1))

	rec.Mutations = []map[string]any{{"kind": "bogus"}}
	_, err = b.Import(rec)
	assert.ErrorIs(t, err, text.ErrUnsupportedMutation)
}
