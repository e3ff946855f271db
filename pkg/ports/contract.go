package ports

import (
	"context"
	"testing"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractRecord(entityID, revision int, text string) domain.Record {
	return domain.Record{
		OperationID:  uuid.NewString(),
		AgentID:      "contract",
		EntityID:     entityID,
		Revision:     revision,
		RevisionHash: "0000000000000000",
		Propagate:    true,
		Canon:        true,
		Mutations: []map[string]any{
			{"kind": "insert", "pos": revision, "text": text},
		},
	}
}

// RunLogStoreContract runs a suite of tests to verify that a LogStore implementation
// adheres to the defined interface contract.
func RunLogStoreContract(t *testing.T, store LogStore) {
	ctx := context.Background()
	base := int(uuid.New().ID() >> 8)

	t.Run("Append and Load", func(t *testing.T) {
		id := base + 1
		first := contractRecord(id, 0, "a")
		second := contractRecord(id, 1, "b")
		second.ResolvedConflict = true

		require.NoError(t, store.Append(ctx, id, first))
		require.NoError(t, store.Append(ctx, id, second))

		recs, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.Len(t, recs, 2)

		assert.Equal(t, first.OperationID, recs[0].OperationID)
		assert.Equal(t, second.OperationID, recs[1].OperationID)
		assert.Equal(t, 1, recs[1].Revision)
		assert.True(t, recs[1].ResolvedConflict)
		assert.Equal(t, "b", recs[1].Mutations[0]["text"])
		// JSON backends turn numbers into float64; only check presence.
		assert.NotNil(t, recs[1].Mutations[0]["pos"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, base+2)
		assert.ErrorIs(t, err, domain.ErrEntityNotFound)
	})

	t.Run("Load Returns Copies", func(t *testing.T) {
		id := base + 3
		require.NoError(t, store.Append(ctx, id, contractRecord(id, 0, "a")))

		recs, err := store.Load(ctx, id)
		require.NoError(t, err)
		recs[0].AgentID = "tampered"
		recs[0].Mutations[0]["text"] = "tampered"

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "contract", again[0].AgentID)
		assert.Equal(t, "a", again[0].Mutations[0]["text"])
	})

	t.Run("Delete", func(t *testing.T) {
		id := base + 4
		require.NoError(t, store.Append(ctx, id, contractRecord(id, 0, "a")))

		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrEntityNotFound, "Load after Delete should return ErrEntityNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Delete is idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := base+5, base+6
		require.NoError(t, store.Append(ctx, id2, contractRecord(id2, 0, "b")))
		require.NoError(t, store.Append(ctx, id1, contractRecord(id1, 0, "a")))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.IsNonDecreasing(t, ids)
	})
}
