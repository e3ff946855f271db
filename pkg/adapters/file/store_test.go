package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/otec/pkg/adapters/file"
	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunLogStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, 3, domain.Record{OperationID: "x", EntityID: 3, Canon: true}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-9-123.json"), []byte("[]"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "7.json"), 0755))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ids)
}

func TestFileStore_CorruptLog(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "5.json"), []byte("{not json"), 0644))

	_, err := store.Load(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrCorruptLog)

	err = store.Append(context.Background(), 5, domain.Record{})
	assert.ErrorIs(t, err, domain.ErrCorruptLog)
}

func TestFileStore_MissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join(".otec", "entities"), file.New("").BasePath)
}
