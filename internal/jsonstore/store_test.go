package jsonstore_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/jsonstore"
	"github.com/rpggio/partdesk/internal/repository"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*jsonstore.Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := jsonstore.New(root, nil)
	require.NoError(t, err)
	return store, root
}

func sampleRecord(part string, created time.Time) *record.Record {
	return &record.Record{
		Technician: "Ana",
		Part:       part,
		Status:     record.StatusPending,
		CreatedAt:  created,
	}
}

func TestEnsureInitialized_Idempotent(t *testing.T) {
	store, root := newStore(t)

	require.NoError(t, store.EnsureInitialized())
	require.NoError(t, store.Append(context.Background(), sampleRecord("Fuser", time.Now())))
	require.NoError(t, store.EnsureInitialized())

	info, err := os.Stat(filepath.Join(root, jsonstore.AttachmentsDir))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	recs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestEnsureInitialized_EmptyCollection(t *testing.T) {
	store, root := newStore(t)
	require.NoError(t, store.EnsureInitialized())

	data, err := os.ReadFile(filepath.Join(root, jsonstore.RecordsFile))
	require.NoError(t, err)

	var doc map[string][]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc, "pedidos")
	require.Empty(t, doc["pedidos"])
}

func TestAppendAndList_FileOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	now := time.Now().UTC()

	first := sampleRecord("Fuser", now)
	second := sampleRecord("Roller", now.Add(-time.Hour))
	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	require.Len(t, first.ID, 8)
	require.NotEqual(t, first.ID, second.ID)

	recs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, first.ID, recs[0].ID)
	require.Equal(t, second.ID, recs[1].ID)
	require.True(t, recs[0].CreatedAt.Equal(now))
}

func TestAppend_KeepsGivenIDAndRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	rec := sampleRecord("Fuser", time.Now())
	rec.ID = "fixed001"
	require.NoError(t, store.Append(ctx, rec))

	dup := sampleRecord("Other", time.Now())
	dup.ID = "fixed001"
	require.ErrorIs(t, store.Append(ctx, dup), repository.ErrConflict)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	rec := sampleRecord("Fuser", time.Now())
	require.NoError(t, store.Append(ctx, rec))

	status := record.StatusDelivered
	now := time.Now().UTC()
	found, err := store.Update(ctx, rec.ID, record.Patch{Status: &status, UpdatedAt: &now})
	require.NoError(t, err)
	require.True(t, found)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, record.StatusDelivered, got.Status)
	require.NotNil(t, got.UpdatedAt)
	require.True(t, got.CreatedAt.Equal(rec.CreatedAt))

	found, err = store.Update(ctx, "missing1", record.Patch{Status: &status})
	require.NoError(t, err)
	require.False(t, found)
}

func TestAppendAndUpdate_RejectInvalidRecords(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	bad := sampleRecord("Fuser", time.Now())
	bad.Status = record.Status("Lost")
	err := store.Append(ctx, bad)
	require.ErrorIs(t, err, repository.ErrInvalidInput)
	require.ErrorIs(t, err, record.ErrInvalidStatus)

	noPart := sampleRecord("", time.Now())
	require.ErrorIs(t, store.Append(ctx, noPart), record.ErrMissingPart)

	rec := sampleRecord("Fuser", time.Now())
	require.NoError(t, store.Append(ctx, rec))

	_, err = store.Update(ctx, rec.ID, record.Patch{})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	lost := record.Status("Lost")
	_, err = store.Update(ctx, rec.ID, record.Patch{Status: &lost})
	require.ErrorIs(t, err, record.ErrInvalidStatus)

	recs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, record.StatusPending, recs[0].Status)
}

func TestGet_NotFound(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStoreBlobAndDelete(t *testing.T) {
	ctx := context.Background()
	store, root := newStore(t)

	ref, err := store.StoreBlob(ctx, record.Photo{Name: "../evil name.png", Data: []byte("png-bytes")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "file://"))
	require.True(t, strings.HasSuffix(ref, "_evil_name.png"))

	path := filepath.FromSlash(strings.TrimPrefix(ref, "file://"))
	require.Equal(t, filepath.Join(root, jsonstore.AttachmentsDir), filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), data)

	require.NoError(t, store.DeleteBlob(ctx, ref))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, store.DeleteBlob(ctx, ref))
	require.NoError(t, store.DeleteBlob(ctx, "https://storage.googleapis.com/b/o.png"))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	a := sampleRecord("Fuser", time.Now())
	b := sampleRecord("Roller", time.Now())
	require.NoError(t, store.Append(ctx, a))
	require.NoError(t, store.Append(ctx, b))

	found, err := store.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, found)

	found, err = store.Delete(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, found)

	recs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, b.ID, recs[0].ID)
}

func TestStorageWriteError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store, err := jsonstore.New(blocker, nil)
	require.NoError(t, err)

	require.ErrorIs(t, store.EnsureInitialized(), repository.ErrStorageWrite)
	require.ErrorIs(t, store.Append(context.Background(), sampleRecord("Fuser", time.Now())), repository.ErrStorageWrite)
	_, err = store.StoreBlob(context.Background(), record.Photo{Name: "a.jpg", Data: []byte("x")})
	require.ErrorIs(t, err, repository.ErrStorageWrite)
}

func TestCorruptFileSurfacesStorageError(t *testing.T) {
	store, root := newStore(t)
	require.NoError(t, store.EnsureInitialized())
	require.NoError(t, os.WriteFile(filepath.Join(root, jsonstore.RecordsFile), []byte("{not json"), 0o600))

	_, err := store.List(context.Background())
	require.ErrorIs(t, err, repository.ErrStorageWrite)
}
