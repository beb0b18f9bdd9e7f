package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertextoedge/resumable-http/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newRecord(t *testing.T, url string) *domain.DownloadRecord {
	t.Helper()
	ep, err := domain.NewEndpoint("GET", url, nil)
	require.NoError(t, err)
	return domain.NewDownloadRecord(uuid.NewString(), ep, "/out/file")
}

func TestStore_CreateAndGet(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Ping())

	rec := newRecord(t, "http://example.com/a")
	require.NoError(t, store.CreateDownload(rec))

	got, err := store.GetDownload(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.URL, got.URL)
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, domain.RecordStatusRunning, got.Status)
	assert.Equal(t, int64(-1), got.ContentLength)
	assert.Nil(t, got.FinishedAt)
	assert.WithinDuration(t, rec.StartedAt, got.StartedAt, time.Second)

	err = store.CreateDownload(rec)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists), "got %v", err)

	_, err = store.GetDownload("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpdateDownload(t *testing.T) {
	store := openTestStore(t)

	rec := newRecord(t, "http://example.com/a")
	require.NoError(t, store.CreateDownload(rec))

	rec.AcceptsRanges = true
	rec.ContentLength = 2048
	require.NoError(t, rec.MarkFailed(1024, 2, "resume at byte 1024 failed: refused"))
	require.NoError(t, store.UpdateDownload(rec))

	got, err := store.GetDownload(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecordStatusFailed, got.Status)
	assert.Equal(t, int64(1024), got.BytesDownloaded)
	assert.Equal(t, int64(2048), got.ContentLength)
	assert.Equal(t, 2, got.Resumes)
	assert.True(t, got.AcceptsRanges)
	assert.Equal(t, "resume at byte 1024 failed: refused", got.LastError)
	require.NotNil(t, got.FinishedAt)

	missing := newRecord(t, "http://example.com/b")
	assert.ErrorIs(t, store.UpdateDownload(missing), domain.ErrNotFound)
}

func TestStore_ListAndStats(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		rec := newRecord(t, "http://example.com/f")
		rec.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.CreateDownload(rec))
		if i < 2 {
			require.NoError(t, rec.MarkDone(100, i))
		} else {
			require.NoError(t, rec.MarkFailed(10, 0, "boom"))
		}
		require.NoError(t, store.UpdateDownload(rec))
		ids = append(ids, rec.ID)
	}

	list, err := store.ListDownloads(2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)

	stats, err := store.GetHistoryStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Done)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, int64(210), stats.TotalBytes)
	assert.Equal(t, 1, stats.Resumes)
}

func TestStore_PruneDownloads(t *testing.T) {
	store := openTestStore(t)

	old := newRecord(t, "http://example.com/old")
	require.NoError(t, store.CreateDownload(old))
	require.NoError(t, old.MarkDone(1, 0))
	past := time.Now().Add(-48 * time.Hour)
	old.FinishedAt = &past
	require.NoError(t, store.UpdateDownload(old))

	recent := newRecord(t, "http://example.com/recent")
	require.NoError(t, store.CreateDownload(recent))
	require.NoError(t, recent.MarkDone(1, 0))
	require.NoError(t, store.UpdateDownload(recent))

	running := newRecord(t, "http://example.com/running")
	require.NoError(t, store.CreateDownload(running))

	count, err := store.PruneDownloads(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.GetDownload(old.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetDownload(recent.ID)
	assert.NoError(t, err)
	_, err = store.GetDownload(running.ID)
	assert.NoError(t, err)
}
