package scanner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasindex/nasindex/internal/catalog"
	"github.com/nasindex/nasindex/internal/extract"
	"github.com/nasindex/nasindex/internal/lifecycle"
	"github.com/nasindex/nasindex/internal/smbfs"
)

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := catalog.Open(filepath.Join(dir, "catalog.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestScanner(client *fakeClient, store *catalog.Store, sources ...smbfs.Source) *Scanner {
	return New(client, store, fakeSourceLister{sources}, extract.NoopExtractor{}, extract.NoopExtractor{}, DefaultConfig())
}

func TestPhase1FullScanIndexesTreeAndTags(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	now := time.Now().Truncate(time.Second)
	client.addFile("a.txt", 10, now, []byte("hello world"))
	client.addFile("docs/b.txt", 20, now, []byte("more text"))

	src := smbfs.Source{Host: "nas01", Share: "share", Label: "nas"}
	store := newTestStore(t)
	scanner := newTestScanner(client, store, src)
	ctl := lifecycle.New()

	require.NoError(t, scanner.phase1(ctx, ctl, src, true))

	root, err := store.GetFile(ctx, "/nas")
	require.NoError(t, err)
	assert.True(t, root.IsDirectory)

	file, err := store.GetFile(ctx, "/nas/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(10), file.Size)

	dir, err := store.GetFile(ctx, "/nas/docs")
	require.NoError(t, err)
	assert.True(t, dir.IsDirectory)

	_, err = store.GetFile(ctx, "/nas/docs/b.txt")
	require.NoError(t, err)

	counts, err := store.TagCounts(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, counts)

	snap := ctl.Snapshot()
	assert.Equal(t, 2, snap.FilesScanned) // counts files only, not the root or docs/ directories
	assert.Equal(t, 2, snap.FilesAdded)
	assert.Equal(t, 0, snap.FilesUpdated)
}

func TestPhase1IncrementalRescanWithNoChangesReportsZeroAddedUpdated(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	mtime := time.Now().Truncate(time.Second)
	client.addFile("a.txt", 10, mtime, []byte("hello world"))
	client.addFile("docs/b.txt", 20, mtime, []byte("more text"))

	src := smbfs.Source{Host: "nas01", Share: "share", Label: "nas"}
	store := newTestStore(t)
	scanner := newTestScanner(client, store, src)

	require.NoError(t, scanner.phase1(ctx, lifecycle.New(), src, true))

	ctl := lifecycle.New()
	require.NoError(t, scanner.phase1(ctx, ctl, src, false))

	snap := ctl.Snapshot()
	assert.Equal(t, 0, snap.FilesAdded)
	assert.Equal(t, 0, snap.FilesUpdated)
}

func TestPhase1IncrementalSkipPreservesHash(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	mtime := time.Now().Truncate(time.Second)
	client.addFile("a.txt", 10, mtime, []byte("hello world"))

	src := smbfs.Source{Host: "nas01", Share: "share", Label: "nas"}
	store := newTestStore(t)
	scanner := newTestScanner(client, store, src)

	require.NoError(t, scanner.phase1(ctx, lifecycle.New(), src, true))

	conn, err := store.Conn(ctx)
	require.NoError(t, err)
	id, err := store.FileIDByPath(ctx, "/nas/a.txt")
	require.NoError(t, err)
	hash := "deadbeefcafef00d"
	require.NoError(t, store.SetEnrichment(ctx, conn, id, &hash, nil))
	conn.Close()

	require.NoError(t, scanner.phase1(ctx, lifecycle.New(), src, false))

	got, err := store.GetFile(ctx, "/nas/a.txt")
	require.NoError(t, err)
	require.NotNil(t, got.FileHash)
	assert.Equal(t, hash, *got.FileHash)
}

func TestPhase1ModifiedFileClearsHash(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	mtime := time.Now().Truncate(time.Second)
	client.addFile("a.txt", 10, mtime, []byte("hello world"))

	src := smbfs.Source{Host: "nas01", Share: "share", Label: "nas"}
	store := newTestStore(t)
	scanner := newTestScanner(client, store, src)

	require.NoError(t, scanner.phase1(ctx, lifecycle.New(), src, true))

	conn, err := store.Conn(ctx)
	require.NoError(t, err)
	id, err := store.FileIDByPath(ctx, "/nas/a.txt")
	require.NoError(t, err)
	hash := "deadbeefcafef00d"
	require.NoError(t, store.SetEnrichment(ctx, conn, id, &hash, nil))
	conn.Close()

	client.addFile("a.txt", 99, mtime.Add(time.Hour), []byte("changed content"))
	require.NoError(t, scanner.phase1(ctx, lifecycle.New(), src, false))

	got, err := store.GetFile(ctx, "/nas/a.txt")
	require.NoError(t, err)
	assert.Nil(t, got.FileHash)
	assert.Equal(t, int64(99), got.Size)
}

func TestPhase1FullRescanRemovesDeletedFiles(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	mtime := time.Now().Truncate(time.Second)
	client.addFile("a.txt", 10, mtime, nil)
	client.addFile("gone.txt", 5, mtime, nil)

	src := smbfs.Source{Host: "nas01", Share: "share", Label: "nas"}
	store := newTestStore(t)
	scanner := newTestScanner(client, store, src)

	require.NoError(t, scanner.phase1(ctx, lifecycle.New(), src, true))
	_, err := store.GetFile(ctx, "/nas/gone.txt")
	require.NoError(t, err)

	delete(client.root.children, "gone.txt")

	ctl := lifecycle.New()
	require.NoError(t, scanner.phase1(ctx, ctl, src, true))

	_, err = store.GetFile(ctx, "/nas/gone.txt")
	assert.Error(t, err)
	_, err = store.GetFile(ctx, "/nas/a.txt")
	assert.NoError(t, err)
	assert.Equal(t, 1, ctl.Snapshot().FilesRemoved)
}
