package scanner

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasindex/nasindex/internal/catalog"
	"github.com/nasindex/nasindex/internal/lifecycle"
	"github.com/nasindex/nasindex/internal/smbfs"
)

func TestFingerprintDeterministicForSmallFile(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.addFile("a.bin", 11, time.Now(), []byte("hello world"))

	src := smbfs.Source{Label: "nas"}
	scanner := newTestScanner(client, newTestStore(t), src)

	h1, err := scanner.fingerprint(ctx, src, `\a.bin`, 11)
	require.NoError(t, err)
	h2, err := scanner.fingerprint(ctx, src, `\a.bin`, 11)
	require.NoError(t, err)
	assert.Len(t, h1, 16)
	assert.Equal(t, h1, h2)
}

func TestFingerprintIgnoresMiddleOfLargeFile(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()

	cfg := DefaultConfig()
	cfg.HashSampleSizeKB = 1 // 1 KiB head/tail sample

	size := int64(8192)
	content := bytes.Repeat([]byte{0xAB}, int(size))
	client.addFile("big.bin", size, time.Now(), content)

	src := smbfs.Source{Label: "nas"}
	s := New(client, newTestStore(t), fakeSourceLister{[]smbfs.Source{src}}, nil, nil, cfg)

	base, err := s.fingerprint(ctx, src, `\big.bin`, size)
	require.NoError(t, err)

	// Mutate only the middle of the file, well outside the head/tail sample
	// window; the fingerprint must stay identical since it never reads there.
	mutated := append([]byte(nil), content...)
	for i := size / 2; i < size/2+16; i++ {
		mutated[i] = 0xCD
	}
	client.addFile("big.bin", size, time.Now(), mutated)

	after, err := s.fingerprint(ctx, src, `\big.bin`, size)
	require.NoError(t, err)
	assert.Equal(t, base, after)

	// Mutating the tail, inside the sampled window, must change the hash.
	mutatedTail := append([]byte(nil), content...)
	mutatedTail[size-1] = 0xFF
	client.addFile("big.bin", size, time.Now(), mutatedTail)

	tailChanged, err := s.fingerprint(ctx, src, `\big.bin`, size)
	require.NoError(t, err)
	assert.NotEqual(t, base, tailChanged)
}

func TestExtractTextIfEligiblePlainText(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.addFile("notes.txt", 13, time.Now(), []byte("quarterly revenue"))

	src := smbfs.Source{Label: "nas"}
	scanner := newTestScanner(client, newTestStore(t), src)

	text, err := scanner.extractTextIfEligible(ctx, src, `\notes.txt`, "text/plain", 13)
	require.NoError(t, err)
	require.NotNil(t, text)
	assert.Contains(t, *text, "quarterly revenue")
}

func TestExtractTextIfEligibleSkipsOversized(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	src := smbfs.Source{Label: "nas"}
	cfg := DefaultConfig()
	cfg.MaxTextExtractMB = 1
	s := New(client, newTestStore(t), fakeSourceLister{[]smbfs.Source{src}}, nil, nil, cfg)

	text, err := s.extractTextIfEligible(ctx, src, `\huge.txt`, "text/plain", int64(cfg.MaxTextExtractMB)*miB+1)
	require.NoError(t, err)
	assert.Nil(t, text)
}

func TestExtractTextIfEligibleBinaryDelegatesToExtractor(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.addFile("report.pdf", 4, time.Now(), []byte("%PDF"))

	src := smbfs.Source{Label: "nas"}
	scanner := newTestScanner(client, newTestStore(t), src)

	// NoopExtractor always reports "nothing extracted"; the call must still
	// succeed and clean up its downloaded temp file without leaking it.
	text, err := scanner.extractTextIfEligible(ctx, src, `\report.pdf`, "application/pdf", 4)
	require.NoError(t, err)
	assert.Nil(t, text)
}

func TestExtractMetadataIfEligibleSkipsNonMedia(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := newTestStore(t)
	src := smbfs.Source{Label: "nas"}
	scanner := newTestScanner(client, store, src)

	conn, err := store.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	err = scanner.extractMetadataIfEligible(ctx, conn, src, `\notes.txt`,
		catalog.EnrichmentCandidate{ID: 1, Path: "/nas/notes.txt", Size: 10, MimeType: "text/plain"})
	require.NoError(t, err)
}

func TestPhase2EndToEndSetsEnrichment(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	now := time.Now().Truncate(time.Second)
	client.addFile("notes.txt", 17, now, []byte("quarterly revenue"))

	src := smbfs.Source{Label: "nas"}
	store := newTestStore(t)
	scanner := newTestScanner(client, store, src)

	_, err := store.UpsertFile(ctx, store.DB(), catalog.FileRow{
		Path: "/nas/notes.txt", Name: "notes.txt", ParentPath: "/nas",
		Size: 17, MimeType: "text/plain", CreatedAt: now, ModifiedAt: now,
	})
	require.NoError(t, err)

	ctl := lifecycle.New()
	require.NoError(t, scanner.phase2(ctx, ctl))

	got, err := store.GetFile(ctx, "/nas/notes.txt")
	require.NoError(t, err)
	require.NotNil(t, got.FileHash)
	assert.Len(t, *got.FileHash, 16)
	require.NotNil(t, got.FullText)
	assert.Contains(t, *got.FullText, "quarterly revenue")
	assert.Equal(t, 1, ctl.Snapshot().FilesEnriched)
}

func TestPhase2SkipsWhenCancelled(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	now := time.Now().Truncate(time.Second)
	client.addFile("notes.txt", 17, now, []byte("quarterly revenue"))

	src := smbfs.Source{Label: "nas"}
	store := newTestStore(t)
	scanner := newTestScanner(client, store, src)

	_, err := store.UpsertFile(ctx, store.DB(), catalog.FileRow{
		Path: "/nas/notes.txt", Name: "notes.txt", ParentPath: "/nas",
		Size: 17, MimeType: "text/plain", CreatedAt: now, ModifiedAt: now,
	})
	require.NoError(t, err)

	ctl := lifecycle.New()
	ctl.Cancel()
	require.NoError(t, scanner.phase2(ctx, ctl))

	got, err := store.GetFile(ctx, "/nas/notes.txt")
	require.NoError(t, err)
	assert.Nil(t, got.FileHash)
}
