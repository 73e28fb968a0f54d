// Package scanner is the two-phase scan orchestrator: Phase 1 walks each
// configured source sequentially and writes a fast, browsable index; Phase
// 2 fans out across all newly-indexed rows in parallel to compute content
// fingerprints, extract text, and pull media metadata.
//
// Grounded on rclone's fs/sync and fs/walk packages for the overall shape —
// sync.go's march (a sequential comparison pass building a list of actions)
// feeding a bounded fs/operations transfer pool is the same latency/
// throughput split this package's Phase 1/Phase 2 boundary encodes — and on
// connpool.go's errgroup-based fan-out-and-join for the worker pool itself.
package scanner

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nasindex/nasindex/internal/catalog"
	"github.com/nasindex/nasindex/internal/extract"
	"github.com/nasindex/nasindex/internal/lifecycle"
	"github.com/nasindex/nasindex/internal/pathresolve"
	"github.com/nasindex/nasindex/internal/smbfs"
)

// Config holds the scanner's tunables, all carrying the specification's
// documented defaults.
type Config struct {
	BatchSize        int           // Phase 1 flush size, default 1000
	EnrichWorkers    int           // Phase 2 worker pool width, default 4
	HashSampleSizeKB int           // content-fingerprint head/tail sample, default 64
	MaxTextExtractMB int           // text extraction size ceiling, default 100
	MaxTextStoreKB   int           // stored full_text truncation, default 50
	MaxMediaMB       int           // media metadata size ceiling, default 200
	WorkerTimeout    time.Duration // per-enrichment-task timeout, default 120s
	CommitEvery      int           // default 50; not read, Phase 2 commits each row as it is written
}

// DefaultConfig returns the specification's documented defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:        1000,
		EnrichWorkers:    4,
		HashSampleSizeKB: 64,
		MaxTextExtractMB: 100,
		MaxTextStoreKB:   50,
		MaxMediaMB:       200,
		WorkerTimeout:    120 * time.Second,
		CommitEvery:      50,
	}
}

// SourceLister is the narrow source-manager view the scanner depends on.
type SourceLister interface {
	SMBSources() []smbfs.Source
}

// SMBClient is the narrow view of *smbfs.Client the scanner depends on,
// letting tests substitute a fake share without standing up a real SMB
// server — the same boundary-interface idiom as extract.TextExtractor and
// source.CatalogPurger.
type SMBClient interface {
	Stat(ctx context.Context, src smbfs.Source, smbPath string) (smbfs.Stat, error)
	Walk(ctx context.Context, src smbfs.Source, root string, fn smbfs.WalkFunc) error
	Open(ctx context.Context, src smbfs.Source, smbPath string) (io.ReadCloser, error)
	ReadBytes(ctx context.Context, src smbfs.Source, smbPath string, maxBytes int64) ([]byte, error)
	DownloadToTemp(ctx context.Context, src smbfs.Source, smbPath string) (string, error)
	CleanupTemp(local string) error
}

var _ SMBClient = (*smbfs.Client)(nil)

// Scanner drives Phase 1 and Phase 2 against a catalog store and an SMB
// client, given the current source list.
type Scanner struct {
	client   SMBClient
	store    *catalog.Store
	sources  SourceLister
	resolver *pathresolve.Resolver
	text     extract.TextExtractor
	meta     extract.MetadataExtractor
	cfg      Config
}

// New builds a Scanner. text/meta may be extract.NoopExtractor{} when no
// concrete extractor collaborator is wired.
func New(client SMBClient, store *catalog.Store, sources SourceLister, text extract.TextExtractor, meta extract.MetadataExtractor, cfg Config) *Scanner {
	return &Scanner{
		client:   client,
		store:    store,
		sources:  sources,
		resolver: pathresolve.New(sources),
		text:     text,
		meta:     meta,
		cfg:      cfg,
	}
}

// Run executes a full scan cycle: Phase 1 for every configured source in
// turn, then Phase 2 globally. full selects whether Phase 1 ends with
// stale-row removal. It reports into ctl throughout and persists final
// counters to scanLogID on exit.
func (s *Scanner) Run(ctx context.Context, ctl *lifecycle.Controller, scanLogID int64, full bool) {
	status := lifecycle.Completed
	defer func() {
		if r := recover(); r != nil {
			ctl.RecordError("scan panicked")
			status = lifecycle.Failed
		}
		snap := ctl.Finish(status)
		_ = s.store.FinishScanLog(context.Background(), scanLogID, scanLogStatus(status),
			snap.FilesScanned, snap.FilesAdded, snap.FilesUpdated, snap.FilesRemoved, snap.Errors, snap.ErrorLog)
	}()

	for _, src := range s.sources.SMBSources() {
		if ctl.Cancelled() {
			status = lifecycle.Cancelled
			return
		}
		if err := s.phase1(ctx, ctl, src, full); err != nil {
			ctl.RecordError("source " + src.Label + ": " + err.Error())
		}
	}

	if ctl.Cancelled() {
		status = lifecycle.Cancelled
		return
	}

	ctl.SetPhase(lifecycle.Enriching)
	if err := s.phase2(ctx, ctl); err != nil {
		ctl.RecordError("enrichment: " + err.Error())
	}

	if ctl.Cancelled() {
		status = lifecycle.Cancelled
	}
}

func scanLogStatus(s lifecycle.State) catalog.ScanLogStatus {
	switch s {
	case lifecycle.Cancelled:
		return catalog.ScanCancelled
	case lifecycle.Failed:
		return catalog.ScanFailed
	default:
		return catalog.ScanCompleted
	}
}

// runWorkerPool fans items out across cfg.EnrichWorkers goroutines via
// errgroup.SetLimit, the bounded-concurrency shape connpool.go uses for its
// own drainPool fan-out-and-join.
func runWorkerPool(ctx context.Context, limit int, items []catalog.EnrichmentCandidate, fn func(ctx context.Context, item catalog.EnrichmentCandidate) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(gctx, item)
		})
	}
	return g.Wait()
}
