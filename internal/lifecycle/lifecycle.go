// Package lifecycle is the scan lifecycle controller: a single mutex-
// protected state record plus an atomic cancel flag, owning the background
// scan task so the daemon can join it deterministically on shutdown instead
// of leaving it fire-and-forget.
//
// Grounded on rclone's job tracking idiom in fs/accounting/stats_groups.go
// (a registry of in-flight operations guarded by a mutex, snapshotted on
// read) generalized from "many concurrent transfers" to "at most one
// concurrent scan", plus errgroup's own cancel-and-wait shape for the owned
// background task.
package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nasindex/nasindex/internal/nerrors"
)

// State is one of the scan's lifecycle states.
type State string

const (
	Idle      State = "idle"
	Indexing  State = "indexing"
	Enriching State = "enriching"
	Completed State = "completed"
	Cancelled State = "cancelled"
	Failed    State = "failed"
)

// Snapshot is a point-in-time copy of the scan state, safe to read without
// holding any lock.
type Snapshot struct {
	State         State
	ScanLogID     int64
	StartedAt     time.Time
	FilesScanned  int
	FilesAdded    int
	FilesUpdated  int
	FilesRemoved  int
	FilesEnriched int
	EnrichTarget  int
	Errors        int
	ErrorLog      []string
	LastError     string
}

const errorLogCap = 100

// ScanFunc is the background work a started scan runs. It receives a
// context cancelled by Cancel/Shutdown and a handle to report progress and
// errors back to the controller.
type ScanFunc func(ctx context.Context, ctl *Controller)

// Controller is the lifecycle controller. One per daemon process.
type Controller struct {
	mu    sync.Mutex
	state Snapshot

	cancel atomic.Bool

	taskMu sync.Mutex
	cancelFn context.CancelFunc
	done     chan struct{}
}

// New returns an idle controller.
func New() *Controller {
	return &Controller{state: Snapshot{State: Idle}}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

func (c *Controller) copyLocked() Snapshot {
	s := c.state
	s.ErrorLog = append([]string(nil), c.state.ErrorLog...)
	return s
}

// Start begins a scan if none is running, returning EScanBusy otherwise.
// scanLogID should already be persisted by the caller (the catalog's
// StartScanLog) so the snapshot can report it immediately.
func (c *Controller) Start(parent context.Context, scanLogID int64, fn ScanFunc) (Snapshot, error) {
	c.taskMu.Lock()
	defer c.taskMu.Unlock()

	c.mu.Lock()
	if c.state.State != Idle && c.state.State != Completed && c.state.State != Cancelled && c.state.State != Failed {
		snap := c.copyLocked()
		c.mu.Unlock()
		return snap, nerrors.ErrScanBusy
	}
	c.state = Snapshot{State: Indexing, ScanLogID: scanLogID, StartedAt: time.Now().UTC()}
	snap := c.copyLocked()
	c.mu.Unlock()

	c.cancel.Store(false)
	ctx, cancelFn := context.WithCancel(parent)
	c.cancelFn = cancelFn
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		fn(ctx, c)
	}()

	return snap, nil
}

// Cancelled reports whether the cancel flag has been set. Polled at
// directory boundaries in Phase 1 and between worker results in Phase 2.
func (c *Controller) Cancelled() bool {
	return c.cancel.Load()
}

// Cancel sets the cancel flag and cancels the scan's context, a cooperative
// signal: outstanding SMB I/O is not interrupted.
func (c *Controller) Cancel() {
	c.cancel.Store(true)
	c.taskMu.Lock()
	if c.cancelFn != nil {
		c.cancelFn()
	}
	c.taskMu.Unlock()
}

// SetPhase transitions the visible state to Enriching (from Indexing) once
// Phase 1 completes for every source.
func (c *Controller) SetPhase(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.State = s
}

// RecordWalked increments the Phase 1 counters.
func (c *Controller) RecordWalked(added, updated int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FilesScanned++
	c.state.FilesAdded += added
	c.state.FilesUpdated += updated
}

// SetRemoved records the stale-row removal count for a source.
func (c *Controller) SetRemoved(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FilesRemoved += n
}

// SetEnrichTarget records how many rows Phase 2 selected at dispatch time.
func (c *Controller) SetEnrichTarget(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.EnrichTarget = n
}

// RecordEnriched increments the Phase 2 enriched counter.
func (c *Controller) RecordEnriched() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FilesEnriched++
}

// RecordError appends a bounded error entry, keeping only the last 100.
func (c *Controller) RecordError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Errors++
	c.state.LastError = msg
	c.state.ErrorLog = append(c.state.ErrorLog, msg)
	if len(c.state.ErrorLog) > errorLogCap {
		c.state.ErrorLog = c.state.ErrorLog[len(c.state.ErrorLog)-errorLogCap:]
	}
}

// Finish transitions to a terminal state and returns the final snapshot for
// the caller to persist to the scan log.
func (c *Controller) Finish(final State) Snapshot {
	c.mu.Lock()
	c.state.State = final
	snap := c.copyLocked()
	c.mu.Unlock()
	return snap
}

// Shutdown cancels any running scan and blocks until its goroutine exits,
// or ctx expires first. This is the lifecycle controller's answer to the
// "background task should not be fire-and-forget" concern: a daemon
// shutting down can join the scan deterministically.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.taskMu.Lock()
	done := c.done
	cancelFn := c.cancelFn
	c.taskMu.Unlock()

	if done == nil {
		return nil
	}
	c.cancel.Store(true)
	if cancelFn != nil {
		cancelFn()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
