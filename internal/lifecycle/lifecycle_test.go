package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasindex/nasindex/internal/nerrors"
)

func TestStartRejectsWhileRunning(t *testing.T) {
	c := New()
	started := make(chan struct{})
	release := make(chan struct{})

	_, err := c.Start(context.Background(), 1, func(ctx context.Context, ctl *Controller) {
		close(started)
		<-release
	})
	require.NoError(t, err)
	<-started

	_, err = c.Start(context.Background(), 2, func(ctx context.Context, ctl *Controller) {})
	kind, ok := nerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, nerrors.EScanBusy, kind)

	close(release)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	c := New()
	c.RecordError("boom")
	snap := c.Snapshot()
	snap.ErrorLog[0] = "mutated"

	fresh := c.Snapshot()
	assert.Equal(t, "boom", fresh.ErrorLog[0])
}

func TestErrorLogCapped(t *testing.T) {
	c := New()
	for i := 0; i < errorLogCap+10; i++ {
		c.RecordError("err")
	}
	snap := c.Snapshot()
	assert.Len(t, snap.ErrorLog, errorLogCap)
	assert.Equal(t, errorLogCap+10, snap.Errors)
}

func TestCancelStopsScan(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	wg.Add(1)
	_, err := c.Start(context.Background(), 1, func(ctx context.Context, ctl *Controller) {
		defer wg.Done()
		<-ctx.Done()
	})
	require.NoError(t, err)

	c.Cancel()
	wg.Wait()
	assert.True(t, c.Cancelled())
}

func TestShutdownJoinsScan(t *testing.T) {
	c := New()
	_, err := c.Start(context.Background(), 1, func(ctx context.Context, ctl *Controller) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))
}

func TestStartAllowedAfterCompletion(t *testing.T) {
	c := New()
	_, err := c.Start(context.Background(), 1, func(ctx context.Context, ctl *Controller) {
		ctl.Finish(Completed)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.Snapshot().State == Completed
	}, time.Second, time.Millisecond)

	_, err = c.Start(context.Background(), 2, func(ctx context.Context, ctl *Controller) {})
	assert.NoError(t, err)
}
