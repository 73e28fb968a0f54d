package smbfs

import (
	"math/rand"
	"time"

	"github.com/nasindex/nasindex/internal/nerrors"
)

// pacer retries a dial/mount attempt with exponential backoff between
// minSleep and maxSleep. Its source, lib/pacer, wasn't present in the
// retrieval pack (only lib/pacer_test.go was); it is regrounded here from
// the retry behavior connpool.go's getConnection exercises via f.pacer.Call:
// exponential growth decayed back down on success, retried only for
// transient failures.
type pacer struct {
	minSleep, maxSleep time.Duration
	decayConstant      uint
	sleep              time.Duration
}

func newPacer(minSleep, maxSleep time.Duration, decayConstant uint) *pacer {
	return &pacer{minSleep: minSleep, maxSleep: maxSleep, decayConstant: decayConstant, sleep: minSleep}
}

// call runs fn, retrying while it returns a transient nerrors.Error, up to
// maxAttempts times.
func (p *pacer) call(maxAttempts int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(p.sleep)
			p.grow()
		}
		err := fn()
		if err == nil {
			p.shrink()
			return nil
		}
		lastErr = err
		if kind, ok := nerrors.KindOf(err); !ok || kind != nerrors.ETransient {
			return err
		}
	}
	return lastErr
}

func (p *pacer) grow() {
	p.sleep = p.sleep*2 + time.Duration(rand.Int63n(int64(p.sleep)+1))
	if p.sleep > p.maxSleep {
		p.sleep = p.maxSleep
	}
}

func (p *pacer) shrink() {
	if p.decayConstant == 0 {
		p.sleep = p.minSleep
		return
	}
	p.sleep -= p.sleep / time.Duration(p.decayConstant)
	if p.sleep < p.minSleep {
		p.sleep = p.minSleep
	}
}
