package utils

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// BatchMute throttles events by limiting count per interval.
type BatchMute struct {
	lock          sync.Mutex
	clock         clock.Clock
	batchTime     time.Time
	resetInterval time.Duration
	ctr           int
	max           int
}

func (b *BatchMute) increment(val int, t time.Time) (muted bool, skipped int) {

	if b.max == 0 || b.resetInterval == 0 {
		return muted, skipped
	}

	if t.Sub(b.batchTime) > b.resetInterval {
		if b.ctr > b.max {
			skipped = b.ctr - b.max
		}
		b.ctr = 0
		b.batchTime = t
	}
	b.ctr += val

	return b.ctr > b.max, skipped
}

// Increment records a single event and reports whether it should be muted.
// skipped is the number of events muted in the previous interval, reported
// once on the first event of a new interval.
func (b *BatchMute) Increment() (muting bool, skipped int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.increment(1, b.clock.Now())
}

// NewBatchMute creates a BatchMute with a reset interval and max count.
// A zero interval or max disables muting.
func NewBatchMute(clk clock.Clock, resetInterval time.Duration, max int) *BatchMute {
	if clk == nil {
		clk = clock.New()
	}
	return &BatchMute{
		clock:         clk,
		batchTime:     clk.Now(),
		resetInterval: resetInterval,
		max:           max,
	}
}
