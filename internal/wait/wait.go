// Package wait provides context-aware sleeping for poll loops and protocol
// pauses. Timers are pooled because motion polling allocates one per tick.
package wait

import (
	"context"
	"sync"
	"time"
)

var timerPool = sync.Pool{
	New: func() any {
		t := time.NewTimer(time.Hour)
		t.Stop()

		return t
	},
}

// Sleep blocks for d or until ctx is done, whichever comes first.
// It returns true when the full duration elapsed and false when the context
// was canceled.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := timerPool.Get().(*time.Timer)
	t.Reset(d)

	defer func() {
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}

		timerPool.Put(t)
	}()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
