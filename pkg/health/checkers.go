package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck returns a CheckFunc that fails once the number of live
// goroutines exceeds threshold. Intended as a liveness check for goroutine
// leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck returns a CheckFunc that fails when the most recent
// stop-the-world GC pause exceeded threshold. Intended as a liveness check
// for memory pressure. Only the latest pause is considered.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		if len(stats.Pause) > 0 && stats.Pause[0] > threshold {
			return errors.Errorf("GC pause %s exceeds threshold %s", stats.Pause[0], threshold)
		}
		return nil
	}
}
