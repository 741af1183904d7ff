// Package safego provides a panic-recovering launcher for background goroutines.
package safego

import "log/slog"

// Go runs fn in a new goroutine, recovering and logging any panic instead of
// crashing the process. Use it for fire-and-forget background work (metrics
// collection, cleanup loops) where an unrecovered panic would otherwise kill
// the goroutine silently and permanently.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "panic", r)
			}
		}()
		fn()
	}()
}
