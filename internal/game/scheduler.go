// internal/game/scheduler.go
//
// Deferred-callback seam for level advancement delays. Production uses real
// timers; tests queue callbacks and run them on demand.

package game

import "time"

// Scheduler runs f once after d. Implementations must not call f synchronously.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// WallClock schedules on real timers.
var WallClock Scheduler = wallClock{}
