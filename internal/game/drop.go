// internal/game/drop.go
//
// Drop resolution: hit-test a released drag against the central receiver and
// hand hits to the scoring path.

package game

import (
	"context"
	"math"
)

// Receiver is the central drop target.
type Receiver struct {
	X, Y      float64
	HitRadius float64
}

// Hit reports whether (x, y) lands strictly inside the hit radius.
func (r Receiver) Hit(x, y float64) bool {
	return math.Hypot(x-r.X, y-r.Y) < r.HitRadius
}

// ResolveDrop resolves a drag that ended at (x, y). Drops outside the
// receiver leave the word live. Inside, the word is removed and scored once;
// repeated or stale ids are ignored.
func (s *Session) ResolveDrop(ctx context.Context, id string, x, y float64) (DropResult, bool) {
	if !s.receiver.Hit(x, y) {
		return DropResult{}, false
	}
	return s.ProcessDrop(ctx, id)
}
