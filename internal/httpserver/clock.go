// internal/httpserver/clock.go
//
// Server clock for all live sessions.
// Responsibilities:
//   - Tick every registered session once per interval (one game second).
//   - Evict sessions idle for longer than the idle TTL and quit them, so
//     abandoned sessions stop costing memory and tick work.

package httpserver

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantic-signal/internal/game"
	"github.com/robalobadob/semantic-signal/internal/store"
)

// Clock ticks every registered session once per interval.
type Clock struct {
	store    store.Store
	interval time.Duration
	idle     time.Duration
}

// NewClock returns a clock over st. A non-positive interval means one second;
// a non-positive idle disables eviction.
func NewClock(st store.Store, interval, idle time.Duration) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{store: st, interval: interval, idle: idle}
}

// Run ticks until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.TickAll(ctx); n > 0 {
				log.Debug().Int("ended", n).Msg("clock tick ended games")
			}
		}
	}
}

// TickAll evicts idle sessions, then ticks the rest once. It returns how
// many games the tick ended.
func (c *Clock) TickAll(ctx context.Context) int {
	if c.idle > 0 {
		for _, s := range c.store.Evict(c.idle) {
			s.Quit()
			log.Info().Str("session", s.ID()).Dur("idle", c.idle).Msg("session evicted")
		}
	}
	ended := 0
	c.store.Each(func(s *game.Session) {
		if s.Tick(ctx) {
			ended++
		}
	})
	return ended
}
