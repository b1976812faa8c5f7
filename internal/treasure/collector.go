// Package treasure implements the rogue's side of the treasure room:
// collecting the revealed bytes into the shared spoils buffer, strictly in
// order, inside the window the room stays open.
package treasure

import (
	"context"
	"time"

	"github.com/gravewood/oubliette/internal/config"
	"github.com/gravewood/oubliette/internal/dungeon"
	"github.com/gravewood/oubliette/internal/errors"
	"github.com/gravewood/oubliette/internal/logging"
)

// Collector copies treasure bytes into the spoils buffer as the orchestrator
// reveals them. Bytes are collected in index order 0..3 with no gaps; writing
// the final byte is what tells the lever holders to let go, so it is never
// written early.
type Collector struct {
	state  *dungeon.State
	log    *logging.Logger
	window time.Duration
	poll   time.Duration
}

// NewCollector returns a collector over the shared block.
func NewCollector(state *dungeon.State, cfg *config.Config, log *logging.Logger) *Collector {
	return &Collector{
		state:  state,
		log:    log,
		window: cfg.Treasure.Window(),
		poll:   cfg.Treasure.PollInterval(),
	}
}

// Collect runs one collection episode. It clears the spoils, then polls the
// treasure positions in order, copying each byte as it appears. It returns
// the collected bytes along with nil once all positions are filled, a
// timeout error if the room's window closes first, and ctx's error on
// cancellation. A partial collection is returned with the error.
func (c *Collector) Collect(ctx context.Context) ([]byte, error) {
	c.state.ClearSpoils()

	deadline := time.Now().Add(c.window)
	next := 0

	for next < dungeon.TreasureSize {
		if !c.state.Running() {
			return c.state.Spoils(), errors.ErrNotRunning
		}
		if err := ctx.Err(); err != nil {
			return c.state.Spoils(), err
		}
		if time.Now().After(deadline) {
			c.log.Warn("treasure window closed", "collected", next)
			return c.state.Spoils(), errors.NewTimeoutError("collect treasure", c.window)
		}

		b := c.state.Treasure(next)
		if b == 0 {
			time.Sleep(c.poll)
			continue
		}

		c.state.SetSpoil(next, b)
		c.log.Debug("collected spoil", "index", next, "value", string(b))
		next++
	}

	spoils := c.state.Spoils()
	c.log.Info("all spoils collected", "spoils", string(spoils))
	return spoils, nil
}
