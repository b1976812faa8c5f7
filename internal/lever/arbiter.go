package lever

import (
	"context"
	"time"

	"github.com/gravewood/oubliette/internal/config"
	"github.com/gravewood/oubliette/internal/dungeon"
	"github.com/gravewood/oubliette/internal/errors"
	"github.com/gravewood/oubliette/internal/logging"
)

// Strategy selects which lever a character reaches for when the treasure
// room opens.
type Strategy int

const (
	// StrategyFirstLever waits on lever A outright.
	StrategyFirstLever Strategy = iota
	// StrategySecondThenFirst tries lever B without waiting, then falls
	// back to waiting on lever A. With one character playing each
	// strategy plus the collector, at most two holders ever coexist and
	// the fallback path never deadlocks.
	StrategySecondThenFirst
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyFirstLever:
		return "first-lever"
	case StrategySecondThenFirst:
		return "second-then-first"
	default:
		return "unknown"
	}
}

// Arbiter plays one character's side of the treasure-room protocol: take a
// lever per the strategy, hold it while polling for the collection to
// finish, then let go.
type Arbiter struct {
	state    *dungeon.State
	leverA   *Semaphore
	leverB   *Semaphore
	strategy Strategy
	poll     time.Duration
	log      *logging.Logger
}

// NewArbiter returns an arbiter for one character over the two shared levers.
func NewArbiter(state *dungeon.State, leverA, leverB *Semaphore, strategy Strategy, cfg *config.Config, log *logging.Logger) *Arbiter {
	return &Arbiter{
		state:    state,
		leverA:   leverA,
		leverB:   leverB,
		strategy: strategy,
		poll:     cfg.Lever.HoldPollInterval(),
		log:      log,
	}
}

// HoldUntilCollected acquires a lever per the arbiter's strategy, holds it
// until the spoils are complete or the dungeon stops running, and releases
// it. The lever is released on every return path, including cancellation.
func (a *Arbiter) HoldUntilCollected(ctx context.Context) error {
	lever, err := a.acquire(ctx)
	if err != nil {
		return err
	}
	a.log.Info("holding lever", "lever", lever.Name())

	defer func() {
		if rerr := lever.Release(); rerr != nil {
			a.log.Error("lever release failed", "lever", lever.Name(), "error", rerr)
		} else {
			a.log.Info("released lever", "lever", lever.Name())
		}
	}()

	for a.state.Running() && !a.state.SpoilsComplete() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.poll):
		}
	}
	return nil
}

func (a *Arbiter) acquire(ctx context.Context) (*Semaphore, error) {
	if a.strategy == StrategySecondThenFirst {
		err := a.leverB.TryAcquire()
		if err == nil {
			return a.leverB, nil
		}
		if !errors.Is(err, errors.ErrLeverHeld) {
			return nil, err
		}
		a.log.Debug("second lever busy, falling back", "lever", a.leverB.Name())
	}
	if err := a.leverA.Acquire(ctx); err != nil {
		return nil, err
	}
	return a.leverA, nil
}
