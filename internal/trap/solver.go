// Package trap implements the converging numeric search that disarms locked
// traps. The orchestrator hides a threshold inside [0, maxAngle] and answers
// each probe with too-low or too-high feedback through the shared block; the
// solver halves the candidate interval until the feedback turns to unlocked
// or the interval collapses below Epsilon.
package trap

import (
	"context"
	"time"

	"github.com/gravewood/oubliette/internal/config"
	"github.com/gravewood/oubliette/internal/dungeon"
	"github.com/gravewood/oubliette/internal/errors"
	"github.com/gravewood/oubliette/internal/logging"
)

// Epsilon is the interval width below which the search stops probing.
// Feedback finer than this is indistinguishable from float noise.
const Epsilon = 1e-6

// Solver converges on the hidden trap threshold by binary search over the
// shared block's feedback field. Bounds persist across episodes so a repeated
// signal for the same trap resumes where the last one left off; a feedback
// value that does not belong to an ongoing search resets them.
//
// A Solver is confined to its owning goroutine. Cross-process coordination
// happens entirely through the shared block's atomic fields.
type Solver struct {
	state *dungeon.State
	log   *logging.Logger

	maxAngle float64
	deadline time.Duration
	poll     time.Duration

	low    float64
	high   float64
	rounds int
}

// NewSolver returns a solver over the full pick range configured in cfg.
func NewSolver(state *dungeon.State, cfg *config.Config, log *logging.Logger) *Solver {
	s := &Solver{
		state:    state,
		log:      log,
		maxAngle: cfg.Trap.MaxPickAngle,
		deadline: cfg.Trap.PickDeadline(),
		poll:     cfg.Trap.TrapPollInterval(),
	}
	s.reset()
	return s
}

// Bounds returns the current candidate interval.
func (s *Solver) Bounds() (low, high float64) {
	return s.low, s.high
}

// Rounds returns the number of probes submitted during the last episode.
func (s *Solver) Rounds() int {
	return s.rounds
}

func (s *Solver) reset() {
	s.low = 0
	s.high = s.maxAngle
}

// Pick runs one solving episode. It returns nil once the trap unlocks, the
// interval collapses, or the trap is found already disarmed, and a timeout
// error if the episode's wall-clock budget runs out first. Cancellation of
// ctx ends the episode early with ctx's error.
func (s *Solver) Pick(ctx context.Context) error {
	if !s.state.TrapLocked() {
		// Signal arrived for a trap that is already open; make sure the
		// next episode starts from the full interval.
		s.reset()
		return nil
	}

	// A direction outside the ongoing-search values means this signal
	// opens a fresh trap, not more feedback for the previous one.
	switch s.state.TrapDirection() {
	case dungeon.DirectionTooLow, dungeon.DirectionTooHigh, dungeon.DirectionUnlocked:
	default:
		s.reset()
	}

	deadline := time.Now().Add(s.deadline)
	s.rounds = 0
	s.log.Debug("trap episode started", "low", s.low, "high", s.high)

	for s.state.TrapLocked() && s.state.Running() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			s.log.Warn("trap episode timed out", "low", s.low, "high", s.high)
			return errors.NewTimeoutError("pick trap", s.deadline)
		}

		switch dir := s.state.TrapDirection(); dir {
		case dungeon.DirectionUnlocked:
			s.reset()
			return nil
		case dungeon.DirectionTooLow, dungeon.DirectionTooHigh:
			guess := s.state.Guess()
			if dir == dungeon.DirectionTooLow {
				if guess > s.low {
					s.low = guess
				}
			} else {
				if guess < s.high {
					s.high = guess
				}
			}

			if s.high-s.low <= Epsilon {
				s.log.Debug("trap interval collapsed", "low", s.low, "high", s.high)
				if !s.state.TrapLocked() {
					s.reset()
				}
				return nil
			}

			next := s.low + (s.high-s.low)/2
			s.state.SubmitGuess(next)
			s.rounds++
			s.log.Debug("trap guess submitted", "guess", next)
		case dungeon.DirectionNone:
			// Freshly armed trap with no feedback yet: open with the
			// midpoint of the current interval.
			s.state.SubmitGuess(s.low + (s.high-s.low)/2)
			s.rounds++
		default:
			// GuessSubmitted: the orchestrator has not judged the last
			// probe yet.
			time.Sleep(s.poll)
		}
	}

	if !s.state.TrapLocked() {
		s.reset()
	}
	return nil
}

// InitialPick writes the opening probe, the midpoint of the full range, and
// announces it. The orchestrator expects this before the first trap signal.
func (s *Solver) InitialPick() {
	s.state.SubmitGuess(s.maxAngle / 2)
}
