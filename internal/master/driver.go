package master

import (
	"bytes"
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gravewood/oubliette/internal/character"
	"github.com/gravewood/oubliette/internal/dungeon"
	"github.com/gravewood/oubliette/internal/errors"
	"github.com/gravewood/oubliette/internal/event"
	"github.com/gravewood/oubliette/internal/logging"
	"github.com/gravewood/oubliette/internal/sigbus"
	"github.com/gravewood/oubliette/internal/spell"
	"github.com/gravewood/oubliette/internal/trap"
)

// Driver runs the orchestrator's side of the game over a set-up master.
type Driver interface {
	Run(ctx context.Context, m *Master) error
}

// spellBook holds the plaintexts the scenario driver draws barriers from.
var spellBook = []string{
	"Open Sesame",
	"Mellon",
	"Speak Friend",
	"Azarath Metrion",
}

// treasureHoard holds the four-byte treasures the scenario driver reveals.
var treasureHoard = []string{"GOLD", "GEMS", "RUBY", "COIN"}

// ScenarioDriver plays a scripted run: a number of rounds of attack,
// barrier, and trap challenges, then one treasure room. Values are drawn
// from a seeded generator so runs are reproducible.
type ScenarioDriver struct {
	// Rounds is the number of challenge rounds before the treasure room.
	Rounds int
	// Timeout bounds the wait for each worker response.
	Timeout time.Duration
	// Poll is the cadence for re-reading the shared block while waiting.
	Poll time.Duration

	log *logging.Logger
	rng *rand.Rand
}

// NewScenarioDriver returns a driver with the standard schedule. The same
// seed replays the same challenge values.
func NewScenarioDriver(log *logging.Logger, seed uint64) *ScenarioDriver {
	return &ScenarioDriver{
		Rounds:  3,
		Timeout: 5 * time.Second,
		Poll:    5 * time.Millisecond,
		log:     log.With("component", "driver"),
		rng:     rand.New(rand.NewPCG(seed, seed)),
	}
}

// Run plays the scripted schedule. Challenge failures are logged and
// reported on the bus but do not stop the run; only cancellation does.
func (d *ScenarioDriver) Run(ctx context.Context, m *Master) error {
	for round := 1; round <= d.Rounds; round++ {
		d.log.Info("round started", "round", round)

		if err := d.attackChallenge(ctx, m); err != nil {
			if ctxDone(err) {
				return err
			}
			d.log.Warn("attack challenge failed", "round", round, "error", err)
		}
		if err := d.barrierChallenge(ctx, m); err != nil {
			if ctxDone(err) {
				return err
			}
			d.log.Warn("barrier challenge failed", "round", round, "error", err)
		}
		if err := d.trapChallenge(ctx, m); err != nil {
			if ctxDone(err) {
				return err
			}
			d.log.Warn("trap challenge failed", "round", round, "error", err)
		}
	}

	if err := d.treasureRoom(ctx, m); err != nil {
		if ctxDone(err) {
			return err
		}
		d.log.Warn("treasure room failed", "error", err)
	}
	return nil
}

func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// wait polls until ok reports true, the driver timeout passes, or ctx is
// canceled.
func (d *ScenarioDriver) wait(ctx context.Context, op string, ok func() bool) error {
	return d.waitFor(ctx, op, d.Timeout, ok)
}

func (d *ScenarioDriver) waitFor(ctx context.Context, op string, timeout time.Duration, ok func() bool) error {
	deadline := time.Now().Add(timeout)
	for !ok() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return errors.NewTimeoutError(op, timeout)
		}
		time.Sleep(d.Poll)
	}
	return nil
}

// attackChallenge posts an enemy and waits for the barbarian to strike with
// exactly its health.
func (d *ScenarioDriver) attackChallenge(ctx context.Context, m *Master) error {
	st := m.State()
	health := int32(d.rng.IntN(999) + 1)
	st.SetAttackValue(0)
	st.SetEnemyHealth(health)

	m.Bus().Publish(event.NewChallengePostedEvent(string(character.RoleBarbarian), "attack"))
	if err := m.Raise(character.RoleBarbarian, sigbus.ChallengePosted); err != nil {
		return err
	}

	err := d.wait(ctx, "await attack", func() bool { return st.AttackValue() == health })
	if err != nil {
		return err
	}
	d.log.Info("attack landed", "health", health)
	m.Bus().Publish(event.NewAttackLandedEvent(st.AttackValue()))
	return nil
}

// barrierChallenge posts an encoded spell and waits for the wizard's
// decoding to match the plaintext.
func (d *ScenarioDriver) barrierChallenge(ctx context.Context, m *Master) error {
	st := m.State()
	plain := []byte(spellBook[d.rng.IntN(len(spellBook))])
	key := byte(d.rng.IntN(25) + 1)

	if err := st.SetDecodedSpell(nil); err != nil {
		return err
	}
	if err := st.SetEncodedSpell(spell.Encode(key, plain)); err != nil {
		return err
	}

	m.Bus().Publish(event.NewChallengePostedEvent(string(character.RoleWizard), "barrier"))
	if err := m.Raise(character.RoleWizard, sigbus.ChallengePosted); err != nil {
		return err
	}

	err := d.wait(ctx, "await decode", func() bool {
		return bytes.Equal(st.DecodedSpell(), plain)
	})
	if err != nil {
		return err
	}
	d.log.Info("barrier opened", "spell", string(plain), "key", key)
	m.Bus().Publish(event.NewSpellDecodedEvent(string(st.DecodedSpell()), true))
	return nil
}

// trapChallenge arms a trap with a hidden threshold and judges the rogue's
// probes until one lands within epsilon.
func (d *ScenarioDriver) trapChallenge(ctx context.Context, m *Master) error {
	st := m.State()
	threshold := d.rng.Float64() * m.Config().Trap.MaxPickAngle

	st.SetTrapDirection(dungeon.DirectionNone)
	st.SetTrapLocked(true)

	m.Bus().Publish(event.NewChallengePostedEvent(string(character.RoleRogue), "trap"))
	if err := m.Raise(character.RoleRogue, sigbus.ChallengePosted); err != nil {
		st.SetTrapLocked(false)
		return err
	}

	rounds := 0
	deadline := time.Now().Add(m.Config().Trap.PickWindow())
	for {
		if err := ctx.Err(); err != nil {
			st.SetTrapLocked(false)
			return err
		}
		if time.Now().After(deadline) {
			st.SetTrapLocked(false)
			m.Bus().Publish(event.NewTrapResolvedEvent(false, st.Guess(), rounds))
			return errors.NewTimeoutError("judge trap", m.Config().Trap.PickWindow())
		}
		if st.TrapDirection() != dungeon.DirectionGuessSubmitted {
			time.Sleep(d.Poll)
			continue
		}

		rounds++
		guess := st.Guess()
		switch {
		case math.Abs(guess-threshold) <= trap.Epsilon:
			st.SetTrapLocked(false)
			st.SetTrapDirection(dungeon.DirectionUnlocked)
			d.log.Info("trap disarmed", "threshold", threshold, "rounds", rounds)
			m.Bus().Publish(event.NewTrapResolvedEvent(true, guess, rounds))
			return nil
		case guess < threshold:
			st.SetTrapDirection(dungeon.DirectionTooLow)
		default:
			st.SetTrapDirection(dungeon.DirectionTooHigh)
		}
	}
}

// treasureRoom calls the lever holders first, then the rogue, and reveals
// the treasure one byte per tick while the collection runs.
func (d *ScenarioDriver) treasureRoom(ctx context.Context, m *Master) error {
	st := m.State()
	hoard := []byte(treasureHoard[d.rng.IntN(len(treasureHoard))])

	st.ClearTreasure()
	st.ClearSpoils()

	// Holders are summoned before the collector so the levers are taken
	// when the collection starts.
	if err := m.Raise(character.RoleBarbarian, sigbus.LeverCall); err != nil {
		return err
	}
	if err := m.Raise(character.RoleWizard, sigbus.LeverCall); err != nil {
		return err
	}
	time.Sleep(m.Config().Lifecycle.SpawnGrace())
	if err := m.Raise(character.RoleRogue, sigbus.LeverCall); err != nil {
		return err
	}

	tick := m.Config().Treasure.PollInterval()
	for i, b := range hoard {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tick):
		}
		st.RevealTreasure(i, b)
		d.log.Debug("treasure revealed", "index", i)
	}

	window := maxDuration(d.Timeout, m.Config().Treasure.Window())
	err := d.waitFor(ctx, "await spoils", window, st.SpoilsComplete)
	complete := err == nil
	m.Bus().Publish(event.NewSpoilsCollectedEvent(string(st.Spoils()), complete))
	if err != nil {
		return err
	}
	d.log.Info("treasure collected", "spoils", string(st.Spoils()))
	return nil
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
