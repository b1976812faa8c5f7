// Package character implements the worker runtime shared by the three
// dungeon characters. A character attaches to the shared block, opens the
// levers, registers its role's handlers on the signal bus, and then drains
// events until shutdown.
package character

import (
	"context"
	"os"

	"github.com/gravewood/oubliette/internal/config"
	"github.com/gravewood/oubliette/internal/dungeon"
	"github.com/gravewood/oubliette/internal/errors"
	"github.com/gravewood/oubliette/internal/event"
	"github.com/gravewood/oubliette/internal/lever"
	"github.com/gravewood/oubliette/internal/logging"
	"github.com/gravewood/oubliette/internal/sigbus"
	"github.com/gravewood/oubliette/internal/spell"
	"github.com/gravewood/oubliette/internal/trap"
	"github.com/gravewood/oubliette/internal/treasure"
)

// Role identifies which character a worker process plays.
type Role string

const (
	// RoleBarbarian answers attack challenges and waits on the first lever.
	RoleBarbarian Role = "barbarian"
	// RoleWizard decodes barrier spells and tries the second lever before
	// falling back to the first.
	RoleWizard Role = "wizard"
	// RoleRogue disarms traps and collects the treasure.
	RoleRogue Role = "rogue"
)

// Roles lists all worker roles in spawn order.
func Roles() []Role {
	return []Role{RoleBarbarian, RoleWizard, RoleRogue}
}

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleBarbarian, RoleWizard, RoleRogue:
		return true
	}
	return false
}

// Character is one worker's runtime. Create it with New, then call Run once;
// Run owns attachment, the event loop, and cleanup.
type Character struct {
	role Role
	cfg  *config.Config
	log  *logging.Logger
	bus  *event.Bus

	state  *dungeon.State
	leverA *lever.Semaphore
	leverB *lever.Semaphore

	solver    *trap.Solver
	collector *treasure.Collector
	arbiter   *lever.Arbiter
}

// New returns a character for the given role. The event bus receives
// in-process notifications of the character's progress; pass nil to discard
// them.
func New(role Role, cfg *config.Config, log *logging.Logger, bus *event.Bus) (*Character, error) {
	if !role.Valid() {
		return nil, errors.NewProtocolError("new character", string(role), errors.ErrInvalidInput)
	}
	if bus == nil {
		bus = event.NewBus()
	}
	return &Character{
		role: role,
		cfg:  cfg,
		log:  log.WithRole(string(role)).WithPID(os.Getpid()),
		bus:  bus,
	}, nil
}

// Run attaches to the dungeon, plays the role until shutdown, and cleans up.
// It blocks until a Shutdown event arrives or ctx is canceled.
func (c *Character) Run(ctx context.Context) error {
	// The bus is created before attaching so a shutdown broadcast racing
	// our startup is queued instead of killing the process.
	sb := sigbus.New()

	if err := c.attach(ctx); err != nil {
		return err
	}
	defer c.cleanup()

	c.register(ctx, sb)

	if c.role == RoleRogue {
		// The orchestrator judges this opening probe when it arms the
		// first trap.
		c.solver.InitialPick()
	}

	c.log.Info("character ready", "block", c.state.Path())
	err := sb.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// attach connects to the shared block and opens both levers, retrying the
// block attach while the orchestrator is still setting up.
func (c *Character) attach(ctx context.Context) error {
	dir := c.runtimeDir()

	attachCtx, cancel := context.WithTimeout(ctx, c.cfg.Lifecycle.AttachTimeout())
	defer cancel()

	state, err := dungeon.AttachRetry(attachCtx, dir, c.cfg.Runtime.BlockName, c.cfg.Lifecycle.AttachRetry())
	if err != nil {
		return err
	}
	c.state = state

	leverA, err := lever.Open(dir, c.cfg.Runtime.LeverAName)
	if err != nil {
		c.state.Detach()
		return err
	}
	leverB, err := lever.Open(dir, c.cfg.Runtime.LeverBName)
	if err != nil {
		leverA.Close()
		c.state.Detach()
		return err
	}
	c.leverA, c.leverB = leverA, leverB

	switch c.role {
	case RoleBarbarian:
		c.arbiter = lever.NewArbiter(c.state, c.leverA, c.leverB, lever.StrategyFirstLever, c.cfg, c.log)
	case RoleWizard:
		c.arbiter = lever.NewArbiter(c.state, c.leverA, c.leverB, lever.StrategySecondThenFirst, c.cfg, c.log)
	case RoleRogue:
		c.solver = trap.NewSolver(c.state, c.cfg, c.log)
		c.collector = treasure.NewCollector(c.state, c.cfg, c.log)
	}
	return nil
}

func (c *Character) runtimeDir() string {
	if c.cfg.Runtime.Dir != "" {
		return c.cfg.Runtime.Dir
	}
	return dungeon.DefaultDir()
}

// register wires the role's challenge and lever handlers onto the bus.
func (c *Character) register(ctx context.Context, sb *sigbus.Bus) {
	sb.Handle(sigbus.ChallengePosted, func(hctx context.Context, _ sigbus.Kind) {
		c.onChallenge(hctx)
	})
	sb.Handle(sigbus.LeverCall, func(hctx context.Context, _ sigbus.Kind) {
		c.onLeverCall(hctx)
	})
	sb.Handle(sigbus.Shutdown, func(context.Context, sigbus.Kind) {
		c.log.Info("shutdown requested")
	})
}

// onChallenge answers the role's challenge kind using the shared block.
func (c *Character) onChallenge(ctx context.Context) {
	if !c.state.Running() {
		return
	}

	switch c.role {
	case RoleBarbarian:
		// The attack challenge: strike with exactly the enemy's health.
		health := c.state.EnemyHealth()
		c.state.SetAttackValue(health)
		c.log.Info("attack landed", "attack", health)
		c.bus.Publish(event.NewAttackLandedEvent(health))

	case RoleWizard:
		decoded := spell.Decode(c.state.EncodedSpell())
		if err := c.state.SetDecodedSpell(decoded); err != nil {
			c.log.Error("spell publish failed", "error", err)
			return
		}
		c.log.Info("spell decoded", "decoded", string(decoded))
		c.bus.Publish(event.NewSpellDecodedEvent(string(decoded), true))

	case RoleRogue:
		err := c.solver.Pick(ctx)
		unlocked := !c.state.TrapLocked()
		if err != nil {
			c.log.Warn("trap episode ended", "error", err, "unlocked", unlocked)
		} else {
			c.log.Info("trap episode ended", "unlocked", unlocked)
		}
		c.bus.Publish(event.NewTrapResolvedEvent(unlocked, c.state.Guess(), c.solver.Rounds()))
	}
}

// onLeverCall plays the treasure room: the rogue collects while the other
// two hold levers.
func (c *Character) onLeverCall(ctx context.Context) {
	if !c.state.Running() {
		return
	}

	if c.role == RoleRogue {
		spoils, err := c.collector.Collect(ctx)
		if err != nil {
			c.log.Warn("collection ended early", "error", err, "spoils", string(spoils))
		}
		c.bus.Publish(event.NewSpoilsCollectedEvent(string(spoils), err == nil))
		return
	}

	if err := c.arbiter.HoldUntilCollected(ctx); err != nil {
		c.log.Warn("lever hold ended early", "error", err)
	}
}

// cleanup closes the lever handles and detaches from the block. The
// orchestrator owns destruction; workers only drop their handles.
func (c *Character) cleanup() {
	if c.leverB != nil {
		if err := c.leverB.Close(); err != nil {
			c.log.Error("lever close failed", "lever", c.leverB.Name(), "error", err)
		}
	}
	if c.leverA != nil {
		if err := c.leverA.Close(); err != nil {
			c.log.Error("lever close failed", "lever", c.leverA.Name(), "error", err)
		}
	}
	if c.state != nil {
		if err := c.state.Detach(); err != nil {
			c.log.Error("detach failed", "error", err)
		}
	}
	c.log.Info("character stopped")
}
