package master

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/gravewood/oubliette/internal/event"
	"github.com/gravewood/oubliette/internal/logging"
	"github.com/gravewood/oubliette/internal/spell"
	"github.com/gravewood/oubliette/internal/trap"
	"github.com/gravewood/oubliette/internal/treasure"
)

// simWorkers plays all three characters in-process against the master's
// shared block, reacting to state changes instead of signals.
func simWorkers(ctx context.Context, m *Master) {
	st := m.State()
	cfg := m.Config()
	log := logging.NopLogger()

	// Barbarian: answer any posted enemy with a matching attack.
	go func() {
		for ctx.Err() == nil {
			if h := st.EnemyHealth(); h != 0 && st.AttackValue() != h {
				st.SetAttackValue(h)
			}
			time.Sleep(time.Millisecond)
		}
	}()

	// Wizard: keep the decoded buffer matching the posted cipher text.
	go func() {
		for ctx.Err() == nil {
			if enc := st.EncodedSpell(); len(enc) > 0 {
				dec := spell.Decode(enc)
				if !bytes.Equal(st.DecodedSpell(), dec) {
					st.SetDecodedSpell(dec)
				}
			}
			time.Sleep(time.Millisecond)
		}
	}()

	// Rogue: solve any armed trap, collect any revealed treasure.
	go func() {
		solver := trap.NewSolver(st, cfg, log)
		collector := treasure.NewCollector(st, cfg, log)
		for ctx.Err() == nil {
			if st.TrapLocked() {
				solver.Pick(ctx)
			}
			if st.Treasure(0) != 0 && !st.SpoilsComplete() {
				collector.Collect(ctx)
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func TestScenarioDriverFullRun(t *testing.T) {
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no true binary on PATH")
	}

	m, rec := testMaster(t)
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	// Placeholder processes give the driver worker PIDs to signal; the
	// actual responses come from the in-process sims.
	m.binary = truePath
	if err := m.Spawn(context.Background()); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	simWorkers(ctx, m)

	d := NewScenarioDriver(logging.NopLogger(), 1)
	d.Rounds = 2
	d.Poll = time.Millisecond

	if err := m.Run(ctx, d); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cancel()

	if got := rec.count("attack.landed"); got != d.Rounds {
		t.Errorf("attack.landed events = %d, want %d", got, d.Rounds)
	}
	if got := rec.count("spell.decoded"); got != d.Rounds {
		t.Errorf("spell.decoded events = %d, want %d", got, d.Rounds)
	}

	traps := rec.all("trap.resolved")
	if len(traps) != d.Rounds {
		t.Fatalf("trap.resolved events = %d, want %d", len(traps), d.Rounds)
	}
	for _, e := range traps {
		if !e.(event.TrapResolvedEvent).Unlocked {
			t.Errorf("trap not unlocked: %+v", e)
		}
	}

	spoils := rec.all("spoils.collected")
	if len(spoils) != 1 {
		t.Fatalf("spoils.collected events = %d, want 1", len(spoils))
	}
	if e := spoils[0].(event.SpoilsCollectedEvent); !e.Complete || len(e.Spoils) != 4 {
		t.Errorf("collection incomplete: %+v", e)
	}

	// Run already tore down; the block must be gone.
	if got := rec.count("teardown.step"); got == 0 {
		t.Error("no teardown steps after Run")
	}
}

func TestScenarioDriverTrapTimeout(t *testing.T) {
	m, rec := testMaster(t)
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	m.cfg.Trap.SecondsToPick = 0.05

	// No rogue responds, so judging must give up within the pick window
	// and disarm the trap.
	d := NewScenarioDriver(logging.NopLogger(), 1)
	d.Poll = time.Millisecond

	// Raise succeeds against a placeholder worker list.
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no true binary on PATH")
	}
	m.binary = truePath
	if err := m.Spawn(context.Background()); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if err := d.trapChallenge(context.Background(), m); err == nil {
		t.Fatal("trapChallenge succeeded with no solver")
	}
	if m.State().TrapLocked() {
		t.Error("trap left armed after timeout")
	}

	traps := rec.all("trap.resolved")
	if len(traps) != 1 || traps[0].(event.TrapResolvedEvent).Unlocked {
		t.Errorf("trap.resolved = %+v, want one failed episode", traps)
	}
}
