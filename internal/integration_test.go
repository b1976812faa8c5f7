// Package internal contains integration tests that verify the packages work
// together: characters attached to a live block, driven by real signals,
// against the master's resource lifecycle.
package internal

import (
	"bytes"
	"context"
	"math"
	"os"
	"os/signal"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gravewood/oubliette/internal/character"
	"github.com/gravewood/oubliette/internal/config"
	"github.com/gravewood/oubliette/internal/dungeon"
	"github.com/gravewood/oubliette/internal/lever"
	"github.com/gravewood/oubliette/internal/logging"
	"github.com/gravewood/oubliette/internal/master"
	"github.com/gravewood/oubliette/internal/sigbus"
	"github.com/gravewood/oubliette/internal/spell"
	"github.com/gravewood/oubliette/internal/trap"
)

// TestFullGameInProcess plays a complete run with all three characters as
// goroutines in this process. Raising a dungeon signal at our own PID
// reaches every character's bus at once, which matches broadcasting to all
// workers; handlers for challenges a character was not posted are no-ops.
func TestFullGameInProcess(t *testing.T) {
	cfg := config.Default()
	cfg.Runtime.Dir = t.TempDir()
	cfg.Trap.PollIntervalMs = 1
	cfg.Treasure.PollIntervalMs = 1
	cfg.Lever.HoldPollIntervalMs = 1
	cfg.Lifecycle.AttachRetryMs = 1

	// Keep the shutdown signal from terminating the test process if it
	// lands before any character bus subscribes.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, unix.SIGTERM, unix.SIGUSR1, unix.SIGUSR2)
	defer signal.Stop(guard)

	m := master.New(cfg, logging.NopLogger(), nil)
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer m.Teardown()
	st := m.State()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	runErrs := make(chan error, 3)
	for _, role := range character.Roles() {
		c, err := character.New(role, cfg, logging.NopLogger(), nil)
		if err != nil {
			t.Fatalf("New(%s): %v", role, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runErrs <- c.Run(ctx)
		}()
	}

	self := os.Getpid()
	await := func(op string, ok func() bool) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for !ok() {
			if time.Now().After(deadline) {
				t.Fatalf("%s: condition never held", op)
			}
			time.Sleep(time.Millisecond)
		}
	}

	// Characters signal readiness implicitly: the rogue's startup probe is
	// the last attach step.
	await("character startup", func() bool {
		return st.TrapDirection() == dungeon.DirectionGuessSubmitted
	})
	// The rogue attaches last in spawn order, but give the other buses a
	// beat to finish subscribing before the first broadcast.
	time.Sleep(20 * time.Millisecond)

	// Attack challenge.
	st.SetAttackValue(0)
	st.SetEnemyHealth(424)
	if err := sigbus.Raise(self, sigbus.ChallengePosted); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	await("attack", func() bool { return st.AttackValue() == 424 })

	// Barrier challenge.
	plain := []byte("Speak Friend")
	if err := st.SetEncodedSpell(spell.Encode(7, plain)); err != nil {
		t.Fatalf("SetEncodedSpell: %v", err)
	}
	if err := sigbus.Raise(self, sigbus.ChallengePosted); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	await("barrier", func() bool { return bytes.Equal(st.DecodedSpell(), plain) })

	// Trap challenge: judge the rogue's probes against a hidden threshold.
	const threshold = 61.75
	st.SetTrapDirection(dungeon.DirectionNone)
	st.SetTrapLocked(true)
	if err := sigbus.Raise(self, sigbus.ChallengePosted); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for st.TrapLocked() {
		if time.Now().After(deadline) {
			t.Fatal("trap never unlocked")
		}
		if st.TrapDirection() != dungeon.DirectionGuessSubmitted {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		guess := st.Guess()
		switch {
		case math.Abs(guess-threshold) <= trap.Epsilon:
			st.SetTrapLocked(false)
			st.SetTrapDirection(dungeon.DirectionUnlocked)
		case guess < threshold:
			st.SetTrapDirection(dungeon.DirectionTooLow)
		default:
			st.SetTrapDirection(dungeon.DirectionTooHigh)
		}
	}
	if got := st.Guess(); math.Abs(got-threshold) > trap.Epsilon {
		t.Errorf("final guess = %v, want within epsilon of %v", got, threshold)
	}

	// Treasure room: all three react to one broadcast; the holders grab
	// the levers while the rogue collects.
	st.ClearTreasure()
	if err := sigbus.Raise(self, sigbus.LeverCall); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	probeA, err := lever.Open(cfg.Runtime.Dir, cfg.Runtime.LeverAName)
	if err != nil {
		t.Fatalf("Open lever-a: %v", err)
	}
	defer probeA.Close()
	await("lever held", func() bool {
		if err := probeA.TryAcquire(); err != nil {
			return true
		}
		probeA.Release()
		return false
	})

	for i, b := range []byte("GOLD") {
		time.Sleep(2 * time.Millisecond)
		st.RevealTreasure(i, b)
	}
	await("collection", st.SpoilsComplete)
	if got := st.Spoils(); !bytes.Equal(got, []byte("GOLD")) {
		t.Errorf("spoils = %q, want GOLD", got)
	}
	await("lever released", func() bool {
		if err := probeA.TryAcquire(); err != nil {
			return false
		}
		probeA.Release()
		return true
	})

	// Shutdown broadcast stops all three characters.
	if err := sigbus.Raise(self, sigbus.Shutdown); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	waited := make(chan struct{})
	go func() { wg.Wait(); close(waited) }()
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("characters did not stop after shutdown")
	}
	close(runErrs)
	for err := range runErrs {
		if err != nil {
			t.Errorf("character Run: %v", err)
		}
	}

	if err := m.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
}
