package dungeon

import (
	"bytes"
	"sync"
	"testing"

	"github.com/gravewood/oubliette/internal/errors"
)

func TestState_ScalarFields(t *testing.T) {
	st := NewLocal()

	if st.Running() {
		t.Error("fresh state should not be running")
	}
	st.SetRunning(true)
	if !st.Running() {
		t.Error("SetRunning(true) should be visible")
	}
	st.SetRunning(false)
	if st.Running() {
		t.Error("SetRunning(false) should be visible")
	}

	st.SetMasterPID(9999)
	if st.MasterPID() != 9999 {
		t.Errorf("MasterPID = %d, want 9999", st.MasterPID())
	}

	st.SetEnemyHealth(250)
	if st.EnemyHealth() != 250 {
		t.Errorf("EnemyHealth = %d, want 250", st.EnemyHealth())
	}

	st.SetAttackValue(250)
	if st.AttackValue() != 250 {
		t.Errorf("AttackValue = %d, want 250", st.AttackValue())
	}

	st.SetTrapLocked(true)
	if !st.TrapLocked() {
		t.Error("trap should be locked")
	}

	st.SetGuess(42.3)
	if st.Guess() != 42.3 {
		t.Errorf("Guess = %v, want 42.3", st.Guess())
	}
}

func TestState_SubmitGuess(t *testing.T) {
	st := NewLocal()

	st.SubmitGuess(50.0)
	if st.Guess() != 50.0 {
		t.Errorf("Guess = %v, want 50", st.Guess())
	}
	if st.TrapDirection() != DirectionGuessSubmitted {
		t.Errorf("direction = %v, want guess-submitted", st.TrapDirection())
	}
}

func TestState_SpellBuffers(t *testing.T) {
	st := NewLocal()

	if got := st.EncodedSpell(); len(got) != 0 {
		t.Errorf("fresh encoded spell should be empty, got %q", got)
	}

	encoded := append([]byte{3}, []byte("Dhoo")...)
	if err := st.SetEncodedSpell(encoded); err != nil {
		t.Fatalf("SetEncodedSpell failed: %v", err)
	}
	if got := st.EncodedSpell(); !bytes.Equal(got, encoded) {
		t.Errorf("EncodedSpell = %v, want %v", got, encoded)
	}

	if err := st.SetDecodedSpell([]byte("Agll")); err != nil {
		t.Fatalf("SetDecodedSpell failed: %v", err)
	}
	if got := st.DecodedSpell(); string(got) != "Agll" {
		t.Errorf("DecodedSpell = %q, want %q", got, "Agll")
	}
}

func TestState_SpellBufferOverflow(t *testing.T) {
	st := NewLocal()

	big := make([]byte, SpellBufferSize+1)
	err := st.SetEncodedSpell(big)
	if err == nil {
		t.Fatal("oversized payload should be rejected")
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	// Exactly full is fine.
	if err := st.SetEncodedSpell(make([]byte, SpellBufferSize)); err != nil {
		t.Errorf("full-size payload should be accepted, got %v", err)
	}
}

func TestState_TreasureAndSpoils(t *testing.T) {
	st := NewLocal()

	for i := 0; i < TreasureSize; i++ {
		if st.Treasure(i) != 0 {
			t.Errorf("fresh treasure[%d] should be zero", i)
		}
	}

	word := []byte("GOLD")
	for i, b := range word {
		st.RevealTreasure(i, b)
	}
	for i, b := range word {
		if st.Treasure(i) != b {
			t.Errorf("Treasure(%d) = %c, want %c", i, st.Treasure(i), b)
		}
	}

	if st.SpoilsComplete() {
		t.Error("spoils should not be complete before collection")
	}
	for i, b := range word {
		st.SetSpoil(i, b)
	}
	if !st.SpoilsComplete() {
		t.Error("spoils should be complete after all four bytes")
	}
	if got := string(st.Spoils()); got != "GOLD" {
		t.Errorf("Spoils = %q, want %q", got, "GOLD")
	}

	st.ClearSpoils()
	if len(st.Spoils()) != 0 || st.SpoilsComplete() {
		t.Error("ClearSpoils should empty the spoils")
	}
	st.ClearTreasure()
	if st.Treasure(0) != 0 {
		t.Error("ClearTreasure should empty the treasure")
	}
}

func TestState_PartialSpoils(t *testing.T) {
	st := NewLocal()

	st.SetSpoil(0, 'G')
	st.SetSpoil(1, 'O')

	if st.SpoilsComplete() {
		t.Error("two of four bytes should not be complete")
	}
	if got := string(st.Spoils()); got != "GO" {
		t.Errorf("Spoils = %q, want %q", got, "GO")
	}
}

func TestState_PackedBytesConcurrent(t *testing.T) {
	st := NewLocal()

	// Concurrent CAS writers to distinct byte positions must not clobber
	// each other.
	var wg sync.WaitGroup
	word := []byte("GOLD")
	for i, b := range word {
		wg.Add(1)
		go func(i int, b byte) {
			defer wg.Done()
			st.SetSpoil(i, b)
		}(i, b)
	}
	wg.Wait()

	for i, b := range word {
		if st.Spoil(i) != b {
			t.Errorf("Spoil(%d) = %c, want %c", i, st.Spoil(i), b)
		}
	}
}

func TestDirection_String(t *testing.T) {
	tests := []struct {
		d    Direction
		want string
	}{
		{DirectionNone, "none"},
		{DirectionTooLow, "too-low"},
		{DirectionTooHigh, "too-high"},
		{DirectionGuessSubmitted, "guess-submitted"},
		{DirectionUnlocked, "unlocked"},
		{Direction(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("Direction(%d).String() = %q, want %q", tt.d, got, tt.want)
		}
	}
}
