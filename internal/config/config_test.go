package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config should validate cleanly, got: %v", ValidationErrors(errs))
	}
}

func TestSetDefaults_LoadRoundTrip(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Runtime.BlockName != "oubliette.dungeon" {
		t.Errorf("BlockName = %q, want %q", cfg.Runtime.BlockName, "oubliette.dungeon")
	}
	if cfg.Trap.MaxPickAngle != 100.0 {
		t.Errorf("MaxPickAngle = %v, want 100", cfg.Trap.MaxPickAngle)
	}
	if cfg.Trap.SecondsToPick != 10.0 {
		t.Errorf("SecondsToPick = %v, want 10", cfg.Trap.SecondsToPick)
	}
}

func TestConfig_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()
	viper.Set("trap.max_pick_angle", 360.0)
	viper.Set("runtime.block_name", "crypt.block")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Trap.MaxPickAngle != 360.0 {
		t.Errorf("MaxPickAngle = %v, want 360", cfg.Trap.MaxPickAngle)
	}
	if cfg.Runtime.BlockName != "crypt.block" {
		t.Errorf("BlockName = %q, want %q", cfg.Runtime.BlockName, "crypt.block")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	if got := cfg.Trap.PickDeadline(); got != 9500*time.Millisecond {
		t.Errorf("PickDeadline = %v, want 9.5s", got)
	}
	if got := cfg.Trap.TrapPollInterval(); got != 5*time.Millisecond {
		t.Errorf("TrapPollInterval = %v, want 5ms", got)
	}
	if got := cfg.Treasure.Window(); got != 10*time.Second {
		t.Errorf("Window = %v, want 10s", got)
	}
	if got := cfg.Lever.HoldPollInterval(); got != 100*time.Millisecond {
		t.Errorf("HoldPollInterval = %v, want 100ms", got)
	}
	if got := cfg.Lifecycle.AttachTimeout(); got != 5*time.Second {
		t.Errorf("AttachTimeout = %v, want 5s", got)
	}
}
