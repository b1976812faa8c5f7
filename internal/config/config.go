// Package config loads and validates the oubliette configuration.
// Defaults are registered with viper so every value is available even
// without a config file; values may be overridden by a YAML file or by
// OUBLIETTE_-prefixed environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete oubliette configuration
type Config struct {
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Trap      TrapConfig      `mapstructure:"trap"`
	Treasure  TreasureConfig  `mapstructure:"treasure"`
	Lever     LeverConfig     `mapstructure:"lever"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RuntimeConfig names the shared resources of one run. All four processes
// must agree on these names; they are the only rendezvous mechanism.
type RuntimeConfig struct {
	// Dir is the directory holding the shared block and lever lock files.
	// Empty means /dev/shm when available, the system temp dir otherwise.
	Dir string `mapstructure:"dir"`
	// BlockName is the file name of the shared dungeon block.
	BlockName string `mapstructure:"block_name"`
	// LeverAName and LeverBName are the lever lock file names.
	LeverAName string `mapstructure:"lever_a_name"`
	LeverBName string `mapstructure:"lever_b_name"`
}

// TrapConfig controls the numeric-search challenge.
type TrapConfig struct {
	// MaxPickAngle is the upper bound of the search range; the lower bound is 0.
	MaxPickAngle float64 `mapstructure:"max_pick_angle"`
	// SecondsToPick is the wall-clock budget for one trap episode.
	// The solver stops half a second early to leave room for the last write.
	SecondsToPick float64 `mapstructure:"seconds_to_pick"`
	// PollIntervalMs is the sleep between feedback reads.
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// TreasureConfig controls the treasure-room collection.
type TreasureConfig struct {
	// AvailableSeconds is how long the treasure stays collectable.
	AvailableSeconds float64 `mapstructure:"available_seconds"`
	// PollIntervalMs is the sleep between reveal checks.
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// LeverConfig controls lever holding behavior.
type LeverConfig struct {
	// HoldPollIntervalMs is the sleep between completion checks while holding.
	HoldPollIntervalMs int `mapstructure:"hold_poll_interval_ms"`
}

// LifecycleConfig controls startup and shutdown timing.
type LifecycleConfig struct {
	// SpawnGraceMs is how long the orchestrator waits after spawning the
	// characters before driving challenges, giving them time to attach.
	SpawnGraceMs int `mapstructure:"spawn_grace_ms"`
	// ShutdownGraceMs is how long the orchestrator waits between the
	// shutdown broadcast and reaping the characters.
	ShutdownGraceMs int `mapstructure:"shutdown_grace_ms"`
	// AttachRetryMs is the backoff between a worker's attach attempts.
	AttachRetryMs int `mapstructure:"attach_retry_ms"`
	// AttachTimeoutSeconds bounds the total time a worker retries attaching.
	AttachTimeoutSeconds float64 `mapstructure:"attach_timeout_seconds"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Dir is where per-process log files are written. Empty means stderr.
	Dir string `mapstructure:"dir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Dir:        "",
			BlockName:  "oubliette.dungeon",
			LeverAName: "oubliette.lever-a",
			LeverBName: "oubliette.lever-b",
		},
		Trap: TrapConfig{
			MaxPickAngle:   100.0,
			SecondsToPick:  10.0,
			PollIntervalMs: 5,
		},
		Treasure: TreasureConfig{
			AvailableSeconds: 10.0,
			PollIntervalMs:   50,
		},
		Lever: LeverConfig{
			HoldPollIntervalMs: 100,
		},
		Lifecycle: LifecycleConfig{
			SpawnGraceMs:         200,
			ShutdownGraceMs:      100,
			AttachRetryMs:        50,
			AttachTimeoutSeconds: 5.0,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// TrapPollInterval returns the trap feedback poll interval as a duration.
func (c *TrapConfig) TrapPollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// PickDeadline returns the solver's wall-clock budget for one episode.
// Half a second is reserved so the last guess lands before the episode ends.
func (c *TrapConfig) PickDeadline() time.Duration {
	return time.Duration((c.SecondsToPick - 0.5) * float64(time.Second))
}

// PickWindow returns the full time a trap stays armed. The solver's own
// deadline is shorter, see PickDeadline.
func (c *TrapConfig) PickWindow() time.Duration {
	return time.Duration(c.SecondsToPick * float64(time.Second))
}

// Window returns the collection window as a duration.
func (c *TreasureConfig) Window() time.Duration {
	return time.Duration(c.AvailableSeconds * float64(time.Second))
}

// PollInterval returns the reveal poll interval as a duration.
func (c *TreasureConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// HoldPollInterval returns the lever holder's completion poll interval.
func (c *LeverConfig) HoldPollInterval() time.Duration {
	return time.Duration(c.HoldPollIntervalMs) * time.Millisecond
}

// SpawnGrace returns the post-spawn attachment grace interval.
func (c *LifecycleConfig) SpawnGrace() time.Duration {
	return time.Duration(c.SpawnGraceMs) * time.Millisecond
}

// ShutdownGrace returns the post-broadcast shutdown grace interval.
func (c *LifecycleConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceMs) * time.Millisecond
}

// AttachRetry returns the attach retry backoff interval.
func (c *LifecycleConfig) AttachRetry() time.Duration {
	return time.Duration(c.AttachRetryMs) * time.Millisecond
}

// AttachTimeout returns the total attach retry budget.
func (c *LifecycleConfig) AttachTimeout() time.Duration {
	return time.Duration(c.AttachTimeoutSeconds * float64(time.Second))
}

// SetDefaults registers all default values with viper.
// Must be called before Load so missing config files still yield a full Config.
func SetDefaults() {
	defaults := Default()

	// Runtime defaults
	viper.SetDefault("runtime.dir", defaults.Runtime.Dir)
	viper.SetDefault("runtime.block_name", defaults.Runtime.BlockName)
	viper.SetDefault("runtime.lever_a_name", defaults.Runtime.LeverAName)
	viper.SetDefault("runtime.lever_b_name", defaults.Runtime.LeverBName)

	// Trap defaults
	viper.SetDefault("trap.max_pick_angle", defaults.Trap.MaxPickAngle)
	viper.SetDefault("trap.seconds_to_pick", defaults.Trap.SecondsToPick)
	viper.SetDefault("trap.poll_interval_ms", defaults.Trap.PollIntervalMs)

	// Treasure defaults
	viper.SetDefault("treasure.available_seconds", defaults.Treasure.AvailableSeconds)
	viper.SetDefault("treasure.poll_interval_ms", defaults.Treasure.PollIntervalMs)

	// Lever defaults
	viper.SetDefault("lever.hold_poll_interval_ms", defaults.Lever.HoldPollIntervalMs)

	// Lifecycle defaults
	viper.SetDefault("lifecycle.spawn_grace_ms", defaults.Lifecycle.SpawnGraceMs)
	viper.SetDefault("lifecycle.shutdown_grace_ms", defaults.Lifecycle.ShutdownGraceMs)
	viper.SetDefault("lifecycle.attach_retry_ms", defaults.Lifecycle.AttachRetryMs)
	viper.SetDefault("lifecycle.attach_timeout_seconds", defaults.Lifecycle.AttachTimeoutSeconds)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load unmarshals the current viper state into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults
// if unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the directory searched for the config file.
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "oubliette")
	}
	// Fall back to ~/.config/oubliette
	home, err := os.UserHomeDir()
	if err != nil {
		return ".oubliette"
	}
	return filepath.Join(home, ".config", "oubliette")
}
