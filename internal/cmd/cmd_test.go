package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gravewood/oubliette/internal/event"
	"github.com/gravewood/oubliette/internal/logging"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "oubliette" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "oubliette")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"master", "barbarian", "wizard", "rogue", "status"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}

	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestLogEventsMirrorsBusIntoLog(t *testing.T) {
	dir := t.TempDir()
	log, err := logging.NewLogger(dir, "run", logging.LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	bus := event.NewBus()
	logEvents(bus, log)

	bus.Publish(event.NewWorkerSpawnedEvent("rogue", 4242))
	bus.Publish(event.NewTrapResolvedEvent(true, 42.3, 7))
	bus.Publish(event.NewTeardownStepEvent("remove lever-a", "permission denied"))

	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"worker spawned", "rogue", "4242",
		"trap resolved", "42.3",
		"teardown step failed", "permission denied", "WARN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMasterFlags(t *testing.T) {
	if masterCmd.Flags().Lookup("rounds") == nil {
		t.Error("master command missing --rounds flag")
	}
	if masterCmd.Flags().Lookup("seed") == nil {
		t.Error("master command missing --seed flag")
	}
}
