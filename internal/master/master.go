package master

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/gravewood/oubliette/internal/character"
	"github.com/gravewood/oubliette/internal/config"
	"github.com/gravewood/oubliette/internal/dungeon"
	"github.com/gravewood/oubliette/internal/errors"
	"github.com/gravewood/oubliette/internal/event"
	"github.com/gravewood/oubliette/internal/lever"
	"github.com/gravewood/oubliette/internal/logging"
	"github.com/gravewood/oubliette/internal/sigbus"
)

// worker is one spawned character process.
type worker struct {
	role character.Role
	cmd  *exec.Cmd
}

// Master owns the dungeon's shared resources and worker processes.
// Call Setup, Spawn, then Run; Run tears down on every exit path.
type Master struct {
	cfg *config.Config
	log *logging.Logger
	bus *event.Bus

	state  *dungeon.State
	leverA *lever.Semaphore
	leverB *lever.Semaphore

	workers []*worker

	// binary overrides the spawned executable; empty means re-exec self.
	binary string
	// raise sends a dungeon signal to a process. Tests stub it out.
	raise func(pid int, k sigbus.Kind) error

	teardownOnce sync.Once
	teardownErr  error
}

// New returns a master over the given configuration. The event bus receives
// lifecycle and challenge notifications; pass nil to discard them.
func New(cfg *config.Config, log *logging.Logger, bus *event.Bus) *Master {
	if bus == nil {
		bus = event.NewBus()
	}
	return &Master{
		cfg:   cfg,
		log:   log.WithRole("master").WithPID(os.Getpid()),
		bus:   bus,
		raise: sigbus.Raise,
	}
}

// State returns the shared block, valid after Setup.
func (m *Master) State() *dungeon.State { return m.state }

// Config returns the master's configuration.
func (m *Master) Config() *config.Config { return m.cfg }

// Bus returns the master's event bus.
func (m *Master) Bus() *event.Bus { return m.bus }

func (m *Master) runtimeDir() string {
	if m.cfg.Runtime.Dir != "" {
		return m.cfg.Runtime.Dir
	}
	return dungeon.DefaultDir()
}

// Setup creates the shared block and both levers. A failure part way
// through removes whatever was already created, so a failed setup leaves
// nothing behind.
func (m *Master) Setup() error {
	dir := m.runtimeDir()

	state, err := dungeon.Create(dir, m.cfg.Runtime.BlockName)
	if err != nil {
		return err
	}
	state.SetMasterPID(os.Getpid())
	state.SetRunning(true)

	leverA, err := lever.Create(dir, m.cfg.Runtime.LeverAName)
	if err != nil {
		state.Detach()
		dungeon.Destroy(dir, m.cfg.Runtime.BlockName)
		return err
	}
	leverB, err := lever.Create(dir, m.cfg.Runtime.LeverBName)
	if err != nil {
		leverA.Close()
		leverA.Destroy()
		state.Detach()
		dungeon.Destroy(dir, m.cfg.Runtime.BlockName)
		return err
	}

	m.state, m.leverA, m.leverB = state, leverA, leverB
	m.log.Info("dungeon ready", "dir", dir, "block", m.cfg.Runtime.BlockName)
	return nil
}

// Spawn starts the three character processes, re-executing this binary with
// the role name as the subcommand. The runtime location is passed through
// the environment so workers land on the same block regardless of their own
// config files.
func (m *Master) Spawn(ctx context.Context) error {
	bin := m.binary
	if bin == "" {
		var err error
		bin, err = os.Executable()
		if err != nil {
			return errors.NewResourceError("spawn workers", err)
		}
	}

	env := append(os.Environ(),
		"OUBLIETTE_RUNTIME_DIR="+m.runtimeDir(),
		"OUBLIETTE_RUNTIME_BLOCK_NAME="+m.cfg.Runtime.BlockName,
		"OUBLIETTE_RUNTIME_LEVER_A_NAME="+m.cfg.Runtime.LeverAName,
		"OUBLIETTE_RUNTIME_LEVER_B_NAME="+m.cfg.Runtime.LeverBName,
		"OUBLIETTE_LOGGING_LEVEL="+m.cfg.Logging.Level,
		"OUBLIETTE_LOGGING_DIR="+m.cfg.Logging.Dir,
	)

	// Deliberately not CommandContext: teardown owns worker lifetime, and a
	// canceled context must not skip the graceful shutdown broadcast.
	for _, role := range character.Roles() {
		cmd := exec.Command(bin, string(role))
		cmd.Env = env
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			m.log.Error("spawn failed", "worker", role, "error", err)
			return errors.NewResourceError("spawn workers", err).WithResource(string(role))
		}
		m.workers = append(m.workers, &worker{role: role, cmd: cmd})
		m.log.Info("worker spawned", "worker", role, "worker_pid", cmd.Process.Pid)
		m.bus.Publish(event.NewWorkerSpawnedEvent(string(role), cmd.Process.Pid))
	}

	// Give the workers a moment to attach before the first challenge.
	time.Sleep(m.cfg.Lifecycle.SpawnGrace())
	return nil
}

// Raise sends a dungeon signal to one worker by role.
func (m *Master) Raise(role character.Role, k sigbus.Kind) error {
	for _, w := range m.workers {
		if w.role == role {
			return m.raise(w.cmd.Process.Pid, k)
		}
	}
	return errors.NewProtocolError("raise signal", string(role), errors.ErrResourceNotFound)
}

// RaiseAll sends a dungeon signal to every worker, continuing past failures
// and returning the first error seen.
func (m *Master) RaiseAll(k sigbus.Kind) error {
	var first error
	for _, w := range m.workers {
		if err := m.raise(w.cmd.Process.Pid, k); err != nil {
			m.log.Warn("signal failed", "worker", w.role, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Run drives the challenge schedule and then tears the dungeon down,
// whether the driver succeeded or not.
func (m *Master) Run(ctx context.Context, d Driver) error {
	err := d.Run(ctx, m)
	if terr := m.Teardown(); err == nil {
		err = terr
	}
	return err
}

// Teardown stops the dungeon exactly once: it clears the running flag,
// broadcasts shutdown, waits for every worker to exit, and only then
// removes the block and both levers. Individual step failures are reported
// on the bus and logged, never escalated, so later steps always run.
// Repeated calls return the first call's result without acting again.
func (m *Master) Teardown() error {
	m.teardownOnce.Do(func() { m.teardownErr = m.teardown() })
	return m.teardownErr
}

func (m *Master) teardown() error {
	var first error
	step := func(name string, err error) {
		msg := ""
		if err != nil {
			msg = err.Error()
			m.log.Error("teardown step failed", "step", name, "error", err)
			if first == nil {
				first = err
			}
		} else {
			m.log.Info("teardown step done", "step", name)
		}
		m.bus.Publish(event.NewTeardownStepEvent(name, msg))
	}

	if m.state != nil {
		m.state.SetRunning(false)
	}

	for _, w := range m.workers {
		if err := m.raise(w.cmd.Process.Pid, sigbus.Shutdown); err != nil {
			m.log.Warn("shutdown signal failed", "worker", w.role, "error", err)
		}
	}
	for _, w := range m.workers {
		m.waitWorker(w)
	}

	if m.state != nil {
		step("detach block", m.state.Detach())
		step("destroy block", dungeon.Destroy(m.runtimeDir(), m.cfg.Runtime.BlockName))
	}
	if m.leverA != nil {
		step("close lever-a", m.leverA.Close())
		step("destroy lever-a", m.leverA.Destroy())
	}
	if m.leverB != nil {
		step("close lever-b", m.leverB.Close())
		step("destroy lever-b", m.leverB.Destroy())
	}

	m.log.Info("dungeon closed")
	return first
}

// waitWorker reaps one worker, killing it if it outlives the shutdown grace.
func (m *Master) waitWorker(w *worker) {
	done := make(chan error, 1)
	go func() { done <- w.cmd.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-time.After(m.cfg.Lifecycle.ShutdownGrace() + 2*time.Second):
		m.log.Warn("worker unresponsive, killing", "worker", w.role)
		w.cmd.Process.Kill()
		err = <-done
		if err == nil {
			err = fmt.Errorf("killed after shutdown grace")
		}
	}

	msg := ""
	if err != nil {
		msg = err.Error()
		m.log.Warn("worker exited with error", "worker", w.role, "error", err)
	} else {
		m.log.Info("worker exited", "worker", w.role)
	}
	m.bus.Publish(event.NewWorkerExitedEvent(string(w.role), w.cmd.Process.Pid, msg))
}
