package lever

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gravewood/oubliette/internal/errors"
)

// acquirePollInterval is the retry cadence for blocking acquires. flock has
// no cancelable blocking form, so Acquire loops on the non-blocking variant
// to stay responsive to context cancellation.
const acquirePollInterval = 5 * time.Millisecond

// Semaphore is a named binary lock backed by a lock file. The same name
// opened in different processes refers to the same lock. At most one handle
// holds a Semaphore at a time; the kernel drops the hold if the holding
// process exits.
type Semaphore struct {
	name string
	path string
	file *os.File
	held bool
}

// Create makes the lever's lock file, failing if it already exists.
// The orchestrator creates both levers once at startup.
func Create(dir, name string) (*Semaphore, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return nil, errors.NewResourceError("create lever", mapSysErr(err)).WithResource(name)
	}
	return &Semaphore{name: name, path: path, file: f}, nil
}

// Open opens an existing lever by name. Workers open the levers the
// orchestrator created.
func Open(dir, name string) (*Semaphore, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.NewResourceError("open lever", mapSysErr(err)).WithResource(name)
	}
	return &Semaphore{name: name, path: path, file: f}, nil
}

// Name returns the lever's name.
func (s *Semaphore) Name() string { return s.name }

// Held reports whether this handle currently holds the lever.
func (s *Semaphore) Held() bool { return s.held }

// TryAcquire attempts to take the lever without waiting. It returns
// ErrLeverHeld when another handle holds it.
func (s *Semaphore) TryAcquire() error {
	if s.file == nil {
		return errors.NewResourceError("acquire lever", errors.ErrResourceClosed).WithResource(s.name)
	}
	if s.held {
		return nil
	}
	err := unix.Flock(int(s.file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	switch {
	case err == nil:
		s.held = true
		return nil
	case err == unix.EWOULDBLOCK:
		return errors.ErrLeverHeld
	default:
		return errors.NewResourceError("acquire lever", err).WithResource(s.name)
	}
}

// Acquire takes the lever, waiting as long as ctx allows for another handle
// to let go.
func (s *Semaphore) Acquire(ctx context.Context) error {
	for {
		err := s.TryAcquire()
		if !errors.Is(err, errors.ErrLeverHeld) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}
}

// Release lets go of the lever. Releasing a lever this handle does not hold
// is a no-op.
func (s *Semaphore) Release() error {
	if !s.held || s.file == nil {
		return nil
	}
	if err := unix.Flock(int(s.file.Fd()), unix.LOCK_UN); err != nil {
		return errors.NewResourceError("release lever", err).WithResource(s.name)
	}
	s.held = false
	return nil
}

// Close releases the lever if held and closes the handle. The lock file
// itself stays for other processes; use Destroy to remove it.
func (s *Semaphore) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.Release()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.file = nil
	return err
}

// Destroy removes the lever's lock file. Handles already open elsewhere keep
// working; new opens fail. Only the orchestrator destroys levers, and only
// after the workers have exited.
func (s *Semaphore) Destroy() error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return errors.NewResourceError("destroy lever", errors.ErrResourceNotFound).WithResource(s.name)
		}
		return errors.NewResourceError("destroy lever", err).WithResource(s.name)
	}
	return nil
}

// mapSysErr translates common system errors into the package sentinels.
func mapSysErr(err error) error {
	switch {
	case os.IsExist(err):
		return errors.ErrResourceExists
	case os.IsNotExist(err):
		return errors.ErrResourceNotFound
	case os.IsPermission(err):
		return errors.ErrPermissionDenied
	default:
		return err
	}
}
