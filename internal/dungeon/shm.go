package dungeon

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gravewood/oubliette/internal/errors"
)

// DefaultDir returns the directory for shared runtime files: /dev/shm when
// the platform provides it, the system temp directory otherwise.
func DefaultDir() string {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// Create creates and maps the named shared block. The block is
// zero-initialized. Creation is exclusive: a leftover block from a previous
// run surfaces as ErrResourceExists rather than being silently reused.
func Create(dir, name string) (*State, error) {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return nil, errors.NewResourceError("create shared block", mapSysErr(err)).WithResource(name)
	}
	defer f.Close()

	// Extending a fresh file zero-fills it.
	if err := f.Truncate(Size); err != nil {
		os.Remove(path)
		return nil, errors.NewResourceError("size shared block", mapSysErr(err)).WithResource(name)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		os.Remove(path)
		return nil, errors.NewResourceError("map shared block", mapSysErr(err)).WithResource(name)
	}

	return &State{mem: mem, path: path}, nil
}

// Attach maps an existing named shared block read/write. It fails with
// ErrResourceNotFound while the orchestrator has not finished creating the
// block; callers are expected to retry with backoff (see AttachRetry).
func Attach(dir, name string) (*State, error) {
	return attach(dir, name, os.O_RDWR, unix.PROT_READ|unix.PROT_WRITE)
}

// AttachReadOnly maps an existing named shared block for inspection only.
// Writing through the returned state faults, so it is reserved for pure
// read paths such as the status command.
func AttachReadOnly(dir, name string) (*State, error) {
	return attach(dir, name, os.O_RDONLY, unix.PROT_READ)
}

func attach(dir, name string, flag, prot int) (*State, error) {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, errors.NewResourceError("open shared block", mapSysErr(err)).WithResource(name)
	}
	defer f.Close()

	// The creator opens the file before sizing it. A short file means
	// creation is still in flight; report not-found so the caller retries
	// instead of mapping a region it would fault on.
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.NewResourceError("stat shared block", mapSysErr(err)).WithResource(name)
	}
	if fi.Size() < Size {
		return nil, errors.NewResourceError("open shared block", errors.ErrResourceNotFound).WithResource(name)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, Size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.NewResourceError("map shared block", mapSysErr(err)).WithResource(name)
	}

	return &State{mem: mem, path: path}, nil
}

// AttachRetry attaches to the named block, retrying not-found failures with
// a fixed backoff until the context expires. Non-retryable failures are
// returned immediately.
func AttachRetry(ctx context.Context, dir, name string, backoff time.Duration) (*State, error) {
	for {
		st, err := Attach(dir, name)
		if err == nil {
			return st, nil
		}
		if !errors.IsRetryable(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(backoff):
		}
	}
}

// Detach unmaps the block from this process. The named resource stays in the
// system namespace until the orchestrator destroys it.
func (s *State) Detach() error {
	if s.mem == nil {
		return errors.NewResourceError("detach shared block", errors.ErrResourceClosed)
	}
	if s.path == "" {
		// Local state: nothing mapped, just drop the backing slice.
		s.mem = nil
		return nil
	}

	mem := s.mem
	s.mem = nil
	if err := unix.Munmap(mem); err != nil {
		return errors.NewResourceError("unmap shared block", mapSysErr(err)).WithResource(s.path)
	}
	return nil
}

// Destroy removes the named block from the system namespace. Orchestrator
// only, after all workers have detached.
func Destroy(dir, name string) error {
	path := filepath.Join(dir, name)
	if err := os.Remove(path); err != nil {
		return errors.NewResourceError("remove shared block", mapSysErr(err)).WithResource(name)
	}
	return nil
}

// mapSysErr translates OS-level failures into the package's sentinel errors,
// leaving unrecognized errors untouched for diagnostics.
func mapSysErr(err error) error {
	switch {
	case os.IsExist(err) || errors.Is(err, unix.EEXIST):
		return errors.ErrResourceExists
	case os.IsNotExist(err) || errors.Is(err, unix.ENOENT):
		return errors.ErrResourceNotFound
	case os.IsPermission(err) || errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM):
		return errors.ErrPermissionDenied
	case errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.ENOMEM) ||
		errors.Is(err, unix.EMFILE) || errors.Is(err, unix.ENFILE):
		return errors.ErrOutOfResources
	default:
		return err
	}
}
