package sigbus

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/gravewood/oubliette/internal/errors"
)

// Kind identifies an abstract event delivered between processes.
type Kind int

const (
	// ChallengePosted announces a new challenge in the shared block.
	ChallengePosted Kind = iota
	// LeverCall summons the workers to the treasure room.
	LeverCall
	// Shutdown requests a graceful exit.
	Shutdown
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case ChallengePosted:
		return "challenge-posted"
	case LeverCall:
		return "lever-call"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// signalFor maps an event kind to the signal that carries it.
// Shutdown is raised as SIGTERM; SIGINT is accepted on the receiving side
// so an interactive interrupt behaves the same way.
func signalFor(k Kind) (unix.Signal, bool) {
	switch k {
	case ChallengePosted:
		return unix.SIGUSR1, true
	case LeverCall:
		return unix.SIGUSR2, true
	case Shutdown:
		return unix.SIGTERM, true
	default:
		return 0, false
	}
}

// kindFor maps a received signal back to its event kind.
func kindFor(sig os.Signal) (Kind, bool) {
	switch sig {
	case unix.SIGUSR1:
		return ChallengePosted, true
	case unix.SIGUSR2:
		return LeverCall, true
	case unix.SIGTERM, unix.SIGINT, os.Interrupt:
		return Shutdown, true
	default:
		return 0, false
	}
}

// Raise delivers an event kind to the process with the given ID.
func Raise(pid int, k Kind) error {
	sig, ok := signalFor(k)
	if !ok {
		return errors.NewProtocolError("raise event", "unknown event kind", errors.ErrInvalidInput)
	}
	if err := unix.Kill(pid, sig); err != nil {
		return errors.NewProtocolError("raise event", k.String(), err)
	}
	return nil
}

// Handler processes one delivered event. It runs on the bus's drain loop,
// never in signal context, so blocking and logging are allowed.
type Handler func(ctx context.Context, k Kind)

// Bus receives the process's dungeon signals and dispatches them one at a
// time to registered handlers.
type Bus struct {
	mu       sync.Mutex
	handlers map[Kind]Handler

	// sigs is the asynchronous half: the runtime forwards signals here.
	// Buffered so bursts arriving while a handler runs are not dropped
	// outright (coalescing beyond the buffer matches kernel semantics for
	// standard signals).
	sigs chan os.Signal

	down atomic.Bool
}

// New creates a Bus and subscribes to the dungeon signals immediately, so
// events raised between construction and Run are queued rather than taking
// the signals' default (terminating) action.
func New() *Bus {
	b := &Bus{
		handlers: make(map[Kind]Handler),
		sigs:     make(chan os.Signal, 16),
	}
	signal.Notify(b.sigs, unix.SIGUSR1, unix.SIGUSR2, unix.SIGTERM, unix.SIGINT)
	return b
}

// Handle registers the handler for an event kind, replacing any previous one.
func (b *Bus) Handle(k Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[k] = h
}

// Run drains the subscribed signals until a Shutdown event arrives or the
// context is canceled. Exactly one handler is invoked per delivery,
// synchronously on this goroutine; the loop resumes waiting when the
// handler returns.
//
// Shutdown is also watched off the drain goroutine: a SIGTERM or SIGINT
// arriving while a handler is in flight sets the shutdown flag and cancels
// the context the handler was given immediately, so a lever hold, trap
// episode, or collection stops within one polling interval instead of
// waiting for the handler to finish on its own.
func (b *Bus) Run(ctx context.Context) error {
	defer signal.Stop(b.sigs)

	hctx, cancel := context.WithCancel(ctx)
	defer cancel()

	down := make(chan os.Signal, 1)
	signal.Notify(down, unix.SIGTERM, unix.SIGINT)
	defer signal.Stop(down)
	go func() {
		select {
		case <-down:
			b.down.Store(true)
			cancel()
		case <-hctx.Done():
		}
	}()

	for {
		select {
		case <-hctx.Done():
			if b.down.Load() && ctx.Err() == nil {
				// A shutdown signal canceled the handler context while
				// the drain loop was busy; its queued copy in b.sigs is
				// discarded and the exit protocol finishes here.
				b.dispatch(hctx, Shutdown)
				return nil
			}
			b.down.Store(true)
			return ctx.Err()
		case sig := <-b.sigs:
			k, ok := kindFor(sig)
			if !ok {
				continue
			}
			if k == Shutdown {
				// Flag first so a handler observing the flag and the
				// dispatch agree on ordering.
				b.down.Store(true)
				b.dispatch(hctx, k)
				return nil
			}
			if b.down.Load() {
				// Late events after shutdown are dropped.
				continue
			}
			b.dispatch(hctx, k)
		}
	}
}

// dispatch invokes the registered handler for a kind, if any.
func (b *Bus) dispatch(ctx context.Context, k Kind) {
	b.mu.Lock()
	h := b.handlers[k]
	b.mu.Unlock()

	if h != nil {
		h(ctx, k)
	}
}

// deliver injects a signal as if it had been received from the kernel.
// Tests use it to drive the drain loop deterministically.
func (b *Bus) deliver(sig os.Signal) {
	b.sigs <- sig
}
