// Package lifecycle implements the load cycle every page goes through:
// Loading until its fetch settles, then Loaded with data or Failed with a
// fixed, user-facing message. Raw errors go to a Reporter instead.
//
// A Lifecycle can be restarted (a new navigation) and closed (unmount).
// Each start is a new attempt with its own cancellable context; results of
// attempts that are no longer current are dropped.
package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/qmuntal/stateless"

	"github.com/comigor/convoview/internal/logger"
)

// State is one of the lifecycle's observable states.
type State string

const (
	StateLoading State = "Loading"
	StateLoaded  State = "Loaded"
	StateFailed  State = "Failed"
)

// Trigger moves the state machine.
type Trigger string

const (
	TriggerFetch   Trigger = "Fetch"
	TriggerSucceed Trigger = "Succeed"
	TriggerFail    Trigger = "Fail"
)

// ErrNotStarted is returned by Wait before the first Start.
var ErrNotStarted = errors.New("lifecycle not started")

// ErrClosed is returned by Wait once the lifecycle has been closed.
var ErrClosed = errors.New("lifecycle closed")

// Reporter is the diagnostic channel raw errors are sent to.
type Reporter interface {
	Report(ctx context.Context, site string, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, site string, err error)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, site string, err error) { f(ctx, site, err) }

// FetchFunc loads the page payload.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Options configures a Lifecycle.
type Options struct {
	// Site names the fetch in diagnostics, e.g. "list.fetch".
	Site string
	// FailureMessage is what the user sees in the Failed state.
	FailureMessage string
	Reporter       Reporter
	// OnSettle, when set, observes every current attempt that settles.
	OnSettle func(State)
}

// Snapshot is a consistent view of a Lifecycle.
type Snapshot[T any] struct {
	State      State
	Data       T
	Message    string
	Generation uint64
}

type attempt struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (a *attempt) finish() {
	a.once.Do(func() {
		a.cancel()
		close(a.done)
	})
}

// Lifecycle drives one page's fetch through Loading, Loaded and Failed.
type Lifecycle[T any] struct {
	mu      sync.Mutex
	fsm     *stateless.StateMachine
	fetch   FetchFunc[T]
	opts    Options
	gen     uint64
	current *attempt
	data    T
	message string
	closed  bool
}

// New creates a Lifecycle in the Loading state. Nothing is fetched until
// Start.
func New[T any](fetch FetchFunc[T], opts Options) *Lifecycle[T] {
	return &Lifecycle[T]{
		fsm:   newMachine(),
		fetch: fetch,
		opts:  opts,
	}
}

func newMachine() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateLoading)

	// Loading settles exactly once per attempt; a new attempt re-enters it.
	fsm.Configure(StateLoading).
		PermitReentry(TriggerFetch).
		Permit(TriggerSucceed, StateLoaded).
		Permit(TriggerFail, StateFailed)

	fsm.Configure(StateLoaded).
		Permit(TriggerFetch, StateLoading)

	fsm.Configure(StateFailed).
		Permit(TriggerFetch, StateLoading)

	return fsm
}

func (l *Lifecycle[T]) fire(trigger Trigger) {
	if err := l.fsm.Fire(trigger); err != nil {
		logger.L.Warn("lifecycle transition rejected", "site", l.opts.Site, "trigger", trigger, "error", err)
	}
}

func (l *Lifecycle[T]) state() State {
	return l.fsm.MustState().(State)
}

// Start enters Loading and issues the fetch in the background. A running
// attempt is cancelled and its result will be ignored. The fetch does not
// inherit ctx's cancellation, only its values: it lives as long as the
// lifecycle does.
func (l *Lifecycle[T]) Start(ctx context.Context) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if l.current != nil {
		l.current.finish()
	}
	l.gen++
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &attempt{gen: l.gen, cancel: cancel, done: make(chan struct{})}
	l.current = a

	var zero T
	l.data = zero
	l.message = ""
	l.fire(TriggerFetch)
	l.mu.Unlock()

	logger.L.Debug("lifecycle fetch started", "site", l.opts.Site, "generation", a.gen)
	go func() {
		data, err := l.fetch(fetchCtx)
		l.settle(fetchCtx, a, data, err)
	}()
}

func (l *Lifecycle[T]) settle(ctx context.Context, a *attempt, data T, err error) {
	l.mu.Lock()
	if l.closed || l.current != a {
		l.mu.Unlock()
		a.finish()
		logger.L.Debug("discarding stale fetch result", "site", l.opts.Site, "generation", a.gen)
		return
	}

	var settled State
	if err != nil {
		l.message = l.opts.FailureMessage
		l.fire(TriggerFail)
		settled = StateFailed
	} else {
		l.data = data
		l.fire(TriggerSucceed)
		settled = StateLoaded
	}
	l.mu.Unlock()

	// Waiters are released only after the diagnostics have been recorded.
	defer a.finish()
	if err != nil && l.opts.Reporter != nil {
		l.opts.Reporter.Report(context.WithoutCancel(ctx), l.opts.Site, err)
	}
	if l.opts.OnSettle != nil {
		l.opts.OnSettle(settled)
	}
}

// Snapshot returns the current state, data and message together.
func (l *Lifecycle[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot[T]{
		State:      l.state(),
		Data:       l.data,
		Message:    l.message,
		Generation: l.gen,
	}
}

// State returns the current state.
func (l *Lifecycle[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state()
}

// Update replaces the held data through fn. It only applies in Loaded and
// reports whether it did.
func (l *Lifecycle[T]) Update(fn func(T) T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.state() != StateLoaded {
		return false
	}
	l.data = fn(l.data)
	return true
}

// Wait blocks until the current attempt settles, following restarts that
// happen meanwhile, or until ctx is done.
func (l *Lifecycle[T]) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return ErrClosed
		}
		a := l.current
		l.mu.Unlock()
		if a == nil {
			return ErrNotStarted
		}

		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}

		l.mu.Lock()
		same := l.current == a
		l.mu.Unlock()
		if same {
			return nil
		}
	}
}

// Close unmounts the lifecycle: the in-flight fetch is cancelled, late
// results are dropped and the held data is released.
func (l *Lifecycle[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.current != nil {
		l.current.finish()
	}
	var zero T
	l.data = zero
}

// Closed reports whether Close has been called.
func (l *Lifecycle[T]) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
