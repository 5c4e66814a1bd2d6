package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInFlight is returned by Action.Run while a previous run has not settled.
var ErrInFlight = errors.New("action already in flight")

// DefaultSuccessTTL is how long a success flag stays up.
const DefaultSuccessTTL = 3 * time.Second

// Action tracks a secondary request such as "save": an in-flight flag that
// disables its control, and a success flag that clears itself after a TTL.
type Action struct {
	mu       sync.Mutex
	ttl      time.Duration
	inFlight bool
	success  bool
	timer    *time.Timer
	epoch    uint64
	closed   bool
}

// NewAction creates an Action whose success flag lasts ttl.
func NewAction(ttl time.Duration) *Action {
	if ttl <= 0 {
		ttl = DefaultSuccessTTL
	}
	return &Action{ttl: ttl}
}

// Begin marks the action in flight and clears a previous success. It
// refuses while already in flight or after Close.
func (a *Action) Begin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.inFlight {
		return false
	}
	a.inFlight = true
	a.success = false
	a.stopTimerLocked()
	return true
}

// Succeed settles the action successfully and arms the single-shot timer
// that clears the success flag.
func (a *Action) Succeed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight = false
	if a.closed {
		return
	}
	a.success = true
	a.stopTimerLocked()
	a.epoch++
	epoch := a.epoch
	a.timer = time.AfterFunc(a.ttl, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.closed || a.epoch != epoch {
			return
		}
		a.success = false
	})
}

// Fail settles the action without raising the success flag.
func (a *Action) Fail() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight = false
}

// Run wraps fn with Begin and Succeed/Fail. It returns ErrInFlight without
// calling fn when the action is busy.
func (a *Action) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if !a.Begin() {
		return ErrInFlight
	}
	if err := fn(ctx); err != nil {
		a.Fail()
		return err
	}
	a.Succeed()
	return nil
}

// InFlight reports whether a run is outstanding.
func (a *Action) InFlight() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inFlight
}

// Succeeded reports whether the success flag is up.
func (a *Action) Succeeded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.success
}

// Close makes the action inert: pending timers do nothing and new runs are
// refused.
func (a *Action) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.success = false
	a.stopTimerLocked()
}

func (a *Action) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Banner is the error slot mutation failures write to. It is independent
// of any Action's success flag; both may be shown at once.
type Banner struct {
	mu  sync.Mutex
	msg string
}

// Set raises the banner with msg.
func (b *Banner) Set(msg string) {
	b.mu.Lock()
	b.msg = msg
	b.mu.Unlock()
}

// Clear lowers the banner.
func (b *Banner) Clear() {
	b.Set("")
}

// Message returns the banner text, empty when lowered.
func (b *Banner) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.msg
}
