// Package view holds the two pages of the viewer, the conversation list and
// the conversation detail, independent of how they are displayed. Each page
// owns its own lifecycle and transient flags; nothing is shared between
// pages.
package view

import (
	"context"
	"sync"
	"time"

	"github.com/comigor/convoview/internal/analysis"
	"github.com/comigor/convoview/internal/conversation"
	"github.com/comigor/convoview/internal/lifecycle"
)

// Service is the conversations backend.
type Service interface {
	List(ctx context.Context) ([]conversation.Summary, error)
	Get(ctx context.Context, id string) (*conversation.Detail, error)
	Delete(ctx context.Context, id string) error
	Save(ctx context.Context, id, filename string) error
}

// Analyzer profiles a transcript. Pages without one hide the action.
type Analyzer interface {
	Analyze(ctx context.Context, detail *conversation.Detail) (*analysis.Profile, error)
}

// Confirmer asks the user a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// AlwaysConfirm answers yes without asking.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) bool { return true })

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(path string)
}

// NavigationRecorder is a Navigator that remembers the last target.
type NavigationRecorder struct {
	mu   sync.Mutex
	path string
}

// Navigate records path.
func (r *NavigationRecorder) Navigate(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

// Target returns the last recorded path, empty when none.
func (r *NavigationRecorder) Target() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Kind tells list and detail pages apart in metrics and diagnostics.
type Kind string

const (
	KindList   Kind = "list"
	KindDetail Kind = "detail"
)

// Deps are the collaborators a page needs.
type Deps struct {
	Service   Service
	Confirmer Confirmer
	Navigator Navigator
	Reporter  lifecycle.Reporter
	Clock     Clock
	// SaveSuccessTTL is how long the "saved" banner stays up.
	SaveSuccessTTL time.Duration
	// Analyzer is optional.
	Analyzer Analyzer
	// OnSettle observes fetch outcomes.
	OnSettle func(kind Kind, state lifecycle.State)
}

func (d Deps) confirm(ctx context.Context, prompt string) bool {
	if d.Confirmer == nil {
		return false
	}
	return d.Confirmer.Confirm(ctx, prompt)
}

func (d Deps) navigate(path string) {
	if d.Navigator != nil {
		d.Navigator.Navigate(path)
	}
}

func (d Deps) report(ctx context.Context, site string, err error) {
	if d.Reporter != nil {
		d.Reporter.Report(ctx, site, err)
	}
}

func (d Deps) settleHook(kind Kind) func(lifecycle.State) {
	if d.OnSettle == nil {
		return nil
	}
	return func(s lifecycle.State) { d.OnSettle(kind, s) }
}

// Outcome is the result of a user action on a page.
type Outcome string

const (
	// OutcomeDone means the request succeeded.
	OutcomeDone Outcome = "done"
	// OutcomeDeclined means the user did not confirm; nothing changed.
	OutcomeDeclined Outcome = "declined"
	// OutcomeFailed means the request failed; the error banner is up.
	OutcomeFailed Outcome = "failed"
	// OutcomeBusy means the same action is still in flight.
	OutcomeBusy Outcome = "busy"
	// OutcomeUnavailable means the page is not in a state that offers the
	// action.
	OutcomeUnavailable Outcome = "unavailable"
)
