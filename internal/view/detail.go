package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/comigor/convoview/internal/analysis"
	"github.com/comigor/convoview/internal/conversation"
	"github.com/comigor/convoview/internal/lifecycle"
)

// User-facing text of the detail page.
const (
	DetailFetchFailed   = "Failed to load conversation details. Please try again."
	SaveFailed          = "Failed to save conversation. Please try again."
	AnalyzeFailed       = "Failed to analyze conversation. Please try again."
	NotFoundMessage     = "Conversation not found or has been deleted."
	NoTranscriptMessage = "No transcript available for this conversation."
	SaveSuccessMessage  = "Conversation transcript saved successfully!"
	UserLabel           = "You"
	AgentLabel          = "Agent"
	UserBubbleClass     = "user-message"
	AgentBubbleClass    = "agent-message"
)

// ListPath is the route of the list page.
const ListPath = "/"

// Bubble is one rendered transcript message.
type Bubble struct {
	Class string
	Label string
	// Time is the " (12s)" suffix, empty when the offset is unknown.
	Time string
	Text string
	User bool
}

// DetailModel is everything the detail page renders.
type DetailModel struct {
	State   lifecycle.State
	Loading bool
	// Error is the fetch failure in the Failed state, otherwise the banner
	// left by a failed delete, save or analysis.
	Error string
	// NotFound is set when the backend answered with no conversation.
	NotFound bool

	ID           string
	AgentID      string
	StartTime    string
	StartUnix    int64
	DurationSecs int64
	Status       string

	Bubbles         []Bubble
	EmptyTranscript bool

	Saving bool
	Saved  bool

	CanAnalyze bool
	Analyzing  bool
	Profile    *analysis.Profile
}

type idKey struct{}

// DetailPage is one conversation's detail view.
type DetailPage struct {
	deps   Deps
	lc     *lifecycle.Lifecycle[*conversation.Detail]
	banner lifecycle.Banner

	mu sync.Mutex
	id string
	// gen changes whenever the page stops showing id; sub-actions started
	// under an older gen settle silently.
	gen     uint64
	save    *lifecycle.Action
	analyze *lifecycle.Action
	profile *analysis.Profile
}

// NewDetailPage creates an unmounted detail page for id.
func NewDetailPage(id string, deps Deps) *DetailPage {
	p := &DetailPage{
		deps:    deps,
		id:      id,
		save:    lifecycle.NewAction(deps.SaveSuccessTTL),
		analyze: lifecycle.NewAction(deps.SaveSuccessTTL),
	}
	p.lc = lifecycle.New(func(ctx context.Context) (*conversation.Detail, error) {
		id, _ := ctx.Value(idKey{}).(string)
		return deps.Service.Get(ctx, id)
	}, lifecycle.Options{
		Site:           "detail.fetch",
		FailureMessage: DetailFetchFailed,
		Reporter:       deps.Reporter,
		OnSettle:       deps.settleHook(KindDetail),
	})
	return p
}

// ID returns the conversation the page currently shows.
func (p *DetailPage) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Mount starts loading the conversation.
func (p *DetailPage) Mount(ctx context.Context) {
	p.lc.Start(context.WithValue(ctx, idKey{}, p.ID()))
}

// SetID points the page at another conversation. A different id is a fresh
// lifecycle: transient flags and the banner are reset and the page reloads.
func (p *DetailPage) SetID(ctx context.Context, id string) {
	p.mu.Lock()
	if id == p.id {
		p.mu.Unlock()
		return
	}
	p.id = id
	p.gen++
	p.save.Close()
	p.analyze.Close()
	p.save = lifecycle.NewAction(p.deps.SaveSuccessTTL)
	p.analyze = lifecycle.NewAction(p.deps.SaveSuccessTTL)
	p.profile = nil
	p.banner.Clear()
	p.mu.Unlock()

	p.lc.Start(context.WithValue(ctx, idKey{}, id))
}

// Wait blocks until the conversation has settled or ctx is done.
func (p *DetailPage) Wait(ctx context.Context) error {
	return p.lc.Wait(ctx)
}

// Unmount discards the page; pending results and timers become no-ops.
func (p *DetailPage) Unmount() {
	p.lc.Close()
	p.mu.Lock()
	p.gen++
	p.save.Close()
	p.analyze.Close()
	p.mu.Unlock()
}

// loaded returns the conversation when the page offers actions on it.
func (p *DetailPage) loaded() (*conversation.Detail, bool) {
	snap := p.lc.Snapshot()
	if snap.State != lifecycle.StateLoaded || snap.Data == nil {
		return nil, false
	}
	return snap.Data, true
}

type pageActions struct {
	id      string
	gen     uint64
	save    *lifecycle.Action
	analyze *lifecycle.Action
}

func (p *DetailPage) actions() pageActions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pageActions{id: p.id, gen: p.gen, save: p.save, analyze: p.analyze}
}

func (p *DetailPage) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen == gen
}

// fail raises the banner and reports err, unless the page has moved on
// since gen.
func (p *DetailPage) fail(ctx context.Context, gen uint64, site, msg string, err error) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.banner.Set(msg)
	p.mu.Unlock()
	p.deps.report(ctx, site, err)
}

// Delete asks for confirmation and deletes the conversation shown when the
// delete started. On success the navigator is sent back to the list. If the
// page moved to another conversation meanwhile, the outcome is returned but
// the page is left alone.
func (p *DetailPage) Delete(ctx context.Context) Outcome {
	if _, ok := p.loaded(); !ok {
		return OutcomeUnavailable
	}
	cur := p.actions()
	id, gen := cur.id, cur.gen
	if !p.deps.confirm(ctx, DeletePrompt) {
		return OutcomeDeclined
	}
	if err := p.deps.Service.Delete(ctx, id); err != nil {
		p.fail(ctx, gen, "detail.delete", DeleteFailed, err)
		return OutcomeFailed
	}
	if p.current(gen) {
		p.deps.navigate(ListPath)
	}
	return OutcomeDone
}

// Save asks the backend to write the transcript to
// conversation_<id>.txt. The save flag is up while the request runs and
// the success flag clears itself after the configured TTL.
func (p *DetailPage) Save(ctx context.Context) Outcome {
	if _, ok := p.loaded(); !ok {
		return OutcomeUnavailable
	}
	cur := p.actions()
	id, gen := cur.id, cur.gen
	err := cur.save.Run(ctx, func(ctx context.Context) error {
		return p.deps.Service.Save(ctx, id, conversation.SaveFilename(id))
	})
	switch {
	case errors.Is(err, lifecycle.ErrInFlight):
		return OutcomeBusy
	case err != nil:
		p.fail(ctx, gen, "detail.save", SaveFailed, err)
		return OutcomeFailed
	}
	return OutcomeDone
}

// Analyze profiles the transcript with the configured analyzer.
func (p *DetailPage) Analyze(ctx context.Context) Outcome {
	detail, ok := p.loaded()
	if !ok || p.deps.Analyzer == nil {
		return OutcomeUnavailable
	}
	cur := p.actions()
	gen := cur.gen
	var profile *analysis.Profile
	err := cur.analyze.Run(ctx, func(ctx context.Context) error {
		var err error
		profile, err = p.deps.Analyzer.Analyze(ctx, detail)
		return err
	})
	switch {
	case errors.Is(err, lifecycle.ErrInFlight):
		return OutcomeBusy
	case err != nil:
		p.fail(ctx, gen, "detail.analyze", AnalyzeFailed, err)
		return OutcomeFailed
	}

	p.mu.Lock()
	if p.gen == gen {
		p.profile = profile
	}
	p.mu.Unlock()
	return OutcomeDone
}

// Conversation returns the loaded record, nil while loading, after a
// failure or when the backend had none.
func (p *DetailPage) Conversation() *conversation.Detail {
	d, _ := p.loaded()
	return d
}

// Model renders the page's current state.
func (p *DetailPage) Model() DetailModel {
	snap := p.lc.Snapshot()
	cur := p.actions()

	m := DetailModel{State: snap.State, CanAnalyze: p.deps.Analyzer != nil}
	switch snap.State {
	case lifecycle.StateLoading:
		m.Loading = true
		return m
	case lifecycle.StateFailed:
		m.Error = snap.Message
		return m
	}

	d := snap.Data
	if d == nil {
		m.NotFound = true
		return m
	}

	m.Error = p.banner.Message()
	m.ID = d.ConversationID
	m.AgentID = d.AgentID
	m.StartTime = p.deps.Clock.Format(d.StartTime(), "")
	m.StartUnix = orZero(d.StartTime())
	m.DurationSecs = orZero(d.Duration())
	m.Status = orDefault(&d.Status, UnknownStatus)
	m.Saving = cur.save.InFlight()
	m.Saved = cur.save.Succeeded()
	m.Analyzing = cur.analyze.InFlight()

	p.mu.Lock()
	m.Profile = p.profile
	p.mu.Unlock()

	if len(d.Transcript) == 0 {
		m.EmptyTranscript = true
		return m
	}
	m.Bubbles = make([]Bubble, 0, len(d.Transcript))
	for _, msg := range d.Transcript {
		m.Bubbles = append(m.Bubbles, bubble(msg))
	}
	return m
}

func bubble(msg conversation.Message) Bubble {
	b := Bubble{
		Class: AgentBubbleClass,
		Label: AgentLabel,
		Text:  msg.Message,
		User:  msg.IsUser(),
	}
	if b.User {
		b.Class = UserBubbleClass
		b.Label = UserLabel
	}
	if msg.TimeInCallSecs != nil && *msg.TimeInCallSecs > 0 {
		b.Time = fmt.Sprintf(" (%ds)", *msg.TimeInCallSecs)
	}
	return b
}
