package view

import (
	"context"
	"net/url"

	"github.com/comigor/convoview/internal/conversation"
	"github.com/comigor/convoview/internal/lifecycle"
)

// User-facing text of the list page.
const (
	ListFetchFailed  = "Failed to load conversations. Please make sure the API server is running."
	DeleteFailed     = "Failed to delete conversation. Please try again."
	DeletePrompt     = "Are you sure you want to delete this conversation?"
	DefaultAgentName = "Conversation with AI"
	UnknownStatus    = "Unknown"
	UnknownTime      = "Unknown time"
)

// Card is one conversation in the list.
type Card struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	Status       string `json:"status" yaml:"status"`
	Started      string `json:"started" yaml:"started"`
	StartUnix    int64  `json:"start_unix" yaml:"start_unix"`
	DurationSecs int64  `json:"duration_secs" yaml:"duration_secs"`
	Href         string `json:"-" yaml:"-"`
}

// ListModel is everything the list page renders.
type ListModel struct {
	State   lifecycle.State
	Loading bool
	// Error is the fetch failure in the Failed state, otherwise the banner
	// left by a failed delete.
	Error string
	Cards []Card
	// Empty is set when the list loaded with no conversations.
	Empty bool
}

// ListPage is the conversation list.
type ListPage struct {
	deps   Deps
	lc     *lifecycle.Lifecycle[[]conversation.Summary]
	banner lifecycle.Banner
}

// NewListPage creates an unmounted list page.
func NewListPage(deps Deps) *ListPage {
	p := &ListPage{deps: deps}
	p.lc = lifecycle.New(func(ctx context.Context) ([]conversation.Summary, error) {
		return deps.Service.List(ctx)
	}, lifecycle.Options{
		Site:           "list.fetch",
		FailureMessage: ListFetchFailed,
		Reporter:       deps.Reporter,
		OnSettle:       deps.settleHook(KindList),
	})
	return p
}

// Mount starts loading the list.
func (p *ListPage) Mount(ctx context.Context) {
	p.lc.Start(ctx)
}

// Wait blocks until the list has settled or ctx is done.
func (p *ListPage) Wait(ctx context.Context) error {
	return p.lc.Wait(ctx)
}

// Unmount discards the page's state; late results are ignored.
func (p *ListPage) Unmount() {
	p.lc.Close()
}

// Delete asks for confirmation and deletes the conversation. On success the
// card is dropped from the held list without refetching.
func (p *ListPage) Delete(ctx context.Context, id string) Outcome {
	if p.lc.State() != lifecycle.StateLoaded {
		return OutcomeUnavailable
	}
	if !p.deps.confirm(ctx, DeletePrompt) {
		return OutcomeDeclined
	}
	if err := p.deps.Service.Delete(ctx, id); err != nil {
		p.deps.report(ctx, "list.delete", err)
		p.banner.Set(DeleteFailed)
		return OutcomeFailed
	}
	p.lc.Update(func(items []conversation.Summary) []conversation.Summary {
		return conversation.Remove(items, id)
	})
	return OutcomeDone
}

// Conversations returns the held collection as the backend shaped it, nil
// unless the page is Loaded.
func (p *ListPage) Conversations() []conversation.Summary {
	snap := p.lc.Snapshot()
	if snap.State != lifecycle.StateLoaded {
		return nil
	}
	return snap.Data
}

// Model renders the page's current state.
func (p *ListPage) Model() ListModel {
	snap := p.lc.Snapshot()
	m := ListModel{State: snap.State}
	switch snap.State {
	case lifecycle.StateLoading:
		m.Loading = true
	case lifecycle.StateFailed:
		m.Error = snap.Message
	case lifecycle.StateLoaded:
		m.Error = p.banner.Message()
		m.Cards = make([]Card, 0, len(snap.Data))
		for _, s := range snap.Data {
			m.Cards = append(m.Cards, p.card(s))
		}
		m.Empty = len(m.Cards) == 0
	}
	return m
}

func (p *ListPage) card(s conversation.Summary) Card {
	return Card{
		ID:           s.ConversationID,
		Title:        orDefault(s.AgentName, DefaultAgentName),
		Status:       orDefault(s.Status, UnknownStatus),
		Started:      p.deps.Clock.Format(s.StartTimeUnixSecs, UnknownTime),
		StartUnix:    orZero(s.StartTimeUnixSecs),
		DurationSecs: orZero(s.CallDurationSecs),
		Href:         DetailPath(s.ConversationID),
	}
}

// DetailPath is the route of a conversation's detail page.
func DetailPath(id string) string {
	return "/conversations/" + url.PathEscape(id)
}
