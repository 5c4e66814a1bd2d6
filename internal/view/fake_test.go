package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/convoview/internal/analysis"
	"github.com/comigor/convoview/internal/conversation"
)

type call struct {
	Op       string
	ID       string
	Filename string
}

type fakeService struct {
	mu      sync.Mutex
	list    []conversation.Summary
	details map[string]*conversation.Detail
	listErr error
	getErr  error
	delErr  error
	saveErr error
	// gate, when set, blocks Get for the given id until closed.
	gate  map[string]chan struct{}
	block chan struct{}
	calls []call
}

func (f *fakeService) record(c call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeService) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeService) List(ctx context.Context) ([]conversation.Summary, error) {
	f.record(call{Op: "list"})
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]conversation.Summary(nil), f.list...), nil
}

func (f *fakeService) Get(ctx context.Context, id string) (*conversation.Detail, error) {
	f.record(call{Op: "get", ID: id})
	if ch, ok := f.gate[id]; ok {
		<-ch
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.details[id], nil
}

func (f *fakeService) Delete(ctx context.Context, id string) error {
	f.record(call{Op: "delete", ID: id})
	return f.delErr
}

func (f *fakeService) Save(ctx context.Context, id, filename string) error {
	f.record(call{Op: "save", ID: id, Filename: filename})
	if f.block != nil {
		<-f.block
	}
	return f.saveErr
}

type fakeAnalyzer struct {
	profile *analysis.Profile
	err     error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, d *conversation.Detail) (*analysis.Profile, error) {
	return a.profile, a.err
}

type countingConfirmer struct {
	answer  bool
	prompts []string
}

func (c *countingConfirmer) Confirm(_ context.Context, prompt string) bool {
	c.prompts = append(c.prompts, prompt)
	return c.answer
}

type reported struct {
	mu    sync.Mutex
	sites []string
}

func (r *reported) Report(_ context.Context, site string, _ error) {
	r.mu.Lock()
	r.sites = append(r.sites, site)
	r.mu.Unlock()
}

func (r *reported) Sites() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sites...)
}

func str(s string) *string { return &s }
func num(n int64) *int64   { return &n }

func utcClock() Clock {
	return Clock{Location: time.UTC, Layout: DefaultTimeLayout}
}

type waiter interface {
	Wait(ctx context.Context) error
}

func settle(t *testing.T, p waiter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
}
