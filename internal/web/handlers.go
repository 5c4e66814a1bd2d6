package web

import (
	"context"
	"net/http"
	"time"

	"github.com/comigor/convoview/internal/logger"
	"github.com/comigor/convoview/internal/view"
)

type confirmedKey struct{}

// formConfirmed answers the delete prompt with what the browser's confirm()
// put in the form. Without script the field stays "no".
func formConfirmed(ctx context.Context, _ string) bool {
	ok, _ := ctx.Value(confirmedKey{}).(bool)
	return ok
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	p := &page{kind: view.KindList, list: view.NewListPage(s.deps)}
	s.pages.add(p)
	p.list.Mount(r.Context())
	s.show(w, r, p)
}

// handleDetail mounts a detail page. With ?page= naming a live detail
// instance the instance is pointed at the new id instead.
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if existing, ok := s.pages.get(r.URL.Query().Get("page")); ok && existing.kind == view.KindDetail {
		existing.detail.SetID(r.Context(), id)
		s.show(w, r, existing)
		return
	}

	nav := &view.NavigationRecorder{}
	deps := s.deps
	deps.Navigator = nav
	p := &page{kind: view.KindDetail, detail: view.NewDetailPage(id, deps), nav: nav}
	s.pages.add(p)
	p.detail.Mount(r.Context())
	s.show(w, r, p)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pages.get(r.PathValue("page"))
	if !ok {
		http.Redirect(w, r, view.ListPath, http.StatusFound)
		return
	}
	s.show(w, r, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pages.get(r.PathValue("page"))
	if !ok {
		http.Redirect(w, r, view.ListPath, http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := context.WithValue(r.Context(), confirmedKey{}, r.PostForm.Get("confirmed") == "yes")

	target := p.href()
	var outcome view.Outcome
	if p.kind == view.KindList {
		id := r.PostForm.Get("conversation_id")
		if id == "" {
			http.Error(w, "missing conversation_id", http.StatusBadRequest)
			return
		}
		outcome = p.list.Delete(ctx, id)
	} else if r.PostForm.Get("conversation_id") != p.detail.ID() {
		// The instance was pointed at another conversation since the form
		// was rendered.
		outcome = view.OutcomeUnavailable
	} else {
		outcome = p.detail.Delete(ctx)
		if outcome == view.OutcomeDone {
			target = p.nav.Target()
		}
	}
	s.metrics.action("delete", outcome)
	logger.L.Debug("delete handled", "page", p.id, "outcome", outcome)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.detailAction(w, r, "save", (*view.DetailPage).Save)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.detailAction(w, r, "analyze", (*view.DetailPage).Analyze)
}

// detailAction runs a detail sub-action in the background and redirects
// back to the page once it settles or the render wait runs out, whichever
// comes first. A page still showing the action in flight refreshes itself.
func (s *Server) detailAction(w http.ResponseWriter, r *http.Request, name string, run func(*view.DetailPage, context.Context) view.Outcome) {
	p, ok := s.pages.get(r.PathValue("page"))
	if !ok {
		http.Redirect(w, r, view.ListPath, http.StatusSeeOther)
		return
	}
	if p.kind != view.KindDetail {
		http.NotFound(w, r)
		return
	}

	done := make(chan struct{})
	ctx := context.WithoutCancel(r.Context())
	go func() {
		defer close(done)
		outcome := run(p.detail, ctx)
		s.metrics.action(name, outcome)
		logger.L.Debug("action handled", "action", name, "page", p.id, "outcome", outcome)
	}()

	timer := time.NewTimer(s.renderWait)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-r.Context().Done():
	}
	http.Redirect(w, r, p.href(), http.StatusSeeOther)
}

// show waits briefly for the page to settle and renders it. A page that is
// still loading is rendered with the loading indicator and refreshes itself.
func (s *Server) show(w http.ResponseWriter, r *http.Request, p *page) {
	if s.renderWait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), s.renderWait)
		_ = p.wait(ctx)
		cancel()
	}

	data := pageData{Page: p.id}
	if p.kind == view.KindList {
		m := p.list.Model()
		data.Title = "Your Conversations"
		data.List = &m
		if m.Loading {
			data.Refresh = p.href()
		}
		s.render(w, pageList, http.StatusOK, data)
		return
	}

	m := p.detail.Model()
	data.Title = "Conversation Details"
	data.Detail = &m
	if m.Loading || m.Saving || m.Analyzing {
		data.Refresh = p.href()
	}
	s.render(w, pageDetail, http.StatusOK, data)
}
