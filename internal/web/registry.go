package web

import (
	"context"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/comigor/convoview/internal/logger"
	"github.com/comigor/convoview/internal/view"
)

// page is a mounted page instance the browser can address by id.
type page struct {
	id     string
	kind   view.Kind
	list   *view.ListPage
	detail *view.DetailPage
	nav    *view.NavigationRecorder
}

func (p *page) wait(ctx context.Context) error {
	if p.kind == view.KindList {
		return p.list.Wait(ctx)
	}
	return p.detail.Wait(ctx)
}

func (p *page) unmount() {
	if p.kind == view.KindList {
		p.list.Unmount()
		return
	}
	p.detail.Unmount()
}

func (p *page) href() string {
	return "/pages/" + p.id
}

// registry holds the most recently used page instances. Evicted pages are
// unmounted, so their pending fetches and timers stop mattering.
type registry struct {
	cache   *lru.Cache
	metrics *Metrics
}

func newRegistry(size int, metrics *Metrics) (*registry, error) {
	r := &registry{metrics: metrics}
	cache, err := lru.NewWithEvict(size, func(key, value interface{}) {
		p := value.(*page)
		p.unmount()
		metrics.ActivePages.Dec()
		logger.L.Debug("page unmounted", "page", key, "kind", p.kind)
	})
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

func (r *registry) add(p *page) {
	if p.id == "" {
		p.id = uuid.NewString()
	}
	r.cache.Add(p.id, p)
	r.metrics.ActivePages.Inc()
}

func (r *registry) get(id string) (*page, bool) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*page), true
}

func (r *registry) len() int {
	return r.cache.Len()
}

// purge unmounts every page.
func (r *registry) purge() {
	r.cache.Purge()
}
