package state

import (
	"context"
	"sync"
	"time"

	"github.com/Its-donkey/solution-submit/internal/ui/forms"
	"github.com/Its-donkey/solution-submit/internal/ui/model"
)

// DefaultTTL is how long an idle form stays registered.
const DefaultTTL = time.Hour

// Registry tracks the open submission forms of the HTML front-end by token.
type Registry struct {
	mu    sync.RWMutex
	ttl   time.Duration
	forms map[string]*forms.Controller
	now   func() time.Time
}

// NewRegistry constructs an empty Registry. A non-positive ttl uses DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:   ttl,
		forms: make(map[string]*forms.Controller),
		now:   time.Now,
	}
}

// Add registers form under its ID, replacing any previous entry.
func (r *Registry) Add(form *forms.Controller) {
	if form == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[form.ID()] = form
}

// Get looks up a form by token.
func (r *Registry) Get(id string) (*forms.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	form, ok := r.forms[id]
	return form, ok
}

// Remove drops the form registered under id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.forms, id)
}

// Len reports how many forms are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forms)
}

// Sweep drops forms idle for longer than the TTL and returns how many were
// removed. Forms with a pending submission are kept. Close handlers are not
// run for evicted forms.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, form := range r.forms {
		if form.Phase() == model.PhaseSubmitting {
			continue
		}
		if form.LastActivity().Before(cutoff) {
			delete(r.forms, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
