package session

import (
	"strings"
	"sync"

	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

// Reconciler holds the last authoritative STATE. Every STATE replaces the
// view wholesale; nothing is merged or recomputed locally.
type Reconciler struct {
	mu       sync.RWMutex
	view     scoreproto.State
	received bool
}

func NewReconciler() *Reconciler {
	return &Reconciler{view: scoreproto.InitialState()}
}

func (r *Reconciler) Replace(st scoreproto.State) {
	r.mu.Lock()
	r.view = st.Clone()
	if r.view.Runners == nil {
		r.view.Runners = []scoreproto.Base{}
	}
	r.received = true
	r.mu.Unlock()
}

// View returns a copy of the held snapshot.
func (r *Reconciler) View() scoreproto.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view.Clone()
}

// Received reports whether any STATE has arrived yet.
func (r *Reconciler) Received() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.received
}

// DisplayBatter prefers the server's current_batter and falls back to the
// local prediction.
func DisplayBatter(view scoreproto.State, predicted string) string {
	if view.CurrentBatter != nil {
		if b := strings.TrimSpace(*view.CurrentBatter); b != "" {
			return b
		}
	}
	return predicted
}
