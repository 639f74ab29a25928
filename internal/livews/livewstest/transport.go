// Package livewstest provides an in-memory livews.Client for tests.
package livewstest

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/park285/baseball-scorekeeper/internal/livews"
)

// Transport records sent frames and lets a test drive inbound frames and
// state changes synchronously.
type Transport struct {
	mu       sync.Mutex
	state    livews.State
	sent     [][]byte
	msgCbs   map[int]livews.MessageCallback
	stateCbs map[int]livews.StateCallback
	errCbs   map[int]livews.ErrorCallback
	next     int
	connects int
}

var _ livews.Client = (*Transport)(nil)

func New(st livews.State) *Transport {
	return &Transport{
		state:    st,
		msgCbs:   map[int]livews.MessageCallback{},
		stateCbs: map[int]livews.StateCallback{},
		errCbs:   map[int]livews.ErrorCallback{},
	}
}

func (f *Transport) Connect(context.Context) error {
	f.mu.Lock()
	f.connects++
	f.mu.Unlock()
	return nil
}

func (f *Transport) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *Transport) Send(_ context.Context, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != livews.StateOpen {
		return livews.ErrNotConnected
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, raw)
	return nil
}

func (f *Transport) State() livews.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Transport) OnMessage(cb livews.MessageCallback) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.msgCbs[f.next] = cb
	return f.next
}

func (f *Transport) RemoveMessageCallback(id int) {
	f.mu.Lock()
	delete(f.msgCbs, id)
	f.mu.Unlock()
}

func (f *Transport) OnStateChange(cb livews.StateCallback) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.stateCbs[f.next] = cb
	return f.next
}

func (f *Transport) RemoveStateCallback(id int) {
	f.mu.Lock()
	delete(f.stateCbs, id)
	f.mu.Unlock()
}

func (f *Transport) OnError(cb livews.ErrorCallback) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.errCbs[f.next] = cb
	return f.next
}

func (f *Transport) RemoveErrorCallback(id int) {
	f.mu.Lock()
	delete(f.errCbs, id)
	f.mu.Unlock()
}

func (f *Transport) Close(context.Context) error {
	f.SetState(livews.StateClosed)
	return nil
}

func sortedIDs[T any](m map[int]T) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Deliver hands frame to every message callback on the calling goroutine.
func (f *Transport) Deliver(frame string) {
	f.mu.Lock()
	var cbs []livews.MessageCallback
	for _, id := range sortedIDs(f.msgCbs) {
		cbs = append(cbs, f.msgCbs[id])
	}
	f.mu.Unlock()
	for _, cb := range cbs {
		cb([]byte(frame))
	}
}

func (f *Transport) SetState(st livews.State) {
	f.mu.Lock()
	if f.state == st {
		f.mu.Unlock()
		return
	}
	f.state = st
	var cbs []livews.StateCallback
	for _, id := range sortedIDs(f.stateCbs) {
		cbs = append(cbs, f.stateCbs[id])
	}
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(st)
	}
}

// Fail reports err on the error side channel without changing state.
func (f *Transport) Fail(err error) {
	f.mu.Lock()
	var cbs []livews.ErrorCallback
	for _, id := range sortedIDs(f.errCbs) {
		cbs = append(cbs, f.errCbs[id])
	}
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(err)
	}
}

// Frames decodes every sent frame in send order.
func (f *Transport) Frames() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.sent))
	for _, raw := range f.sent {
		var m map[string]any
		_ = json.Unmarshal(raw, &m)
		out = append(out, m)
	}
	return out
}

// Last is the most recent sent frame, nil when nothing was sent.
func (f *Transport) Last() map[string]any {
	fr := f.Frames()
	if len(fr) == 0 {
		return nil
	}
	return fr[len(fr)-1]
}
