// Package realtime fans out page events to the connections that mirror a
// page.
//
// Every page view (one browser tab, one websocket connection) registers under
// its own page id. Patches are published to the listeners of one page;
// notices that concern every view (a configuration reload) are broadcast.
//
// Delivery is best effort: a listener whose buffer is full misses the event
// and has its drop counter bumped, so its connection can resynchronize from
// a full snapshot instead of applying a partial stream.
package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/grantinsight/gisearch/pkg/dom"
)

// Event types.
const (
	TypeInit     = "init"
	TypePatch    = "patch"
	TypeSnapshot = "snapshot"
	TypeSuggest  = "suggest"
	TypeOutcome  = "outcome"
	TypeConfig   = "config"
)

// Event is the envelope written to websocket clients.
type Event struct {
	Type        string      `json:"type"`
	Page        string      `json:"page,omitempty"`
	Patch       *dom.Patch  `json:"patch,omitempty"`
	Patches     []dom.Patch `json:"patches,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	Outcome     string      `json:"outcome,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// PatchEvent wraps a page mutation.
func PatchEvent(p dom.Patch) Event {
	return Event{Type: TypePatch, Patch: &p}
}

// SnapshotEvent carries the full state of a page.
func SnapshotEvent(page string, patches []dom.Patch) Event {
	return Event{Type: TypeSnapshot, Page: page, Patches: patches}
}

// Hub is an in-memory fan-out dispatcher keyed by page id. It is safe for
// concurrent use.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]*Listener
	nextID    uint64
	bufSize   int
}

// Listener receives the events of one page.
type Listener struct {
	ID   uint64
	Page string
	C    <-chan Event

	ch      chan Event
	dropped atomic.Uint64
}

// TakeDropped returns how many events were dropped since the last call and
// resets the counter.
func (l *Listener) TakeDropped() uint64 {
	return l.dropped.Swap(0)
}

// NewHub constructs a hub with the given per-listener buffer size.
// If bufSize <= 0, a default of 64 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Hub{
		listeners: make(map[uint64]*Listener),
		bufSize:   bufSize,
	}
}

// Register adds a listener for page. Callers must Unregister it.
func (h *Hub) Register(page string) *Listener {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	l := &Listener{ID: id, Page: page, C: ch, ch: ch}
	h.listeners[id] = l
	return l
}

// Unregister removes the listener and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(l.ch)
	}
}

// Publish delivers ev to the listeners of page.
func (h *Hub) Publish(page string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, l := range h.listeners {
		if l.Page == page {
			deliver(l, ev)
		}
	}
}

// Broadcast delivers ev to every listener.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, l := range h.listeners {
		deliver(l, ev)
	}
}

func deliver(l *Listener, ev Event) {
	select {
	case l.ch <- ev:
	default:
		// Drop for slow listener.
		l.dropped.Add(1)
	}
}

// Size returns the number of registered listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// PageSize returns the number of listeners registered for page.
func (h *Hub) PageSize(page string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, l := range h.listeners {
		if l.Page == page {
			n++
		}
	}
	return n
}
