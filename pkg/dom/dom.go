// Package dom models the parts of a search page the controller interacts
// with: form controls, containers that receive HTML fragments, and loading
// indicators.
//
// Controls come in four variants (text input, checkbox/radio group, single
// select, multi select) behind one Control interface, so callers never branch
// on the element kind to read or write a value. Event handlers are explicit
// subscriptions that return a disposal func.
//
// Document is an in-memory page used by the terminal and web hosts and by
// tests. Every mutation it performs is reported to observers as a Patch so a
// remote view can mirror it.
package dom

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type EventType string

const (
	EventInput  EventType = "input"
	EventChange EventType = "change"
	EventSubmit EventType = "submit"
	EventClick  EventType = "click"
)

// Event is delivered to handlers registered with On.
type Event struct {
	Type   EventType         `json:"type"`
	Target string            `json:"target"`
	Value  string            `json:"value,omitempty"`
	Values []string          `json:"values,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// Attr returns the attribute of the event's origin node, or "".
func (e Event) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

type Handler func(Event)

// Subscription detaches a handler. Calling it more than once is a no-op.
type Subscription func()

type Element interface {
	ID() string
	On(t EventType, h Handler) Subscription
}

type ControlKind int

const (
	KindText ControlKind = iota
	KindToggleGroup
	KindSingleSelect
	KindMultiSelect
)

func (k ControlKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindToggleGroup:
		return "toggle-group"
	case KindSingleSelect:
		return "select"
	case KindMultiSelect:
		return "multi-select"
	default:
		return "unknown"
	}
}

// Control is a form element holding one or more values.
type Control interface {
	Element
	Kind() ControlKind
	// Values returns the current non-empty values in document order: the
	// typed text, the checked options, or the selected options.
	Values() []string
	// SetValue applies a value in its serialized form. Multi-valued
	// controls accept a comma-joined list.
	SetValue(v string)
	Clear()
}

// Container receives rendered HTML fragments.
type Container interface {
	Element
	SetHTML(html string)
	HTML() string
	// Text returns the human-readable text of the current fragment.
	Text() string
	SetBusy(busy bool)
}

// Animator is implemented by containers that can play the staggered entrance
// of the elements carrying class. Element i starts after i*step.
type Animator interface {
	Stagger(class string, step, duration time.Duration)
}

type Indicator interface {
	ID() string
	Show()
	Hide()
	Visible() bool
}

// Page resolves element ids. A missing id yields ok == false.
type Page interface {
	Control(id string) (Control, bool)
	Container(id string) (Container, bool)
	Indicator(id string) (Indicator, bool)
}

// Option is an entry of a toggle group or select.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

// SplitList splits a comma-joined value list, dropping blanks.
func SplitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// emitter keeps handler registrations for one element.
type emitter struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[uint64]registration
}

type registration struct {
	typ EventType
	fn  Handler
}

func (e *emitter) on(t EventType, h Handler) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[uint64]registration)
	}
	id := e.nextID
	e.nextID++
	e.handlers[id] = registration{typ: t, fn: h}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.handlers, id)
			e.mu.Unlock()
		})
	}
}

// fire calls handlers outside the lock so they may (un)subscribe.
func (e *emitter) fire(ev Event) {
	e.mu.Lock()
	ids := make([]uint64, 0, len(e.handlers))
	for id, r := range e.handlers {
		if r.typ == ev.Type {
			ids = append(ids, id)
		}
	}
	// Registration order.
	slices.Sort(ids)
	fns := make([]Handler, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.handlers[id].fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (e *emitter) count(t EventType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, r := range e.handlers {
		if r.typ == t {
			n++
		}
	}
	return n
}
