package dom

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

type PatchKind string

const (
	PatchHTML    PatchKind = "html"
	PatchBusy    PatchKind = "busy"
	PatchValue   PatchKind = "value"
	PatchVisible PatchKind = "visible"
	PatchStagger PatchKind = "stagger"
)

// Patch describes one mutation of a Document.
type Patch struct {
	Kind   PatchKind `json:"kind"`
	Target string    `json:"target"`
	HTML   string    `json:"html,omitempty"`
	Values []string  `json:"values,omitempty"`
	On     bool      `json:"on,omitempty"`
	Class  string    `json:"class,omitempty"`
	StepMS int64     `json:"step_ms,omitempty"`
	DurMS  int64     `json:"duration_ms,omitempty"`
}

// Document is an in-memory Page.
type Document struct {
	mu         sync.RWMutex
	controls   map[string]Control
	containers map[string]*Panel
	indicators map[string]*LoadingIndicator
	observers  observerSet
}

func NewDocument() *Document {
	return &Document{
		controls:   make(map[string]Control),
		containers: make(map[string]*Panel),
		indicators: make(map[string]*LoadingIndicator),
	}
}

// Observe registers fn for every subsequent Patch.
func (d *Document) Observe(fn func(Patch)) Subscription {
	return d.observers.add(fn)
}

func (d *Document) emit(p Patch) {
	d.observers.notify(p)
}

type observerSet struct {
	mu   sync.Mutex
	next uint64
	fns  map[uint64]func(Patch)
}

func (o *observerSet) add(fn func(Patch)) Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[uint64]func(Patch))
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	return func() {
		o.mu.Lock()
		delete(o.fns, id)
		o.mu.Unlock()
	}
}

func (o *observerSet) notify(p Patch) {
	o.mu.Lock()
	fns := make([]func(Patch), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (d *Document) Control(id string) (Control, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.controls[id]
	return c, ok
}

func (d *Document) Container(id string) (Container, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.containers[id]
	if !ok {
		return nil, false
	}
	return c, true
}

func (d *Document) Indicator(id string) (Indicator, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.indicators[id]
	if !ok {
		return nil, false
	}
	return i, true
}

// Panel returns the concrete container registered under id.
func (d *Document) Panel(id string) *Panel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.containers[id]
}

func (d *Document) addControl(id string, c Control) {
	d.mu.Lock()
	d.controls[id] = c
	d.mu.Unlock()
}

func (d *Document) AddText(id, value string) *TextInput {
	t := &TextInput{id: id, value: value, doc: d}
	d.addControl(id, t)
	return t
}

// AddToggleGroup registers a checkbox set, or a radio set when radio is true.
func (d *Document) AddToggleGroup(id string, radio bool, options ...Option) *ToggleGroup {
	g := &ToggleGroup{id: id, radio: radio, options: slices.Clone(options), doc: d}
	d.addControl(id, g)
	return g
}

func (d *Document) AddSelect(id string, options ...Option) *Select {
	s := &Select{id: id, options: slices.Clone(options), doc: d}
	d.addControl(id, s)
	return s
}

func (d *Document) AddMultiSelect(id string, options ...Option) *Select {
	s := &Select{id: id, multiple: true, options: slices.Clone(options), doc: d}
	d.addControl(id, s)
	return s
}

func (d *Document) AddContainer(id string) *Panel {
	p := &Panel{id: id, doc: d}
	d.mu.Lock()
	d.containers[id] = p
	d.mu.Unlock()
	return p
}

func (d *Document) AddIndicator(id string, visible bool) *LoadingIndicator {
	i := &LoadingIndicator{id: id, visible: visible, doc: d}
	d.mu.Lock()
	d.indicators[id] = i
	d.mu.Unlock()
	return i
}

// Snapshot returns patches that rebuild the current state of every element,
// ordered by kind then id.
func (d *Document) Snapshot() []Patch {
	d.mu.RLock()
	controls := make([]Control, 0, len(d.controls))
	for _, c := range d.controls {
		controls = append(controls, c)
	}
	panels := make([]*Panel, 0, len(d.containers))
	for _, p := range d.containers {
		panels = append(panels, p)
	}
	indicators := make([]*LoadingIndicator, 0, len(d.indicators))
	for _, i := range d.indicators {
		indicators = append(indicators, i)
	}
	d.mu.RUnlock()

	slices.SortFunc(controls, func(a, b Control) int { return strings.Compare(a.ID(), b.ID()) })
	slices.SortFunc(panels, func(a, b *Panel) int { return strings.Compare(a.id, b.id) })
	slices.SortFunc(indicators, func(a, b *LoadingIndicator) int { return strings.Compare(a.id, b.id) })

	var out []Patch
	for _, c := range controls {
		out = append(out, Patch{Kind: PatchValue, Target: c.ID(), Values: c.Values()})
	}
	for _, p := range panels {
		out = append(out,
			Patch{Kind: PatchHTML, Target: p.id, HTML: p.HTML()},
			Patch{Kind: PatchBusy, Target: p.id, On: p.Busy()},
		)
	}
	for _, i := range indicators {
		out = append(out, Patch{Kind: PatchVisible, Target: i.id, On: i.Visible()})
	}
	return out
}

// Dispatch applies an event coming from a remote view: the carried value is
// written to the target control first, then the event is fired.
func (d *Document) Dispatch(ev Event) error {
	if c, ok := d.Control(ev.Target); ok {
		switch ev.Type {
		case EventInput, EventChange, EventSubmit:
			if ev.Values != nil {
				c.SetValue(strings.Join(ev.Values, ","))
			} else {
				c.SetValue(ev.Value)
			}
		}
		c.(firer).fire(ev)
		return nil
	}
	if p := d.Panel(ev.Target); p != nil {
		p.events.fire(ev)
		return nil
	}
	return fmt.Errorf("unknown element %q", ev.Target)
}

type firer interface {
	fire(Event)
}

type counter interface {
	count(EventType) int
}

// HandlerCount reports the number of live handlers for t on element id.
func (d *Document) HandlerCount(id string, t EventType) int {
	if c, ok := d.Control(id); ok {
		if n, ok := c.(counter); ok {
			return n.count(t)
		}
		return 0
	}
	if p := d.Panel(id); p != nil {
		return p.HandlerCount(t)
	}
	return 0
}

// TextInput is a text or search field.
type TextInput struct {
	mu     sync.RWMutex
	id     string
	value  string
	events emitter
	doc    *Document
}

func (t *TextInput) ID() string        { return t.id }
func (t *TextInput) Kind() ControlKind { return KindText }

func (t *TextInput) On(et EventType, h Handler) Subscription { return t.events.on(et, h) }

func (t *TextInput) Value() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

func (t *TextInput) Values() []string {
	if v := t.Value(); v != "" {
		return []string{v}
	}
	return nil
}

func (t *TextInput) SetValue(v string) {
	t.mu.Lock()
	changed := t.value != v
	t.value = v
	t.mu.Unlock()
	if changed {
		t.doc.emit(Patch{Kind: PatchValue, Target: t.id, Values: t.Values()})
	}
}

func (t *TextInput) Clear() { t.SetValue("") }

// Type simulates typing: the value changes and an input event fires.
func (t *TextInput) Type(v string) {
	t.SetValue(v)
	t.fire(Event{Type: EventInput, Target: t.id, Value: v})
}

// Submit simulates pressing Enter.
func (t *TextInput) Submit() {
	t.fire(Event{Type: EventSubmit, Target: t.id, Value: t.Value()})
}

func (t *TextInput) fire(ev Event)         { t.events.fire(ev) }
func (t *TextInput) count(et EventType) int { return t.events.count(et) }

// ToggleGroup is a set of checkboxes or radio buttons sharing one name.
type ToggleGroup struct {
	mu      sync.RWMutex
	id      string
	radio   bool
	options []Option
	events  emitter
	doc     *Document
}

func (g *ToggleGroup) ID() string        { return g.id }
func (g *ToggleGroup) Kind() ControlKind { return KindToggleGroup }

func (g *ToggleGroup) On(et EventType, h Handler) Subscription { return g.events.on(et, h) }

func (g *ToggleGroup) Values() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return selectedValues(g.options)
}

// SetValue checks exactly the options whose value appears in the
// comma-joined list. A radio group keeps only the first match.
func (g *ToggleGroup) SetValue(v string) {
	want := SplitList(v)
	g.mu.Lock()
	matched := false
	for i := range g.options {
		on := slices.Contains(want, g.options[i].Value)
		if g.radio && matched {
			on = false
		}
		matched = matched || on
		g.options[i].Selected = on
	}
	g.mu.Unlock()
	g.doc.emit(Patch{Kind: PatchValue, Target: g.id, Values: g.Values()})
}

func (g *ToggleGroup) Clear() { g.SetValue("") }

// Toggle simulates a click on one option and fires a change event.
func (g *ToggleGroup) Toggle(value string, checked bool) {
	g.mu.Lock()
	for i := range g.options {
		switch {
		case g.options[i].Value == value:
			g.options[i].Selected = checked
		case g.radio && checked:
			g.options[i].Selected = false
		}
	}
	values := selectedValues(g.options)
	g.mu.Unlock()
	g.doc.emit(Patch{Kind: PatchValue, Target: g.id, Values: values})
	g.fire(Event{Type: EventChange, Target: g.id, Values: values})
}

func (g *ToggleGroup) fire(ev Event)         { g.events.fire(ev) }
func (g *ToggleGroup) count(et EventType) int { return g.events.count(et) }

// Select is a <select>, optionally with the multiple attribute.
type Select struct {
	mu       sync.RWMutex
	id       string
	multiple bool
	options  []Option
	free     string
	events   emitter
	doc      *Document
}

func (s *Select) ID() string { return s.id }

func (s *Select) Kind() ControlKind {
	if s.multiple {
		return KindMultiSelect
	}
	return KindSingleSelect
}

func (s *Select) On(et EventType, h Handler) Subscription { return s.events.on(et, h) }

func (s *Select) Values() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.options) == 0 {
		if s.free == "" {
			return nil
		}
		return []string{s.free}
	}
	return selectedValues(s.options)
}

// Value returns the first selected value, like HTMLSelectElement.value.
func (s *Select) Value() string {
	if v := s.Values(); len(v) > 0 {
		return v[0]
	}
	return ""
}

// SetValue selects the matching option(s). On a single select a value with
// no matching option clears the selection. A select declared without options
// accepts any value.
func (s *Select) SetValue(v string) {
	s.mu.Lock()
	if len(s.options) == 0 {
		s.free = v
	} else {
		want := []string{v}
		if s.multiple {
			want = SplitList(v)
		}
		for i := range s.options {
			s.options[i].Selected = v != "" && slices.Contains(want, s.options[i].Value)
		}
	}
	s.mu.Unlock()
	s.doc.emit(Patch{Kind: PatchValue, Target: s.id, Values: s.Values()})
}

func (s *Select) Clear() { s.SetValue("") }

// Choose simulates a user selection and fires a change event.
func (s *Select) Choose(values ...string) {
	s.SetValue(strings.Join(values, ","))
	s.fire(Event{Type: EventChange, Target: s.id, Values: s.Values()})
}

func (s *Select) fire(ev Event)         { s.events.fire(ev) }
func (s *Select) count(et EventType) int { return s.events.count(et) }

// Panel is a container element.
type Panel struct {
	mu       sync.RWMutex
	id       string
	html     string
	busy     bool
	animated int
	events   emitter
	doc      *Document
}

func (p *Panel) ID() string { return p.id }

func (p *Panel) On(et EventType, h Handler) Subscription { return p.events.on(et, h) }

func (p *Panel) SetHTML(html string) {
	p.mu.Lock()
	p.html = html
	p.mu.Unlock()
	p.doc.emit(Patch{Kind: PatchHTML, Target: p.id, HTML: html})
}

func (p *Panel) HTML() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.html
}

func (p *Panel) Text() string {
	return PlainText(p.HTML())
}

func (p *Panel) SetBusy(busy bool) {
	p.mu.Lock()
	p.busy = busy
	p.mu.Unlock()
	p.doc.emit(Patch{Kind: PatchBusy, Target: p.id, On: busy})
}

func (p *Panel) Busy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.busy
}

// Stagger starts the entrance animation of the current content.
func (p *Panel) Stagger(class string, step, duration time.Duration) {
	n := CountClass(p.HTML(), class)
	p.mu.Lock()
	p.animated = n
	p.mu.Unlock()
	p.doc.emit(Patch{
		Kind:   PatchStagger,
		Target: p.id,
		Class:  class,
		StepMS: step.Milliseconds(),
		DurMS:  duration.Milliseconds(),
	})
}

// Animated returns how many elements the last Stagger call animated.
func (p *Panel) Animated() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.animated
}

// Click simulates a click on a descendant carrying attrs.
func (p *Panel) Click(attrs map[string]string) {
	p.events.fire(Event{Type: EventClick, Target: p.id, Attrs: attrs})
}

// HandlerCount reports the number of live handlers for t.
func (p *Panel) HandlerCount(t EventType) int {
	return p.events.count(t)
}

type LoadingIndicator struct {
	mu      sync.RWMutex
	id      string
	visible bool
	doc     *Document
}

func (i *LoadingIndicator) ID() string { return i.id }

func (i *LoadingIndicator) Show() { i.set(true) }
func (i *LoadingIndicator) Hide() { i.set(false) }

func (i *LoadingIndicator) Visible() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.visible
}

func (i *LoadingIndicator) set(v bool) {
	i.mu.Lock()
	i.visible = v
	i.mu.Unlock()
	i.doc.emit(Patch{Kind: PatchVisible, Target: i.id, On: v})
}

func selectedValues(options []Option) []string {
	var out []string
	for _, o := range options {
		if o.Selected && o.Value != "" {
			out = append(out, o.Value)
		}
	}
	return out
}
