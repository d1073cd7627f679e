package search

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"
)

type fakeSuggester struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSuggester) Suggest(ctx context.Context, keyword string) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, keyword)
	f.mu.Unlock()
	return []string{keyword + "補助金"}, nil
}

func (f *fakeSuggester) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newSuggestController(t *testing.T, mutate ...func(*Options)) (*Controller, *fakeSuggester, chan []string) {
	t.Helper()
	sg := &fakeSuggester{}
	events := make(chan []string, 8)
	opts := append([]func(*Options){func(o *Options) {
		o.DebounceDelay = 20 * time.Millisecond
		o.Suggester = sg
		o.OnSuggest = func(list []string) { events <- list }
	}}, mutate...)
	doc := newTestPage()
	ctrl := newTestController(t, doc, &fakeTransport{}, opts...)
	return ctrl, sg, events
}

func nextSuggestion(t *testing.T, events chan []string) []string {
	t.Helper()
	select {
	case list := <-events:
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("no suggestion event")
		return nil
	}
}

func TestDebouncedSuggestionLookup(t *testing.T) {
	ctrl, sg, events := newSuggestController(t)

	ctrl.HandleInput("I")
	ctrl.HandleInput("IT")
	ctrl.HandleInput("IT導入")

	if got := nextSuggestion(t, events); !reflect.DeepEqual(got, []string{"IT導入補助金"}) {
		t.Fatalf("suggestions = %v", got)
	}
	if calls := sg.Calls(); !reflect.DeepEqual(calls, []string{"IT導入"}) {
		t.Fatalf("Expected one lookup for the last keystroke, got %v", calls)
	}
}

func TestShortInputHidesSuggestions(t *testing.T) {
	ctrl, sg, events := newSuggestController(t)

	for _, in := range []string{"補", "  a  ", ""} {
		ctrl.HandleInput(in)
		if got := nextSuggestion(t, events); got != nil {
			t.Errorf("input %q produced suggestions %v", in, got)
		}
	}
	if n := len(sg.Calls()); n != 0 {
		t.Errorf("short input issued %d lookups", n)
	}
}

func TestTypingTriggersSuggestions(t *testing.T) {
	doc := newTestPage()
	sg := &fakeSuggester{}
	events := make(chan []string, 1)
	ctrl := newTestController(t, doc, &fakeTransport{}, func(o *Options) {
		o.DebounceDelay = 10 * time.Millisecond
		o.Suggester = sg
		o.OnSuggest = func(list []string) { events <- list }
	})
	ctrl.Initialize(context.Background())

	textInput(t, doc, "q").Type("助成")
	if got := nextSuggestion(t, events); !reflect.DeepEqual(got, []string{"助成補助金"}) {
		t.Fatalf("suggestions = %v", got)
	}
}

func TestAutoCompleteDisabled(t *testing.T) {
	ctrl, sg, events := newSuggestController(t, func(o *Options) { o.DisableAutoComplete = true })

	ctrl.HandleInput("ものづくり")
	select {
	case got := <-events:
		t.Fatalf("unexpected suggestion event %v", got)
	case <-time.After(100 * time.Millisecond):
	}
	if n := len(sg.Calls()); n != 0 {
		t.Errorf("disabled autocomplete issued %d lookups", n)
	}
}
