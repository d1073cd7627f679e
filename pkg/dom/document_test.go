package dom

import (
	"reflect"
	"testing"
	"time"
)

func TestControlVariantsShareContract(t *testing.T) {
	doc := NewDocument()
	text := doc.AddText("q", "")
	checks := doc.AddToggleGroup("amount", false,
		Option{Value: "0-100"}, Option{Value: "100-500"}, Option{Value: "500-"})
	radios := doc.AddToggleGroup("status", true,
		Option{Value: "open"}, Option{Value: "closed"})
	single := doc.AddSelect("sort", Option{Value: "date_desc", Selected: true}, Option{Value: "amount_desc"})
	multi := doc.AddMultiSelect("region", Option{Value: "tokyo"}, Option{Value: "osaka"}, Option{Value: "kyoto"})

	tests := []struct {
		name    string
		control Control
		kind    ControlKind
		set     string
		want    []string
	}{
		{"text", text, KindText, "IT補助金", []string{"IT補助金"}},
		{"checkbox group", checks, KindToggleGroup, "500-,0-100", []string{"0-100", "500-"}},
		{"checkbox exact match only", checks, KindToggleGroup, "100", nil},
		{"radio group keeps first", radios, KindToggleGroup, "closed,open", []string{"open"}},
		{"single select", single, KindSingleSelect, "amount_desc", []string{"amount_desc"}},
		{"single select unknown clears", single, KindSingleSelect, "bogus", nil},
		{"multi select", multi, KindMultiSelect, "kyoto,tokyo", []string{"tokyo", "kyoto"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.control.Kind() != tt.kind {
				t.Fatalf("kind = %v, want %v", tt.control.Kind(), tt.kind)
			}
			tt.control.SetValue(tt.set)
			if got := tt.control.Values(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Values() = %v, want %v", got, tt.want)
			}
			tt.control.Clear()
			if got := tt.control.Values(); len(got) != 0 {
				t.Fatalf("Values() after Clear = %v", got)
			}
		})
	}
}

func TestSelectWithoutOptionsAcceptsAnyValue(t *testing.T) {
	doc := NewDocument()
	s := doc.AddSelect("per-page")
	s.SetValue("24")
	if s.Value() != "24" {
		t.Fatalf("Value() = %q, want 24", s.Value())
	}
}

func TestSubscriptionDisposal(t *testing.T) {
	doc := NewDocument()
	p := doc.AddContainer("pagination")

	calls := 0
	sub := p.On(EventClick, func(Event) { calls++ })
	other := p.On(EventChange, func(Event) { t.Fatal("change handler must not see clicks") })
	defer other()

	p.Click(map[string]string{"data-page": "2"})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if p.HandlerCount(EventClick) != 1 {
		t.Fatalf("expected one click handler")
	}

	sub()
	sub()
	p.Click(nil)
	if calls != 1 {
		t.Fatalf("handler fired after disposal")
	}
	if p.HandlerCount(EventClick) != 0 {
		t.Fatalf("handler still registered after disposal")
	}
}

func TestHandlersMayUnsubscribeWhileFiring(t *testing.T) {
	doc := NewDocument()
	in := doc.AddText("q", "")

	var sub Subscription
	fired := 0
	sub = in.On(EventInput, func(Event) {
		fired++
		sub()
	})
	in.Type("a")
	in.Type("ab")
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestObservePatches(t *testing.T) {
	doc := NewDocument()
	results := doc.AddContainer("results")
	loading := doc.AddIndicator("loading", false)
	q := doc.AddText("q", "")

	var patches []Patch
	stop := doc.Observe(func(p Patch) { patches = append(patches, p) })

	results.SetHTML(`<article class="grant-card">a</article><article class="grant-card">b</article>`)
	results.SetBusy(true)
	loading.Show()
	q.SetValue("助成金")
	q.SetValue("助成金")
	results.Stagger("grant-card", 50*time.Millisecond, 200*time.Millisecond)
	stop()
	loading.Hide()

	kinds := make([]PatchKind, 0, len(patches))
	for _, p := range patches {
		kinds = append(kinds, p.Kind)
	}
	want := []PatchKind{PatchHTML, PatchBusy, PatchVisible, PatchValue, PatchStagger}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("patch kinds = %v, want %v", kinds, want)
	}
	if patches[4].StepMS != 50 || patches[4].DurMS != 200 {
		t.Errorf("unexpected stagger patch %+v", patches[4])
	}
	if results.Animated() != 2 {
		t.Errorf("Animated() = %d, want 2", results.Animated())
	}
	if loading.Visible() {
		t.Errorf("indicator should be hidden")
	}
}

func TestDispatchRemoteEvents(t *testing.T) {
	doc := NewDocument()
	amount := doc.AddToggleGroup("amount", false, Option{Value: "a"}, Option{Value: "b"})
	pager := doc.AddContainer("pagination")

	var changed []string
	amount.On(EventChange, func(ev Event) { changed = ev.Values })
	var page string
	pager.On(EventClick, func(ev Event) { page = ev.Attr("data-page") })

	if err := doc.Dispatch(Event{Type: EventChange, Target: "amount", Values: []string{"b"}}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !reflect.DeepEqual(amount.Values(), []string{"b"}) || !reflect.DeepEqual(changed, []string{"b"}) {
		t.Fatalf("values = %v, event values = %v", amount.Values(), changed)
	}

	if err := doc.Dispatch(Event{Type: EventClick, Target: "pagination", Attrs: map[string]string{"data-page": "3"}}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if page != "3" {
		t.Fatalf("page = %q", page)
	}

	if err := doc.Dispatch(Event{Type: EventClick, Target: "missing"}); err == nil {
		t.Fatal("expected error for unknown target")
	}
}

func TestToggleFiresChange(t *testing.T) {
	doc := NewDocument()
	status := doc.AddToggleGroup("status", true, Option{Value: "open"}, Option{Value: "closed"})

	var got []string
	status.On(EventChange, func(ev Event) { got = ev.Values })

	status.Toggle("open", true)
	status.Toggle("closed", true)
	if !reflect.DeepEqual(got, []string{"closed"}) {
		t.Fatalf("radio toggle values = %v", got)
	}
}

func TestSplitList(t *testing.T) {
	if got := SplitList(" a, ,b ,"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("SplitList = %v", got)
	}
	if SplitList("") != nil {
		t.Fatalf("SplitList(\"\") should be nil")
	}
}

func TestSnapshot(t *testing.T) {
	doc := NewDocument()
	doc.AddText("q", "補助金")
	doc.AddToggleGroup("amount", false, Option{Value: "a", Selected: true}, Option{Value: "b"})
	doc.AddContainer("results").SetHTML("<p>x</p>")
	doc.AddIndicator("loading", true)

	got := doc.Snapshot()
	want := []Patch{
		{Kind: PatchValue, Target: "amount", Values: []string{"a"}},
		{Kind: PatchValue, Target: "q", Values: []string{"補助金"}},
		{Kind: PatchHTML, Target: "results", HTML: "<p>x</p>"},
		{Kind: PatchBusy, Target: "results"},
		{Kind: PatchVisible, Target: "loading", On: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Snapshot() = %+v\nwant %+v", got, want)
	}
}
