package render

import (
	"context"
	"strings"
	"testing"

	"github.com/grantinsight/gisearch/pkg/dom"
)

func TestCardGridRendersCards(t *testing.T) {
	cards := []Card{
		{
			ID:         "101",
			Title:      "IT導入補助金 <2025>",
			Permalink:  "https://example.com/grants/it/",
			Amount:     "450万円",
			Deadline:   "2025-10-31",
			Excerpt:    "<p>中小企業の<strong>IT</strong>導入を支援</p>",
			Categories: []string{"IT", "中小企業"},
		},
		{ID: "102", Title: "ものづくり補助金", Permalink: "https://example.com/grants/mono/"},
	}

	out, err := String(context.Background(), CardGrid(cards, "none"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if !strings.HasPrefix(out, `<div class="grant-cards-grid">`) {
		t.Fatalf("expected grid wrapper, got %q", out)
	}
	if got := dom.CountClass(out, "grant-card"); got != 2 {
		t.Fatalf("expected 2 cards, got %d", got)
	}
	if !strings.Contains(out, "IT導入補助金 &lt;2025&gt;") {
		t.Errorf("title not escaped: %q", out)
	}
	if !strings.Contains(out, "<strong>IT</strong>") {
		t.Errorf("excerpt should be written as html: %q", out)
	}
	if !strings.Contains(out, `data-id="101"`) {
		t.Errorf("favorite button missing data-id: %q", out)
	}
	if got := dom.CountClass(out, "grant-tag"); got != 2 {
		t.Errorf("expected 2 tags, got %d", got)
	}
}

func TestCardGridEmptyRendersPlaceholder(t *testing.T) {
	out, err := String(context.Background(), CardGrid(nil, "No results found"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if dom.CountClass(out, "grant-cards-grid") != 0 {
		t.Fatalf("empty result set must not render a grid: %q", out)
	}
	if dom.CountClass(out, "no-results") != 1 {
		t.Fatalf("expected no-results placeholder: %q", out)
	}
	if dom.PlainText(out) != "No results found" {
		t.Fatalf("unexpected text %q", dom.PlainText(out))
	}
}

func TestUnsafePermalinkIsSanitized(t *testing.T) {
	out, err := String(context.Background(), GrantCard(Card{Title: "x", Permalink: "javascript:alert(1)"}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "javascript:") {
		t.Fatalf("javascript url survived: %q", out)
	}
}

func TestErrorMessageText(t *testing.T) {
	out, err := String(context.Background(), ErrorMessage("invalid filter"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if dom.PlainText(out) != "invalid filter" {
		t.Fatalf("expected exactly the message text, got %q", dom.PlainText(out))
	}
	if dom.CountClass(out, "error-message") != 1 {
		t.Fatalf("missing error-message wrapper: %q", out)
	}
}

func TestPageLinks(t *testing.T) {
	fragment := `<ul class="pagination">
		<li class="pagination-item"><a href="#" data-page="1">1</a></li>
		<li class="pagination-item current"><span>2</span></li>
		<li class="pagination-item"><a href="#" data-page="3">3</a></li>
		<li class="pagination-item"><a href="#" data-page="0">bad</a></li>
		<li class="pagination-item"><a href="#" data-page="x">bad</a></li>
		<li class="pagination-item"><button data-page=" 4 "><span>次へ</span></button></li>
	</ul>`

	links := PageLinks(fragment)
	want := []PageLink{{1, "1"}, {3, "3"}, {4, "次へ"}}
	if len(links) != len(want) {
		t.Fatalf("got %d links (%v), want %d", len(links), links, len(want))
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("link %d = %+v, want %+v", i, links[i], want[i])
		}
	}
}

func TestTerminal(t *testing.T) {
	grid, _ := String(context.Background(), CardGrid([]Card{{
		Title:      "事業再構築補助金",
		Permalink:  "https://example.com/g/1/",
		Amount:     "1500万円",
		Deadline:   "2025-12-01",
		Excerpt:    "<p>新分野展開</p>",
		Categories: []string{"製造業"},
	}}, ""))

	out := Terminal(grid, 60)
	for _, want := range []string{"事業再構築補助金", "https://example.com/g/1/", "1500万円", "2025-12-01", "新分野展開", "#製造業"} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal output missing %q:\n%s", want, out)
		}
	}

	if out := Terminal(`<div class="error-message"><p>boom</p></div>`, 60); !strings.Contains(out, "boom") {
		t.Errorf("error message missing: %q", out)
	}
	if out := Terminal(`<section>server <b>rendered</b></section>`, 60); !strings.Contains(out, "server rendered") {
		t.Errorf("fallback text missing: %q", out)
	}
}

func TestTerminalPagination(t *testing.T) {
	out := TerminalPagination(`<a data-page="1">1</a><a data-page="2">2</a><a data-page="2">next</a>`, 2)
	if !strings.Contains(out, "1 [2]") {
		t.Fatalf("unexpected pagination summary %q", out)
	}
	if TerminalPagination("", 1) != "" {
		t.Fatalf("empty fragment should produce no output")
	}
}
