// Package components renders the shell page served by the web host. The
// results and pagination areas start empty and are filled by patches sent
// over the page's websocket.
package components

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"
)

type FieldKind int

const (
	FieldText FieldKind = iota
	FieldCheckboxes
	FieldSelect
)

type Choice struct {
	Value string
	Label string
}

// Field is one form element. ID matches the element id the controller
// resolves.
type Field struct {
	ID      string
	Name    string
	Label   string
	Kind    FieldKind
	Choices []Choice
}

type PageData struct {
	Title       string
	Version     string
	Placeholder string
	LoadingText string

	SearchInputs []Field
	Filters      []Field
	Sort         Field
	PerPage      Field

	ResultsID    string
	PaginationID string
	LoadingID    string

	// WSPath is the websocket endpoint. The page appends its own query
	// string so deep links reach the server.
	WSPath string
}

// SearchPage renders the full document.
func SearchPage(d PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b bytes.Buffer
		b.WriteString(`<!DOCTYPE html><html lang="ja"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>` + templ.EscapeString(d.Title) + `</title>`)
		b.WriteString(`<link rel="stylesheet" href="/static/gisearch.css">`)
		b.WriteString(`</head><body data-ws="` + templ.EscapeString(d.WSPath) + `">`)
		b.WriteString(`<main class="gi-search"><h1>` + templ.EscapeString(d.Title) + `</h1>`)
		b.WriteString(`<form class="gi-search-form" autocomplete="off" onsubmit="return false">`)
		if _, err := w.Write(b.Bytes()); err != nil {
			return err
		}

		for _, f := range d.SearchInputs {
			if err := searchInput(f, d.Placeholder).Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<div class="gi-filters">`); err != nil {
			return err
		}
		for _, f := range d.Filters {
			if err := field(f).Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</div><div class="gi-controls">`); err != nil {
			return err
		}
		for _, f := range []Field{d.Sort, d.PerPage} {
			if f.ID == "" {
				continue
			}
			if err := field(f).Render(ctx, w); err != nil {
				return err
			}
		}

		b.Reset()
		b.WriteString(`<button type="button" class="gi-reset" data-action="reset">リセット</button></div></form>`)
		b.WriteString(`<div id="` + templ.EscapeString(d.LoadingID) + `" class="gi-loading" hidden>`)
		b.WriteString(templ.EscapeString(d.LoadingText) + `</div>`)
		b.WriteString(`<div id="` + templ.EscapeString(d.ResultsID) + `" class="gi-results" aria-live="polite"></div>`)
		b.WriteString(`<nav id="` + templ.EscapeString(d.PaginationID) + `" class="gi-pagination"></nav>`)
		b.WriteString(`<footer class="gi-footer">` + templ.EscapeString(d.Version) + `</footer>`)
		b.WriteString(`</main><script src="/static/gisearch.js"></script></body></html>`)
		_, err := w.Write(b.Bytes())
		return err
	})
}

func searchInput(f Field, placeholder string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		id := templ.EscapeString(f.ID)
		_, err := io.WriteString(w, `<div class="gi-search-box">`+
			`<input type="search" id="`+id+`" name="search" placeholder="`+templ.EscapeString(placeholder)+`">`+
			`<button type="button" data-action="submit" data-target="`+id+`">検索</button>`+
			`<ul class="gi-suggestions" data-for="`+id+`" hidden></ul></div>`)
		return err
	})
}

func field(f Field) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b bytes.Buffer
		id := templ.EscapeString(f.ID)
		b.WriteString(`<fieldset class="gi-field gi-field-` + templ.EscapeString(f.Name) + `">`)
		if f.Label != "" {
			b.WriteString(`<legend>` + templ.EscapeString(f.Label) + `</legend>`)
		}
		switch f.Kind {
		case FieldCheckboxes:
			b.WriteString(`<div id="` + id + `" class="gi-toggle-group" data-kind="toggle">`)
			for _, c := range f.Choices {
				b.WriteString(`<label><input type="checkbox" value="` + templ.EscapeString(c.Value) + `"> `)
				b.WriteString(templ.EscapeString(c.Label) + `</label>`)
			}
			b.WriteString(`</div>`)
		case FieldSelect:
			b.WriteString(`<select id="` + id + `" name="` + templ.EscapeString(f.Name) + `">`)
			for _, c := range f.Choices {
				b.WriteString(`<option value="` + templ.EscapeString(c.Value) + `">`)
				b.WriteString(templ.EscapeString(c.Label) + `</option>`)
			}
			b.WriteString(`</select>`)
		default:
			b.WriteString(`<input type="text" id="` + id + `" name="` + templ.EscapeString(f.Name) + `">`)
		}
		b.WriteString(`</fieldset>`)
		_, err := w.Write(b.Bytes())
		return err
	})
}
