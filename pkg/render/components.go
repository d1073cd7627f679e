// Package render builds the HTML fragments injected into the search page and
// turns fragments back into text for terminal output.
package render

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"
)

// Card is the view model of one grant result.
type Card struct {
	ID         string
	Title      string
	Permalink  string
	Amount     string
	Deadline   string
	Excerpt    string
	Categories []string
}

// CardGrid renders cards into the results grid. An empty slice renders the
// no-results placeholder instead of an empty grid.
func CardGrid(cards []Card, noResults string) templ.Component {
	if len(cards) == 0 {
		return NoResults(noResults)
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div class="grant-cards-grid">`); err != nil {
			return err
		}
		for _, c := range cards {
			if err := GrantCard(c).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// GrantCard renders a single card. Text fields are escaped; the excerpt is
// CMS-generated HTML and is written as is.
func GrantCard(c Card) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b bytes.Buffer
		b.WriteString(`<article class="grant-card"><header class="grant-header"><h3 class="grant-title"><a href="`)
		b.WriteString(templ.EscapeString(string(templ.URL(c.Permalink))))
		b.WriteString(`">`)
		b.WriteString(templ.EscapeString(c.Title))
		b.WriteString(`</a></h3><button class="grant-favorite" data-id="`)
		b.WriteString(templ.EscapeString(c.ID))
		b.WriteString(`"><i class="far fa-heart"></i></button></header>`)

		b.WriteString(`<div class="grant-meta"><span class="grant-meta-item grant-amount"><i class="fas fa-yen-sign"></i>`)
		b.WriteString(templ.EscapeString(c.Amount))
		b.WriteString(`</span><span class="grant-meta-item grant-deadline"><i class="fas fa-calendar"></i>`)
		b.WriteString(templ.EscapeString(c.Deadline))
		b.WriteString(`</span></div><div class="grant-description">`)
		if _, err := w.Write(b.Bytes()); err != nil {
			return err
		}

		if err := templ.Raw(c.Excerpt).Render(ctx, w); err != nil {
			return err
		}

		b.Reset()
		b.WriteString(`</div><div class="grant-tags">`)
		for _, cat := range c.Categories {
			b.WriteString(`<span class="grant-tag">`)
			b.WriteString(templ.EscapeString(cat))
			b.WriteString(`</span>`)
		}
		b.WriteString(`</div></article>`)
		_, err := w.Write(b.Bytes())
		return err
	})
}

func NoResults(msg string) templ.Component {
	return messageBox("no-results", msg)
}

// ErrorMessage renders msg as the inline error shown in the results area.
func ErrorMessage(msg string) templ.Component {
	return messageBox("error-message", msg)
}

func messageBox(class, msg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="`+class+`"><p>`+templ.EscapeString(msg)+`</p></div>`)
		return err
	})
}

// String renders c into a string.
func String(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
