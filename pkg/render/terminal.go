package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grantinsight/gisearch/pkg/dom"
	"golang.org/x/net/html"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Underline(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	pagerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("32"))
)

type termCard struct {
	title, url, amount, deadline, excerpt string
	tags                                  []string
}

// Terminal formats a results fragment for a terminal of the given width.
// Cards are boxed, the empty and error placeholders are styled, anything
// else is printed as plain text.
func Terminal(fragment string, width int) string {
	if width <= 0 {
		width = 80
	}
	nodes, err := dom.ParseFragment(fragment)
	if err != nil {
		return dom.PlainText(fragment)
	}

	var (
		cards   []termCard
		message string
		isError bool
	)
	dom.Walk(nodes, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch {
		case dom.HasClass(n, "grant-card"):
			cards = append(cards, extractCard(n))
			return false
		case dom.HasClass(n, "no-results"):
			message = dom.NodeText(n)
			return false
		case dom.HasClass(n, "error-message"):
			message, isError = dom.NodeText(n), true
			return false
		}
		return true
	})

	switch {
	case len(cards) > 0:
		var b strings.Builder
		for _, c := range cards {
			b.WriteString(cardStyle.Width(width - 2).Render(formatCard(c)))
			b.WriteString("\n")
		}
		return b.String()
	case isError:
		return errorStyle.Render(message) + "\n"
	case message != "":
		return noDataStyle.Render(message) + "\n"
	default:
		if t := dom.PlainText(fragment); t != "" {
			return t + "\n"
		}
		return ""
	}
}

// TerminalPagination summarizes the page links of a pagination fragment.
func TerminalPagination(fragment string, current int) string {
	links := PageLinks(fragment)
	if len(links) == 0 {
		return ""
	}
	seen := make(map[int]bool)
	var pages []string
	for _, l := range links {
		if seen[l.Page] {
			continue
		}
		seen[l.Page] = true
		label := fmt.Sprintf("%d", l.Page)
		if l.Page == current {
			label = "[" + label + "]"
		}
		pages = append(pages, label)
	}
	return pagerStyle.Render("pages: "+strings.Join(pages, " ")) + "\n"
}

func extractCard(n *html.Node) termCard {
	var c termCard
	dom.WalkNode(n, func(child *html.Node) bool {
		if child.Type != html.ElementNode {
			return true
		}
		switch {
		case dom.HasClass(child, "grant-title"):
			c.title = dom.NodeText(child)
			dom.WalkNode(child, func(a *html.Node) bool {
				if a.Type == html.ElementNode && a.Data == "a" {
					c.url, _ = dom.Attr(a, "href")
					return false
				}
				return true
			})
			return false
		case dom.HasClass(child, "grant-amount"):
			c.amount = dom.NodeText(child)
			return false
		case dom.HasClass(child, "grant-deadline"):
			c.deadline = dom.NodeText(child)
			return false
		case dom.HasClass(child, "grant-description"):
			c.excerpt = dom.NodeText(child)
			return false
		case dom.HasClass(child, "grant-tag"):
			if t := dom.NodeText(child); t != "" {
				c.tags = append(c.tags, t)
			}
			return false
		}
		return true
	})
	return c
}

func formatCard(c termCard) string {
	var lines []string
	lines = append(lines, titleStyle.Render(c.title))
	if c.url != "" {
		lines = append(lines, urlStyle.Render(c.url))
	}
	var meta []string
	if c.amount != "" {
		meta = append(meta, "¥ "+c.amount)
	}
	if c.deadline != "" {
		meta = append(meta, "⏰ "+c.deadline)
	}
	if len(meta) > 0 {
		lines = append(lines, metaStyle.Render(strings.Join(meta, "  ")))
	}
	if c.excerpt != "" {
		lines = append(lines, c.excerpt)
	}
	if len(c.tags) > 0 {
		lines = append(lines, tagStyle.Render("#"+strings.Join(c.tags, " #")))
	}
	return strings.Join(lines, "\n")
}
