package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses s as the children of a <div>.
func ParseFragment(s string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	return html.ParseFragment(strings.NewReader(s), ctx)
}

// Walk visits every node of nodes depth-first.
func Walk(nodes []*html.Node, fn func(*html.Node) bool) {
	for _, n := range nodes {
		WalkNode(n, fn)
	}
}

// WalkNode visits n depth-first; fn returning false skips the children.
func WalkNode(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		WalkNode(c, fn)
	}
}

func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// CountClass returns the number of elements carrying class.
func CountClass(fragment, class string) int {
	nodes, err := ParseFragment(fragment)
	if err != nil {
		return 0
	}
	n := 0
	Walk(nodes, func(node *html.Node) bool {
		if node.Type == html.ElementNode && HasClass(node, class) {
			n++
		}
		return true
	})
	return n
}

// PlainText returns the visible text of a fragment with whitespace collapsed.
func PlainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	nodes, err := ParseFragment(fragment)
	if err != nil {
		return ""
	}
	var parts []string
	for _, n := range nodes {
		if t := NodeText(n); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// NodeText returns the text under n, skipping scripts and styles.
func NodeText(n *html.Node) string {
	var b strings.Builder
	WalkNode(n, func(c *html.Node) bool {
		switch c.Type {
		case html.ElementNode:
			if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
				return false
			}
		case html.TextNode:
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
