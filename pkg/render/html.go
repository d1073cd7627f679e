package render

import (
	"strconv"
	"strings"

	"github.com/grantinsight/gisearch/pkg/dom"
	"golang.org/x/net/html"
)

// PageLink is an element of a pagination fragment that targets a page.
type PageLink struct {
	Page  int
	Label string
}

// PageLinks returns every element of a pagination fragment that advertises a
// positive target page through data-page, in document order.
func PageLinks(fragment string) []PageLink {
	nodes, err := dom.ParseFragment(fragment)
	if err != nil {
		return nil
	}
	var links []PageLink
	dom.Walk(nodes, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		raw, ok := dom.Attr(n, "data-page")
		if !ok {
			return true
		}
		page, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || page <= 0 {
			return true
		}
		links = append(links, PageLink{Page: page, Label: dom.NodeText(n)})
		return false
	})
	return links
}
