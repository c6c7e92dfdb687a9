package catalog

import (
	"strings"

	"golang.org/x/net/html"
)

// listItems pulls the text of <li> elements out of an HTML fragment.
// Recipe feeds commonly ship the ingredient list as a <ul> in the
// embedded content, which survives where structured data does not.
func listItems(fragment string) []string {
	if fragment == "" {
		return nil
	}
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	var items []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" {
			if text := strings.Join(strings.Fields(nodeText(n)), " "); text != "" {
				items = append(items, text)
			}
			return // nested lists inside an item are part of its text
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return items
}

// nodeText concatenates all text nodes under n
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
		sb.WriteString(" ")
	}
	return sb.String()
}
