package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true, "textarea": true,
	"label": true, "form": true, "img": true, "h1": true, "h2": true, "h3": true,
	"nav": true, "li": true,
}

var summaryAttrs = []string{
	"id", "name", "class", "type", "href", "placeholder", "value",
	"title", "alt", "role", "aria-label", "data-testid", "data-test",
}

// Summarize lists the elements a locator is likely to target, one per line,
// in document order. At most maxElements lines are produced.
func Summarize(rawHTML string, maxElements int) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if maxElements > 0 && len(lines) >= maxElements {
			return
		}
		if n.Type == html.ElementNode {
			if isOneOf(n.Data, DefaultCleanConfig.TagsToRemove...) {
				return
			}
			if interactiveTags[n.Data] || hasAttr(n, "id") || hasAttr(n, "data-testid") {
				if line := describe(n); line != "" {
					lines = append(lines, line)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(lines, "\n")
}

func describe(n *html.Node) string {
	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(n.Data)
	for _, key := range summaryAttrs {
		if v, ok := attr(n, key); ok && v != "" {
			fmt.Fprintf(&sb, " %s=%q", key, clip(v, 80))
		}
	}
	sb.WriteString(">")
	if text := clip(strings.Join(strings.Fields(Text(n)), " "), 60); text != "" {
		sb.WriteString(" ")
		sb.WriteString(text)
	}
	return sb.String()
}

// Text concatenates the text nodes under n.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isOneOf(n.Data, "script", "style", "noscript") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// VisibleText returns the whitespace-collapsed text of the document body.
func VisibleText(rawHTML string, maxSize int) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}
	return truncate(strings.Join(strings.Fields(Text(root)), " "), maxSize)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
