// Package dom turns raw page HTML into the compact form sent to the model
// when a locator needs healing.
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

type CleanConfig struct {
	TagsToRemove  []string
	AttrsToRemove []string
	// KeepAttrPrefixes wins over the data-/aria-/on* filter.
	KeepAttrPrefixes []string
	MaxOutputSize    int
	CustomAttrFilter func(attr html.Attribute) bool
}

var DefaultCleanConfig = CleanConfig{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head", "title", "template",
	},
	AttrsToRemove: []string{
		"style", "srcset", "sizes", "loading", "decoding", "fetchpriority", "tabindex",
	},
	// Test ids and accessible names are the best hints a healer gets.
	KeepAttrPrefixes: []string{"data-testid", "data-test", "aria-label"},
	MaxOutputSize:    30_000,
}

const truncatedMarker = "\n<!-- truncated -->"

// Clean strips scripts, comments and noisy attributes from the body of
// rawHTML. Input that cannot be parsed is returned truncated but otherwise
// untouched.
func Clean(rawHTML string, cfg *CleanConfig) string {
	if cfg == nil {
		cfg = &DefaultCleanConfig
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return truncate(rawHTML, cfg.MaxOutputSize)
	}

	body := findElement(doc, "body")
	if body == nil {
		return truncate(rawHTML, cfg.MaxOutputSize)
	}

	cleanNode(body, cfg)
	return truncate(render(body), cfg.MaxOutputSize)
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findElement(c, tag); b != nil {
			return b
		}
	}
	return nil
}

func cleanNode(n *html.Node, cfg *CleanConfig) {
	if n.Type == html.CommentNode {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	if isOneOf(n.Data, cfg.TagsToRemove...) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}

	n.Attr = filterAttributes(n.Attr, cfg)

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		cleanNode(c, cfg)
		c = next
	}
}

func filterAttributes(attrs []html.Attribute, cfg *CleanConfig) []html.Attribute {
	var kept []html.Attribute
	for _, attr := range attrs {
		if !shouldRemoveAttr(attr, cfg) {
			kept = append(kept, attr)
		}
	}
	return kept
}

func shouldRemoveAttr(attr html.Attribute, cfg *CleanConfig) bool {
	key := attr.Key
	for _, p := range cfg.KeepAttrPrefixes {
		if strings.HasPrefix(key, p) {
			return false
		}
	}
	if isOneOf(key, cfg.AttrsToRemove...) {
		return true
	}
	if strings.HasPrefix(key, "data-") || strings.HasPrefix(key, "aria-") || strings.HasPrefix(key, "on") {
		return true
	}
	return cfg.CustomAttrFilter != nil && cfg.CustomAttrFilter(attr)
}

func render(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

func truncate(s string, maxSize int) string {
	if maxSize > 0 && len(s) > maxSize {
		return s[:maxSize] + truncatedMarker
	}
	return s
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
