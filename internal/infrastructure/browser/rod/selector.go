package rod

import (
	"regexp"
	"strings"

	"smarttest/internal/domain/entity"
)

type queryKind int

const (
	queryCSS queryKind = iota
	queryXPath
	queryText
)

type query struct {
	kind     queryKind
	selector string
	// text is a JavaScript regular expression matched against the element
	// text when kind is queryText.
	text string
}

// queryFor maps a locator strategy onto the lookup rod supports natively.
func queryFor(loc entity.Locator) query {
	v := strings.TrimSpace(loc.Value)
	switch loc.By {
	case entity.ByID:
		return query{kind: queryCSS, selector: attrSelector("id", v)}
	case entity.ByName:
		return query{kind: queryCSS, selector: attrSelector("name", v)}
	case entity.ByClassName:
		return query{kind: queryCSS, selector: "." + strings.Join(strings.Fields(v), ".")}
	case entity.ByTagName:
		return query{kind: queryCSS, selector: v}
	case entity.ByXPath:
		return query{kind: queryXPath, selector: v}
	case entity.ByLinkText:
		return query{kind: queryText, selector: "a", text: `^\s*` + regexp.QuoteMeta(v) + `\s*$`}
	case entity.ByPartialLinkText:
		return query{kind: queryText, selector: "a", text: regexp.QuoteMeta(v)}
	default:
		return query{kind: queryCSS, selector: v}
	}
}

func attrSelector(attr, value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `[` + attr + `="` + escaped + `"]`
}
