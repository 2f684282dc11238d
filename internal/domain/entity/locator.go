package entity

import (
	"errors"
	"fmt"
	"strings"
)

type Strategy string

const (
	ByID              Strategy = "id"
	ByCSS             Strategy = "css"
	ByXPath           Strategy = "xpath"
	ByName            Strategy = "name"
	ByClassName       Strategy = "class_name"
	ByTagName         Strategy = "tag_name"
	ByLinkText        Strategy = "link_text"
	ByPartialLinkText Strategy = "partial_link_text"
)

var ErrInvalidLocator = errors.New("invalid locator")

var strategies = map[Strategy]struct{}{
	ByID: {}, ByCSS: {}, ByXPath: {}, ByName: {}, ByClassName: {},
	ByTagName: {}, ByLinkText: {}, ByPartialLinkText: {},
}

// ParseStrategy accepts the canonical names plus the Selenium-style
// spellings ("css selector", "CLASS_NAME", "link text").
func ParseStrategy(s string) (Strategy, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, " ", "_")
	if norm == "css_selector" {
		norm = string(ByCSS)
	}
	st := Strategy(norm)
	if _, ok := strategies[st]; !ok {
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidLocator, s)
	}
	return st, nil
}

// Locator identifies a UI element. Description is only an AI hint.
type Locator struct {
	By          Strategy `yaml:"by" json:"by"`
	Value       string   `yaml:"value" json:"value"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

func (l Locator) IsZero() bool {
	return l.By == "" && l.Value == ""
}

func (l Locator) Validate() error {
	if _, ok := strategies[l.By]; !ok {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidLocator, l.By)
	}
	if strings.TrimSpace(l.Value) == "" {
		return fmt.Errorf("%w: empty value for %s", ErrInvalidLocator, l.By)
	}
	return nil
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}
