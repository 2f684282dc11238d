package entity

import "time"

// ElementDef is a page-object element: a description for the AI and an
// optional primary locator.
type ElementDef struct {
	Description string   `yaml:"description" json:"description"`
	Locator     *Locator `yaml:"locator,omitempty" json:"locator,omitempty"`
}

type PageObject struct {
	Name     string                `yaml:"name" json:"name"`
	Path     string                `yaml:"path" json:"path"`
	Elements map[string]ElementDef `yaml:"elements" json:"elements"`
}

// Step is one action of a test case. Which fields matter depends on Action.
type Step struct {
	Action       string            `yaml:"action" json:"action"`
	Page         string            `yaml:"page,omitempty" json:"page,omitempty"`
	Element      string            `yaml:"element,omitempty" json:"element,omitempty"`
	Path         string            `yaml:"path,omitempty" json:"path,omitempty"`
	URL          string            `yaml:"url,omitempty" json:"url,omitempty"`
	Text         string            `yaml:"text,omitempty" json:"text,omitempty"`
	Expect       string            `yaml:"expect,omitempty" json:"expect,omitempty"`
	Method       string            `yaml:"method,omitempty" json:"method,omitempty"`
	Body         string            `yaml:"body,omitempty" json:"body,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	ExpectStatus int               `yaml:"expect_status,omitempty" json:"expect_status,omitempty"`
	ExpectSchema any               `yaml:"expect_schema,omitempty" json:"expect_schema,omitempty"`
	Direction    string            `yaml:"direction,omitempty" json:"direction,omitempty"`
	Name         string            `yaml:"name,omitempty" json:"name,omitempty"`
	Duration     time.Duration     `yaml:"duration,omitempty" json:"duration,omitempty"`
}

type TestCase struct {
	Name    string   `yaml:"name" json:"name"`
	Page    string   `yaml:"page,omitempty" json:"page,omitempty"`
	Markers []string `yaml:"markers,omitempty" json:"markers,omitempty"`
	Skip    string   `yaml:"skip,omitempty" json:"skip,omitempty"`
	Steps   []Step   `yaml:"steps" json:"steps"`

	// File is filled in by discovery.
	File string `yaml:"-" json:"file,omitempty"`
}

func (tc TestCase) HasMarker(m string) bool {
	for _, x := range tc.Markers {
		if x == m {
			return true
		}
	}
	return false
}

// TestFile is the on-disk unit: one YAML document with a list of cases.
type TestFile struct {
	Name  string     `yaml:"name,omitempty"`
	Page  string     `yaml:"page,omitempty"`
	Tests []TestCase `yaml:"tests"`
}
