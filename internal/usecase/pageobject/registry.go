// Package pageobject holds the page objects of a suite. The registry is
// read-only after construction; healed locators never flow back into it.
package pageobject

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"smarttest/internal/domain/entity"
)

var (
	ErrUnknownPage    = errors.New("unknown page")
	ErrUnknownElement = errors.New("unknown element")
	ErrDuplicatePage  = errors.New("duplicate page")
)

type Registry struct {
	baseURL string
	pages   map[string]entity.PageObject
}

func NewRegistry(baseURL string, pages []entity.PageObject) (*Registry, error) {
	r := &Registry{
		baseURL: baseURL,
		pages:   make(map[string]entity.PageObject, len(pages)),
	}
	for _, p := range pages {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: page object without a name", entity.ErrInvalidStep)
		}
		if _, ok := r.pages[p.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePage, p.Name)
		}
		for name, el := range p.Elements {
			if el.Locator == nil || el.Locator.IsZero() {
				if strings.TrimSpace(el.Description) == "" {
					return nil, fmt.Errorf("page %s element %s: %w: needs a locator or a description", p.Name, name, entity.ErrInvalidLocator)
				}
				continue
			}
			if err := el.Locator.Validate(); err != nil {
				return nil, fmt.Errorf("page %s element %s: %w", p.Name, name, err)
			}
		}
		r.pages[p.Name] = p
	}
	return r, nil
}

func (r *Registry) BaseURL() string { return r.baseURL }

func (r *Registry) Page(name string) (entity.PageObject, error) {
	p, ok := r.pages[name]
	if !ok {
		return entity.PageObject{}, fmt.Errorf("%w: %q", ErrUnknownPage, name)
	}
	return p, nil
}

func (r *Registry) Element(page, name string) (entity.ElementDef, error) {
	p, err := r.Page(page)
	if err != nil {
		return entity.ElementDef{}, err
	}
	el, ok := p.Elements[name]
	if !ok {
		return entity.ElementDef{}, fmt.Errorf("%w: %q on page %s", ErrUnknownElement, name, page)
	}
	// Callers get their own locator so nothing they do reaches the registry.
	if el.Locator != nil {
		loc := *el.Locator
		el.Locator = &loc
	}
	return el, nil
}

// URL is the absolute address of a page object.
func (r *Registry) URL(page string) (string, error) {
	p, err := r.Page(page)
	if err != nil {
		return "", err
	}
	return r.Resolve(p.Path), nil
}

// Resolve joins a path onto the base URL. Absolute URLs pass through.
func (r *Registry) Resolve(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	if r.baseURL == "" {
		return path
	}
	base, err := url.Parse(r.baseURL)
	if err != nil {
		return strings.TrimRight(r.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return strings.TrimRight(r.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	return base.ResolveReference(ref).String()
}

// Names returns the page names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.pages))
	for n := range r.pages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ElementNames returns a page's element names in lexical order.
func (r *Registry) ElementNames(page string) []string {
	p, ok := r.pages[page]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(p.Elements))
	for n := range p.Elements {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
