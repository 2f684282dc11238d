// Package generator asks the AI for new test cases per page object and
// stores the ones that pass validation.
package generator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/prompts"
	"smarttest/internal/usecase/pageobject"

	"gopkg.in/yaml.v3"
)

const GeneratedMarker = "generated"

var (
	ErrNoAI           = errors.New("test generation needs an AI backend")
	ErrNoValidTests   = errors.New("no valid generated tests")
	ErrUnparsableYAML = errors.New("generated tests are not valid YAML")
)

type Config struct {
	Enabled bool
	PerPage int
}

// Validator checks a test case against the known actions and elements.
type Validator interface {
	Validate(tc entity.TestCase) error
}

type Writer interface {
	WriteGenerated(page string, tf entity.TestFile) (string, error)
}

type PageResult struct {
	Page     string
	Path     string
	Written  int
	Rejected []string
}

type UseCase struct {
	ai        output.AIPort
	pages     *pageobject.Registry
	actions   output.ActionRegistry
	validator Validator
	writer    Writer
	logger    output.LoggerPort
	cfg       Config
}

func New(
	ai output.AIPort,
	pages *pageobject.Registry,
	actions output.ActionRegistry,
	validator Validator,
	writer Writer,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	if cfg.PerPage < 1 {
		cfg.PerPage = 3
	}
	return &UseCase{
		ai:        ai,
		pages:     pages,
		actions:   actions,
		validator: validator,
		writer:    writer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate covers every page object. A disabled feature is a successful
// no-op. Per-page failures are joined; pages that succeed are still written.
func (uc *UseCase) Generate(ctx context.Context) ([]PageResult, error) {
	if !uc.cfg.Enabled {
		uc.logger.Info("test generation disabled")
		return nil, nil
	}
	if uc.ai == nil {
		return nil, ErrNoAI
	}

	var results []PageResult
	var errs []error
	for _, page := range uc.pages.Names() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := uc.generatePage(ctx, page)
		if err != nil {
			uc.logger.Warn("generation failed", "page", page, "error", err.Error())
			errs = append(errs, fmt.Errorf("page %s: %w", page, err))
			continue
		}
		uc.logger.Info("tests generated", "page", page, "written", res.Written, "rejected", len(res.Rejected), "path", res.Path)
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (uc *UseCase) generatePage(ctx context.Context, page string) (PageResult, error) {
	po, err := uc.pages.Page(page)
	if err != nil {
		return PageResult{}, err
	}

	data := prompts.GenerationData{
		Page:    page,
		Path:    po.Path,
		BaseURL: uc.pages.BaseURL(),
		Count:   uc.cfg.PerPage,
	}
	for _, name := range uc.pages.ElementNames(page) {
		data.Elements = append(data.Elements, prompts.NamedItem{Name: name, Description: po.Elements[name].Description})
	}
	for _, a := range uc.actions.All() {
		data.Actions = append(data.Actions, prompts.NamedItem{Name: a.Name(), Description: a.Description()})
	}

	prompt, err := prompts.Generation(data)
	if err != nil {
		return PageResult{}, err
	}
	reply, err := uc.ai.Complete(ctx, prompts.SystemPrompt, prompt)
	if err != nil {
		return PageResult{}, err
	}

	tests, err := ParseTests(reply)
	if err != nil {
		return PageResult{}, err
	}

	res := PageResult{Page: page}
	seen := make(map[string]bool)
	var valid []entity.TestCase
	for i, tc := range tests {
		tc = normalize(tc, page, i)
		for seen[tc.Name] {
			tc.Name += "_x"
		}
		if err := uc.validator.Validate(tc); err != nil {
			uc.logger.Debug("generated test rejected", "page", page, "test", tc.Name, "error", err.Error())
			res.Rejected = append(res.Rejected, tc.Name)
			continue
		}
		seen[tc.Name] = true
		valid = append(valid, tc)
	}
	if len(valid) == 0 {
		return res, fmt.Errorf("%w (%d rejected)", ErrNoValidTests, len(res.Rejected))
	}

	path, err := uc.writer.WriteGenerated(page, entity.TestFile{
		Name:  page + " (generated)",
		Page:  page,
		Tests: valid,
	})
	if err != nil {
		return res, err
	}
	res.Path = path
	res.Written = len(valid)
	return res, nil
}

// ParseTests reads the model's YAML reply. Both a {tests: [...]} document
// and a bare list are accepted.
func ParseTests(reply string) ([]entity.TestCase, error) {
	body := prompts.StripFences(reply)

	var tf entity.TestFile
	if err := yaml.Unmarshal([]byte(body), &tf); err == nil && len(tf.Tests) > 0 {
		return tf.Tests, nil
	}
	var list []entity.TestCase
	if err := yaml.Unmarshal([]byte(body), &list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparsableYAML, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: no tests in reply", ErrUnparsableYAML)
	}
	return list, nil
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

func normalize(tc entity.TestCase, page string, i int) entity.TestCase {
	name := nonIdent.ReplaceAllString(strings.ToLower(strings.TrimSpace(tc.Name)), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = fmt.Sprintf("generated_%d", i+1)
	}
	if !strings.HasPrefix(name, "test_") {
		name = "test_" + name
	}
	tc.Name = name
	tc.Page = page
	tc.Skip = ""
	if !tc.HasMarker(GeneratedMarker) {
		tc.Markers = append(tc.Markers, GeneratedMarker)
	}
	return tc
}
