package prompts

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"smarttest/internal/domain/entity"
)

type HealingData struct {
	Element     string
	Description string
	Primary     string
	URL         string
	Title       string
	Elements    string
	Text        string
}

type NamedItem struct {
	Name        string
	Description string
}

type GenerationData struct {
	Page     string
	Path     string
	BaseURL  string
	Count    int
	Elements []NamedItem
	Actions  []NamedItem
}

type AnalysisData struct {
	Suite    string
	Summary  entity.Summary
	PassRate float64
	Duration time.Duration
	Healed   int
	Failures []entity.RunResult
}

func Healing(data HealingData) (string, error) {
	return Render("healing", HealingPrompt, data)
}

func Generation(data GenerationData) (string, error) {
	return Render("generation", GenerationPrompt, data)
}

func Analysis(data AnalysisData) (string, error) {
	return Render("analysis", AnalysisPrompt, data)
}

// Render executes a text/template. Missing keys are errors so a renamed
// field cannot silently produce an empty prompt section.
func Render(name, baseTemplate string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(baseTemplate)
	if err != nil {
		return "", fmt.Errorf("parse %s prompt: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}

	return buf.String(), nil
}
