package prompts

import (
	_ "embed"
)

//go:embed system.txt
var SystemPrompt string

//go:embed healing.txt
var HealingPrompt string

//go:embed generation.txt
var GenerationPrompt string

//go:embed analysis.txt
var AnalysisPrompt string
