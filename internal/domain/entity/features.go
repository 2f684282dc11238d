package entity

// Features are the AI toggles of a suite.
type Features struct {
	SelfHealing    bool `json:"self_healing"`
	VisualTesting  bool `json:"visual_testing"`
	TestGeneration bool `json:"test_generation"`
	TestAnalysis   bool `json:"test_analysis"`
}
