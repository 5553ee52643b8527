package lessonplanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

var scenarioSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"scenarios": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"description": stringProp("Visual description of the scene, used as the image generation prompt"),
					"dialogue":    stringProp("A short practice dialogue set in the scene"),
				},
				Required: []string{"description", "dialogue"},
			},
		},
	},
	Required: []string{"scenarios"},
}

// ScenarioMaker generates practice scenes for an image batch
type ScenarioMaker struct {
	backend TextBackend
}

// NewScenarioMaker creates a scenario maker on top of the given backend
func NewScenarioMaker(backend TextBackend) *ScenarioMaker {
	return &ScenarioMaker{backend: backend}
}

// GenerateScenarios requests exactly cfg.Count scenes; the backend may return a different number
func (sm *ScenarioMaker) GenerateScenarios(ctx context.Context, plan *ActivityPlan, cfg ScenarioConfig) ([]Scenario, error) {
	const op = "GenerateScenarios"
	if plan == nil {
		return nil, invalidInput(op, "plan is required")
	}
	if blank(cfg.FocusPoint) {
		return nil, invalidInput(op, "a teaching focus is required")
	}
	if cfg.Count <= 0 {
		return nil, invalidInput(op, "count must be positive, got %d", cfg.Count)
	}

	var sb strings.Builder
	sb.WriteString("You are a Chinese language teacher preparing illustrated practice material.\n\n")
	sb.WriteString(fmt.Sprintf("Activity Title: %s\n", plan.Title))
	sb.WriteString(fmt.Sprintf("Theme: %s\n", plan.Theme))
	sb.WriteString(fmt.Sprintf("Level: %s\n", plan.Level))
	sb.WriteString(fmt.Sprintf("Simulation: %s\n", plan.Simulation))
	sb.WriteString(fmt.Sprintf("Teaching Focus: %s\n\n", cfg.FocusPoint))
	sb.WriteString(fmt.Sprintf("Create exactly %d distinct scenes that let learners practise the teaching focus.\n", cfg.Count))
	sb.WriteString("For every scene provide:\n")
	sb.WriteString("- description: a concrete visual description an image model can draw (in English)\n")
	sb.WriteString("- dialogue: a short dialogue in Chinese that uses the teaching focus\n")

	payload, err := sm.backend.GenerateStructured(ctx, StructuredRequest{
		Op:       op,
		System:   "You design realistic scenes for language practice pictures.",
		Prompt:   sb.String(),
		ToolName: "submit_scenarios",
		ToolDesc: "Submit the practice scenes",
		Schema:   scenarioSchema,
	})
	if err != nil {
		return nil, err
	}

	var res struct {
		Scenarios []Scenario `json:"scenarios"`
	}
	fields, err := decodeObject(op, payload, &res, "scenarios")
	if err != nil {
		return nil, err
	}
	if err := requireItemFields(op, "scenarios", fields["scenarios"], "description", "dialogue"); err != nil {
		return nil, err
	}
	if len(res.Scenarios) != cfg.Count {
		opLog(op).Warnf("Requested %d scenarios, backend returned %d", cfg.Count, len(res.Scenarios))
	}
	return res.Scenarios, nil
}
