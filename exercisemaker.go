package lessonplanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

func exerciseSchema() jsonschema.Definition {
	types := make([]string, len(ExerciseTypes))
	for i, t := range ExerciseTypes {
		types[i] = string(t)
	}
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title": stringProp("Title of the worksheet"),
			"exercises": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"type":     {Type: jsonschema.String, Enum: types, Description: "The exercise type"},
						"question": stringProp("The question text"),
						"options":  stringListProp("Options for multiple choice (A, B, C, D)"),
						"answer":   stringProp("The correct answer"),
					},
					Required: []string{"type", "question", "answer"},
				},
			},
		},
		Required: []string{"title", "exercises"},
	}
}

// ExerciseMaker generates worksheet items for a plan
type ExerciseMaker struct {
	backend TextBackend
}

// NewExerciseMaker creates an exercise maker on top of the given backend
func NewExerciseMaker(backend TextBackend) *ExerciseMaker {
	return &ExerciseMaker{backend: backend}
}

// GenerateExercises requests cfg.Count items per selected type. Neither the count
// nor the ordering across types is enforced; callers group by type.
func (em *ExerciseMaker) GenerateExercises(ctx context.Context, plan *ActivityPlan, cfg ExerciseConfig) (*ExerciseSchema, error) {
	const op = "GenerateExercises"
	if plan == nil {
		return nil, invalidInput(op, "plan is required")
	}
	if len(cfg.Types) == 0 {
		return nil, invalidInput(op, "at least one exercise type is required")
	}
	for _, t := range cfg.Types {
		if !t.Valid() {
			return nil, invalidInput(op, "unknown exercise type %q", t)
		}
	}
	if cfg.Count <= 0 {
		return nil, invalidInput(op, "count must be positive, got %d", cfg.Count)
	}

	payload, err := em.backend.GenerateStructured(ctx, StructuredRequest{
		Op:       op,
		System:   "You are an expert assessment creator. Generate high-quality, level-appropriate Chinese exercises.",
		Prompt:   em.buildPrompt(plan, cfg),
		ToolName: "submit_exercises",
		ToolDesc: "Submit the worksheet",
		Schema:   exerciseSchema(),
	})
	if err != nil {
		return nil, err
	}

	var schema ExerciseSchema
	fields, err := decodeObject(op, payload, &schema, "title", "exercises")
	if err != nil {
		return nil, err
	}
	if err := requireItemFields(op, "exercises", fields["exercises"], "type", "question", "answer"); err != nil {
		return nil, err
	}
	for i, item := range schema.Exercises {
		if !item.Type.Valid() {
			return nil, schemaViolation(op, "exercises[%d] has unknown type %q", i, item.Type)
		}
		if blank(item.Question) {
			return nil, schemaViolation(op, "exercises[%d] has an empty question", i)
		}
	}
	if schema.Exercises == nil {
		schema.Exercises = []ExerciseItem{}
	}
	var dropped []DedupResult
	schema.Exercises, dropped = DedupExercises(schema.Exercises)
	if len(dropped) > 0 {
		opLog(op).Infof("Dropped %d duplicate exercises", len(dropped))
	}

	VerboseLog("%s: %d items for %d types", op, len(schema.Exercises), len(cfg.Types))
	return &schema, nil
}

func (em *ExerciseMaker) buildPrompt(plan *ActivityPlan, cfg ExerciseConfig) string {
	requested := make([]string, len(cfg.Types))
	for i, t := range cfg.Types {
		requested[i] = string(t)
	}

	var sb strings.Builder
	sb.WriteString("You are a professional Chinese language teacher.\n")
	sb.WriteString("Based on the following activity plan, identify the key vocabulary, grammar points, and cultural concepts covered.\n\n")
	sb.WriteString(fmt.Sprintf("Activity Title: %s\n", plan.Title))
	sb.WriteString(fmt.Sprintf("Theme: %s\n", plan.Theme))
	sb.WriteString(fmt.Sprintf("Level: %s\n", plan.Level))
	if len(plan.KeyPoints) > 0 {
		sb.WriteString(fmt.Sprintf("Key Points: %s\n", strings.Join(plan.KeyPoints, "; ")))
	}
	for _, gp := range plan.GrammarPoints {
		sb.WriteString(fmt.Sprintf("Grammar: %s (%s)\n", gp.Point, gp.Structure))
	}
	sb.WriteString(fmt.Sprintf("Content context: %s %s and steps: %s\n\n", plan.Simulation, plan.SimulationDialogue, strings.Join(plan.Steps, " ")))

	sb.WriteString("Task: Create a practice worksheet.\n\n")
	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("1. Generate %d questions PER selected type.\n", cfg.Count))
	sb.WriteString(fmt.Sprintf("2. The selected types are: %s.\n", strings.Join(requested, ", ")))
	sb.WriteString(fmt.Sprintf("3. Ensure the difficulty matches the level: %s.\n", plan.Level))
	sb.WriteString("4. For 'MULTIPLE_CHOICE', provide 3-4 options array.\n")
	sb.WriteString("5. For 'MATCHING', provide pairs formatted clearly in the question or split them.\n")
	sb.WriteString("6. Provide a correct answer for every question.\n")
	if cfg.IncludePinyin {
		sb.WriteString("7. Write questions in Chinese characters; pinyin is added automatically, do not include it.\n")
	}
	return sb.String()
}
