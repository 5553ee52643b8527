package lessonplanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

const planSystemPrompt = "You are a helpful, creative, and professional TCFL consultant. Always submit the plan with the submit_plan tool."

var planSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"title":          stringProp("A creative, poetic Chinese title for the activity"),
		"rationale":      stringProp("Brief pedagogical rationale"),
		"teaching_goals": stringListProp("Concrete teaching goals of the activity"),
		"key_points":     stringListProp("Key and difficult points learners will meet"),
		"grammar_points": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"point":     stringProp("The grammar point"),
					"structure": stringProp("Its sentence pattern"),
					"usage":     stringProp("When and how it is used"),
					"examples":  stringListProp("Example sentences"),
				},
				Required: []string{"point", "structure", "usage", "examples"},
			},
			Description: "Grammar points covered by the activity",
		},
		"props":                    stringListProp("List of materials or props needed"),
		"steps":                    stringListProp("Step-by-step instructions for the teacher"),
		"simulation":               stringProp("The classroom scenario the simulation takes place in"),
		"simulation_dialogue":      stringProp("A dialogue script simulating the class"),
		"image_prompt_description": stringProp("A detailed visual description of the simulation scene for image generation"),
	},
	Required: planRequired,
}

var planRequired = []string{
	"title", "rationale", "teaching_goals", "key_points", "grammar_points",
	"props", "steps", "simulation", "simulation_dialogue", "image_prompt_description",
}

// PlanMaker generates activity plans from the teacher's input
type PlanMaker struct {
	backend TextBackend
}

// NewPlanMaker creates a plan maker on top of the given backend
func NewPlanMaker(backend TextBackend) *PlanMaker {
	return &PlanMaker{backend: backend}
}

// GeneratePlan builds a complete plan or fails with one of the backend error kinds
func (pm *PlanMaker) GeneratePlan(ctx context.Context, input UserInput, mode Mode) (*ActivityPlan, error) {
	const op = "GeneratePlan"

	switch mode {
	case ModeRecord:
		if blank(input.ActivityIdea) {
			return nil, invalidInput(op, "a seed idea is required in %s mode", mode)
		}
	case ModeGenerate:
	default:
		return nil, invalidInput(op, "unknown mode %q", mode)
	}

	opLog(op).WithField("theme", input.Theme).WithField("mode", mode).Info("Generating activity plan")

	payload, err := pm.backend.GenerateStructured(ctx, StructuredRequest{
		Op:       op,
		System:   planSystemPrompt,
		Prompt:   pm.buildPrompt(input, mode),
		ToolName: "submit_plan",
		ToolDesc: "Submit the teaching activity plan",
		Schema:   planSchema,
	})
	if err != nil {
		return nil, err
	}

	plan, err := decodePlan(op, payload)
	if err != nil {
		return nil, err
	}
	plan.Theme = input.Theme
	plan.Level = input.Level

	opLog(op).WithField("title", plan.Title).WithField("steps", len(plan.Steps)).Info("Generated activity plan")
	return plan, nil
}

func (pm *PlanMaker) buildPrompt(input UserInput, mode Mode) string {
	var sb strings.Builder

	requirements := input.Requirements
	if blank(requirements) {
		requirements = "None"
	}

	sb.WriteString("You are an expert Senior Teaching Chinese as a Foreign Language (TCFL) specialist.\n")
	sb.WriteString("Your task is to design a high-quality, engaging teaching activity based on the following constraints.\n\n")
	sb.WriteString(fmt.Sprintf("Target Audience: %s\n", input.TargetAudience))
	sb.WriteString(fmt.Sprintf("Proficiency Level: %s\n", input.Level))
	sb.WriteString(fmt.Sprintf("Native Language (L1): %s\n", input.NativeLanguage))
	sb.WriteString(fmt.Sprintf("Theme: %s\n", input.Theme))
	sb.WriteString(fmt.Sprintf("Specific Requirements: %s\n\n", requirements))

	if mode == ModeRecord {
		sb.WriteString(fmt.Sprintf("The user has a rough idea: %q.\n", input.ActivityIdea))
		sb.WriteString("Please expand this idea into a fully professional teaching activity plan.\n")
		sb.WriteString("Refine the steps, suggest specific props, and write a realistic classroom simulation dialogue.\n")
		sb.WriteString("Ensure the tone is encouraging and culturally rich.\n\n")
	} else {
		sb.WriteString("Please creatively generate a brand new, highly effective teaching activity idea suitable for this specific group.\n")
		sb.WriteString("Design specific props, detailed teaching steps, and a realistic classroom simulation dialogue.\n")
		sb.WriteString("The activity should be interactive and culturally immersive.\n\n")
	}

	sb.WriteString("Requirements:\n")
	sb.WriteString("- State the teaching goals and the key/difficult points explicitly\n")
	sb.WriteString("- List each grammar point with its structure, usage and example sentences\n")
	sb.WriteString("- Describe the simulation scene separately from its dialogue\n")
	sb.WriteString("- Provide a visual description of the scene that an illustrator could draw\n")
	sb.WriteString("- Use the submit_plan tool to return the plan\n")

	return sb.String()
}

func decodePlan(op string, payload []byte) (*ActivityPlan, error) {
	var plan ActivityPlan
	fields, err := decodeObject(op, payload, &plan, planRequired...)
	if err != nil {
		return nil, err
	}
	if err := requireItemFields(op, "grammar_points", fields["grammar_points"], "point", "structure", "usage", "examples"); err != nil {
		return nil, err
	}
	if blank(plan.Title) {
		return nil, schemaViolation(op, "plan title is empty")
	}

	// backend output never carries library metadata
	plan.ID = ""
	plan.CollectionID = ""
	plan.CreatedAt = 0
	plan.ImageURL = ""

	normalizePlanLists(&plan)
	return &plan, nil
}

func normalizePlanLists(plan *ActivityPlan) {
	plan.TeachingGoals = nonNil(plan.TeachingGoals)
	plan.KeyPoints = nonNil(plan.KeyPoints)
	plan.Props = nonNil(plan.Props)
	plan.Steps = nonNil(plan.Steps)
	if plan.GrammarPoints == nil {
		plan.GrammarPoints = []GrammarPoint{}
	}
	for i := range plan.GrammarPoints {
		plan.GrammarPoints[i].Examples = nonNil(plan.GrammarPoints[i].Examples)
	}
}
