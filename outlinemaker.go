package lessonplanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

var outlineSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"outline": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"title": stringProp("Proposed title for the slide"),
					"note":  stringProp("Brief description of what this slide covers"),
				},
				Required: []string{"title", "note"},
			},
		},
	},
	Required: []string{"outline"},
}

var slidesSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"slides": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"title":         stringProp("Slide headline/title"),
					"bullet_points": stringListProp("Key content points for the slide"),
					"speaker_notes": stringProp("Detailed notes for the teacher to say"),
				},
				Required: []string{"title", "bullet_points", "speaker_notes"},
			},
		},
	},
	Required: []string{"slides"},
}

// OutlineMaker proposes a slide outline for a plan
type OutlineMaker struct {
	backend TextBackend
}

// NewOutlineMaker creates an outline maker on top of the given backend
func NewOutlineMaker(backend TextBackend) *OutlineMaker {
	return &OutlineMaker{backend: backend}
}

// GenerateOutline asks for 5-10 slides; the count is not enforced
func (om *OutlineMaker) GenerateOutline(ctx context.Context, plan *ActivityPlan, requirements string) ([]OutlineItem, error) {
	const op = "GenerateOutline"
	if plan == nil {
		return nil, invalidInput(op, "plan is required")
	}

	var sb strings.Builder
	sb.WriteString("You are a professional instructional designer.\n")
	sb.WriteString("Create a PowerPoint outline (list of slides) for this activity:\n\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", plan.Title))
	sb.WriteString(fmt.Sprintf("Theme: %s\n", plan.Theme))
	sb.WriteString(fmt.Sprintf("Level: %s\n", plan.Level))
	if len(plan.TeachingGoals) > 0 {
		sb.WriteString(fmt.Sprintf("Teaching Goals: %s\n", strings.Join(plan.TeachingGoals, "; ")))
	}
	sb.WriteString(fmt.Sprintf("\nUser Needs: %s\n\n", requirements))
	sb.WriteString("The outline should be logical: Title Slide -> Introduction/Warmup -> Core Content -> Activity -> Summary.\n")
	sb.WriteString("Keep it between 5-10 slides.\n")

	payload, err := om.backend.GenerateStructured(ctx, StructuredRequest{
		Op:       op,
		System:   "Create a structured PPT outline.",
		Prompt:   sb.String(),
		ToolName: "submit_outline",
		ToolDesc: "Submit the slide outline",
		Schema:   outlineSchema,
	})
	if err != nil {
		return nil, err
	}

	var res struct {
		Outline []OutlineItem `json:"outline"`
	}
	fields, err := decodeObject(op, payload, &res, "outline")
	if err != nil {
		return nil, err
	}
	if err := requireItemFields(op, "outline", fields["outline"], "title", "note"); err != nil {
		return nil, err
	}
	VerboseLog("%s: %d slides proposed", op, len(res.Outline))
	return res.Outline, nil
}

// SlideMaker writes the content of every slide of a reviewed outline
type SlideMaker struct {
	backend TextBackend
}

// NewSlideMaker creates a slide maker on top of the given backend
func NewSlideMaker(backend TextBackend) *SlideMaker {
	return &SlideMaker{backend: backend}
}

// GenerateSlides returns exactly one SlideContent per outline item, in outline order
func (sm *SlideMaker) GenerateSlides(ctx context.Context, plan *ActivityPlan, cfg DeckConfig) ([]SlideContent, error) {
	const op = "GenerateSlides"
	if plan == nil {
		return nil, invalidInput(op, "plan is required")
	}
	if len(cfg.Outline) == 0 {
		return nil, invalidInput(op, "outline is empty")
	}

	var outline strings.Builder
	for i, item := range cfg.Outline {
		outline.WriteString(fmt.Sprintf("Slide %d: %s (%s)\n", i+1, item.Title, item.Note))
	}

	var sb strings.Builder
	sb.WriteString("You are a professional instructional designer creating a PowerPoint presentation for a Chinese language class.\n\n")
	sb.WriteString("Activity Details:\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", plan.Title))
	sb.WriteString(fmt.Sprintf("Theme: %s\n", plan.Theme))
	sb.WriteString(fmt.Sprintf("Level: %s\n", plan.Level))
	sb.WriteString(fmt.Sprintf("Props: %s\n", strings.Join(plan.Props, ", ")))
	sb.WriteString(fmt.Sprintf("Steps: %s\n", strings.Join(plan.Steps, "; ")))
	sb.WriteString(fmt.Sprintf("Simulation: %s\n", plan.Simulation))
	sb.WriteString(fmt.Sprintf("Dialogue: %s\n\n", plan.SimulationDialogue))
	sb.WriteString("Constraint: You MUST follow this specific outline structure provided by the user:\n")
	sb.WriteString(outline.String())
	sb.WriteString(fmt.Sprintf("\nReturn exactly %d slides in the same order.\n", len(cfg.Outline)))
	sb.WriteString("Generate the actual content (Bullet Points in Chinese/Target Language) and Speaker Notes for each slide defined in the outline.\n")

	payload, err := sm.backend.GenerateStructured(ctx, StructuredRequest{
		Op:       op,
		System:   "You are an expert PPT creator. Create clear, structured slides following the exact outline provided.",
		Prompt:   sb.String(),
		ToolName: "submit_slides",
		ToolDesc: "Submit the content of every slide",
		Schema:   slidesSchema,
	})
	if err != nil {
		return nil, err
	}

	var res struct {
		Slides []SlideContent `json:"slides"`
	}
	fields, err := decodeObject(op, payload, &res, "slides")
	if err != nil {
		return nil, err
	}
	if err := requireItemFields(op, "slides", fields["slides"], "title", "bullet_points", "speaker_notes"); err != nil {
		return nil, err
	}
	if len(res.Slides) != len(cfg.Outline) {
		return nil, schemaViolation(op, "outline has %d slides but %d were returned", len(cfg.Outline), len(res.Slides))
	}
	for i := range res.Slides {
		res.Slides[i].BulletPoints = nonNil(res.Slides[i].BulletPoints)
	}
	return res.Slides, nil
}
