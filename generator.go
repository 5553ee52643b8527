package lessonplanner

import (
	"context"
	"fmt"
)

// LessonGenerator wires every generator to one backend and runs the multi-step flows
type LessonGenerator struct {
	plans     *PlanMaker
	images    ImageGenerator
	outlines  *OutlineMaker
	slides    *SlideMaker
	exercises *ExerciseMaker
	scenarios *ScenarioMaker
}

// NewLessonGenerator creates a generator using text for structured calls and image for pictures
func NewLessonGenerator(text TextBackend, image ImageBackend) *LessonGenerator {
	return &LessonGenerator{
		plans:     NewPlanMaker(text),
		images:    NewImageMaker(image),
		outlines:  NewOutlineMaker(text),
		slides:    NewSlideMaker(text),
		exercises: NewExerciseMaker(text),
		scenarios: NewScenarioMaker(text),
	}
}

// NewLessonGeneratorFromBackend uses one Backend for both text and images
func NewLessonGeneratorFromBackend(b *Backend) *LessonGenerator {
	return NewLessonGenerator(b, b)
}

// GeneratePlan produces the text of a plan
func (lg *LessonGenerator) GeneratePlan(ctx context.Context, input UserInput, mode Mode) (*ActivityPlan, error) {
	return lg.plans.GeneratePlan(ctx, input, mode)
}

// GenerateImage produces an illustration data URI; ok is false on any failure
func (lg *LessonGenerator) GenerateImage(ctx context.Context, description string) (string, bool) {
	return lg.images.GenerateImage(ctx, description)
}

// GeneratePlanWithImage runs the text step, then the image step. A failed image
// leaves the plan without one instead of failing the whole call.
func (lg *LessonGenerator) GeneratePlanWithImage(ctx context.Context, input UserInput, mode Mode) (*ActivityPlan, error) {
	log := opLog("GeneratePlanWithImage")
	log.Infof("Starting %s plan for theme: %s, level: %s", mode, input.Theme, input.Level)

	plan, err := lg.plans.GeneratePlan(ctx, input, mode)
	if err != nil {
		return nil, err
	}
	if blank(plan.ImagePromptDescription) {
		log.Info("Plan has no image description, skipping illustration")
		return plan, nil
	}

	if imageURL, ok := lg.images.GenerateImage(ctx, plan.ImagePromptDescription); ok {
		plan.ImageURL = imageURL
	} else {
		log.Warn("Illustration failed, returning plan without image")
	}
	log.Infof("Plan complete: %q", plan.Title)
	return plan, nil
}

// GenerateOutline proposes the slide outline of a deck
func (lg *LessonGenerator) GenerateOutline(ctx context.Context, plan *ActivityPlan, requirements string) ([]OutlineItem, error) {
	return lg.outlines.GenerateOutline(ctx, plan, requirements)
}

// BuildDeck writes the slide content for cfg.Outline and renders it. An empty outline
// is generated first.
func (lg *LessonGenerator) BuildDeck(ctx context.Context, plan *ActivityPlan, cfg DeckConfig) (*Artifact, error) {
	if plan == nil {
		return nil, invalidInput("BuildDeck", "plan is required")
	}
	if len(cfg.Outline) == 0 {
		outline, err := lg.outlines.GenerateOutline(ctx, plan, "")
		if err != nil {
			return nil, err
		}
		cfg.Outline = outline
	}
	if blank(cfg.Title) {
		cfg.Title = plan.Title
	}

	slides, err := lg.slides.GenerateSlides(ctx, plan, cfg)
	if err != nil {
		return nil, err
	}
	return RenderDeck(slides, cfg)
}

// GenerateExercises produces a worksheet schema for review
func (lg *LessonGenerator) GenerateExercises(ctx context.Context, plan *ActivityPlan, cfg ExerciseConfig) (*ExerciseSchema, error) {
	return lg.exercises.GenerateExercises(ctx, plan, cfg)
}

// BuildWorksheet generates exercises and renders them without a review step
func (lg *LessonGenerator) BuildWorksheet(ctx context.Context, plan *ActivityPlan, cfg ExerciseConfig) (*Artifact, error) {
	schema, err := lg.exercises.GenerateExercises(ctx, plan, cfg)
	if err != nil {
		return nil, err
	}
	filename := schema.Title
	if blank(filename) {
		filename = fmt.Sprintf("%s_Worksheet", plan.Title)
	}
	return RenderWorksheet(schema, cfg, filename, nil)
}

// NewBatch generates scenarios and wraps them in a PENDING image batch
func (lg *LessonGenerator) NewBatch(ctx context.Context, plan *ActivityPlan, cfg ScenarioConfig) (*ImageBatch, error) {
	scenarios, err := lg.scenarios.GenerateScenarios(ctx, plan, cfg)
	if err != nil {
		return nil, err
	}
	batch := NewImageBatch(scenarios)
	opLog("NewBatch").WithField("batch", batch.ID).Infof("Created batch with %d scenes", batch.Len())
	return batch, nil
}

// RunBatch starts the sequential image generation of a batch
func (lg *LessonGenerator) RunBatch(ctx context.Context, batch *ImageBatch) (<-chan ScenarioItem, error) {
	return RunImageBatch(ctx, batch, lg.images)
}
