package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"lessonplanner"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/sirupsen/logrus"
)

// ThemeSuggestion is a fresh activity theme proposed by the backend
type ThemeSuggestion struct {
	Theme          string `json:"theme"`
	Description    string `json:"description"`
	TargetAudience string `json:"target_audience"`
	Level          string `json:"level"`
}

var themeSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"theme":           {Type: jsonschema.String, Description: "The activity theme, in Chinese with an English gloss"},
		"description":     {Type: jsonschema.String, Description: "What learners would practise under this theme"},
		"target_audience": {Type: jsonschema.String, Description: "Who the theme suits (e.g. Children, Teens, Adults)"},
		"level":           {Type: jsonschema.String, Description: "Suggested HSK level (e.g. HSK 2)"},
	},
	Required: []string{"theme", "description", "target_audience", "level"},
}

// ThemeGenerator proposes lesson themes using a structured text backend
type ThemeGenerator struct {
	backend lessonplanner.TextBackend
}

// NewThemeGenerator creates a new theme generator
func NewThemeGenerator(backend lessonplanner.TextBackend) *ThemeGenerator {
	return &ThemeGenerator{backend: backend}
}

// GenerateFreshTheme asks for one theme that is not in existingThemes
func (tg *ThemeGenerator) GenerateFreshTheme(ctx context.Context, existingThemes []string, audience string) (*ThemeSuggestion, error) {
	var prompt strings.Builder

	prompt.WriteString("Suggest ONE theme for an interactive Chinese (TCFL) classroom activity.\n\n")

	if audience != "" {
		prompt.WriteString(fmt.Sprintf("The learners are: %s\n\n", audience))
	}

	if len(existingThemes) > 0 {
		prompt.WriteString("IMPORTANT: The theme must be clearly different from these existing themes:\n")
		for _, theme := range existingThemes {
			prompt.WriteString(fmt.Sprintf("- %s\n", theme))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Requirements:\n")
	prompt.WriteString("- Rooted in everyday life or Chinese culture (festivals, food, travel, school, shopping, etc.)\n")
	prompt.WriteString("- Concrete enough to build a role-play around\n")
	prompt.WriteString("- Broad enough for vocabulary, grammar and a dialogue\n\n")

	prompt.WriteString("Return the theme using the submit_theme tool.")

	const op = "GenerateFreshTheme"
	payload, err := tg.backend.GenerateStructured(ctx, lessonplanner.StructuredRequest{
		Op:       op,
		System:   "You are an experienced TCFL curriculum designer who keeps lesson libraries varied.",
		Prompt:   prompt.String(),
		ToolName: "submit_theme",
		ToolDesc: "Submit the suggested activity theme",
		Schema:   themeSchema,
	})
	if err != nil {
		return nil, err
	}

	var theme ThemeSuggestion
	if err := lessonplanner.DecodeStructured(op, payload, &theme, themeSchema.Required...); err != nil {
		return nil, err
	}
	if strings.TrimSpace(theme.Theme) == "" {
		return nil, &lessonplanner.Error{Op: op, Kind: lessonplanner.ErrSchemaViolation, Err: errors.New("theme is blank")}
	}
	return &theme, nil
}

func main() {
	var (
		configPath = flag.String("config", "", "Optional YAML config file (env vars still apply)")
		audience   = flag.String("audience", "", "Focus on a specific audience (optional)")
		level      = flag.String("level", "", "Override the suggested level")
		native     = flag.String("native", "English", "Learners' native language")
		withImage  = flag.Bool("image", true, "Also generate the plan illustration")
		apiKey     = flag.String("api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		verbose    = flag.Bool("verbose", false, "Enable verbose output")
	)

	flag.Parse()

	cfg, err := lessonplanner.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if *apiKey != "" {
		cfg.OpenAI.APIKey = *apiKey
	}
	lessonplanner.SetVerbose(*verbose || cfg.Log.Verbose)

	backend, err := lessonplanner.NewBackend(cfg.BackendConfig())
	if err != nil {
		logrus.Fatalf("OpenAI API key is required. Use -api-key flag or set OPENAI_API_KEY environment variable: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := cfg.OpenStore(ctx)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	library, err := lessonplanner.OpenLibrary(ctx, store)
	if err != nil {
		logrus.Fatalf("Failed to open library: %v", err)
	}

	existingThemes := library.Themes()
	fmt.Printf("📚 Found %d existing themes in the library\n", len(existingThemes))
	if len(existingThemes) > 0 {
		fmt.Println("Existing themes:")
		for _, theme := range existingThemes {
			fmt.Printf("  - %s\n", theme)
		}
		fmt.Println()
	}

	fmt.Printf("🎯 Generating a fresh theme")
	if *audience != "" {
		fmt.Printf(" for: %s", *audience)
	}
	fmt.Println("...")

	theme, err := NewThemeGenerator(backend).GenerateFreshTheme(ctx, existingThemes, *audience)
	if err != nil {
		logrus.Fatalf("Failed to generate theme: %v", err)
	}

	fmt.Printf("✅ Generated fresh theme:\n\n")
	fmt.Printf("Theme: %s (%s - %s)\n", theme.Theme, theme.TargetAudience, theme.Level)
	fmt.Printf("Description: %s\n\n", theme.Description)

	input := lessonplanner.UserInput{
		Theme:          theme.Theme,
		TargetAudience: theme.TargetAudience,
		Level:          theme.Level,
		NativeLanguage: *native,
		Requirements:   theme.Description,
	}
	if *level != "" {
		input.Level = *level
	}
	if *audience != "" {
		input.TargetAudience = *audience
	}

	llmLog, err := lessonplanner.NewLLMLogger(cfg.Log.LLMDir, "", input)
	if err != nil {
		logrus.Warnf("LLM transcript disabled: %v", err)
	} else {
		defer llmLog.Close()
		backend.SetLogger(llmLog)
	}

	generator := lessonplanner.NewLessonGeneratorFromBackend(backend)
	var plan *lessonplanner.ActivityPlan
	if *withImage {
		plan, err = generator.GeneratePlanWithImage(ctx, input, lessonplanner.ModeGenerate)
	} else {
		plan, err = generator.GeneratePlan(ctx, input, lessonplanner.ModeGenerate)
	}
	if err != nil {
		logrus.Fatalf("Failed to generate plan for theme '%s': %v", theme.Theme, err)
	}

	saved, err := library.SavePlan(ctx, *plan)
	if err != nil {
		logrus.Fatalf("Failed to save plan: %v", err)
	}

	fmt.Printf("🚀 Plan %q saved with ID: %s\n", saved.Title, saved.ID)
	fmt.Printf("🎉 Successfully completed plan generation!\n")
}
