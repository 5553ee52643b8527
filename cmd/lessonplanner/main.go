package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lessonplanner"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Optional YAML config file (env vars still apply)")
		mode         = flag.String("mode", "generate", "Plan mode: record (expand -idea) or generate")
		theme        = flag.String("theme", "", "Activity theme (required)")
		level        = flag.String("level", "HSK 3", "Learner level")
		audience     = flag.String("audience", "Adults", "Target audience")
		native       = flag.String("native", "English", "Learners' native language")
		idea         = flag.String("idea", "", "Seed activity idea (record mode)")
		requirements = flag.String("requirements", "", "Extra requirements for the plan")
		withImage    = flag.Bool("image", false, "Also generate the plan illustration")
		format       = flag.String("format", "json", "Output format: json or yaml")
		outputFile   = flag.String("output", "", "Output file for the plan (default: stdout)")
		save         = flag.Bool("save", false, "Save the plan to the library")
		worksheet    = flag.String("worksheet", "", "Comma-separated exercise types to export as a worksheet")
		perType      = flag.Int("count", 3, "Exercises per type for -worksheet")
		answerKey    = flag.Bool("answers", true, "Include the answer key in the worksheet")
		withPinyin   = flag.Bool("pinyin", false, "Annotate the worksheet with pinyin")
		deck         = flag.String("deck", "", "Export a slide deck in this style (INK_WASH, FESTIVE_RED, MINIMALIST_ZEN, CUSTOM_UPLOAD)")
		background   = flag.String("background", "", "Background image file for CUSTOM_UPLOAD decks")
		imagesFocus  = flag.String("images", "", "Teaching focus for a batch of practice images")
		scenes       = flag.Int("scenes", 4, "Number of scenes for -images")
		outDir       = flag.String("dir", ".", "Directory for exported files")
		apiKey       = flag.String("api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		verbose      = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	if *theme == "" {
		logrus.Fatal("Theme is required. Use -theme flag.")
	}

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

	input := lessonplanner.UserInput{
		Theme:          *theme,
		TargetAudience: *audience,
		Level:          *level,
		NativeLanguage: *native,
		ActivityIdea:   *idea,
		Requirements:   *requirements,
	}
	planMode := lessonplanner.Mode(strings.ToUpper(*mode))

	llmLog, err := lessonplanner.NewLLMLogger(cfg.Log.LLMDir, "", input)
	if err != nil {
		logrus.Warnf("LLM transcript disabled: %v", err)
	} else {
		defer llmLog.Close()
		backend.SetLogger(llmLog)
	}

	generator := lessonplanner.NewLessonGeneratorFromBackend(backend)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var plan *lessonplanner.ActivityPlan
	if *withImage {
		plan, err = generator.GeneratePlanWithImage(ctx, input, planMode)
	} else {
		plan, err = generator.GeneratePlan(ctx, input, planMode)
	}
	if err != nil {
		logrus.Fatalf("Failed to generate plan: %v", err)
	}

	if *save {
		plan = savePlan(ctx, cfg, plan)
	}

	output, err := encodePlan(plan, *format)
	if err != nil {
		logrus.Fatalf("Failed to encode plan: %v", err)
	}
	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			logrus.Fatalf("Failed to write output file: %v", err)
		}
		logrus.Infof("Plan saved to: %s", *outputFile)
	} else {
		fmt.Println(string(output))
	}

	if *worksheet != "" {
		exCfg := lessonplanner.ExerciseConfig{
			Types:            parseExerciseTypes(*worksheet),
			Count:            *perType,
			IncludeAnswerKey: *answerKey,
			IncludePinyin:    *withPinyin,
		}
		artifact, err := generator.BuildWorksheet(ctx, plan, exCfg)
		if err != nil {
			logrus.Fatalf("Failed to build worksheet: %v", err)
		}
		writeArtifact(*outDir, artifact)
	}

	if *deck != "" {
		deckCfg := lessonplanner.DeckConfig{
			Title: plan.Title,
			Style: lessonplanner.DeckStyle(strings.ToUpper(*deck)),
		}
		if *background != "" {
			deckCfg.CustomBackground = readBackground(*background)
		}
		artifact, err := generator.BuildDeck(ctx, plan, deckCfg)
		if err != nil {
			logrus.Fatalf("Failed to build deck: %v", err)
		}
		writeArtifact(*outDir, artifact)
	}

	if *imagesFocus != "" {
		runImageBatch(ctx, generator, plan, lessonplanner.ScenarioConfig{FocusPoint: *imagesFocus, Count: *scenes}, *outDir)
	}
}

func savePlan(ctx context.Context, cfg *lessonplanner.Config, plan *lessonplanner.ActivityPlan) *lessonplanner.ActivityPlan {
	store, err := cfg.OpenStore(ctx)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	library, err := lessonplanner.OpenLibrary(ctx, store)
	if err != nil {
		logrus.Fatalf("Failed to open library: %v", err)
	}
	saved, err := library.SavePlan(ctx, *plan)
	if err != nil {
		logrus.Fatalf("Failed to save plan: %v", err)
	}
	logrus.Infof("Plan saved to library with ID: %s", saved.ID)
	return saved
}

func encodePlan(plan *lessonplanner.ActivityPlan, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Marshal(plan)
	case "json", "":
		return json.MarshalIndent(plan, "", "  ")
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func parseExerciseTypes(list string) []lessonplanner.ExerciseType {
	var types []lessonplanner.ExerciseType
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, lessonplanner.ExerciseType(strings.ToUpper(part)))
		}
	}
	return types
}

func readBackground(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Fatalf("Failed to read background image: %v", err)
	}
	return lessonplanner.EncodeDataURI(data)
}

func writeArtifact(dir string, artifact *lessonplanner.Artifact) {
	path := filepath.Join(dir, artifact.Filename)
	if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
		logrus.Fatalf("Failed to write %s: %v", path, err)
	}
	fmt.Printf("📄 Exported %s (%d bytes)\n", path, len(artifact.Data))
}

func runImageBatch(ctx context.Context, generator *lessonplanner.LessonGenerator, plan *lessonplanner.ActivityPlan, cfg lessonplanner.ScenarioConfig, dir string) {
	fmt.Printf("🎨 Generating %d practice scenes for: %s\n", cfg.Count, cfg.FocusPoint)

	batch, err := generator.NewBatch(ctx, plan, cfg)
	if err != nil {
		logrus.Fatalf("Failed to generate scenarios: %v", err)
	}
	updates, err := generator.RunBatch(ctx, batch)
	if err != nil {
		logrus.Fatalf("Failed to start batch: %v", err)
	}

	total := batch.Len()
	done := 0
	for item := range updates {
		switch item.Status {
		case lessonplanner.StatusGenerating:
			fmt.Printf("⏳ Scene %d/%d generating...\n", done+1, total)
		case lessonplanner.StatusCompleted:
			done++
			fmt.Printf("✅ Scene %d/%d done\n", done, total)
		case lessonplanner.StatusFailed:
			done++
			fmt.Printf("❌ Scene %d/%d failed\n", done, total)
		}
	}

	artifact, err := lessonplanner.BuildArchive(batch.Items(), plan, cfg.FocusPoint)
	if err != nil {
		logrus.Fatalf("Failed to build archive: %v", err)
	}
	writeArtifact(dir, artifact)
}
