package lessonplanner

// Mode selects how a plan is produced from the user's input
type Mode string

const (
	// ModeRecord expands a rough idea the teacher already has
	ModeRecord Mode = "RECORD"
	// ModeGenerate invents a brand new activity
	ModeGenerate Mode = "GENERATE"
)

// UserInput holds the parameters collected from the teacher
type UserInput struct {
	Theme          string `json:"theme" yaml:"theme"`
	TargetAudience string `json:"target_audience" yaml:"target_audience"`
	Level          string `json:"level" yaml:"level"`
	NativeLanguage string `json:"native_language" yaml:"native_language"`
	ActivityIdea   string `json:"activity_idea,omitempty" yaml:"activity_idea,omitempty"` // RECORD mode only
	Requirements   string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
}

// GrammarPoint is a single grammar item taught by a plan
type GrammarPoint struct {
	Point     string   `json:"point" yaml:"point"`
	Structure string   `json:"structure" yaml:"structure"`
	Usage     string   `json:"usage" yaml:"usage"`
	Examples  []string `json:"examples" yaml:"examples"`
}

// ActivityPlan is the structured lesson design record
type ActivityPlan struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	CollectionID string `json:"collection_id,omitempty" yaml:"collection_id,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty" yaml:"created_at,omitempty"` // unix milliseconds
	Theme        string `json:"theme,omitempty" yaml:"theme,omitempty"`
	Level        string `json:"level,omitempty" yaml:"level,omitempty"`

	Title                  string         `json:"title" yaml:"title"`
	Rationale              string         `json:"rationale" yaml:"rationale"`
	TeachingGoals          []string       `json:"teaching_goals" yaml:"teaching_goals"`
	KeyPoints              []string       `json:"key_points" yaml:"key_points"`
	GrammarPoints          []GrammarPoint `json:"grammar_points" yaml:"grammar_points"`
	Props                  []string       `json:"props" yaml:"props"`
	Steps                  []string       `json:"steps" yaml:"steps"`
	Simulation             string         `json:"simulation" yaml:"simulation"`
	SimulationDialogue     string         `json:"simulation_dialogue" yaml:"simulation_dialogue"`
	ImagePromptDescription string         `json:"image_prompt_description" yaml:"image_prompt_description"`
	ImageURL               string         `json:"image_url,omitempty" yaml:"-"`
}

// Collection is a named grouping of saved plans
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
}

// OutlineItem is one proposed slide of a deck outline
type OutlineItem struct {
	Title string `json:"title"`
	Note  string `json:"note"`
}

// SlideContent is the generated content of one slide
type SlideContent struct {
	Title        string   `json:"title"`
	BulletPoints []string `json:"bullet_points"`
	SpeakerNotes string   `json:"speaker_notes"`
}

// DeckStyle picks the visual theme of an exported deck
type DeckStyle string

const (
	StyleInkWash       DeckStyle = "INK_WASH"
	StyleFestiveRed    DeckStyle = "FESTIVE_RED"
	StyleMinimalistZen DeckStyle = "MINIMALIST_ZEN"
	StyleCustomUpload  DeckStyle = "CUSTOM_UPLOAD"
)

// DeckConfig describes a slide deck request
type DeckConfig struct {
	Title            string        `json:"title"`
	Style            DeckStyle     `json:"style"`
	CustomBackground string        `json:"custom_background,omitempty"` // data URI
	Outline          []OutlineItem `json:"outline"`
}

// ExerciseType is the kind of a worksheet item
type ExerciseType string

const (
	ExerciseMultipleChoice ExerciseType = "MULTIPLE_CHOICE"
	ExerciseFillInBlank    ExerciseType = "FILL_IN_BLANK"
	ExerciseMatching       ExerciseType = "MATCHING"
	ExerciseTranslation    ExerciseType = "TRANSLATION"
	ExerciseOpenEnded      ExerciseType = "OPEN_ENDED"
)

// ExerciseTypes lists every supported exercise type in worksheet order
var ExerciseTypes = []ExerciseType{
	ExerciseMultipleChoice,
	ExerciseFillInBlank,
	ExerciseMatching,
	ExerciseTranslation,
	ExerciseOpenEnded,
}

// Valid reports whether t is one of the supported exercise types
func (t ExerciseType) Valid() bool {
	for _, known := range ExerciseTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ExerciseItem is a single worksheet question
type ExerciseItem struct {
	Type     ExerciseType `json:"type"`
	Question string       `json:"question"`
	Options  []string     `json:"options,omitempty"`
	Answer   string       `json:"answer"`
}

// ExerciseSchema is a titled list of worksheet questions
type ExerciseSchema struct {
	Title     string         `json:"title"`
	Exercises []ExerciseItem `json:"exercises"`
}

// ExerciseConfig describes a worksheet request
type ExerciseConfig struct {
	Types            []ExerciseType `json:"types"`
	Count            int            `json:"count"` // per type
	IncludeAnswerKey bool           `json:"include_answer_key"`
	IncludePinyin    bool           `json:"include_pinyin"`
}

// Scenario is a generated (description, dialogue) pair for practice images
type Scenario struct {
	Description string `json:"description"`
	Dialogue    string `json:"dialogue"`
}

// ScenarioConfig describes an image batch request
type ScenarioConfig struct {
	FocusPoint string `json:"focus_point"`
	Count      int    `json:"count"`
}

// ScenarioStatus represents the state of a batch item
type ScenarioStatus string

const (
	StatusPending    ScenarioStatus = "PENDING"
	StatusGenerating ScenarioStatus = "GENERATING"
	StatusCompleted  ScenarioStatus = "COMPLETED"
	StatusFailed     ScenarioStatus = "FAILED"
)

// ScenarioItem is one unit of a batch image generation job
type ScenarioItem struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Dialogue    string         `json:"dialogue"`
	ImageURL    string         `json:"image_url,omitempty"`
	Status      ScenarioStatus `json:"status"`
}

// Artifact is a rendered downloadable file
type Artifact struct {
	Filename string
	MimeType string
	Data     []byte
}
