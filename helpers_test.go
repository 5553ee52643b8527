package lessonplanner

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedText is a TextBackend that answers from a function and records requests
type scriptedText struct {
	mu      sync.Mutex
	calls   []StructuredRequest
	respond func(req StructuredRequest) ([]byte, error)
}

func (s *scriptedText) GenerateStructured(ctx context.Context, req StructuredRequest) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	return s.respond(req)
}

func (s *scriptedText) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func replyWith(payload string) *scriptedText {
	return &scriptedText{respond: func(StructuredRequest) ([]byte, error) {
		return []byte(payload), nil
	}}
}

func failWith(err error) *scriptedText {
	return &scriptedText{respond: func(req StructuredRequest) ([]byte, error) {
		return nil, newError(req.Op, err, errors.New("scripted failure"))
	}}
}

// scriptedImages is an ImageBackend returning a fixed payload or error
type scriptedImages struct {
	b64 string
	err error
}

func (s *scriptedImages) GenerateImageData(ctx context.Context, prompt string) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	return s.b64, sniffBase64Mime(s.b64), nil
}

// memStore is an in-memory KVStore
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	m.puts++
	return nil
}

func (m *memStore) Close() error { return nil }

// pngBytes is a 1x1 transparent PNG
var pngBytes, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func pngDataURI() string {
	return DataURI("image/png", base64.StdEncoding.EncodeToString(pngBytes))
}

const samplePlanJSON = `{
	"title": "春节包饺子",
	"rationale": "Task-based learning around a festival custom",
	"teaching_goals": ["Name dumpling ingredients", "Give simple instructions"],
	"key_points": ["先……然后……"],
	"grammar_points": [
		{"point": "先……然后……", "structure": "先 + V1，然后 + V2", "usage": "Sequencing actions", "examples": ["先和面，然后包饺子。"]}
	],
	"props": ["flour", "rolling pin"],
	"steps": ["Warm-up", "Demonstration", "Pair work"],
	"simulation": "A family kitchen on New Year's Eve",
	"simulation_dialogue": "A: 我们先和面吧。 B: 好的！",
	"image_prompt_description": "Students folding dumplings around a table"
}`

func samplePlan() ActivityPlan {
	return ActivityPlan{
		Theme:                  "春节",
		Level:                  "HSK 2",
		Title:                  "春节包饺子",
		Rationale:              "Task-based learning",
		TeachingGoals:          []string{"Name ingredients"},
		KeyPoints:              []string{"先……然后……"},
		GrammarPoints:          []GrammarPoint{{Point: "先……然后……", Structure: "先 V1，然后 V2", Usage: "Sequencing", Examples: []string{"先和面，然后包饺子。"}}},
		Props:                  []string{"flour"},
		Steps:                  []string{"Warm-up"},
		Simulation:             "Kitchen",
		SimulationDialogue:     "A: 你好",
		ImagePromptDescription: "Students folding dumplings",
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
