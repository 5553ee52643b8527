package lessonplanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LLMLogger writes every backend prompt and response of one run to its own file
type LLMLogger struct {
	file  *os.File
	mu    sync.Mutex
	runID string
}

// NewLLMLogger creates log/<runID>.log under dir. An empty runID gets a fresh UUID.
func NewLLMLogger(dir, runID string, input UserInput) (*LLMLogger, error) {
	if dir == "" {
		dir = "log"
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", runID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &LLMLogger{
		file:  file,
		runID: runID,
	}

	logger.Logf("=== Lesson Generation Log ===\n")
	logger.Logf("Run ID: %s\n", runID)
	logger.Logf("Theme: %s\n", input.Theme)
	logger.Logf("Level: %s\n", input.Level)
	logger.Logf("Audience: %s\n", input.TargetAudience)
	if input.ActivityIdea != "" {
		logger.Logf("Seed Idea: %s\n", input.ActivityIdea)
	}
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("=============================\n\n")

	return logger, nil
}

// RunID returns the identifier the log file is named after
func (ll *LLMLogger) RunID() string {
	return ll.runID
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.logf(format, args...)
}

func (ll *LLMLogger) logf(format string, args ...interface{}) {
	if ll.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, message)
	ll.file.Sync()
}

// LogLLMRequest logs an outgoing prompt
func (ll *LLMLogger) LogLLMRequest(op, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", op)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs a raw backend response
func (ll *LLMLogger) LogLLMResponse(op, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", op)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogFailure records an operation error
func (ll *LLMLogger) LogFailure(op string, err error) {
	ll.Logf("%s failed: %v\n", op, err)
}

// Close closes the log file
func (ll *LLMLogger) Close() error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return nil
	}
	ll.logf("=== Lesson Generation Complete ===\n")
	ll.logf("Completed: %s\n", time.Now().Format(time.RFC3339))
	ll.logf("==================================\n")
	err := ll.file.Close()
	ll.file = nil
	return err
}
