package lessonplanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// StructuredRequest is a schema-constrained text generation call
type StructuredRequest struct {
	Op       string // operation name used in logs and errors
	System   string
	Prompt   string
	ToolName string
	ToolDesc string
	Schema   jsonschema.Definition
}

// TextBackend returns the raw JSON arguments produced for a structured request
type TextBackend interface {
	GenerateStructured(ctx context.Context, req StructuredRequest) ([]byte, error)
}

// ImageBackend returns the first inline image of a generation as base64 plus its MIME type
type ImageBackend interface {
	GenerateImageData(ctx context.Context, prompt string) (b64 string, mimeType string, err error)
}

// BackendConfig configures the OpenAI client
type BackendConfig struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	ImageSize  string
	Timeout    time.Duration
}

// Backend talks to the OpenAI API. It is safe for concurrent use.
type Backend struct {
	client     *openai.Client
	textModel  string
	imageModel string
	imageSize  string
	disabled   error

	mu     sync.RWMutex
	logger *LLMLogger
}

// NewBackend validates the credential once and builds the client
func NewBackend(cfg BackendConfig) (*Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	b := &Backend{
		client:     openai.NewClientWithConfig(clientCfg),
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		imageSize:  cfg.ImageSize,
	}
	if b.textModel == "" {
		b.textModel = openai.GPT4o
	}
	if b.imageModel == "" {
		b.imageModel = openai.CreateImageModelDallE3
	}
	if b.imageSize == "" {
		b.imageSize = openai.CreateImageSize1024x1024
	}
	return b, nil
}

// NewDisabledBackend returns a backend whose every call fails with ErrBackendUnavailable
func NewDisabledBackend(reason error) *Backend {
	if reason == nil {
		reason = ErrMissingAPIKey
	}
	return &Backend{disabled: reason}
}

// Disabled reports why the backend cannot be used, or nil
func (b *Backend) Disabled() error {
	return b.disabled
}

// SetLogger attaches a transcript logger; nil detaches it
func (b *Backend) SetLogger(logger *LLMLogger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

func (b *Backend) transcript() *LLMLogger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.logger
}

// GenerateStructured forces a single tool call whose parameters follow req.Schema
func (b *Backend) GenerateStructured(ctx context.Context, req StructuredRequest) ([]byte, error) {
	if b.disabled != nil {
		return nil, newError(req.Op, ErrBackendUnavailable, b.disabled)
	}
	logger := b.transcript()
	if logger != nil {
		logger.LogLLMRequest(req.Op, req.Prompt)
	}
	VerboseLog("%s: calling %s", req.Op, b.textModel)

	resp, err := b.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: b.textModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: req.System,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Prompt,
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        req.ToolName,
						Description: req.ToolDesc,
						Parameters:  req.Schema,
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: req.ToolName,
				},
			},
		},
	)
	if err != nil {
		if logger != nil {
			logger.LogFailure(req.Op, err)
		}
		return nil, newError(req.Op, ErrBackendUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, newError(req.Op, ErrEmptyResponse, errors.New("no choices in response"))
	}

	msg := resp.Choices[0].Message
	var payload string
	if len(msg.ToolCalls) > 0 {
		toolCall := msg.ToolCalls[0]
		if toolCall.Function.Name != req.ToolName {
			return nil, schemaViolation(req.Op, "unexpected tool call: %s", toolCall.Function.Name)
		}
		payload = toolCall.Function.Arguments
	} else {
		// some models answer in plain content even when a tool is forced
		payload = msg.Content
	}

	if logger != nil {
		logger.LogLLMResponse(req.Op, payload)
	}
	if strings.TrimSpace(payload) == "" {
		return nil, newError(req.Op, ErrEmptyResponse, errors.New("no tool arguments or content in response"))
	}
	return []byte(payload), nil
}

// GenerateImageData asks for one image and returns the first inline payload
func (b *Backend) GenerateImageData(ctx context.Context, prompt string) (string, string, error) {
	const op = "GenerateImage"
	if b.disabled != nil {
		return "", "", newError(op, ErrBackendUnavailable, b.disabled)
	}
	logger := b.transcript()
	if logger != nil {
		logger.LogLLMRequest(op, prompt)
	}

	resp, err := b.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          b.imageModel,
		N:              1,
		Size:           b.imageSize,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		if logger != nil {
			logger.LogFailure(op, err)
		}
		return "", "", newError(op, ErrBackendUnavailable, err)
	}

	for _, item := range resp.Data {
		if data := strings.TrimSpace(item.B64JSON); data != "" {
			if logger != nil {
				logger.LogLLMResponse(op, fmt.Sprintf("inline image, %d base64 bytes", len(data)))
			}
			return data, sniffBase64Mime(data), nil
		}
	}
	return "", "", newError(op, ErrEmptyResponse, errors.New("no inline image in response"))
}
