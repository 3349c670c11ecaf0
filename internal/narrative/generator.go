package narrative

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"memorial-narrator/internal/domain"
)

const (
	DefaultModel       = "gpt-4.1-nano"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultTimeout     = 25 * time.Second

	systemInstruction = "You are a compassionate writer creating meaningful first-person life narratives for memorial services. " +
		"Craft a warm, respectful narrative that captures the essence of a person's life from the memories shared by their loved ones. " +
		"Ground every detail in the shared memories and never invent facts. " +
		"When attributing a memory, use the contributor's actual name; use their relationship only when no name is provided."
)

// LLMClient sends a single chat completion request.
type LLMClient interface {
	Chat(ctx context.Context, req domain.ChatRequest) (string, error)
}

// Config holds the fixed request parameters for narrative generation.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultConfig returns the production sampling settings.
func DefaultConfig() Config {
	return Config{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
	}
}

// ProviderErrorKind classifies why the language model call failed.
type ProviderErrorKind string

const (
	KindUnauthorized        ProviderErrorKind = "unauthorized"
	KindRateLimitedUpstream ProviderErrorKind = "rate_limited_upstream"
	KindTimeout             ProviderErrorKind = "timeout"
	KindInvalidResponse     ProviderErrorKind = "invalid_response"
	KindUnknown             ProviderErrorKind = "unknown"
)

// ProviderError is returned for every failed generation attempt.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("narrative: provider %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("narrative: provider %s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Generator owns the call to the language model. It makes exactly one attempt
// per call and has no side effects beyond the network request.
type Generator struct {
	llm    LLMClient
	config Config
}

// NewGenerator validates the client and fills unset config fields with defaults.
func NewGenerator(llm LLMClient, config Config) (*Generator, error) {
	if llm == nil {
		return nil, errors.New("narrative: llm client must not be nil")
	}
	def := DefaultConfig()
	if strings.TrimSpace(config.Model) == "" {
		config.Model = def.Model
	}
	if config.Temperature <= 0 {
		config.Temperature = def.Temperature
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = def.MaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &Generator{llm: llm, config: config}, nil
}

// Model returns the configured model identifier.
func (g *Generator) Model() string {
	return g.config.Model
}

// Generate sends the prompt as the user turn under the configured timeout.
// Any failure is returned as *ProviderError.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &ProviderError{Kind: KindInvalidResponse, Message: "prompt is empty"}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	text, err := g.llm.Chat(callCtx, domain.ChatRequest{
		Model: g.config.Model,
		Messages: []domain.ChatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return "", &ProviderError{Kind: KindTimeout, Message: fmt.Sprintf("no response within %s", g.config.Timeout), Err: err}
		}
		return "", classify(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ProviderError{Kind: KindInvalidResponse, Message: "completion is empty", Err: domain.ErrEmptyCompletion}
	}
	return text, nil
}

func classify(err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: KindTimeout, Message: "request deadline exceeded", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Kind: KindTimeout, Message: "network timeout", Err: err}
	}
	if errors.Is(err, domain.ErrEmptyCompletion) {
		return &ProviderError{Kind: KindInvalidResponse, Message: "no completion returned", Err: err}
	}
	var sc httpStatusCoder
	if errors.As(err, &sc) {
		switch status := sc.HTTPStatusCode(); status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &ProviderError{Kind: KindUnauthorized, Message: fmt.Sprintf("provider rejected credentials (%d)", status), Err: err}
		case http.StatusTooManyRequests:
			return &ProviderError{Kind: KindRateLimitedUpstream, Message: "provider rate limit reached", Err: err}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return &ProviderError{Kind: KindTimeout, Message: fmt.Sprintf("provider timed out (%d)", status), Err: err}
		default:
			return &ProviderError{Kind: KindUnknown, Message: fmt.Sprintf("unexpected provider status %d", status), Err: err}
		}
	}
	return &ProviderError{Kind: KindUnknown, Message: "provider call failed", Err: err}
}
