package narrative

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"memorial-narrator/internal/domain"
)

type statusErr struct{ code int }

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) HTTPStatusCode() int { return e.code }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestNewGenerator_RequiresClient(t *testing.T) {
	_, err := NewGenerator(nil, DefaultConfig())
	require.Error(t, err)
}

func TestNewGenerator_FillsDefaults(t *testing.T) {
	g, err := NewGenerator(NewMockLLM("x"), Config{})
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), g.config)
	require.Equal(t, DefaultModel, g.Model())
}

func TestGenerate_SendsSystemAndUserTurns(t *testing.T) {
	llm := NewMockLLM("  I was born by the sea.  ")
	g, err := NewGenerator(llm, Config{Model: "gpt-test"})
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	require.Equal(t, "I was born by the sea.", text)
	require.Equal(t, 1, llm.Calls())

	req := llm.LastRequest()
	require.Equal(t, "gpt-test", req.Model)
	require.Equal(t, DefaultTemperature, req.Temperature)
	require.Equal(t, DefaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	require.Equal(t, "system", req.Messages[0].Role)
	require.Contains(t, req.Messages[0].Content, "actual name")
	require.Equal(t, domain.ChatMessage{Role: "user", Content: "the prompt"}, req.Messages[1])
}

func TestGenerate_EmptyPromptNeverCallsProvider(t *testing.T) {
	llm := NewMockLLM("x")
	g, _ := NewGenerator(llm, DefaultConfig())

	_, err := g.Generate(context.Background(), "  ")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, KindInvalidResponse, pe.Kind)
	require.Zero(t, llm.Calls())
}

func TestGenerate_EmptyCompletion(t *testing.T) {
	g, _ := NewGenerator(NewMockLLM(" \n "), DefaultConfig())

	_, err := g.Generate(context.Background(), "prompt")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, KindInvalidResponse, pe.Kind)
	require.ErrorIs(t, err, domain.ErrEmptyCompletion)
}

func TestGenerate_Timeout(t *testing.T) {
	llm := &MockLLM{Response: "late", Delay: time.Second}
	g, _ := NewGenerator(llm, Config{Timeout: 10 * time.Millisecond})

	_, err := g.Generate(context.Background(), "prompt")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, KindTimeout, pe.Kind)
}

func TestGenerate_ClassifiesProviderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ProviderErrorKind
	}{
		{"unauthorized", statusErr{401}, KindUnauthorized},
		{"forbidden", statusErr{403}, KindUnauthorized},
		{"rate limited", fmt.Errorf("wrapped: %w", statusErr{429}), KindRateLimitedUpstream},
		{"gateway timeout", statusErr{504}, KindTimeout},
		{"server error", statusErr{500}, KindUnknown},
		{"net timeout", timeoutErr{}, KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"no choices", fmt.Errorf("openai: %w", domain.ErrEmptyCompletion), KindInvalidResponse},
		{"opaque", errors.New("connection reset"), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := NewGenerator(NewMockLLMWithError(tc.err), DefaultConfig())

			_, err := g.Generate(context.Background(), "prompt")

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			require.Equal(t, tc.want, pe.Kind)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestUnavailable_AlwaysFails(t *testing.T) {
	g, _ := NewGenerator(Unavailable{}, DefaultConfig())
	_, err := g.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}
