package narrative

import (
	"context"
	"errors"
	"sync"
	"time"

	"memorial-narrator/internal/domain"
)

// ErrProviderUnavailable is returned by Unavailable.
var ErrProviderUnavailable = errors.New("narrative: no language model provider configured")

// Unavailable is an LLMClient that always fails. Wiring it forces every
// generation onto the template composer, e.g. for offline CLI runs.
type Unavailable struct{}

func (Unavailable) Chat(context.Context, domain.ChatRequest) (string, error) {
	return "", ErrProviderUnavailable
}

// MockLLM is a deterministic LLMClient for tests.
type MockLLM struct {
	// Response is returned by Chat unless Err is set.
	Response string
	// Err, if set, is returned instead of a response.
	Err error
	// Delay holds the call open; a done context ends it early with ctx.Err().
	Delay time.Duration

	mu          sync.Mutex
	calls       int
	lastRequest domain.ChatRequest
}

func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Err: err}
}

func (m *MockLLM) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastRequest = req
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Calls reports how many times Chat was invoked.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request passed to Chat.
func (m *MockLLM) LastRequest() domain.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}
