package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"memorial-narrator/internal/domain"
)

const defaultBaseURL = "https://api.openai.com/v1"

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Err
}

// Client sends chat completions through the official SDK. The API key comes
// either from SSM, resolved once per process, or from WithAPIKey.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string
	staticKey   string

	sdkMu    sync.Mutex
	sdk      openai.Client
	sdkReady bool
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIKey bypasses SSM. It is the only way to build a Client without a Getter.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.staticKey = strings.TrimSpace(key)
	}
}

// NewClient creates a Client. With a Getter, the API key is fetched from
// <paramPrefix>/open-ai-token on the first successful call to Chat and reused
// for the lifetime of the process. A failed fetch is retried on the next call.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		getter:     ps,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.staticKey != "" {
		return c, nil
	}
	if ps == nil {
		return nil, errors.New("openai: paramstore getter must not be nil")
	}
	c.paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if c.paramPrefix == "" {
		return nil, errors.New("openai: parameter prefix must not be empty")
	}
	return c, nil
}

func (c *Client) tokenParameterName() string {
	return c.paramPrefix + "/open-ai-token"
}

// resolveAPIKey returns the static key or fetches it from SSM.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	if c.staticKey != "" {
		return c.staticKey, nil
	}
	return fetchAPIKeyFromParamStore(ctx, c.getter, c.tokenParameterName())
}

// client builds the SDK client once the key is known. Retries are disabled:
// a failed call goes straight to the template fallback.
func (c *Client) client(ctx context.Context) (openai.Client, error) {
	c.sdkMu.Lock()
	defer c.sdkMu.Unlock()
	if c.sdkReady {
		return c.sdk, nil
	}
	// A failed key lookup is not cached; the next call asks SSM again.
	key, err := c.resolveAPIKey(ctx)
	if err != nil {
		return openai.Client{}, err
	}
	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c.sdk = openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(sdkBaseURL(c.baseURL)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	c.sdkReady = true
	return c.sdk, nil
}

// sdkBaseURL normalizes a base URL to the ".../v1/" form the SDK expects.
func sdkBaseURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/"
}

// Chat sends one chat completion request and returns the first choice's text.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", errors.New("openai: model must not be empty")
	}
	sdk, err := c.client(ctx)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: toMessages(req.Messages),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &HTTPStatusError{
				StatusCode: apiErr.StatusCode,
				URL:        sdkBaseURL(c.baseURL) + "chat/completions",
				Body:       apiErr.Message,
				Err:        err,
			}
		}
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response: %w", domain.ErrEmptyCompletion)
	}
	return completion.Choices[0].Message.Content, nil
}

func toMessages(msgs []domain.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("openai: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("openai: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("openai: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("openai: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("openai: API token is empty")
	}
	return tp.Token, nil
}
