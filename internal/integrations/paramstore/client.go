package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a fetched value is served from memory.
const DefaultTTL = 5 * time.Minute

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter.
// Consumers (e.g. the OpenAI client) should depend on this interface rather
// than the concrete *Client so they remain testable without real AWS calls.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval. Successful reads are
// cached for the TTL so warm Lambda invocations skip SSM; errors are not cached.
type Client struct {
	api   ssmAPI
	cache *cache.Cache
}

type Option func(*clientConfig)

type clientConfig struct {
	ttl time.Duration
}

// WithTTL sets the cache lifetime. A non-positive value disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(c *clientConfig) { c.ttl = ttl }
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	cfg := clientConfig{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Client{api: api}
	if cfg.ttl > 0 {
		c.cache = cache.New(cfg.ttl, 2*cfg.ttl)
	}
	return c, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}
	if c.cache != nil {
		if v, found := c.cache.Get(name); found {
			return v.(string), nil
		}
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	value := *out.Parameter.Value
	if c.cache != nil {
		c.cache.Set(name, value, cache.DefaultExpiration)
	}
	return value, nil
}
