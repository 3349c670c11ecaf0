package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"memorial-narrator/handler"
	"memorial-narrator/internal/integrations/openai"
	"memorial-narrator/internal/integrations/paramstore"
	"memorial-narrator/internal/narrative"
	"memorial-narrator/internal/ratelimit"
	"memorial-narrator/internal/repository"
	"memorial-narrator/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	window := envDuration("RATE_LIMIT_WINDOW", ratelimit.DefaultWindow)
	providerTimeout := envDuration("PROVIDER_TIMEOUT", narrative.DefaultTimeout)
	maxPromptChars := envInt("MAX_PROMPT_CHARS", narrative.DefaultMaxMemoryBlockChars)
	redisAddr := os.Getenv("REDIS_ADDR")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable,
		repository.WithRateLimitTTL(window))
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}
	openaiClient, err := openai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	// ---- Rate limiting ----
	var rateStore ratelimit.Store = stateClient
	if redisAddr != "" {
		redisStore, err := repository.NewRedisRateStore(repository.NewRedis(redisAddr, os.Getenv("REDIS_PASSWORD"), envInt("REDIS_DB", 0)), repository.RateLimitTTL(window))
		if err != nil {
			slog.Error("failed to create redis rate store", "err", err)
			os.Exit(1)
		}
		rateStore = redisStore
	}
	limiter, err := ratelimit.New(rateStore, window, ratelimit.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create rate limiter", "err", err)
		os.Exit(1)
	}

	// ---- Narrative ----
	generator, err := narrative.NewGenerator(openaiClient, narrative.Config{
		Model:   resolveModel(ctx, ssmClient, paramPrefix),
		Timeout: providerTimeout,
	})
	if err != nil {
		slog.Error("failed to create narrative generator", "err", err)
		os.Exit(1)
	}

	svc, err := usecase.NewNarrativeService(stateClient, stateClient, limiter, generator,
		usecase.WithLogger(logger),
		usecase.WithPromptOptions(narrative.PromptOptions{MaxMemoryBlockChars: maxPromptChars}),
	)
	if err != nil {
		slog.Error("failed to create narrative service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(svc, handler.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

// resolveModel reads the model id from SSM, keeping the default when the
// parameter is missing or blank.
func resolveModel(ctx context.Context, ps paramstore.Getter, prefix string) string {
	name := strings.TrimRight(prefix, "/") + "/config/openai_model"
	model, err := ps.GetParameter(ctx, name)
	if err != nil {
		slog.Warn("model parameter unavailable, using default", "name", name, "model", narrative.DefaultModel, "err", err)
		return narrative.DefaultModel
	}
	if model = strings.TrimSpace(model); model == "" {
		return narrative.DefaultModel
	}
	return model
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
