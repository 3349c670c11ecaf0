package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"memorial-narrator/internal/domain"
	"memorial-narrator/internal/narrative"
	"memorial-narrator/internal/ratelimit"
)

const (
	sourceModel    = "model"
	sourceFallback = "fallback"

	saveWarning = "The narrative was generated but could not be saved. Copy it before leaving this page."
)

// MemorialStore reads and updates memorials. Missing memorials are reported
// with domain.ErrNotFound.
type MemorialStore interface {
	GetMemorial(ctx context.Context, memorialID string) (domain.Memorial, error)
	SaveNarrative(ctx context.Context, memorialID, narrative string) error
	UpdateVoice(ctx context.Context, memorialID string, voice domain.Voice) error
}

// MemoryStore reads and removes memories. ListByMemorial returns memories in
// insertion order.
type MemoryStore interface {
	ListByMemorial(ctx context.Context, memorialID string) ([]domain.Memory, error)
	GetMemory(ctx context.Context, memoryID string) (domain.Memory, error)
	DeleteMemory(ctx context.Context, memoryID string) error
}

// Authenticator resolves the signed-in user when the transport did not.
type Authenticator interface {
	CurrentUser(ctx context.Context) (string, error)
}

// StaticUser authenticates every call as the same user.
type StaticUser string

func (u StaticUser) CurrentUser(context.Context) (string, error) {
	if strings.TrimSpace(string(u)) == "" {
		return "", errors.New("usecase: no user configured")
	}
	return string(u), nil
}

type GenerateInput struct {
	MemorialID   string
	CallerUserID string
	// Memories, when non-empty, are narrated instead of the stored ones.
	Memories []domain.Memory
}

// NarrativeService generates, stores, and manages memorial narratives.
type NarrativeService struct {
	memorials MemorialStore
	memories  MemoryStore
	collector *Collector
	limiter   *ratelimit.Limiter
	generator *narrative.Generator
	auth      Authenticator
	prompt    narrative.PromptOptions
	logger    *slog.Logger
}

type Option func(*NarrativeService)

func WithAuthenticator(a Authenticator) Option {
	return func(s *NarrativeService) { s.auth = a }
}

func WithPromptOptions(o narrative.PromptOptions) Option {
	return func(s *NarrativeService) { s.prompt = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *NarrativeService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewNarrativeService(memorials MemorialStore, memories MemoryStore, limiter *ratelimit.Limiter, generator *narrative.Generator, opts ...Option) (*NarrativeService, error) {
	collector, err := NewCollector(memorials, memories)
	if err != nil {
		return nil, err
	}
	if limiter == nil {
		return nil, errors.New("usecase: rate limiter must not be nil")
	}
	if generator == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	s := &NarrativeService{
		memorials: memorials,
		memories:  memories,
		collector: collector,
		limiter:   limiter,
		generator: generator,
		prompt:    narrative.DefaultPromptOptions(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateNarrative runs one generation end to end. It never returns an error:
// every outcome, including infrastructure faults, is a GenerationResult.
func (s *NarrativeService) GenerateNarrative(ctx context.Context, in GenerateInput) domain.GenerationResult {
	res, err := s.generate(ctx, in)
	if err != nil {
		level := slog.LevelInfo
		if err.Code == ErrorInternal {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "narrative generation rejected",
			"memorial_id", in.MemorialID, "code", err.Code, "reason", err.Reason, "error", err.Err)
		return domain.GenerationResult{Error: Message(err.Code), Code: string(err.Code)}
	}
	return res
}

func (s *NarrativeService) generate(ctx context.Context, in GenerateInput) (domain.GenerationResult, *Error) {
	memorialID := strings.TrimSpace(in.MemorialID)
	if memorialID == "" {
		return domain.GenerationResult{}, newError(ErrorInvalidInput, "empty_memorial_id", nil)
	}

	userID, uerr := s.caller(ctx, in.CallerUserID)
	if uerr != nil {
		return domain.GenerationResult{}, uerr
	}

	memorial, uerr := s.loadOwned(ctx, memorialID, userID)
	if uerr != nil {
		return domain.GenerationResult{}, uerr
	}

	memories, err := s.collector.Collect(ctx, memorialID, in.Memories)
	switch {
	case errors.Is(err, ErrNoMemories):
		return domain.GenerationResult{}, newError(ErrorNoMemories, "no_memories", nil)
	case errors.Is(err, ErrMemorialNotFound):
		return domain.GenerationResult{}, newError(ErrorNotFound, "memorial_not_found", err)
	case err != nil:
		return domain.GenerationResult{}, newError(ErrorInternal, "memory_read_error", err)
	}

	if d := s.limiter.Check(ctx, userID); !d.Allowed {
		s.logger.InfoContext(ctx, "narrative generation rate limited",
			"memorial_id", memorialID, "user_id", userID, "remaining_seconds", d.RemainingSeconds)
		return domain.GenerationResult{
			Error:                fmt.Sprintf("Please wait %d seconds before generating another narrative.", d.RemainingSeconds),
			Code:                 string(ErrorRateLimited),
			TimeRemainingSeconds: d.RemainingSeconds,
		}, nil
	}

	// The caller may go away; the model call and write-back still finish.
	work := context.WithoutCancel(ctx)
	start := time.Now()

	prompt := narrative.BuildPrompt(memorial, memories, s.prompt)
	text, source := s.narrate(work, memorial, memories, prompt)

	res := domain.GenerationResult{Success: true, Narrative: text}
	if err := s.memorials.SaveNarrative(work, memorialID, text); err != nil {
		s.logger.ErrorContext(ctx, "narrative save failed", "memorial_id", memorialID, "error", err)
		res.Warning = saveWarning
	}
	if err := s.limiter.Record(work, userID); err != nil {
		s.logger.ErrorContext(ctx, "rate limit record failed", "user_id", userID, "error", err)
	}

	s.logger.InfoContext(ctx, "narrative generated",
		"memorial_id", memorialID,
		"user_id", userID,
		"source", source,
		"memories", len(memories),
		"emotions", narrative.Emotions(memories),
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *NarrativeService) narrate(ctx context.Context, memorial domain.Memorial, memories []domain.Memory, prompt string) (string, string) {
	text, err := s.generator.Generate(ctx, prompt)
	if err == nil {
		return text, sourceModel
	}
	kind := narrative.KindUnknown
	var pe *narrative.ProviderError
	if errors.As(err, &pe) {
		kind = pe.Kind
	}
	s.logger.WarnContext(ctx, "provider failed, composing fallback narrative",
		"memorial_id", memorial.ID, "kind", kind, "error", err)
	return narrative.Compose(memorial, memories), sourceFallback
}

func (s *NarrativeService) caller(ctx context.Context, asserted string) (string, *Error) {
	if id := strings.TrimSpace(asserted); id != "" {
		return id, nil
	}
	if s.auth == nil {
		return "", newError(ErrorUnauthenticated, "missing_user", nil)
	}
	id, err := s.auth.CurrentUser(ctx)
	if err != nil || strings.TrimSpace(id) == "" {
		return "", newError(ErrorUnauthenticated, "missing_user", err)
	}
	return strings.TrimSpace(id), nil
}

func (s *NarrativeService) loadOwned(ctx context.Context, memorialID, userID string) (domain.Memorial, *Error) {
	memorial, err := s.memorials.GetMemorial(ctx, memorialID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Memorial{}, newError(ErrorNotFound, "memorial_not_found", err)
		}
		return domain.Memorial{}, newError(ErrorInternal, "memorial_read_error", err)
	}
	if memorial.OwnerID != userID {
		return domain.Memorial{}, newError(ErrorForbidden, "not_owner", nil)
	}
	return memorial, nil
}
