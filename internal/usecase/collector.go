package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memorial-narrator/internal/domain"
)

var (
	ErrMemorialNotFound = errors.New("usecase: memorial not found")
	ErrNoMemories       = errors.New("usecase: memorial has no memories")
)

// Collector gathers the memories to narrate for a memorial.
type Collector struct {
	memorials MemorialStore
	memories  MemoryStore
}

func NewCollector(memorials MemorialStore, memories MemoryStore) (*Collector, error) {
	if memorials == nil {
		return nil, errors.New("usecase: memorial store must not be nil")
	}
	if memories == nil {
		return nil, errors.New("usecase: memory store must not be nil")
	}
	return &Collector{memorials: memorials, memories: memories}, nil
}

// Collect returns supplied when it holds at least one memory with content,
// otherwise the memorial's stored memories in insertion order. It fails with
// ErrNoMemories when nothing is left to narrate and with ErrMemorialNotFound
// when the memorial does not exist.
func (c *Collector) Collect(ctx context.Context, memorialID string, supplied []domain.Memory) ([]domain.Memory, error) {
	if kept := withContent(supplied); len(kept) > 0 {
		return kept, nil
	}

	stored, err := c.memories.ListByMemorial(ctx, memorialID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrMemorialNotFound
		}
		return nil, fmt.Errorf("usecase: Collect list memories: %w", err)
	}
	if kept := withContent(stored); len(kept) > 0 {
		return kept, nil
	}

	// An empty listing cannot tell a memorial without memories from a missing one.
	if _, err := c.memorials.GetMemorial(ctx, memorialID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrMemorialNotFound
		}
		return nil, fmt.Errorf("usecase: Collect get memorial: %w", err)
	}
	return nil, ErrNoMemories
}

func withContent(memories []domain.Memory) []domain.Memory {
	out := make([]domain.Memory, 0, len(memories))
	for _, m := range memories {
		if strings.TrimSpace(m.Content) != "" {
			out = append(out, m)
		}
	}
	return out
}
