package usecase

import (
	"context"
	"errors"
	"strings"

	"memorial-narrator/internal/domain"
)

// DeleteMemory removes a memory. Only the contributor who added it may do so;
// the stored narrative is left untouched until the next generation.
func (s *NarrativeService) DeleteMemory(ctx context.Context, memoryID, callerUserID string) error {
	memoryID = strings.TrimSpace(memoryID)
	if memoryID == "" {
		return newError(ErrorInvalidInput, "empty_memory_id", nil)
	}
	userID, uerr := s.caller(ctx, callerUserID)
	if uerr != nil {
		return uerr
	}

	memory, err := s.memories.GetMemory(ctx, memoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return newError(ErrorNotFound, "memory_not_found", err)
		}
		return newError(ErrorInternal, "memory_read_error", err)
	}
	if memory.ContributorID != userID {
		return newError(ErrorForbidden, "not_contributor", nil)
	}

	if err := s.memories.DeleteMemory(ctx, memoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return newError(ErrorNotFound, "memory_not_found", err)
		}
		return newError(ErrorInternal, "memory_delete_error", err)
	}
	s.logger.InfoContext(ctx, "memory deleted",
		"memory_id", memoryID, "memorial_id", memory.MemorialID, "user_id", userID)
	return nil
}
