package usecase

import (
	"context"
	"strings"

	"memorial-narrator/internal/domain"
)

type VoiceInput struct {
	MemorialID   string
	CallerUserID string
	// Tone and Style must name supported values. An empty field keeps the
	// memorial's current setting.
	Tone  string
	Style string
}

// UpdateVoice changes the tone and style used for the next generation. Only
// the memorial owner may change it.
func (s *NarrativeService) UpdateVoice(ctx context.Context, in VoiceInput) (domain.Voice, error) {
	memorialID := strings.TrimSpace(in.MemorialID)
	if memorialID == "" {
		return domain.Voice{}, newError(ErrorInvalidInput, "empty_memorial_id", nil)
	}
	if strings.TrimSpace(in.Tone) == "" && strings.TrimSpace(in.Style) == "" {
		return domain.Voice{}, newError(ErrorInvalidInput, "empty_voice", nil)
	}

	userID, uerr := s.caller(ctx, in.CallerUserID)
	if uerr != nil {
		return domain.Voice{}, uerr
	}
	memorial, uerr := s.loadOwned(ctx, memorialID, userID)
	if uerr != nil {
		return domain.Voice{}, uerr
	}

	voice := memorial.Voice()
	if strings.TrimSpace(in.Tone) != "" {
		t, ok := domain.LookupTone(in.Tone)
		if !ok {
			return domain.Voice{}, newError(ErrorInvalidInput, "invalid_tone", nil)
		}
		voice.Tone = t
	}
	if strings.TrimSpace(in.Style) != "" {
		st, ok := domain.LookupStyle(in.Style)
		if !ok {
			return domain.Voice{}, newError(ErrorInvalidInput, "invalid_style", nil)
		}
		voice.Style = st
	}

	if err := s.memorials.UpdateVoice(ctx, memorialID, voice); err != nil {
		return domain.Voice{}, newError(ErrorInternal, "voice_write_error", err)
	}
	s.logger.InfoContext(ctx, "memorial voice updated",
		"memorial_id", memorialID, "user_id", userID, "tone", voice.Tone, "style", voice.Style)
	return voice, nil
}
