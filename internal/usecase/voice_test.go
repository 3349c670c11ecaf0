package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"memorial-narrator/internal/domain"
	"memorial-narrator/internal/narrative"
)

func expectError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func TestUpdateVoice_OwnerChangesBoth(t *testing.T) {
	h := newHarness(t, narrative.NewMockLLM("x"), nil)

	v, err := h.svc.UpdateVoice(context.Background(), VoiceInput{
		MemorialID: "mem-1", CallerUserID: "owner-1", Tone: "Reflective", Style: "poetic",
	})
	require.NoError(t, err)
	want := domain.Voice{Tone: domain.ToneReflective, Style: domain.StylePoetic}
	require.Equal(t, want, v)
	require.Equal(t, want, h.store.voices["mem-1"])
}

func TestUpdateVoice_PartialKeepsCurrent(t *testing.T) {
	h := newHarness(t, narrative.NewMockLLM("x"), nil)

	v, err := h.svc.UpdateVoice(context.Background(), VoiceInput{MemorialID: "mem-1", CallerUserID: "owner-1", Style: "formal"})
	require.NoError(t, err)
	require.Equal(t, domain.Voice{Tone: domain.ToneHumorous, Style: domain.StyleFormal}, v)
}

func TestUpdateVoice_Errors(t *testing.T) {
	h := newHarness(t, narrative.NewMockLLM("x"), nil)
	ctx := context.Background()

	_, err := h.svc.UpdateVoice(ctx, VoiceInput{CallerUserID: "owner-1", Tone: "warm"})
	expectError(t, err, ErrorInvalidInput, "empty_memorial_id")

	_, err = h.svc.UpdateVoice(ctx, VoiceInput{MemorialID: "mem-1", CallerUserID: "owner-1"})
	expectError(t, err, ErrorInvalidInput, "empty_voice")

	_, err = h.svc.UpdateVoice(ctx, VoiceInput{MemorialID: "mem-1", CallerUserID: "owner-1", Tone: "sarcastic"})
	expectError(t, err, ErrorInvalidInput, "invalid_tone")

	_, err = h.svc.UpdateVoice(ctx, VoiceInput{MemorialID: "mem-1", CallerUserID: "owner-1", Style: "haiku"})
	expectError(t, err, ErrorInvalidInput, "invalid_style")

	_, err = h.svc.UpdateVoice(ctx, VoiceInput{MemorialID: "mem-1", CallerUserID: "user-chris", Tone: "warm"})
	expectError(t, err, ErrorForbidden, "not_owner")

	_, err = h.svc.UpdateVoice(ctx, VoiceInput{MemorialID: "mem-1", Tone: "warm"})
	expectError(t, err, ErrorUnauthenticated, "missing_user")

	_, err = h.svc.UpdateVoice(ctx, VoiceInput{MemorialID: "gone", CallerUserID: "owner-1", Tone: "warm"})
	expectError(t, err, ErrorNotFound, "memorial_not_found")

	h.store.saveErr = errors.New("throttled")
	_, err = h.svc.UpdateVoice(ctx, VoiceInput{MemorialID: "mem-1", CallerUserID: "owner-1", Tone: "warm"})
	expectError(t, err, ErrorInternal, "voice_write_error")
	require.Empty(t, h.store.voices)
}

func TestDeleteMemory_ContributorOnly(t *testing.T) {
	h := newHarness(t, narrative.NewMockLLM("x"), nil)
	ctx := context.Background()

	err := h.svc.DeleteMemory(ctx, "m-chris", "owner-1")
	expectError(t, err, ErrorForbidden, "not_contributor")
	require.Empty(t, h.store.deleted)

	require.NoError(t, h.svc.DeleteMemory(ctx, "m-chris", "user-chris"))
	require.Equal(t, []string{"m-chris"}, h.store.deleted)
}

func TestDeleteMemory_Errors(t *testing.T) {
	h := newHarness(t, narrative.NewMockLLM("x"), nil)
	ctx := context.Background()

	expectError(t, h.svc.DeleteMemory(ctx, " ", "user-chris"), ErrorInvalidInput, "empty_memory_id")
	expectError(t, h.svc.DeleteMemory(ctx, "m-chris", ""), ErrorUnauthenticated, "missing_user")
	expectError(t, h.svc.DeleteMemory(ctx, "missing", "user-chris"), ErrorNotFound, "memory_not_found")

	h.store.deleteErr = errors.New("conditional check failed")
	expectError(t, h.svc.DeleteMemory(ctx, "m-chris", "user-chris"), ErrorInternal, "memory_delete_error")
}
