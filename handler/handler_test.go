package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"memorial-narrator/internal/domain"
	"memorial-narrator/internal/usecase"
)

type stubService struct {
	result    domain.GenerationResult
	voice     domain.Voice
	voiceErr  error
	deleteErr error

	genIn      usecase.GenerateInput
	voiceIn    usecase.VoiceInput
	deletedID  string
	deletedBy  string
	genCalls   int
	voiceCalls int
}

func (s *stubService) GenerateNarrative(_ context.Context, in usecase.GenerateInput) domain.GenerationResult {
	s.genCalls++
	s.genIn = in
	return s.result
}

func (s *stubService) UpdateVoice(_ context.Context, in usecase.VoiceInput) (domain.Voice, error) {
	s.voiceCalls++
	s.voiceIn = in
	return s.voice, s.voiceErr
}

func (s *stubService) DeleteMemory(_ context.Context, memoryID, caller string) error {
	s.deletedID = memoryID
	s.deletedBy = caller
	return s.deleteErr
}

func makeEvent(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
		RequestContext: events.APIGatewayProxyRequestContext{
			Authorizer: map[string]interface{}{
				"claims": map[string]interface{}{"sub": "user-1"},
			},
		},
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()
	h, err := NewHandler(svc, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return h
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_GenerateHappyPath(t *testing.T) {
	svc := &stubService{result: domain.GenerationResult{Success: true, Narrative: "I was born..."}}
	h := newTestHandler(t, svc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/memorials/mem-1/narrative", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.GenerateInput{MemorialID: "mem-1", CallerUserID: "user-1"}, svc.genIn)

	out := parseBody[domain.GenerationResult](t, resp.Body)
	require.True(t, out.Success)
	require.Equal(t, "I was born...", out.Narrative)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_GenerateWithSuppliedMemories(t *testing.T) {
	svc := &stubService{result: domain.GenerationResult{Success: true, Narrative: "x"}}
	h := newTestHandler(t, svc)

	body := `{"memories":[{"content":"Flooded the kitchen","contributorName":"Chris","relationship":"cousin","emotion":"Funny"}]}`
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/memorials/mem-1/narrative", body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []domain.Memory{{
		MemorialID:      "mem-1",
		Content:         "Flooded the kitchen",
		ContributorName: "Chris",
		Relationship:    "cousin",
		Emotion:         domain.EmotionFunny,
	}}, svc.genIn.Memories)
}

func TestHandle_GenerateInvalidBody(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/memorials/mem-1/narrative", `not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, string(usecase.ErrorInvalidInput), parseBody[errorResponse](t, resp.Body).Error)
	require.Zero(t, svc.genCalls)
}

func TestHandle_GenerateMapsResultCodes(t *testing.T) {
	cases := []struct {
		code   usecase.ErrorCode
		status int
	}{
		{usecase.ErrorNoMemories, http.StatusBadRequest},
		{usecase.ErrorInvalidInput, http.StatusBadRequest},
		{usecase.ErrorUnauthenticated, http.StatusUnauthorized},
		{usecase.ErrorForbidden, http.StatusForbidden},
		{usecase.ErrorNotFound, http.StatusNotFound},
		{usecase.ErrorInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			svc := &stubService{result: domain.GenerationResult{Code: string(tc.code), Error: usecase.Message(tc.code)}}
			h := newTestHandler(t, svc)

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/memorials/mem-1/narrative", ""))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[domain.GenerationResult](t, resp.Body)
			require.False(t, out.Success)
			require.Equal(t, string(tc.code), out.Code)
			require.NotEmpty(t, out.Error)
		})
	}
}

func TestHandle_GenerateRateLimited(t *testing.T) {
	svc := &stubService{result: domain.GenerationResult{
		Code: string(usecase.ErrorRateLimited), Error: "Please wait 30 seconds.", TimeRemainingSeconds: 30,
	}}
	h := newTestHandler(t, svc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/memorials/mem-1/narrative", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "30", resp.Headers["Retry-After"])
	require.Equal(t, 30, parseBody[domain.GenerationResult](t, resp.Body).TimeRemainingSeconds)
}

func TestHandle_MissingClaimsPassesEmptyCaller(t *testing.T) {
	svc := &stubService{result: domain.GenerationResult{Code: string(usecase.ErrorUnauthenticated)}}
	h := newTestHandler(t, svc)

	event := makeEvent(http.MethodPost, "/memorials/mem-1/narrative", "")
	event.RequestContext.Authorizer = nil
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Empty(t, svc.genIn.CallerUserID)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandle_UpdateVoice(t *testing.T) {
	svc := &stubService{voice: domain.Voice{Tone: domain.ToneReflective, Style: domain.StylePoetic}}
	h := newTestHandler(t, svc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPut, "/memorials/mem-1/voice", `{"tone":"reflective","style":"poetic"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.VoiceInput{MemorialID: "mem-1", CallerUserID: "user-1", Tone: "reflective", Style: "poetic"}, svc.voiceIn)
	require.Equal(t, voiceResponse{Tone: "reflective", Style: "poetic"}, parseBody[voiceResponse](t, resp.Body))
}

func TestHandle_UpdateVoiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "invalid body", body: `nope`, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "invalid tone", body: `{"tone":"loud"}`, err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_tone"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "forbidden", body: `{"tone":"warm"}`, err: &usecase.Error{Code: usecase.ErrorForbidden, Reason: "not_owner"}, status: http.StatusForbidden, code: string(usecase.ErrorForbidden)},
		{name: "unexpected", body: `{"tone":"warm"}`, err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{voiceErr: tc.err}
			h := newTestHandler(t, svc)

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPut, "/memorials/mem-1/voice", tc.body))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.code, parseBody[errorResponse](t, resp.Body).Error)
		})
	}
}

func TestHandle_DeleteMemory(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodDelete, "/memories/m-9", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "m-9", svc.deletedID)
	require.Equal(t, "user-1", svc.deletedBy)

	svc.deleteErr = &usecase.Error{Code: usecase.ErrorNotFound, Reason: "memory_not_found"}
	resp, err = h.Handle(context.Background(), makeEvent(http.MethodDelete, "/memories/m-9", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_Routing(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/memorials/mem-1/narrative", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodPost, "/ask", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	svc := &stubService{result: domain.GenerationResult{Success: true, Narrative: "ok"}}
	h := newTestHandler(t, svc)

	event := makeEvent(http.MethodPost, "/memorials/mem-1/narrative", "")
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
