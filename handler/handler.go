// Package handler adapts API Gateway proxy events to the narrative service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"memorial-narrator/internal/domain"
	"memorial-narrator/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// Service is the use case surface exposed over HTTP.
type Service interface {
	GenerateNarrative(ctx context.Context, in usecase.GenerateInput) domain.GenerationResult
	UpdateVoice(ctx context.Context, in usecase.VoiceInput) (domain.Voice, error)
	DeleteMemory(ctx context.Context, memoryID, callerUserID string) error
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(svc Service, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: service must not be nil")
	}
	h := &Handler{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type memoryPayload struct {
	Content         string `json:"content"`
	ContributorName string `json:"contributorName"`
	Relationship    string `json:"relationship"`
	TimePeriod      string `json:"timePeriod"`
	Emotion         string `json:"emotion"`
}

type narrativeRequest struct {
	Memories []memoryPayload `json:"memories"`
}

type voiceRequest struct {
	Tone  string `json:"tone"`
	Style string `json:"style"`
}

type voiceResponse struct {
	Tone  string `json:"tone"`
	Style string `json:"style"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Handle routes:
//
//	POST   /memorials/{id}/narrative
//	PUT    /memorials/{id}/voice
//	DELETE /memories/{id}
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	logger := h.logger.With("correlation_id", corrID)
	caller := callerID(req)

	parts := strings.Split(strings.Trim(req.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "memorials" && parts[2] == "narrative":
		if req.HTTPMethod != http.MethodPost {
			return methodNotAllowed(corrID), nil
		}
		return h.generate(ctx, logger, corrID, parts[1], caller, req.Body), nil
	case len(parts) == 3 && parts[0] == "memorials" && parts[2] == "voice":
		if req.HTTPMethod != http.MethodPut {
			return methodNotAllowed(corrID), nil
		}
		return h.updateVoice(ctx, logger, corrID, parts[1], caller, req.Body), nil
	case len(parts) == 2 && parts[0] == "memories":
		if req.HTTPMethod != http.MethodDelete {
			return methodNotAllowed(corrID), nil
		}
		return h.deleteMemory(ctx, logger, corrID, parts[1], caller), nil
	default:
		return jsonResponse(http.StatusNotFound, corrID, errorResponse{Error: "ROUTE_NOT_FOUND"}), nil
	}
}

func (h *Handler) generate(ctx context.Context, logger *slog.Logger, corrID, memorialID, caller, body string) events.APIGatewayProxyResponse {
	var in narrativeRequest
	if strings.TrimSpace(body) != "" {
		if err := json.Unmarshal([]byte(body), &in); err != nil {
			logger.Info("invalid narrative request body", "error", err)
			return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Message: "Request body must be JSON."})
		}
	}

	res := h.svc.GenerateNarrative(ctx, usecase.GenerateInput{
		MemorialID:   memorialID,
		CallerUserID: caller,
		Memories:     toMemories(memorialID, in.Memories),
	})
	logger.Info("narrative request handled", "memorial_id", memorialID, "success", res.Success, "code", res.Code)

	resp := jsonResponse(statusFor(usecase.ErrorCode(res.Code)), corrID, res)
	if res.TimeRemainingSeconds > 0 {
		resp.Headers["Retry-After"] = strconv.Itoa(res.TimeRemainingSeconds)
	}
	return resp
}

func (h *Handler) updateVoice(ctx context.Context, logger *slog.Logger, corrID, memorialID, caller, body string) events.APIGatewayProxyResponse {
	var in voiceRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Message: "Request body must be JSON."})
	}
	voice, err := h.svc.UpdateVoice(ctx, usecase.VoiceInput{
		MemorialID:   memorialID,
		CallerUserID: caller,
		Tone:         in.Tone,
		Style:        in.Style,
	})
	if err != nil {
		return errorFor(logger, corrID, err)
	}
	return jsonResponse(http.StatusOK, corrID, voiceResponse{Tone: string(voice.Tone), Style: string(voice.Style)})
}

func (h *Handler) deleteMemory(ctx context.Context, logger *slog.Logger, corrID, memoryID, caller string) events.APIGatewayProxyResponse {
	if err := h.svc.DeleteMemory(ctx, memoryID, caller); err != nil {
		return errorFor(logger, corrID, err)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusNoContent,
		Headers:    map[string]string{correlationHeader: corrID},
	}
}

func toMemories(memorialID string, in []memoryPayload) []domain.Memory {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Memory, 0, len(in))
	for _, m := range in {
		out = append(out, domain.Memory{
			MemorialID:      memorialID,
			Content:         m.Content,
			ContributorName: m.ContributorName,
			Relationship:    m.Relationship,
			TimePeriod:      m.TimePeriod,
			Emotion:         domain.ParseEmotion(m.Emotion),
		})
	}
	return out
}

func errorFor(logger *slog.Logger, corrID string, err error) events.APIGatewayProxyResponse {
	code := usecase.ErrorInternal
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		code = ucErr.Code
	}
	if code == usecase.ErrorInternal {
		logger.Error("request failed", "error", err)
	}
	return jsonResponse(statusFor(code), corrID, errorResponse{Error: string(code), Message: usecase.Message(code)})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case "":
		return http.StatusOK
	case usecase.ErrorInvalidInput, usecase.ErrorNoMemories:
		return http.StatusBadRequest
	case usecase.ErrorUnauthenticated:
		return http.StatusUnauthorized
	case usecase.ErrorForbidden:
		return http.StatusForbidden
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func methodNotAllowed(corrID string) events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusMethodNotAllowed, corrID, errorResponse{Error: "METHOD_NOT_ALLOWED"})
}

func jsonResponse(status int, corrID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}

// callerID reads the Cognito user pool subject from the authorizer claims.
func callerID(req events.APIGatewayProxyRequest) string {
	claims, ok := req.RequestContext.Authorizer["claims"].(map[string]interface{})
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return strings.TrimSpace(sub)
}
