// Package handler serves POST /api/chat and GET /api/health, both behind API
// Gateway (Lambda) and as a plain net/http handler.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gemini-chat/internal/domain"
	"gemini-chat/internal/usecase"
)

const (
	ChatPath   = "/api/chat"
	HealthPath = "/api/health"

	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 64 << 10
)

// Replier is the use case behind /api/chat.
type Replier interface {
	Reply(ctx context.Context, in usecase.ReplyInput) (usecase.ReplyOutput, error)
	Model() string
}

type Handler struct {
	replier        Replier
	logger         *slog.Logger
	allowedOrigins []string
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithAllowedOrigins sets the CORS allow-list used on the Lambda path. It
// defaults to "*".
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.allowedOrigins = origins
	}
}

func NewHandler(r Replier, opts ...Option) (*Handler, error) {
	if r == nil {
		return nil, errors.New("handler: replier must not be nil")
	}
	h := &Handler{replier: r, logger: slog.Default(), allowedOrigins: []string{"*"}}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// result is a transport-neutral response.
type result struct {
	status int
	body   any
}

func (h *Handler) chat(ctx context.Context, correlationID string, body []byte) result {
	logger := h.logger.With("correlation_id", correlationID)

	var req domain.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Info("rejecting malformed chat request", "err", err)
		return errorResult(http.StatusBadRequest, usecase.ErrorInvalidInput)
	}

	out, err := h.replier.Reply(ctx, usecase.ReplyInput{Message: req.Message})
	if err != nil {
		var ucErr *usecase.Error
		if !errors.As(err, &ucErr) {
			logger.Error("chat request failed", "err", err)
			return errorResult(http.StatusInternalServerError, usecase.ErrorInternal)
		}
		status := statusFor(ucErr.Code)
		if status >= http.StatusInternalServerError {
			logger.Error("chat request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
		} else {
			logger.Info("chat request rejected", "code", ucErr.Code, "reason", ucErr.Reason)
		}
		return errorResult(status, ucErr.Code)
	}

	reply := out.Reply
	return result{
		status: http.StatusOK,
		body:   domain.ChatResponse{Status: domain.StatusSuccess, Reply: &reply},
	}
}

func (h *Handler) health() result {
	return result{
		status: http.StatusOK,
		body:   domain.HealthResponse{Status: domain.StatusOK, Model: h.replier.Model()},
	}
}

func errorResult(status int, code usecase.ErrorCode) result {
	return result{
		status: status,
		body:   domain.ChatResponse{Status: domain.StatusError, Error: string(code)},
	}
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func correlationID(incoming string) string {
	if id := strings.TrimSpace(incoming); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.NewString()
}
