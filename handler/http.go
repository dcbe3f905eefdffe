package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gemini-chat/internal/usecase"
)

// ServeChat is the net/http form of POST /api/chat.
func (h *Handler) ServeChat(w http.ResponseWriter, r *http.Request) {
	cid := correlationID(r.Header.Get(correlationHeader))
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.write(w, cid, errorResult(http.StatusRequestEntityTooLarge, usecase.ErrorInvalidInput))
			return
		}
		h.write(w, cid, errorResult(http.StatusBadRequest, usecase.ErrorInvalidInput))
		return
	}
	h.write(w, cid, h.chat(r.Context(), cid, body))
}

// ServeHealth is the net/http form of GET /api/health.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	h.write(w, correlationID(r.Header.Get(correlationHeader)), h.health())
}

func (h *Handler) write(w http.ResponseWriter, cid string, res result) {
	w.Header().Set(correlationHeader, cid)
	if res.body == nil {
		w.WriteHeader(res.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.status)
	if err := json.NewEncoder(w).Encode(res.body); err != nil {
		h.logger.Debug("failed to write response", "err", err, "correlation_id", cid)
	}
}
