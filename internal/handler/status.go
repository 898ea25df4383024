package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/model"
	"github.com/rosenban/rosenban/internal/service"
)

// StatusHandler serves the status board read path and the batch submission
// entry point.
type StatusHandler struct {
	svc    service.StatusService
	logger *slog.Logger
}

func NewStatusHandler(svc service.StatusService, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{svc: svc, logger: logger}
}

func (h *StatusHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.GetAll(r.Context())
	if err != nil {
		h.logger.Error("GetAll failed", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lines)
}

func (h *StatusHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var incoming []model.LineStatus
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		h.logger.Warn("invalid request body for SubmitBatch")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.svc.SubmitBatch(r.Context(), incoming)
	if err != nil {
		if appErr.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("SubmitBatch failed", slog.Any("error", err))
		// Partial persistence still gets reported alongside the error.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error":  err.Error(),
			"result": result,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
