package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rosenban/rosenban/internal/digest"
	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/model"
)

// DigestHandler is the external cron trigger surface for the aggregator.
type DigestHandler struct {
	agg    *digest.Aggregator
	logger *slog.Logger
}

func NewDigestHandler(agg *digest.Aggregator, logger *slog.Logger) *DigestHandler {
	return &DigestHandler{agg: agg, logger: logger}
}

func (h *DigestHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Frequency model.Frequency `json:"frequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sent, err := h.agg.Run(r.Context(), body.Frequency)
	if err != nil {
		switch {
		case appErr.IsValidation(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case appErr.IsConfig(err):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			h.logger.Error("digest run failed", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"sent": sent})
}
