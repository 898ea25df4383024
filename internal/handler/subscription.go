package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/model"
	"github.com/rosenban/rosenban/internal/registry"
)

// SubscriptionHandler serves subscriber self-service.
type SubscriptionHandler struct {
	reg    registry.Registry
	logger *slog.Logger
}

func NewSubscriptionHandler(reg registry.Registry, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{reg: reg, logger: logger}
}

func (h *SubscriptionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var sub model.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sub.Enabled = true

	if err := h.reg.UpsertSubscription(r.Context(), &sub); err != nil {
		if appErr.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Upsert subscription failed", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sub)
}

func (h *SubscriptionHandler) Disable(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubscriberKey string `json:"subscriber_key"`
		LineID        string `json:"line_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.reg.DisableSubscription(r.Context(), body.SubscriberKey, body.LineID); err != nil {
		switch {
		case appErr.IsValidation(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case appErr.IsNotFound(err):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			h.logger.Error("Disable subscription failed", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
