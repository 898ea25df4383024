package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/model"
	"github.com/rosenban/rosenban/internal/registry"
)

// PushHandler registers browser push endpoints. The request mirrors the
// PushSubscription JSON a browser hands to the page script.
type PushHandler struct {
	reg    registry.Registry
	logger *slog.Logger
}

func NewPushHandler(reg registry.Registry, logger *slog.Logger) *PushHandler {
	return &PushHandler{reg: reg, logger: logger}
}

func (h *PushHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubscriberKey string `json:"subscriber_key"`
		Endpoint      string `json:"endpoint"`
		Keys          struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
		DeviceType string `json:"device_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ep := model.PushEndpoint{
		SubscriberKey: body.SubscriberKey,
		Endpoint:      body.Endpoint,
		P256dh:        body.Keys.P256dh,
		Auth:          body.Keys.Auth,
		DeviceType:    body.DeviceType,
	}
	if err := h.reg.RegisterPushEndpoint(r.Context(), &ep); err != nil {
		if appErr.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Register push endpoint failed", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ep)
}
