package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"github.com/rosenban/rosenban/internal/config"
	"github.com/rosenban/rosenban/internal/metrics"
	"github.com/rosenban/rosenban/internal/model"
)

// WebPushSender delivers payloads through the browser push transport using
// VAPID keys. Sends are rate limited to respect the push service.
type WebPushSender struct {
	options *webpush.Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewWebPushSender builds the push channel; without VAPID keys it comes up
// disabled and dispatch skips it.
func NewWebPushSender(cfg config.PushConfig, logger *slog.Logger) *WebPushSender {
	l := logger.With("layer", "channel", "component", "pushSender")
	if !cfg.Enabled() {
		l.Warn("VAPID keys not configured, push channel disabled")
		return &WebPushSender{logger: l}
	}

	return &WebPushSender{
		options: &webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             60,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:  l,
	}
}

// Enabled reports whether VAPID keys are configured.
func (s *WebPushSender) Enabled() bool {
	return s.options != nil
}

// Send pushes one payload. A 404 or 410 from the transport wraps
// ErrEndpointGone so the caller can deactivate the endpoint.
func (s *WebPushSender) Send(ctx context.Context, ep model.PushEndpoint, msg PushMessage) error {
	if !s.Enabled() {
		return fmt.Errorf("push channel is disabled")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	sub := &webpush.Subscription{
		Endpoint: ep.Endpoint,
		Keys: webpush.Keys{
			P256dh: ep.P256dh,
			Auth:   ep.Auth,
		},
	}

	start := time.Now()
	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, s.options)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(model.ChannelPush, "failure").Inc()
		return fmt.Errorf("push send to %s: %w", ep.Endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		metrics.NotificationsSent.WithLabelValues(model.ChannelPush, "gone").Inc()
		return fmt.Errorf("push endpoint %s returned %d: %w", ep.Endpoint, resp.StatusCode, ErrEndpointGone)
	case resp.StatusCode >= http.StatusBadRequest:
		metrics.NotificationsSent.WithLabelValues(model.ChannelPush, "failure").Inc()
		return fmt.Errorf("push transport returned %d for %s", resp.StatusCode, ep.Endpoint)
	}

	metrics.NotificationsSent.WithLabelValues(model.ChannelPush, "success").Inc()
	metrics.SendDuration.WithLabelValues(model.ChannelPush).Observe(time.Since(start).Seconds())
	return nil
}
