// Package registry resolves which subscribers are interested in a change and
// manages subscriber self-service mutations.
package registry

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/model"
	"github.com/rosenban/rosenban/internal/storage"
)

// Registry is the subscriber lookup and mutation surface used by the
// dispatch router and the HTTP handlers.
type Registry interface {
	// FindEmailSubscribers returns enabled subscriptions for the line whose
	// category flag is on (a flag left unset counts as on).
	FindEmailSubscribers(ctx context.Context, lineID string, category model.Category) ([]model.Subscription, error)
	// FindPushSubscribers returns active push endpoints for the line.
	// Push is category-blind: endpoints get every change for their lines.
	FindPushSubscribers(ctx context.Context, lineID string) ([]model.PushEndpoint, error)
	// FindByFrequency returns enabled subscriptions on a digest frequency.
	FindByFrequency(ctx context.Context, freq model.Frequency) ([]model.Subscription, error)

	UpsertSubscription(ctx context.Context, sub *model.Subscription) error
	DisableSubscription(ctx context.Context, subscriberKey, lineID string) error
	RegisterPushEndpoint(ctx context.Context, ep *model.PushEndpoint) error
	DeactivatePushEndpoint(ctx context.Context, endpoint string) error
}

type registry struct {
	subs   storage.SubscriptionStore
	push   storage.PushStore
	logger *slog.Logger
}

// New creates a Registry over the given stores.
func New(subs storage.SubscriptionStore, push storage.PushStore, logger *slog.Logger) Registry {
	l := logger.With("layer", "service", "component", "registry")
	return &registry{subs: subs, push: push, logger: l}
}

func (r *registry) FindEmailSubscribers(ctx context.Context, lineID string, category model.Category) ([]model.Subscription, error) {
	all, err := r.subs.FindEnabledForLine(ctx, lineID)
	if err != nil {
		r.logger.Error("failed to fetch subscriptions", slog.String("line_id", lineID), slog.Any("error", err))
		return nil, appErr.NewInternal("failed to fetch subscriptions for line %s: %v", lineID, err)
	}

	matched := all[:0]
	for _, sub := range all {
		if sub.WantsCategory(category) {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

func (r *registry) FindPushSubscribers(ctx context.Context, lineID string) ([]model.PushEndpoint, error) {
	endpoints, err := r.push.FindActiveForLine(ctx, lineID)
	if err != nil {
		r.logger.Error("failed to fetch push endpoints", slog.String("line_id", lineID), slog.Any("error", err))
		return nil, appErr.NewInternal("failed to fetch push endpoints for line %s: %v", lineID, err)
	}
	return endpoints, nil
}

func (r *registry) FindByFrequency(ctx context.Context, freq model.Frequency) ([]model.Subscription, error) {
	subs, err := r.subs.FindEnabledByFrequency(ctx, freq)
	if err != nil {
		return nil, appErr.NewInternal("failed to fetch %s subscriptions: %v", freq, err)
	}
	return subs, nil
}

func (r *registry) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	if sub.SubscriberKey == "" {
		return appErr.NewValidation("subscriber_key is required")
	}
	if sub.LineID == "" {
		return appErr.NewValidation("line_id is required")
	}
	if sub.Frequency == "" {
		sub.Frequency = model.FrequencyImmediate
	}
	if !sub.Frequency.Valid() {
		return appErr.NewValidation("unknown frequency %q", sub.Frequency)
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}

	if err := r.subs.Upsert(ctx, sub); err != nil {
		r.logger.Error("failed to upsert subscription",
			slog.String("subscriber_key", sub.SubscriberKey),
			slog.String("line_id", sub.LineID),
			slog.Any("error", err))
		return appErr.NewInternal("failed to upsert subscription: %v", err)
	}

	r.logger.Info("subscription upserted",
		slog.String("subscriber_key", sub.SubscriberKey),
		slog.String("line_id", sub.LineID),
		slog.String("frequency", string(sub.Frequency)))
	return nil
}

func (r *registry) DisableSubscription(ctx context.Context, subscriberKey, lineID string) error {
	if subscriberKey == "" || lineID == "" {
		return appErr.NewValidation("subscriber_key and line_id are required")
	}
	return r.subs.Disable(ctx, subscriberKey, lineID)
}

func (r *registry) RegisterPushEndpoint(ctx context.Context, ep *model.PushEndpoint) error {
	if ep.Endpoint == "" {
		return appErr.NewValidation("endpoint is required")
	}
	if ep.P256dh == "" || ep.Auth == "" {
		return appErr.NewValidation("p256dh and auth keys are required")
	}

	if err := r.push.Register(ctx, ep); err != nil {
		r.logger.Error("failed to register push endpoint",
			slog.String("subscriber_key", ep.SubscriberKey),
			slog.Any("error", err))
		return appErr.NewInternal("failed to register push endpoint: %v", err)
	}

	r.logger.Info("push endpoint registered",
		slog.String("subscriber_key", ep.SubscriberKey),
		slog.String("device_type", ep.DeviceType))
	return nil
}

func (r *registry) DeactivatePushEndpoint(ctx context.Context, endpoint string) error {
	if err := r.push.Deactivate(ctx, endpoint); err != nil {
		return appErr.NewInternal("failed to deactivate push endpoint: %v", err)
	}
	r.logger.Info("push endpoint deactivated")
	return nil
}
