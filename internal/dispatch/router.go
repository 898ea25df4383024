// Package dispatch fans a detected status change out to every interested
// subscriber across the email and push channels.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rosenban/rosenban/internal/channel"
	"github.com/rosenban/rosenban/internal/classify"
	"github.com/rosenban/rosenban/internal/metrics"
	"github.com/rosenban/rosenban/internal/model"
	"github.com/rosenban/rosenban/internal/registry"
	"github.com/rosenban/rosenban/internal/storage"
)

// Failure describes one recipient that could not be reached. Failures are
// reported in the summary, never raised.
type Failure struct {
	Recipient string `json:"recipient"`
	Channel   string `json:"channel"`
	LineID    string `json:"line_id"`
	Error     string `json:"error"`
}

// Summary is the observable outcome of one fan-out.
type Summary struct {
	EmailSent    int       `json:"email_sent"`
	DigestQueued int       `json:"digest_queued"`
	PushSent     int       `json:"push_sent"`
	Failures     []Failure `json:"failures,omitempty"`
}

func (s *Summary) merge(other Summary) {
	s.EmailSent += other.EmailSent
	s.DigestQueued += other.DigestQueued
	s.PushSent += other.PushSent
	s.Failures = append(s.Failures, other.Failures...)
}

// Router is stateless between invocations: every Dispatch call resolves
// subscribers fresh and runs sends through a bounded worker pool.
type Router struct {
	registry    registry.Registry
	digests     storage.DigestStore
	email       channel.EmailSender
	push        channel.PushSender
	workerLimit int
	sendTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewRouter creates a dispatch router. workerLimit bounds concurrent sends;
// sendTimeout applies per recipient and does not cancel sibling sends.
func NewRouter(
	reg registry.Registry,
	digests storage.DigestStore,
	email channel.EmailSender,
	push channel.PushSender,
	workerLimit int,
	sendTimeout time.Duration,
	logger *slog.Logger,
) *Router {
	if workerLimit <= 0 {
		workerLimit = 16
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Router{
		registry:    reg,
		digests:     digests,
		email:       email,
		push:        push,
		workerLimit: workerLimit,
		sendTimeout: sendTimeout,
		logger:      logger.With("layer", "service", "component", "dispatchRouter"),
		now:         time.Now,
	}
}

// Dispatch fans out every change, in batch order. Per-recipient errors are
// collected into the summary; the returned error is reserved for systemic
// failures such as an unreachable registry, in which case the summary still
// reflects the work completed before the failure.
func (r *Router) Dispatch(ctx context.Context, changes []model.StatusChange) (*Summary, error) {
	total := &Summary{}
	for _, change := range changes {
		sub, err := r.dispatchOne(ctx, change)
		total.merge(sub)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *Router) dispatchOne(ctx context.Context, change model.StatusChange) (Summary, error) {
	if !change.Category.Valid() {
		change.Category = classify.Classify(change.NewStatus, change.NewDetail)
	}

	summary := Summary{}
	emailSubs, err := r.registry.FindEmailSubscribers(ctx, change.LineID, change.Category)
	if err != nil {
		return summary, err
	}
	pushEndpoints, err := r.registry.FindPushSubscribers(ctx, change.LineID)
	if err != nil {
		return summary, err
	}

	var mu sync.Mutex
	fail := func(f Failure) {
		mu.Lock()
		summary.Failures = append(summary.Failures, f)
		mu.Unlock()
	}

	eg := &errgroup.Group{}
	eg.SetLimit(r.workerLimit)

	for _, sub := range emailSubs {
		sub := sub
		if sub.Frequency != model.FrequencyImmediate {
			// Deferred: queue one digest entry, no send now.
			entry := &model.PendingDigestEntry{
				SubscriberKey: sub.SubscriberKey,
				LineID:        change.LineID,
				LineName:      change.Name,
				Category:      change.Category,
				Status:        change.NewStatus,
				Detail:        change.NewDetail,
				Frequency:     sub.Frequency,
				OccurredAt:    r.now(),
			}
			if err := r.digests.Append(ctx, entry); err != nil {
				r.logger.Error("failed to queue digest entry",
					slog.String("subscriber_key", sub.SubscriberKey),
					slog.String("line_id", change.LineID),
					slog.Any("error", err))
				fail(Failure{Recipient: sub.SubscriberKey, Channel: model.ChannelEmail, LineID: change.LineID, Error: err.Error()})
				continue
			}
			metrics.DigestQueued.Inc()
			summary.DigestQueued++
			continue
		}

		if !r.email.Enabled() {
			continue
		}
		eg.Go(func() error {
			if err := r.sendEmail(ctx, sub.SubscriberKey, change); err != nil {
				r.logger.Error("email send failed",
					slog.String("recipient", sub.SubscriberKey),
					slog.String("line_id", change.LineID),
					slog.Any("error", err))
				fail(Failure{Recipient: sub.SubscriberKey, Channel: model.ChannelEmail, LineID: change.LineID, Error: err.Error()})
				return nil
			}
			mu.Lock()
			summary.EmailSent++
			mu.Unlock()
			return nil
		})
	}

	if r.push.Enabled() {
		msg := pushMessageFor(change)
		for _, ep := range pushEndpoints {
			ep := ep
			eg.Go(func() error {
				if err := r.sendPush(ctx, ep, msg); err != nil {
					r.logger.Error("push send failed",
						slog.String("subscriber_key", ep.SubscriberKey),
						slog.String("line_id", change.LineID),
						slog.Any("error", err))
					fail(Failure{Recipient: ep.SubscriberKey, Channel: model.ChannelPush, LineID: change.LineID, Error: err.Error()})
					return nil
				}
				mu.Lock()
				summary.PushSent++
				mu.Unlock()
				return nil
			})
		}
	}

	// Workers never return errors; per-recipient failures must not cancel
	// siblings through the group context.
	_ = eg.Wait()
	return summary, nil
}

func (r *Router) sendEmail(ctx context.Context, recipient string, change model.StatusChange) error {
	subject, html, err := channel.RenderChangeEmail(change)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return r.email.Send(sendCtx, channel.EmailMessage{
		To:       recipient,
		Subject:  subject,
		HTML:     html,
		LineID:   change.LineID,
		Category: change.Category,
	})
}

func (r *Router) sendPush(ctx context.Context, ep model.PushEndpoint, msg channel.PushMessage) error {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	err := r.push.Send(sendCtx, ep, msg)
	if errors.Is(err, channel.ErrEndpointGone) {
		// Permanent transport failure: retire the endpoint so future
		// fan-outs stop trying it. Best effort.
		if dErr := r.registry.DeactivatePushEndpoint(ctx, ep.Endpoint); dErr != nil {
			r.logger.Warn("failed to deactivate gone endpoint", slog.Any("error", dErr))
		}
	}
	return err
}

func pushMessageFor(change model.StatusChange) channel.PushMessage {
	theme := channel.ThemeFor(change.Category)
	body := change.NewStatus
	if change.NewDetail != "" {
		body += " - " + change.NewDetail
	}
	return channel.PushMessage{
		Title: change.Name + " " + theme.Title,
		Body:  body,
		Tag:   "line-status-" + change.LineID,
		Data: map[string]string{
			"line_id":  change.LineID,
			"category": string(change.Category),
		},
	}
}
