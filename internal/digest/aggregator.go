// Package digest aggregates deferred notification entries into one combined
// message per subscriber per frequency bucket.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rosenban/rosenban/internal/channel"
	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/metrics"
	"github.com/rosenban/rosenban/internal/model"
	"github.com/rosenban/rosenban/internal/registry"
	"github.com/rosenban/rosenban/internal/storage"
)

// Aggregator drains the pending digest log for one frequency bucket and
// sends at most one combined email per subscriber.
type Aggregator struct {
	registry    registry.Registry
	digests     storage.DigestStore
	email       channel.EmailSender
	sendTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewAggregator creates a digest aggregator.
func NewAggregator(
	reg registry.Registry,
	digests storage.DigestStore,
	email channel.EmailSender,
	sendTimeout time.Duration,
	logger *slog.Logger,
) *Aggregator {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Aggregator{
		registry:    reg,
		digests:     digests,
		email:       email,
		sendTimeout: sendTimeout,
		logger:      logger.With("layer", "service", "component", "digestAggregator"),
		now:         time.Now,
	}
}

// Run drains one frequency bucket and returns how many digests were sent.
// Individual subscriber failures are logged and do not abort the run. Sent
// entries are marked consumed, so re-running the same window is idempotent.
func (a *Aggregator) Run(ctx context.Context, freq model.Frequency) (int, error) {
	var window time.Duration
	switch freq {
	case model.FrequencyDaily:
		window = 24 * time.Hour
	case model.FrequencyWeekly:
		window = 7 * 24 * time.Hour
	default:
		return 0, appErr.NewValidation("digest frequency must be daily or weekly, got %q", freq)
	}

	if !a.email.Enabled() {
		return 0, fmt.Errorf("digest run skipped: %w: email transport", appErr.ErrConfig)
	}

	metrics.DigestRuns.WithLabelValues(string(freq)).Inc()
	since := a.now().Add(-window)

	subs, err := a.registry.FindByFrequency(ctx, freq)
	if err != nil {
		return 0, err
	}

	// One digest per subscriber covers all their lines.
	lineSets := make(map[string][]string)
	order := make([]string, 0, len(subs))
	for _, sub := range subs {
		if _, seen := lineSets[sub.SubscriberKey]; !seen {
			order = append(order, sub.SubscriberKey)
		}
		lineSets[sub.SubscriberKey] = append(lineSets[sub.SubscriberKey], sub.LineID)
	}

	sent := 0
	for _, subscriberKey := range order {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		ok, err := a.sendDigest(ctx, subscriberKey, lineSets[subscriberKey], freq, since)
		if err != nil {
			a.logger.Error("digest send failed",
				slog.String("subscriber_key", subscriberKey),
				slog.String("frequency", string(freq)),
				slog.Any("error", err))
			continue
		}
		if ok {
			sent++
		}
	}

	a.logger.Info("digest run complete",
		slog.String("frequency", string(freq)),
		slog.Int("sent", sent),
		slog.Int("subscribers", len(order)))
	return sent, nil
}

func (a *Aggregator) sendDigest(ctx context.Context, subscriberKey string, lineIDs []string, freq model.Frequency, since time.Time) (bool, error) {
	entries, err := a.digests.ReadWindow(ctx, subscriberKey, lineIDs, since)
	if err != nil {
		return false, fmt.Errorf("read digest window: %w", err)
	}
	if len(entries) == 0 {
		return false, nil
	}

	cards := collapseLatestPerLine(entries)
	subject, html, err := channel.RenderDigestEmail(freq, cards)
	if err != nil {
		return false, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, a.sendTimeout)
	defer cancel()
	if err := a.email.Send(sendCtx, channel.EmailMessage{
		To:      subscriberKey,
		Subject: subject,
		HTML:    html,
	}); err != nil {
		return false, err
	}

	// Everything read for this window is retired, including older entries
	// for a line that the latest-wins collapse summarized away.
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := a.digests.MarkConsumed(ctx, ids, a.now()); err != nil {
		a.logger.Warn("failed to mark digest entries consumed",
			slog.String("subscriber_key", subscriberKey),
			slog.Any("error", err))
	}
	return true, nil
}

// collapseLatestPerLine keeps the most recent entry per line, preserving the
// order in which lines first appear.
func collapseLatestPerLine(entries []model.PendingDigestEntry) []channel.DigestCard {
	latest := make(map[string]model.PendingDigestEntry)
	var lineOrder []string
	for _, e := range entries {
		prev, seen := latest[e.LineID]
		if !seen {
			lineOrder = append(lineOrder, e.LineID)
		}
		if !seen || e.OccurredAt.After(prev.OccurredAt) {
			latest[e.LineID] = e
		}
	}

	cards := make([]channel.DigestCard, 0, len(lineOrder))
	for _, lineID := range lineOrder {
		e := latest[lineID]
		name := e.LineName
		if name == "" {
			name = e.LineID
		}
		cards = append(cards, channel.DigestCard{
			LineName: name,
			Status:   e.Status,
			Detail:   e.Detail,
			Theme:    channel.ThemeFor(e.Category),
		})
	}
	return cards
}
