package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rosenban/rosenban/internal/detect"
	"github.com/rosenban/rosenban/internal/dispatch"
	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/events"
	"github.com/rosenban/rosenban/internal/metrics"
	"github.com/rosenban/rosenban/internal/model"
	"github.com/rosenban/rosenban/internal/storage"
)

// BatchResult is what the status-update caller sees: counts only, never
// per-recipient detail.
type BatchResult struct {
	Changed   int               `json:"changed"`
	Persisted int               `json:"persisted"`
	Dispatch  *dispatch.Summary `json:"dispatch,omitempty"`
}

// StatusService runs the detect → persist → notify pipeline for status
// batches and serves the current snapshot.
type StatusService interface {
	// GetAll returns the current snapshot for the status board.
	GetAll(ctx context.Context) ([]model.LineStatus, error)
	// SubmitBatch validates and persists a full replacement batch, then fans
	// out notifications for the lines that changed. The status write never
	// fails because of notification problems.
	SubmitBatch(ctx context.Context, incoming []model.LineStatus) (*BatchResult, error)
}

type statusService struct {
	store     storage.StatusStore
	router    *dispatch.Router
	publisher events.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewStatusService wires the pipeline. The publisher may be a NopPublisher
// when no event feed is configured.
func NewStatusService(
	store storage.StatusStore,
	router *dispatch.Router,
	publisher events.Publisher,
	logger *slog.Logger,
) StatusService {
	l := logger.With("layer", "service", "component", "statusService")
	return &statusService{
		store:     store,
		router:    router,
		publisher: publisher,
		logger:    l,
		tracer:    otel.Tracer("status-service"),
	}
}

func (s *statusService) GetAll(ctx context.Context) ([]model.LineStatus, error) {
	ctx, span := s.tracer.Start(ctx, "GetAll")
	defer span.End()

	lines, err := s.store.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to fetch status snapshot", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, appErr.NewInternal("failed to fetch status snapshot: %v", err)
	}
	span.SetAttributes(attribute.Int("line.count", len(lines)))
	return lines, nil
}

func (s *statusService) SubmitBatch(ctx context.Context, incoming []model.LineStatus) (*BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "SubmitBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(incoming)))

	if err := validateBatch(incoming); err != nil {
		return nil, err
	}

	snapshot, err := s.store.GetAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, appErr.NewInternal("failed to read status snapshot: %v", err)
	}
	existing := make(map[string]model.LineStatus, len(snapshot))
	for _, l := range snapshot {
		existing[l.LineID] = l
	}

	changes := detect.Detect(existing, incoming)
	for _, c := range changes {
		metrics.StatusChanges.WithLabelValues(string(c.Category)).Inc()
	}

	// The snapshot is always overwritten, changed or not, so updated_at
	// advances for every line in the batch.
	persisted, err := s.store.UpsertBatch(ctx, incoming)
	result := &BatchResult{Changed: len(changes), Persisted: persisted}
	if err != nil {
		// Record-then-notify ordering: lines that were not persisted are not
		// announced. The caller learns how far the batch got.
		s.logger.Error("status batch persistence failed",
			slog.Int("persisted", persisted),
			slog.Int("batch_size", len(incoming)),
			slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, appErr.NewInternal("persisted %d of %d lines: %v", persisted, len(incoming), err)
	}

	if len(changes) == 0 {
		s.logger.Info("status batch processed, no changes", slog.Int("batch_size", len(incoming)))
		result.Dispatch = &dispatch.Summary{}
		return result, nil
	}

	for _, c := range changes {
		if err := s.publisher.Publish(ctx, c); err != nil {
			s.logger.Warn("change event publish failed",
				slog.String("line_id", c.LineID),
				slog.Any("error", err))
		}
	}

	summary, dispatchErr := s.router.Dispatch(ctx, changes)
	result.Dispatch = summary
	if dispatchErr != nil {
		// The status write already succeeded; notification trouble is
		// reported, not raised, so the batch endpoint never regresses into
		// failing the write itself.
		s.logger.Error("dispatch incomplete", slog.Any("error", dispatchErr))
		span.RecordError(dispatchErr)
	}

	s.logger.Info("status batch processed",
		slog.Int("batch_size", len(incoming)),
		slog.Int("changed", len(changes)),
		slog.Int("email_sent", summary.EmailSent),
		slog.Int("digest_queued", summary.DigestQueued),
		slog.Int("push_sent", summary.PushSent),
		slog.Int("failures", len(summary.Failures)))
	return result, nil
}

func validateBatch(incoming []model.LineStatus) error {
	if len(incoming) == 0 {
		return appErr.NewValidation("status batch is empty")
	}
	for i, l := range incoming {
		if l.LineID == "" {
			return appErr.NewValidation("line %d: line_id is required", i)
		}
		if l.Status == "" {
			return appErr.NewValidation("line %d (%s): status is required", i, l.LineID)
		}
	}
	return nil
}
