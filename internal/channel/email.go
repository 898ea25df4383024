package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/rosenban/rosenban/internal/config"
	"github.com/rosenban/rosenban/internal/metrics"
	"github.com/rosenban/rosenban/internal/model"
	"github.com/rosenban/rosenban/internal/storage"
)

// SMTPEmailSender delivers rendered notifications over SMTP and records a
// history row for each successful send.
type SMTPEmailSender struct {
	client  *mail.Client
	from    string
	history storage.HistoryStore
	logger  *slog.Logger
}

// NewSMTPEmailSender builds the email channel. When the SMTP section is not
// configured the sender is constructed disabled and every caller is expected
// to skip the channel.
func NewSMTPEmailSender(cfg config.SMTPConfig, history storage.HistoryStore, logger *slog.Logger) (*SMTPEmailSender, error) {
	l := logger.With("layer", "channel", "component", "emailSender")
	if !cfg.Enabled() {
		l.Warn("SMTP not configured, email channel disabled")
		return &SMTPEmailSender{logger: l}, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPEmailSender{
		client:  client,
		from:    cfg.From,
		history: history,
		logger:  l,
	}, nil
}

// Enabled reports whether the SMTP transport is configured.
func (s *SMTPEmailSender) Enabled() bool {
	return s.client != nil
}

// Send transmits one message. The audit row is best-effort: a history write
// failure is logged, never returned.
func (s *SMTPEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if !s.Enabled() {
		return fmt.Errorf("email channel is disabled")
	}

	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %s: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	start := time.Now()
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		metrics.NotificationsSent.WithLabelValues(model.ChannelEmail, "failure").Inc()
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	metrics.NotificationsSent.WithLabelValues(model.ChannelEmail, "success").Inc()
	metrics.SendDuration.WithLabelValues(model.ChannelEmail).Observe(time.Since(start).Seconds())

	if s.history != nil {
		h := &model.NotificationHistory{
			Recipient: msg.To,
			Channel:   model.ChannelEmail,
			LineID:    msg.LineID,
			Category:  msg.Category,
			Subject:   msg.Subject,
			SentAt:    time.Now(),
		}
		if err := s.history.Record(ctx, h); err != nil {
			s.logger.Warn("failed to record notification history",
				slog.String("recipient", msg.To),
				slog.Any("error", err))
		}
	}
	return nil
}
