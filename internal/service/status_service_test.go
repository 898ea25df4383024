package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosenban/rosenban/internal/channel"
	"github.com/rosenban/rosenban/internal/dispatch"
	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/events"
	"github.com/rosenban/rosenban/internal/logger"
	"github.com/rosenban/rosenban/internal/model"
	"github.com/rosenban/rosenban/internal/registry"
)

// In-memory stores backing a full pipeline: real detector, real router, real
// registry, fake transports.

type memStatusStore struct {
	mu    sync.Mutex
	lines map[string]model.LineStatus
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{lines: make(map[string]model.LineStatus)}
}

func (m *memStatusStore) Ping(_ context.Context) error { return nil }

func (m *memStatusStore) GetAll(_ context.Context) ([]model.LineStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LineStatus
	for _, l := range m.lines {
		out = append(out, l)
	}
	return out, nil
}

func (m *memStatusStore) UpsertBatch(_ context.Context, lines []model.LineStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range lines {
		lines[i].UpdatedAt = time.Now()
		m.lines[lines[i].LineID] = lines[i]
	}
	return len(lines), nil
}

type memSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]model.Subscription // key: subscriberKey|lineID
}

func newMemSubscriptionStore() *memSubscriptionStore {
	return &memSubscriptionStore{subs: make(map[string]model.Subscription)}
}

func (m *memSubscriptionStore) Upsert(_ context.Context, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.SubscriberKey+"|"+sub.LineID] = *sub
	return nil
}

func (m *memSubscriptionStore) Disable(_ context.Context, subscriberKey, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subscriberKey + "|" + lineID
	sub, ok := m.subs[key]
	if !ok {
		return appErr.ErrNotFound
	}
	sub.Enabled = false
	m.subs[key] = sub
	return nil
}

func (m *memSubscriptionStore) FindEnabledForLine(_ context.Context, lineID string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs {
		if s.LineID == lineID && s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSubscriptionStore) FindEnabledByFrequency(_ context.Context, freq model.Frequency) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs {
		if s.Frequency == freq && s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

type memDigestStore struct {
	mu      sync.Mutex
	entries []model.PendingDigestEntry
}

func (m *memDigestStore) Append(_ context.Context, e *model.PendingDigestEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memDigestStore) ReadWindow(_ context.Context, subscriberKey string, lineIDs []string, since time.Time) ([]model.PendingDigestEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make(map[string]bool, len(lineIDs))
	for _, id := range lineIDs {
		lines[id] = true
	}
	var out []model.PendingDigestEntry
	for _, e := range m.entries {
		if e.SubscriberKey == subscriberKey && lines[e.LineID] && !e.OccurredAt.Before(since) && e.ConsumedAt == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memDigestStore) MarkConsumed(_ context.Context, ids []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	consumed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		consumed[id] = true
	}
	for i := range m.entries {
		if consumed[m.entries[i].ID] {
			t := at
			m.entries[i].ConsumedAt = &t
		}
	}
	return nil
}

type memPushStore struct {
	mu        sync.Mutex
	endpoints map[string]model.PushEndpoint
	subs      *memSubscriptionStore
}

func (m *memPushStore) Register(_ context.Context, ep *model.PushEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep.IsActive = true
	m.endpoints[ep.Endpoint] = *ep
	return nil
}

func (m *memPushStore) FindActiveForLine(ctx context.Context, lineID string) ([]model.PushEndpoint, error) {
	subs, err := m.subs.FindEnabledForLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(subs))
	for _, s := range subs {
		keys[s.SubscriberKey] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PushEndpoint
	for _, ep := range m.endpoints {
		if ep.IsActive && keys[ep.SubscriberKey] {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (m *memPushStore) Deactivate(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep, ok := m.endpoints[endpoint]
	if !ok {
		return nil
	}
	ep.IsActive = false
	m.endpoints[endpoint] = ep
	return nil
}

type recordingEmailSender struct {
	mu   sync.Mutex
	sent []channel.EmailMessage
}

func (r *recordingEmailSender) Enabled() bool { return true }

func (r *recordingEmailSender) Send(_ context.Context, msg channel.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

type recordingPushSender struct {
	mu   sync.Mutex
	sent []model.PushEndpoint
}

func (r *recordingPushSender) Enabled() bool { return true }

func (r *recordingPushSender) Send(_ context.Context, ep model.PushEndpoint, _ channel.PushMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, ep)
	return nil
}

type pipeline struct {
	svc     StatusService
	reg     registry.Registry
	digests *memDigestStore
	email   *recordingEmailSender
	push    *recordingPushSender
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	l := logger.NewLogger()
	statuses := newMemStatusStore()
	subs := newMemSubscriptionStore()
	digests := &memDigestStore{}
	pushStore := &memPushStore{endpoints: make(map[string]model.PushEndpoint), subs: subs}

	reg := registry.New(subs, pushStore, l)
	email := &recordingEmailSender{}
	push := &recordingPushSender{}
	router := dispatch.NewRouter(reg, digests, email, push, 4, time.Second, l)
	svc := NewStatusService(statuses, router, events.NopPublisher{}, l)

	return &pipeline{svc: svc, reg: reg, digests: digests, email: email, push: push}
}

func TestSubmitBatchValidation(t *testing.T) {
	p := newPipeline(t)

	_, err := p.svc.SubmitBatch(context.Background(), nil)
	assert.True(t, appErr.IsValidation(err))

	_, err = p.svc.SubmitBatch(context.Background(), []model.LineStatus{{Status: "遅延"}})
	assert.True(t, appErr.IsValidation(err))

	_, err = p.svc.SubmitBatch(context.Background(), []model.LineStatus{{LineID: "JY1"}})
	assert.True(t, appErr.IsValidation(err))
}

func TestSubmitBatchEndToEnd(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	// Immediate, delay-enabled email subscriber plus a weekly subscriber and
	// a push endpoint, all on JY1.
	require.NoError(t, p.reg.UpsertSubscription(ctx, &model.Subscription{
		SubscriberKey: "now@example.com", LineID: "JY1", Enabled: true,
		Frequency: model.FrequencyImmediate,
	}))
	require.NoError(t, p.reg.UpsertSubscription(ctx, &model.Subscription{
		SubscriberKey: "weekly@example.com", LineID: "JY1", Enabled: true,
		Frequency: model.FrequencyWeekly,
	}))
	require.NoError(t, p.reg.RegisterPushEndpoint(ctx, &model.PushEndpoint{
		SubscriberKey: "now@example.com",
		Endpoint:      "https://push.example/one",
		P256dh:        "key", Auth: "auth",
	}))

	// Scenario 1: first sighting against an empty store is a change.
	res, err := p.svc.SubmitBatch(ctx, []model.LineStatus{
		{LineID: "JY1", Name: "山手線", Status: "平常運転"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)

	// Scenario 2: status flips to delayed; the immediate subscriber gets
	// exactly one email.
	p.email.sent = nil
	res, err = p.svc.SubmitBatch(ctx, []model.LineStatus{
		{LineID: "JY1", Name: "山手線", Status: "遅延", Detail: "10分"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Changed)
	assert.Equal(t, 1, res.Dispatch.EmailSent)
	require.Len(t, p.email.sent, 1)
	assert.Equal(t, "now@example.com", p.email.sent[0].To)
	assert.Equal(t, model.CategoryDelay, p.email.sent[0].Category)

	// Scenario 3: the weekly subscriber's change waits in the digest log.
	entries, err := p.digests.ReadWindow(ctx, "weekly@example.com", []string{"JY1"}, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "JY1", entries[0].LineID)

	// Scenario 5: push fan-out happened regardless of email category flags.
	require.Len(t, p.push.sent, 1)
	assert.Equal(t, "https://push.example/one", p.push.sent[0].Endpoint)

	// Scenario 4: resubmitting the identical batch is silent.
	p.email.sent = nil
	p.push.sent = nil
	res, err = p.svc.SubmitBatch(ctx, []model.LineStatus{
		{LineID: "JY1", Name: "山手線", Status: "遅延", Detail: "10分"},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Changed)
	assert.Empty(t, p.email.sent)
	assert.Empty(t, p.push.sent)
}

func TestSubmitBatchReportsPartialPersistence(t *testing.T) {
	l := logger.NewLogger()
	statuses := &failingStatusStore{failAfter: 1}
	subs := newMemSubscriptionStore()
	digests := &memDigestStore{}
	pushStore := &memPushStore{endpoints: make(map[string]model.PushEndpoint), subs: subs}
	reg := registry.New(subs, pushStore, l)
	router := dispatch.NewRouter(reg, digests, &recordingEmailSender{}, &recordingPushSender{}, 4, time.Second, l)
	svc := NewStatusService(statuses, router, events.NopPublisher{}, l)

	res, err := svc.SubmitBatch(context.Background(), []model.LineStatus{
		{LineID: "JY1", Status: "遅延"},
		{LineID: "JC2", Status: "運転見合わせ"},
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Persisted)
	// Dispatch was aborted: no notifications were attempted.
	assert.Nil(t, res.Dispatch)
}

type failingStatusStore struct {
	memStatusStore
	failAfter int
}

func (f *failingStatusStore) UpsertBatch(_ context.Context, lines []model.LineStatus) (int, error) {
	if len(lines) > f.failAfter {
		return f.failAfter, appErr.NewInternal("write failed")
	}
	return len(lines), nil
}

func (f *failingStatusStore) GetAll(_ context.Context) ([]model.LineStatus, error) {
	return nil, nil
}
