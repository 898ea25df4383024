package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/logger"
	"github.com/rosenban/rosenban/internal/model"
)

type fakeSubscriptionStore struct {
	byLine map[string][]model.Subscription
	byFreq map[model.Frequency][]model.Subscription
	saved  []*model.Subscription
}

func (f *fakeSubscriptionStore) Upsert(_ context.Context, sub *model.Subscription) error {
	f.saved = append(f.saved, sub)
	return nil
}

func (f *fakeSubscriptionStore) Disable(_ context.Context, subscriberKey, lineID string) error {
	for _, subs := range f.byLine {
		for _, s := range subs {
			if s.SubscriberKey == subscriberKey && s.LineID == lineID {
				return nil
			}
		}
	}
	return appErr.ErrNotFound
}

func (f *fakeSubscriptionStore) FindEnabledForLine(_ context.Context, lineID string) ([]model.Subscription, error) {
	return f.byLine[lineID], nil
}

func (f *fakeSubscriptionStore) FindEnabledByFrequency(_ context.Context, freq model.Frequency) ([]model.Subscription, error) {
	return f.byFreq[freq], nil
}

type fakePushStore struct {
	byLine      map[string][]model.PushEndpoint
	registered  []*model.PushEndpoint
	deactivated []string
}

func (f *fakePushStore) Register(_ context.Context, ep *model.PushEndpoint) error {
	f.registered = append(f.registered, ep)
	return nil
}

func (f *fakePushStore) FindActiveForLine(_ context.Context, lineID string) ([]model.PushEndpoint, error) {
	return f.byLine[lineID], nil
}

func (f *fakePushStore) Deactivate(_ context.Context, endpoint string) error {
	f.deactivated = append(f.deactivated, endpoint)
	return nil
}

func boolPtr(b bool) *bool { return &b }

func TestFindEmailSubscribersCategoryFilter(t *testing.T) {
	subs := &fakeSubscriptionStore{
		byLine: map[string][]model.Subscription{
			"JY1": {
				{SubscriberKey: "a@example.com", LineID: "JY1", Enabled: true, Delay: boolPtr(false)},
				{SubscriberKey: "b@example.com", LineID: "JY1", Enabled: true, Delay: boolPtr(true)},
				{SubscriberKey: "c@example.com", LineID: "JY1", Enabled: true}, // unset flags default on
			},
		},
	}
	reg := New(subs, &fakePushStore{}, logger.NewLogger())

	tests := []struct {
		name     string
		category model.Category
		want     []string
	}{
		{
			name:     "delay filter excludes opted-out subscriber",
			category: model.CategoryDelay,
			want:     []string{"b@example.com", "c@example.com"},
		},
		{
			name:     "suspension unaffected by delay opt-out",
			category: model.CategorySuspension,
			want:     []string{"a@example.com", "b@example.com", "c@example.com"},
		},
		{
			name:     "general changes go to everyone",
			category: model.CategoryGeneral,
			want:     []string{"a@example.com", "b@example.com", "c@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.FindEmailSubscribers(context.Background(), "JY1", tt.category)
			require.NoError(t, err)
			var keys []string
			for _, s := range got {
				keys = append(keys, s.SubscriberKey)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestFindPushSubscribersIsCategoryBlind(t *testing.T) {
	push := &fakePushStore{
		byLine: map[string][]model.PushEndpoint{
			"JY1": {{Endpoint: "https://push.example/one", IsActive: true}},
		},
	}
	reg := New(&fakeSubscriptionStore{}, push, logger.NewLogger())

	// No category parameter exists on the push path at all; the endpoint is
	// returned whatever the subscriber's email flags say.
	got, err := reg.FindPushSubscribers(context.Background(), "JY1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://push.example/one", got[0].Endpoint)
}

func TestUpsertSubscriptionValidation(t *testing.T) {
	subs := &fakeSubscriptionStore{}
	reg := New(subs, &fakePushStore{}, logger.NewLogger())

	tests := []struct {
		name    string
		sub     model.Subscription
		wantErr bool
	}{
		{
			name:    "missing subscriber key",
			sub:     model.Subscription{LineID: "JY1"},
			wantErr: true,
		},
		{
			name:    "missing line id",
			sub:     model.Subscription{SubscriberKey: "a@example.com"},
			wantErr: true,
		},
		{
			name:    "unknown frequency",
			sub:     model.Subscription{SubscriberKey: "a@example.com", LineID: "JY1", Frequency: "hourly"},
			wantErr: true,
		},
		{
			name: "valid with defaults",
			sub:  model.Subscription{SubscriberKey: "a@example.com", LineID: "JY1", Enabled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := tt.sub
			err := reg.UpsertSubscription(context.Background(), &sub)
			if tt.wantErr {
				assert.True(t, appErr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.FrequencyImmediate, sub.Frequency)
			assert.NotEmpty(t, sub.ID)
		})
	}
}

func TestRegisterPushEndpointValidation(t *testing.T) {
	push := &fakePushStore{}
	reg := New(&fakeSubscriptionStore{}, push, logger.NewLogger())

	err := reg.RegisterPushEndpoint(context.Background(), &model.PushEndpoint{
		SubscriberKey: "a@example.com",
	})
	assert.True(t, appErr.IsValidation(err))

	ep := &model.PushEndpoint{
		SubscriberKey: "a@example.com",
		Endpoint:      "https://push.example/one",
		P256dh:        "key",
		Auth:          "auth",
		CreatedAt:     time.Now(),
	}
	require.NoError(t, reg.RegisterPushEndpoint(context.Background(), ep))
	require.Len(t, push.registered, 1)
}
