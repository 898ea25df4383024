package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosenban/rosenban/internal/model"
)

func snapshot(lines ...model.LineStatus) map[string]model.LineStatus {
	m := make(map[string]model.LineStatus, len(lines))
	for _, l := range lines {
		m[l.LineID] = l
	}
	return m
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		existing map[string]model.LineStatus
		incoming []model.LineStatus
		want     []model.StatusChange
	}{
		{
			name:     "new line against empty snapshot",
			existing: snapshot(),
			incoming: []model.LineStatus{
				{LineID: "JY1", Name: "山手線", Status: "平常運転"},
			},
			want: []model.StatusChange{
				{
					LineID:     "JY1",
					Name:       "山手線",
					NewStatus:  "平常運転",
					PrevStatus: "unknown",
					Category:   model.CategoryRecovery,
				},
			},
		},
		{
			name: "status changed",
			existing: snapshot(
				model.LineStatus{LineID: "JY1", Name: "山手線", Status: "平常運転"},
			),
			incoming: []model.LineStatus{
				{LineID: "JY1", Name: "山手線", Status: "遅延", Detail: "10分"},
			},
			want: []model.StatusChange{
				{
					LineID:     "JY1",
					Name:       "山手線",
					NewStatus:  "遅延",
					NewDetail:  "10分",
					PrevStatus: "平常運転",
					Category:   model.CategoryDelay,
				},
			},
		},
		{
			name: "detail changed with same status",
			existing: snapshot(
				model.LineStatus{LineID: "JY1", Status: "遅延", Detail: "10分"},
			),
			incoming: []model.LineStatus{
				{LineID: "JY1", Status: "遅延", Detail: "20分"},
			},
			want: []model.StatusChange{
				{
					LineID:     "JY1",
					NewStatus:  "遅延",
					NewDetail:  "20分",
					PrevStatus: "遅延",
					PrevDetail: "10分",
					Category:   model.CategoryDelay,
				},
			},
		},
		{
			name: "identical batch yields no changes",
			existing: snapshot(
				model.LineStatus{LineID: "JY1", Status: "遅延", Detail: "10分"},
				model.LineStatus{LineID: "JC2", Status: "平常運転"},
			),
			incoming: []model.LineStatus{
				{LineID: "JY1", Status: "遅延", Detail: "10分"},
				{LineID: "JC2", Status: "平常運転"},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.existing, tt.incoming)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectPreservesBatchOrder(t *testing.T) {
	incoming := []model.LineStatus{
		{LineID: "C", Status: "遅延"},
		{LineID: "A", Status: "運転見合わせ"},
		{LineID: "B", Status: "平常運転"},
	}

	changes := Detect(snapshot(), incoming)
	require.Len(t, changes, 3)
	assert.Equal(t, "C", changes[0].LineID)
	assert.Equal(t, "A", changes[1].LineID)
	assert.Equal(t, "B", changes[2].LineID)
}

func TestDetectResubmissionIsQuiet(t *testing.T) {
	incoming := []model.LineStatus{
		{LineID: "JY1", Status: "遅延", Detail: "10分"},
	}

	first := Detect(snapshot(), incoming)
	require.Len(t, first, 1)

	// Second submission compares against the now-updated snapshot.
	second := Detect(snapshot(incoming...), incoming)
	assert.Empty(t, second)
}
