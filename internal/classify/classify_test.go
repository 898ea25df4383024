package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rosenban/rosenban/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status string
		detail string
		want   model.Category
	}{
		{
			name:   "japanese delay",
			status: "遅延",
			detail: "10分程度の遅れ",
			want:   model.CategoryDelay,
		},
		{
			name:   "english delay in detail",
			status: "irregular",
			detail: "trains are running with delay",
			want:   model.CategoryDelay,
		},
		{
			name:   "suspension",
			status: "運転見合わせ",
			detail: "",
			want:   model.CategorySuspension,
		},
		{
			name:   "partial suspension",
			status: "一部運休",
			detail: "",
			want:   model.CategorySuspension,
		},
		{
			name:   "normal service",
			status: "平常運転",
			detail: "",
			want:   model.CategoryRecovery,
		},
		{
			name:   "service resumed",
			status: "運転再開",
			detail: "",
			want:   model.CategoryRecovery,
		},
		{
			name:   "delay wins over suspension by rule order",
			status: "遅延",
			detail: "一部区間で運転見合わせ",
			want:   model.CategoryDelay,
		},
		{
			name:   "unmatched text is general",
			status: "その他",
			detail: "工事のお知らせ",
			want:   model.CategoryGeneral,
		},
		{
			name:   "empty input is general",
			status: "",
			detail: "",
			want:   model.CategoryGeneral,
		},
		{
			name:   "case insensitive english",
			status: "SUSPENDED",
			detail: "",
			want:   model.CategorySuspension,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, tt.detail)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid(), "classification must always be a known category")
		})
	}
}
