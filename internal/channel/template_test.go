package channel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosenban/rosenban/internal/model"
)

func TestRenderChangeEmail(t *testing.T) {
	change := model.StatusChange{
		LineID:     "JY1",
		Name:       "山手線",
		NewStatus:  "遅延",
		NewDetail:  "10分程度の遅れ",
		PrevStatus: "平常運転",
		Category:   model.CategoryDelay,
	}

	subject, html, err := RenderChangeEmail(change)
	require.NoError(t, err)

	assert.Contains(t, subject, "山手線")
	assert.Contains(t, subject, "遅延情報")
	assert.Contains(t, html, "遅延")
	assert.Contains(t, html, "10分程度の遅れ")
	assert.Contains(t, html, ThemeFor(model.CategoryDelay).Color)
	assert.Contains(t, html, "平常運転")
}

func TestRenderChangeEmailEscapesMarkup(t *testing.T) {
	change := model.StatusChange{
		Name:      "<script>alert(1)</script>",
		NewStatus: "遅延",
		Category:  model.CategoryDelay,
	}

	_, html, err := RenderChangeEmail(change)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestRenderDigestEmail(t *testing.T) {
	cards := []DigestCard{
		{LineName: "山手線", Status: "遅延", Detail: "10分", Theme: ThemeFor(model.CategoryDelay)},
		{LineName: "中央線", Status: "平常運転", Theme: ThemeFor(model.CategoryRecovery)},
	}

	subject, html, err := RenderDigestEmail(model.FrequencyWeekly, cards)
	require.NoError(t, err)

	assert.Contains(t, subject, "週次")
	assert.Contains(t, subject, "2路線")
	assert.Equal(t, 2, strings.Count(html, "border-left"), "one card per line")
	assert.Contains(t, html, "山手線")
	assert.Contains(t, html, "中央線")
}

func TestThemeForUnknownCategoryFallsBack(t *testing.T) {
	assert.Equal(t, ThemeFor(model.CategoryGeneral), ThemeFor(model.Category("mystery")))
}
