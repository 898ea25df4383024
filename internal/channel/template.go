package channel

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/rosenban/rosenban/internal/model"
)

// Theme is the visual treatment for one notification category.
type Theme struct {
	Color string
	Icon  string
	Title string
}

var themes = map[model.Category]Theme{
	model.CategoryDelay:      {Color: "#f39c12", Icon: "⚠️", Title: "遅延情報"},
	model.CategorySuspension: {Color: "#e74c3c", Icon: "🚫", Title: "運転見合わせ"},
	model.CategoryRecovery:   {Color: "#2ecc71", Icon: "✅", Title: "運転再開・平常運転"},
	model.CategoryGeneral:    {Color: "#3498db", Icon: "ℹ️", Title: "運行情報"},
}

// ThemeFor returns the theme for a category, falling back to general.
func ThemeFor(c model.Category) Theme {
	if t, ok := themes[c]; ok {
		return t
	}
	return themes[model.CategoryGeneral]
}

var changeTmpl = template.Must(template.New("change").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; margin: 0; padding: 16px; background: #f5f5f5;">
  <div style="max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden;">
    <div style="background: {{.Theme.Color}}; color: #ffffff; padding: 16px 20px;">
      <h1 style="margin: 0; font-size: 18px;">{{.Theme.Icon}} {{.Theme.Title}}</h1>
    </div>
    <div style="padding: 20px;">
      <h2 style="margin: 0 0 8px; font-size: 16px;">{{.Change.Name}}</h2>
      <p style="margin: 0 0 4px; font-size: 15px;"><strong>{{.Change.NewStatus}}</strong></p>
      {{- if .Change.NewDetail}}
      <p style="margin: 0 0 12px; color: #555555;">{{.Change.NewDetail}}</p>
      {{- end}}
      <p style="margin: 0; font-size: 12px; color: #999999;">変更前: {{.Change.PrevStatus}}</p>
    </div>
  </div>
</body>
</html>
`))

var digestTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; margin: 0; padding: 16px; background: #f5f5f5;">
  <div style="max-width: 560px; margin: 0 auto;">
    <h1 style="font-size: 18px;">{{.Heading}}</h1>
    {{- range .Cards}}
    <div style="background: #ffffff; border-left: 4px solid {{.Theme.Color}}; border-radius: 4px; padding: 12px 16px; margin-bottom: 12px;">
      <h2 style="margin: 0 0 4px; font-size: 15px;">{{.Theme.Icon}} {{.LineName}}</h2>
      <p style="margin: 0; font-size: 14px;"><strong>{{.Status}}</strong></p>
      {{- if .Detail}}
      <p style="margin: 4px 0 0; font-size: 13px; color: #555555;">{{.Detail}}</p>
      {{- end}}
    </div>
    {{- end}}
  </div>
</body>
</html>
`))

// DigestCard is one line's latest state inside an aggregated digest.
type DigestCard struct {
	LineName string
	Status   string
	Detail   string
	Theme    Theme
}

// RenderChangeEmail builds the subject and HTML body for a single status
// change notification.
func RenderChangeEmail(change model.StatusChange) (subject, html string, err error) {
	theme := ThemeFor(change.Category)
	subject = fmt.Sprintf("【%s】%s", change.Name, theme.Title)

	var buf strings.Builder
	data := struct {
		Theme  Theme
		Change model.StatusChange
	}{theme, change}
	if err := changeTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render change email: %w", err)
	}
	return subject, buf.String(), nil
}

// RenderDigestEmail builds the subject and HTML body for an aggregated
// digest, one card per line.
func RenderDigestEmail(freq model.Frequency, cards []DigestCard) (subject, html string, err error) {
	heading := "運行情報まとめ（日次）"
	if freq == model.FrequencyWeekly {
		heading = "運行情報まとめ（週次）"
	}
	subject = fmt.Sprintf("%s - %d路線", heading, len(cards))

	var buf strings.Builder
	data := struct {
		Heading string
		Cards   []DigestCard
	}{heading, cards}
	if err := digestTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render digest email: %w", err)
	}
	return subject, buf.String(), nil
}
