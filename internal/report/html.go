// Package report renders an inspection as an HTML email body or a PDF.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"facility-inspect/internal/model"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const dateLayout = "2006-01-02"

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
	htmlTmpl = template.Must(template.New("report").Parse(htmlSource))
)

type itemView struct {
	Item   string
	Rating string
	Notes  string
}

type htmlView struct {
	Type      string
	Building  string
	Inspector string
	Date      string
	Items     []itemView
	AI        template.HTML
	Generated string
}

// RenderHTML builds the inline-styled report. aiSummary is markdown and may be empty.
func RenderHTML(rec *model.Inspection, aiSummary string) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("render html: nil inspection")
	}
	view := htmlView{
		Type:      rec.InspectionType,
		Building:  rec.Building,
		Inspector: rec.Inspector,
		Date:      formatDate(rec.InspectionDate),
		Generated: time.Now().Format("2006-01-02 15:04"),
	}
	for _, it := range rec.Items {
		view.Items = append(view.Items, itemView{Item: it.Item, Rating: it.Rating, Notes: it.Notes})
	}
	if strings.TrimSpace(aiSummary) != "" {
		ai, err := MarkdownToHTML(aiSummary)
		if err != nil {
			return "", err
		}
		view.AI = ai
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// MarkdownToHTML converts model output to sanitized HTML.
func MarkdownToHTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

const htmlSource = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Type}} Inspection Report</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background: #f5f5f5;">
<div style="max-width: 800px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden;">
  <div style="background: #009A44; color: #ffffff; padding: 20px; text-align: center;">
    <h1 style="margin: 0;">{{.Type}} Inspection Report</h1>
  </div>
  <div style="padding: 20px;">
    <div style="background: #f0f8f4; border-left: 4px solid #009A44; padding: 15px; margin-bottom: 20px;">
      <p style="margin: 4px 0;"><strong>Building:</strong> {{.Building}}</p>
      <p style="margin: 4px 0;"><strong>Inspector:</strong> {{.Inspector}}</p>
      <p style="margin: 4px 0;"><strong>Date:</strong> {{.Date}}</p>
    </div>
    <h2 style="color: #009A44;">Inspection Details</h2>
    {{- range .Items}}
    <div style="border-bottom: 1px solid #e0e0e0; padding: 10px 0;">
      <strong>{{.Item}}</strong>: <span style="color: #009A44;">{{.Rating}}</span>
      {{- if .Notes}}
      <div style="color: #555555; font-style: italic; margin-top: 4px;">Notes: {{.Notes}}</div>
      {{- end}}
    </div>
    {{- end}}
    {{- if .AI}}
    <h2 style="color: #009A44;">AI Analysis &amp; APPA Assessment</h2>
    <div style="background: #fafafa; padding: 15px; border-radius: 4px;">{{.AI}}</div>
    {{- end}}
  </div>
  <div style="background: #eeeeee; color: #777777; padding: 10px; text-align: center; font-size: 12px;">
    Generated by the Facilities Inspection System on {{.Generated}}
  </div>
</div>
</body>
</html>
`
