// Package export renders a captured knowledge card to PDF.
package export

import (
	"errors"
	"fmt"
	"html/template"
	"strings"

	"orbit/api/internal/store"
)

// ErrPDFDependencyMissing means no Chromium binary was found on the host.
var ErrPDFDependencyMissing = errors.New("pdf export dependency missing")

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var cardTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Georgia, serif; margin: 0; color: #1f2933; }
h1 { font-size: 28px; margin-bottom: 4px; }
.category { display: inline-block; font-size: 12px; letter-spacing: 1px; text-transform: uppercase; color: #52606d; margin-bottom: 18px; }
.summary { font-size: 15px; line-height: 1.6; }
.analogy { margin: 18px 0; padding: 12px 16px; border-left: 3px solid #9aa5b1; font-style: italic; color: #3e4c59; }
h2 { font-size: 16px; margin-top: 24px; border-bottom: 1px solid #cbd2d9; padding-bottom: 4px; }
ul { padding-left: 20px; }
li { margin: 4px 0; font-size: 14px; }
.role { color: #616e7c; }
.footer { margin-top: 32px; font-size: 11px; color: #7b8794; }
</style>
</head>
<body>
<h1>{{.Word}}</h1>
<span class="category">{{.Category}}</span>
<div class="summary">{{.Summary}}</div>
{{if .Analogy}}<div class="analogy">{{.Analogy}}</div>{{end}}
{{if .KeyPlayers}}<h2>Key players</h2><ul>
{{range .KeyPlayers}}<li>{{.Name}}{{if .Role}} <span class="role">({{.Role}})</span>{{end}}</li>
{{end}}</ul>{{end}}
{{if .Connections}}<h2>Connected concepts</h2><ul>
{{range .Connections}}<li>{{.}}</li>
{{end}}</ul>{{end}}
<div class="footer">Captured {{.Captured}}</div>
</body>
</html>`))

type cardData struct {
	Word        string
	Category    string
	Summary     string
	Analogy     string
	KeyPlayers  []store.KeyPlayer
	Connections []string
	Captured    string
}

// Service renders cards. connectionLabel resolves a connection ID to its
// display word; it may return "" for unknown IDs.
type Service struct {
	connectionLabel func(id string) string
}

func NewService(connectionLabel func(id string) string) *Service {
	if connectionLabel == nil {
		connectionLabel = func(string) string { return "" }
	}
	return &Service{connectionLabel: connectionLabel}
}

// ExportCard renders one record as a PDF via headless Chrome.
func (s *Service) ExportCard(rec store.KnowledgeRecord) (*Result, error) {
	var connections []string
	for _, id := range rec.Connections {
		if label := s.connectionLabel(id); label != "" {
			connections = append(connections, label)
		}
	}

	data := cardData{
		Word:        rec.Word,
		Category:    rec.Category,
		Summary:     rec.Summary,
		Analogy:     rec.Analogy,
		KeyPlayers:  rec.KeyPlayers,
		Connections: connections,
		Captured:    rec.CreatedAt.Format("2006-01-02"),
	}

	var html strings.Builder
	if err := cardTemplate.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render card html: %w", err)
	}
	return exportPDF(html.String(), rec.Word)
}
