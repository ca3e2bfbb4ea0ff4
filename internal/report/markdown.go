package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/KaramelBytes/insightloom/internal/insight"
)

// Markdown renders the report as a Markdown document.
func Markdown(rep Report, meta Meta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rep.Title)
	var facts []string
	if !meta.GeneratedAt.IsZero() {
		facts = append(facts, "Generated "+meta.GeneratedAt.Format("2006-01-02 15:04:05"))
	}
	if meta.Source != "" {
		facts = append(facts, "Source: "+meta.Source)
	}
	if meta.RunID != "" {
		facts = append(facts, "Run: "+meta.RunID)
	}
	if len(facts) > 0 {
		fmt.Fprintf(&b, "_%s_\n\n", strings.Join(facts, " | "))
	}

	b.WriteString("## Key Metrics\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	for _, k := range rep.KPIs {
		fmt.Fprintf(&b, "| %s | %s |\n", cell(k.Label), cell(k.Value))
	}

	b.WriteString("\n## Executive Summary\n\n")
	if meta.NarrativeSource == string(insight.SourceFallback) {
		b.WriteString("> Templated summary: generated from computed metrics, not by the narrative service.\n\n")
	}
	for _, s := range insight.ParseSections(rep.Narrative) {
		if s.Title != "" {
			fmt.Fprintf(&b, "### %s\n\n", s.Title)
		}
		if s.Body != "" {
			b.WriteString(s.Body)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("## Statistical Summary\n\n")
	if len(rep.Statistics) == 0 {
		b.WriteString("No numeric columns.\n")
		return b.String()
	}
	b.WriteString("| Column | Mean | Median | Std Dev | Min | Max |\n|---|---:|---:|---:|---:|---:|\n")
	for _, s := range rep.Statistics {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n", cell(s.Column),
			FormatStat(s.Mean), FormatStat(s.Median), FormatStat(s.Std), FormatStat(s.Min), FormatStat(s.Max))
	}
	return b.String()
}

// HTML renders the Markdown form as a standalone page. Raw HTML inside the narrative
// is dropped.
func HTML(rep Report, meta Meta) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Title: rep.Title,
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML,
	})
	return markdown.ToHTML([]byte(Markdown(rep, meta)), p, r)
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
