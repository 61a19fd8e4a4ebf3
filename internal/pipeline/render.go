package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/avetisov/stratus/internal/model"
)

// Renderer writes a report as JSON, Markdown, or a terminal summary.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON.
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// RenderMarkdown writes the report as a Markdown document.
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	md := r.markdown(report)
	if err := os.WriteFile(path, []byte(md), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// RenderNarrativeMarkdown writes the narrative to its own file, clearly
// marked as generated content.
func (r *Renderer) RenderNarrativeMarkdown(narrative *model.Narrative, path string) error {
	if narrative == nil || !narrative.Enabled {
		return nil
	}

	var b strings.Builder
	b.WriteString("# Weather Narrative\n\n")
	b.WriteString("> GENERATED CONTENT. Metrics, alerts, and data quality were determined independently; this prose describes them and never feeds back into them.\n\n")
	fmt.Fprintf(&b, "- Provider: %s\n", narrative.Provider)
	fmt.Fprintf(&b, "- Model: %s\n", narrative.Model)
	if narrative.Question != "" {
		fmt.Fprintf(&b, "- Question: %s\n", narrative.Question)
	}
	b.WriteString("\n")
	if narrative.Text == "" {
		b.WriteString("No narrative generated.\n")
	} else {
		b.WriteString(narrative.Text)
		b.WriteString("\n")
	}
	if len(narrative.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range narrative.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// RenderSummary prints a terminal summary of the report.
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Printf("\n%s\n", report.Headline)
	fmt.Printf("Location: %s\n", report.Location)
	fmt.Printf("Data quality: %.2f (%d ok, %d failed, %d rejected readings)\n",
		report.Quality.Score, report.Quality.SourcesSucceeded, report.Quality.SourcesFailed, report.Quality.RejectedReadings)

	for _, name := range sortedMetricNames(report.Metrics) {
		m := report.Metrics[name]
		switch {
		case m.Insufficient:
			fmt.Printf("  %-15s insufficient data\n", m.Name)
		case m.Label != "":
			fmt.Printf("  %-15s %s (agreement %s)\n", m.Name, m.Label, formatAgreement(m.Agreement))
		case m.Value != nil:
			fmt.Printf("  %-15s %.1f %s (agreement %s, %d sources)\n", m.Name, *m.Value, m.Unit, formatAgreement(m.Agreement), m.Sources)
		}
	}

	if len(report.Alerts) > 0 {
		fmt.Println("Alerts:")
		for _, a := range report.Alerts {
			fmt.Printf("  [%s] %s: %s\n", strings.ToUpper(a.Severity.String()), a.Category, a.Trigger)
		}
	}

	if report.Narrative != nil && report.Narrative.Enabled {
		fmt.Printf("\nNarrative (%s):\n%s\n", report.Narrative.Provider, report.Narrative.Text)
	}
}

func (r *Renderer) markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Weather Report: %s\n\n", report.Location)
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**%s**\n\n", report.Headline)

	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value | Agreement | Sources | Rejected |\n")
	b.WriteString("|--------|-------|-----------|---------|----------|\n")
	for _, name := range sortedMetricNames(report.Metrics) {
		m := report.Metrics[name]
		value := "insufficient data"
		if !m.Insufficient {
			if m.Label != "" {
				value = m.Label
			} else if m.Value != nil {
				value = fmt.Sprintf("%.1f %s", *m.Value, m.Unit)
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d |\n", m.Name, value, formatAgreement(m.Agreement), m.Sources, m.Rejected)
	}
	b.WriteString("\n")

	b.WriteString("## Alerts\n\n")
	if len(report.Alerts) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, a := range report.Alerts {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", strings.ToUpper(a.Severity.String()), a.Category, a.Trigger)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Sources\n\n")
	for _, s := range report.Sources {
		if s.OK {
			fmt.Fprintf(&b, "- %s: ok\n", s.Provider)
		} else {
			fmt.Fprintf(&b, "- %s: failed (%s) %s\n", s.Provider, s.Failure, s.Error)
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Data Quality\n\nScore: %.2f | Succeeded: %d | Failed: %d | Rejected readings: %d\n",
		report.Quality.Score, report.Quality.SourcesSucceeded, report.Quality.SourcesFailed, report.Quality.RejectedReadings)

	if r.includeFooter {
		b.WriteString("\n---\n\nGenerated by stratus, a multi-source weather reconciliation engine.\n")
	}

	return b.String()
}

// RenderReport renders the report to the requested outputs and always prints
// the terminal summary.
func (p *Pipeline) RenderReport(report *model.Report, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	if report.Narrative != nil && report.Narrative.Enabled && mdPath != "" {
		narrativePath := strings.TrimSuffix(mdPath, ".md") + ".narrative.md"
		if err := p.renderer.RenderNarrativeMarkdown(report.Narrative, narrativePath); err != nil {
			fmt.Printf("Warning: failed to write narrative: %v\n", err)
		} else if verbose {
			fmt.Printf("✓ Wrote Narrative: %s\n", narrativePath)
		}
	}

	p.renderer.RenderSummary(report)

	return nil
}

func sortedMetricNames(metrics map[string]model.ConsensusMetric) []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatAgreement(agreement *float64) string {
	if agreement == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *agreement)
}
