// Package llm generates the optional natural-language narrative for a
// reconciled report. The narrative is strictly downstream: it never changes
// metrics, alerts, or quality, and every number it may mention is handed to
// the model inside the prompt.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/avetisov/stratus/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Narrate generates prose for the report, grounded on the prompt data
	Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// NarrateRequest contains the input for narrative generation
type NarrateRequest struct {
	// Report is the assembled weather report to narrate
	Report model.Report

	// Question is an optional user question to answer from the report
	Question string

	// Prompt overrides the default prompt when non-empty
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// NarrateResponse contains the LLM's narrative output
type NarrateResponse struct {
	// Text is the generated narrative
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for response generation
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "", // Disabled by default
		Model:       "",
		Timeout:     30,
		MaxTokens:   1000,
		Temperature: 0.3,
	}
}

const systemPrompt = "You are a weather analyst. You explain reconciled multi-source weather reports using only the data you are given."

// BuildPrompt constructs the default narrative prompt. Everything the model
// is allowed to state is spelled out in the data block; the rules forbid
// numbers or conditions that are not in it.
func BuildPrompt(report model.Report, question string) string {
	var b strings.Builder

	b.WriteString(`You are describing a weather report reconciled from multiple sources.

RULES:
1. Use ONLY the values in the data block below. Do not invent numbers, conditions, or forecasts.
2. If a metric is marked insufficient, say the data was insufficient for it.
3. Mention active alerts and their severity; do not add alerts of your own.
4. If overall data quality is below 0.5, say the report should be treated with caution.
5. Do not speculate about future weather.

DATA:
`)
	fmt.Fprintf(&b, "Location: %s\n", report.Location)
	fmt.Fprintf(&b, "Data quality: %.2f (%d sources succeeded, %d failed, %d readings rejected)\n",
		report.Quality.Score, report.Quality.SourcesSucceeded, report.Quality.SourcesFailed, report.Quality.RejectedReadings)

	names := make([]string, 0, len(report.Metrics))
	for name := range report.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(metricLine(report.Metrics[name]))
	}

	if len(report.Alerts) == 0 {
		b.WriteString("Alerts: none\n")
	} else {
		b.WriteString("Alerts:\n")
		for _, a := range report.Alerts {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", a.Severity, a.Category, a.Trigger)
		}
	}

	if question != "" {
		fmt.Fprintf(&b, "\nQuestion from the user: %s\nAnswer it from the data above; if the data cannot answer it, say so.\n", question)
	}

	b.WriteString("\nWrite 3-4 sentences describing the current conditions and anything the alerts or data quality make noteworthy.")

	return b.String()
}

func metricLine(m model.ConsensusMetric) string {
	if m.Insufficient {
		return fmt.Sprintf("- %s: insufficient data\n", m.Name)
	}
	agreement := ""
	if m.Agreement != nil {
		agreement = fmt.Sprintf(", agreement %.2f", *m.Agreement)
	}
	if m.Label != "" {
		return fmt.Sprintf("- %s: %s (%d sources%s)\n", m.Name, m.Label, m.Sources, agreement)
	}
	if m.Value != nil {
		return fmt.Sprintf("- %s: %.1f %s (%d sources%s)\n", m.Name, *m.Value, m.Unit, m.Sources, agreement)
	}
	return fmt.Sprintf("- %s: no value\n", m.Name)
}
