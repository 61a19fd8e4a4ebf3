package llm

import (
	"context"
	"fmt"

	"github.com/avetisov/stratus/internal/model"
)

// Narrator wraps a Provider and turns its output into the report narrative.
// A Narrator with no provider is the disabled state: Narrate returns nil and
// the report ships without prose.
type Narrator struct {
	provider Provider
	config   Config
}

// NewNarrator creates a narrator from configuration. An empty provider name
// yields a disabled narrator, not an error.
func NewNarrator(config Config) (*Narrator, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return &Narrator{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured.
func (n *Narrator) IsEnabled() bool {
	return n.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled.
func (n *Narrator) ProviderName() string {
	if n.provider == nil {
		return ""
	}
	return n.provider.Name()
}

// Narrate generates the narrative for a report. Failures degrade to a
// narrative carrying warnings; they never fail the report itself.
func (n *Narrator) Narrate(ctx context.Context, report model.Report, question string) (*model.Narrative, error) {
	if n.provider == nil {
		return nil, nil
	}

	if !n.provider.IsAvailable(ctx) {
		return &model.Narrative{
			Enabled:  false,
			Provider: n.provider.Name(),
			Question: question,
			Warnings: []string{fmt.Sprintf("LLM provider %s is not available; narrative skipped", n.provider.Name())},
		}, nil
	}

	resp, err := n.provider.Narrate(ctx, NarrateRequest{
		Report:    report,
		Question:  question,
		Model:     n.config.Model,
		MaxTokens: n.config.MaxTokens,
	})
	if err != nil {
		return &model.Narrative{
			Enabled:  false,
			Provider: n.provider.Name(),
			Question: question,
			Warnings: []string{fmt.Sprintf("narrative generation failed: %v", err)},
		}, nil
	}

	return &model.Narrative{
		Enabled:  true,
		Provider: n.provider.Name(),
		Model:    resp.Model,
		Question: question,
		Text:     resp.Text,
	}, nil
}
