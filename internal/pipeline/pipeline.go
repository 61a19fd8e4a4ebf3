// Package pipeline orchestrates a full reconciliation: acquire observations
// from every configured source, build consensus, classify alerts, assemble
// the report, and optionally attach the LLM narrative.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/avetisov/stratus/internal/assemble"
	"github.com/avetisov/stratus/internal/cache"
	"github.com/avetisov/stratus/internal/classify"
	"github.com/avetisov/stratus/internal/consensus"
	"github.com/avetisov/stratus/internal/llm"
	"github.com/avetisov/stratus/internal/model"
	"github.com/avetisov/stratus/internal/provider"
	"github.com/avetisov/stratus/internal/reliability"
	"github.com/avetisov/stratus/internal/worker"
)

// Pipeline wires the stages together. It is safe for concurrent use; every
// Report call works on its own data.
type Pipeline struct {
	providers  []provider.Provider
	builder    *consensus.Builder
	classifier *classify.Classifier
	assembler  *assemble.Assembler
	narrator   *llm.Narrator // nil-provider narrator when disabled
	renderer   *Renderer
	config     *model.Config
}

// NewPipeline creates a pipeline from validated configuration.
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	var store cache.Cache
	if cfg.Cache.Enabled {
		store = cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL)
	}

	limiter := worker.NewLimiter(cfg.Concurrency.ProviderRPS, cfg.Concurrency.ProviderBurst)

	providers, err := provider.FromConfig(cfg, store, limiter)
	if err != nil {
		return nil, fmt.Errorf("build providers: %w", err)
	}

	narrator, err := llm.NewNarrator(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("build narrator: %w", err)
	}

	return &Pipeline{
		providers:  providers,
		builder:    consensus.NewBuilder(cfg, reliability.NewModel(cfg)),
		classifier: classify.NewClassifier(cfg),
		assembler:  assemble.NewAssembler(),
		narrator:   narrator,
		renderer:   NewRenderer(cfg.Output.IncludeFooter),
		config:     cfg,
	}, nil
}

// Report reconciles one location. A provider failure never fails the report;
// it is recorded as a source outcome and the remaining observations carry the
// consensus. The narrative runs last and cannot change anything upstream.
func (p *Pipeline) Report(ctx context.Context, location, question string) (*model.Report, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: location is empty", model.ErrConfig)
	}

	observations := p.acquire(ctx, location)

	metrics := p.builder.Build(observations)
	alerts := p.classifier.Classify(metrics)
	report := p.assembler.Assemble(location, time.Now().UTC(), metrics, alerts, observations)

	if p.narrator.IsEnabled() {
		narrative, err := p.narrator.Narrate(ctx, *report, question)
		if err != nil {
			fmt.Printf("Warning: narrative generation failed: %v\n", err)
		} else if narrative != nil {
			report.Narrative = narrative
		}
	}

	return report, nil
}
