package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/avetisov/stratus/internal/assemble"
	"github.com/avetisov/stratus/internal/classify"
	"github.com/avetisov/stratus/internal/consensus"
	"github.com/avetisov/stratus/internal/llm"
	"github.com/avetisov/stratus/internal/model"
	"github.com/avetisov/stratus/internal/provider"
	"github.com/avetisov/stratus/internal/reliability"
)

// stubProvider returns a canned observation or error.
type stubProvider struct {
	name string
	obs  model.Observation
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Fetch(ctx context.Context, location string) (model.Observation, error) {
	if s.err != nil {
		return model.Observation{}, s.err
	}
	return s.obs, nil
}

func newTestPipeline(t *testing.T, providers ...provider.Provider) *Pipeline {
	t.Helper()

	cfg := model.DefaultConfig()

	narrator, err := llm.NewNarrator(llm.Config{})
	if err != nil {
		t.Fatalf("Failed to create narrator: %v", err)
	}

	return &Pipeline{
		providers:  providers,
		builder:    consensus.NewBuilder(cfg, reliability.NewModel(cfg)),
		classifier: classify.NewClassifier(cfg),
		assembler:  assemble.NewAssembler(),
		narrator:   narrator,
		renderer:   NewRenderer(false),
		config:     cfg,
	}
}

func observation(provider string, temp float64) model.Observation {
	return model.Observation{
		Provider:    provider,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Temperature: model.Float(temp),
		Condition:   model.ConditionClear,
	}
}

func TestPipeline_Report_AllSourcesSucceed(t *testing.T) {
	p := newTestPipeline(t,
		&stubProvider{name: "openweathermap", obs: observation("openweathermap", 12.0)},
		&stubProvider{name: "weatherapi", obs: observation("weatherapi", 13.0)},
		&stubProvider{name: "visualcrossing", obs: observation("visualcrossing", 12.5)},
	)

	report, err := p.Report(context.Background(), "Oslo", "")
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if report.Location != "Oslo" {
		t.Errorf("Expected location Oslo, got %s", report.Location)
	}

	if report.Quality.SourcesSucceeded != 3 || report.Quality.SourcesFailed != 0 {
		t.Errorf("Unexpected source counts: %+v", report.Quality)
	}

	temp, ok := report.Metrics[model.MetricTemperature]
	if !ok {
		t.Fatal("Expected temperature metric")
	}
	if temp.Insufficient || temp.Value == nil {
		t.Fatal("Expected defined temperature consensus")
	}
	if temp.Sources != 3 {
		t.Errorf("Expected 3 sources, got %d", temp.Sources)
	}

	if report.Narrative != nil {
		t.Error("Expected no narrative when LLM is disabled")
	}
}

func TestPipeline_Report_PartialFailure(t *testing.T) {
	p := newTestPipeline(t,
		&stubProvider{name: "openweathermap", obs: observation("openweathermap", 12.0)},
		&stubProvider{name: "weatherapi", err: errors.New("connection refused")},
	)

	report, err := p.Report(context.Background(), "Oslo", "")
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if report.Quality.SourcesSucceeded != 1 || report.Quality.SourcesFailed != 1 {
		t.Errorf("Unexpected source counts: %+v", report.Quality)
	}

	var failed *model.SourceOutcome
	for i := range report.Sources {
		if report.Sources[i].Provider == "weatherapi" {
			failed = &report.Sources[i]
		}
	}
	if failed == nil {
		t.Fatal("Expected weatherapi source outcome")
	}
	if failed.OK {
		t.Error("Expected weatherapi outcome to be a failure")
	}
	if failed.Failure != model.FailureNetwork {
		t.Errorf("Expected network failure class, got %s", failed.Failure)
	}
}

func TestPipeline_Report_AllSourcesFail(t *testing.T) {
	p := newTestPipeline(t,
		&stubProvider{name: "openweathermap", err: errors.New("down")},
		&stubProvider{name: "weatherapi", err: errors.New("down")},
	)

	report, err := p.Report(context.Background(), "Oslo", "")
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if report.Quality.Score != 0 {
		t.Errorf("Expected zero quality score, got %f", report.Quality.Score)
	}

	temp := report.Metrics[model.MetricTemperature]
	if !temp.Insufficient {
		t.Error("Expected temperature to be marked insufficient")
	}
	if temp.Value != nil || temp.Agreement != nil {
		t.Error("Expected nil value and agreement for insufficient metric")
	}
}

func TestPipeline_Report_EmptyLocation(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Report(context.Background(), "", "")
	if err == nil {
		t.Fatal("Expected error for empty location")
	}
	if !errors.Is(err, model.ErrConfig) {
		t.Errorf("Expected config error, got %v", err)
	}
}

// Two runs over identical observations must serialize identically except for
// the generation timestamp, which the assembler takes from the caller.
func TestPipeline_Report_Deterministic(t *testing.T) {
	providers := []provider.Provider{
		&stubProvider{name: "openweathermap", obs: observation("openweathermap", 12.0)},
		&stubProvider{name: "weatherapi", obs: observation("weatherapi", 13.0)},
		&stubProvider{name: "visualcrossing", err: errors.New("down")},
	}

	p1 := newTestPipeline(t, providers...)
	p2 := newTestPipeline(t, providers...)

	r1, err := p1.Report(context.Background(), "Oslo", "")
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	r2, err := p2.Report(context.Background(), "Oslo", "")
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	r1.GeneratedAt = time.Time{}
	r2.GeneratedAt = time.Time{}

	b1, err := json.Marshal(r1)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b2, err := json.Marshal(r2)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if string(b1) != string(b2) {
		t.Errorf("Expected byte-identical reports:\n%s\n%s", b1, b2)
	}
}

func TestNewPipeline_FromDefaultConfig(t *testing.T) {
	cfg := model.DefaultConfig()

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	if len(p.providers) != len(cfg.Providers) {
		t.Errorf("Expected %d providers, got %d", len(cfg.Providers), len(p.providers))
	}

	if p.narrator.IsEnabled() {
		t.Error("Expected narrator to be disabled by default")
	}
}
