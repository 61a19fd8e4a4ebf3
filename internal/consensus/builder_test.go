package consensus

import (
	"math"
	"testing"
	"time"

	"github.com/avetisov/stratus/internal/model"
	"github.com/avetisov/stratus/internal/reliability"
)

func newBuilder(cfg *model.Config) *Builder {
	return NewBuilder(cfg, reliability.NewModel(cfg))
}

// equalWeightConfig gives every default provider weight 1.0 so expected
// values are easy to compute by hand.
func equalWeightConfig() *model.Config {
	cfg := model.DefaultConfig()
	for i := range cfg.Providers {
		cfg.Providers[i].Weight = 1.0
	}
	return cfg
}

func tempObs(provider string, temp float64) model.Observation {
	return model.Observation{
		Provider:    provider,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Temperature: model.Float(temp),
	}
}

func condObs(provider string, cond model.Condition) model.Observation {
	return model.Observation{
		Provider:  provider,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Condition: cond,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuild_SingleSourceFullAgreement(t *testing.T) {
	b := newBuilder(model.DefaultConfig())

	metrics := b.Build([]model.Observation{tempObs("openweathermap", 18.5)})

	m := metrics[model.MetricTemperature]
	if m.Insufficient {
		t.Fatal("Expected defined metric for single source")
	}
	if m.Value == nil || *m.Value != 18.5 {
		t.Errorf("Expected value 18.5, got %v", m.Value)
	}
	if m.Agreement == nil || *m.Agreement != 1.0 {
		t.Errorf("Expected agreement 1.0 for a single source, got %v", m.Agreement)
	}
	if m.Sources != 1 {
		t.Errorf("Expected 1 source, got %d", m.Sources)
	}
}

func TestBuild_EqualWeightMean(t *testing.T) {
	b := newBuilder(equalWeightConfig())

	metrics := b.Build([]model.Observation{
		tempObs("openweathermap", 20.0),
		tempObs("weatherapi", 22.0),
	})

	m := metrics[model.MetricTemperature]
	if m.Value == nil || !almostEqual(*m.Value, 21.0) {
		t.Errorf("Expected mean 21.0, got %v", m.Value)
	}
	// dispersion = 1.0, tolerance = 3.0, agreement = 1 - 1/3
	if m.Agreement == nil || !almostEqual(*m.Agreement, 1-1.0/3.0) {
		t.Errorf("Expected agreement %.4f, got %v", 1-1.0/3.0, m.Agreement)
	}
	if m.Min == nil || *m.Min != 20.0 || m.Max == nil || *m.Max != 22.0 {
		t.Errorf("Expected min 20 max 22, got %v %v", m.Min, m.Max)
	}
}

func TestBuild_WeightedMeanFavorsReliableSource(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Providers = []model.ProviderConfig{
		{Name: "openweathermap", Weight: 1.0},
		{Name: "weatherapi", Weight: 0.5},
	}
	b := newBuilder(cfg)

	metrics := b.Build([]model.Observation{
		tempObs("openweathermap", 10.0),
		tempObs("weatherapi", 16.0),
	})

	m := metrics[model.MetricTemperature]
	// (10*1.0 + 16*0.5) / 1.5 = 12.0
	if m.Value == nil || !almostEqual(*m.Value, 12.0) {
		t.Errorf("Expected weighted mean 12.0, got %v", m.Value)
	}
}

func TestBuild_OutlierRejectedBySaneRange(t *testing.T) {
	b := newBuilder(equalWeightConfig())

	metrics := b.Build([]model.Observation{
		tempObs("openweathermap", 20.0),
		tempObs("weatherapi", 21.0),
		tempObs("visualcrossing", 95.0), // outside [-90, 60]
	})

	m := metrics[model.MetricTemperature]
	if m.Rejected != 1 {
		t.Errorf("Expected 1 rejected reading, got %d", m.Rejected)
	}
	if m.Sources != 2 {
		t.Errorf("Expected 2 contributing sources, got %d", m.Sources)
	}
	if m.Value == nil || !almostEqual(*m.Value, 20.5) {
		t.Errorf("Expected mean 20.5 without the outlier, got %v", m.Value)
	}
}

func TestBuild_AgreementClampedAtZero(t *testing.T) {
	b := newBuilder(equalWeightConfig())

	metrics := b.Build([]model.Observation{
		tempObs("openweathermap", 10.0),
		tempObs("weatherapi", 30.0),
	})

	m := metrics[model.MetricTemperature]
	// dispersion 10 against tolerance 3 goes far below zero; it must clamp.
	if m.Agreement == nil || *m.Agreement != 0 {
		t.Errorf("Expected agreement clamped to 0, got %v", m.Agreement)
	}
}

func TestBuild_InsufficientMetricHasNilValues(t *testing.T) {
	b := newBuilder(model.DefaultConfig())

	metrics := b.Build([]model.Observation{
		model.NewFailedObservation("openweathermap", model.FailureNetwork, "down"),
	})

	m := metrics[model.MetricTemperature]
	if !m.Insufficient {
		t.Fatal("Expected insufficient flag with no contributing sources")
	}
	if m.Value != nil || m.Agreement != nil {
		t.Error("Expected nil value and agreement, not zeros")
	}
}

func TestBuild_FailedObservationsContributeNothing(t *testing.T) {
	b := newBuilder(model.DefaultConfig())

	metrics := b.Build([]model.Observation{
		tempObs("openweathermap", 15.0),
		model.NewFailedObservation("weatherapi", model.FailureTimeout, "deadline exceeded"),
	})

	m := metrics[model.MetricTemperature]
	if m.Sources != 1 {
		t.Errorf("Expected 1 source, got %d", m.Sources)
	}
	if m.Value == nil || *m.Value != 15.0 {
		t.Errorf("Expected value 15.0, got %v", m.Value)
	}
	if m.Agreement == nil || *m.Agreement != 1.0 {
		t.Errorf("Expected agreement 1.0, got %v", m.Agreement)
	}
}

func TestBuild_CategoricalWeightedPlurality(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Providers = []model.ProviderConfig{
		{Name: "openweathermap", Weight: 0.6},
		{Name: "weatherapi", Weight: 0.4},
	}
	b := newBuilder(cfg)

	metrics := b.Build([]model.Observation{
		condObs("openweathermap", model.ConditionClear),
		condObs("weatherapi", model.ConditionCloudy),
	})

	m := metrics[model.MetricCondition]
	if m.Label != string(model.ConditionClear) {
		t.Errorf("Expected winner clear, got %s", m.Label)
	}
	if m.Agreement == nil || !almostEqual(*m.Agreement, 0.6) {
		t.Errorf("Expected agreement 0.6, got %v", m.Agreement)
	}
}

func TestBuild_CategoricalTieBreaksByPriority(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Providers = []model.ProviderConfig{
		{Name: "openweathermap", Weight: 1.0},
		{Name: "weatherapi", Weight: 1.0},
	}
	b := newBuilder(cfg)

	// Equal weight tie: rain comes from the higher-priority provider and
	// must win even though clear sorts first lexically.
	metrics := b.Build([]model.Observation{
		condObs("openweathermap", model.ConditionRain),
		condObs("weatherapi", model.ConditionClear),
	})

	m := metrics[model.MetricCondition]
	if m.Label != string(model.ConditionRain) {
		t.Errorf("Expected priority tie-break to pick rain, got %s", m.Label)
	}
}

func TestBuild_CategoricalZeroWeightFallsBackToUnweightedVote(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Providers = []model.ProviderConfig{
		{Name: "openweathermap", Weight: 0},
		{Name: "weatherapi", Weight: 0},
	}
	b := newBuilder(cfg)

	metrics := b.Build([]model.Observation{
		condObs("openweathermap", model.ConditionClear),
		condObs("weatherapi", model.ConditionClear),
	})

	m := metrics[model.MetricCondition]
	if m.Insufficient {
		t.Fatal("Expected resolved metric despite zero weights")
	}
	if m.Label != string(model.ConditionClear) {
		t.Errorf("Expected clear, got %s", m.Label)
	}
	if m.Agreement == nil || !almostEqual(*m.Agreement, 1.0) {
		t.Errorf("Expected agreement 1.0, got %v", m.Agreement)
	}
}

func TestBuild_WindDirectionUsesCompassSectors(t *testing.T) {
	b := newBuilder(equalWeightConfig())

	// 350° and 10° straddle north; averaging degrees would point south.
	metrics := b.Build([]model.Observation{
		{Provider: "openweathermap", WindDirection: model.Float(350)},
		{Provider: "weatherapi", WindDirection: model.Float(10)},
	})

	m := metrics[model.MetricWindDirection]
	if m.Label != "N" {
		t.Errorf("Expected N, got %s", m.Label)
	}
	if m.Agreement == nil || !almostEqual(*m.Agreement, 1.0) {
		t.Errorf("Expected full agreement, got %v", m.Agreement)
	}
}

func TestBuild_DeterministicAcrossInputOrder(t *testing.T) {
	b := newBuilder(model.DefaultConfig())

	forward := []model.Observation{
		tempObs("openweathermap", 20.0),
		tempObs("weatherapi", 21.3),
		tempObs("visualcrossing", 19.7),
	}
	reversed := []model.Observation{forward[2], forward[1], forward[0]}

	m1 := b.Build(forward)[model.MetricTemperature]
	m2 := b.Build(reversed)[model.MetricTemperature]

	if *m1.Value != *m2.Value {
		t.Errorf("Expected identical values regardless of input order: %v vs %v", *m1.Value, *m2.Value)
	}
	if *m1.Agreement != *m2.Agreement {
		t.Errorf("Expected identical agreement regardless of input order: %v vs %v", *m1.Agreement, *m2.Agreement)
	}
}

func TestCompassLabel(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{11.0, "N"},
		{11.3, "NNE"},
		{45, "NE"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{359, "N"},
		{-90, "W"},
		{450, "E"},
	}

	for _, tt := range tests {
		got, ok := compassLabel(model.Observation{WindDirection: model.Float(tt.deg)})
		if !ok {
			t.Fatalf("Expected label for %.1f degrees", tt.deg)
		}
		if got != tt.want {
			t.Errorf("compassLabel(%.1f) = %s, want %s", tt.deg, got, tt.want)
		}
	}

	if _, ok := compassLabel(model.Observation{}); ok {
		t.Error("Expected no label without wind direction")
	}
}
