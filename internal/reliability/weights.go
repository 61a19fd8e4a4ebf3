// Package reliability assigns confidence weights to provider readings.
package reliability

import "github.com/avetisov/stratus/internal/model"

// Model maps (provider, observation, metric) to a weight in [0,1]. Weights
// are static and configuration-driven; there is no feedback loop. The model
// is pure: same inputs, same weight.
type Model struct {
	base          map[string]float64
	metricWeights map[string]map[string]float64
	defaultWeight float64
}

// NewModel builds the weight model from configuration.
func NewModel(cfg *model.Config) *Model {
	m := &Model{
		base:          make(map[string]float64, len(cfg.Providers)),
		metricWeights: make(map[string]map[string]float64),
		defaultWeight: cfg.DefaultWeight,
	}
	for _, p := range cfg.Providers {
		m.base[p.Name] = p.Weight
		if len(p.MetricWeights) > 0 {
			m.metricWeights[p.Name] = p.MetricWeights
		}
	}
	return m
}

// Weight returns the reliability weight for one provider's contribution to
// one metric. A failed observation always weighs zero: a record is either a
// success or a failure, never partially trusted.
func (m *Model) Weight(provider string, obs model.Observation, metric string) float64 {
	if obs.Failed() {
		return 0
	}
	w, ok := m.base[provider]
	if !ok {
		w = m.defaultWeight
	}
	if overrides, ok := m.metricWeights[provider]; ok {
		if mw, ok := overrides[metric]; ok {
			return mw
		}
	}
	return w
}
