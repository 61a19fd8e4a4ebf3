// Package consensus merges normalized observations into per-metric consensus
// estimates with quantified agreement.
package consensus

import (
	"math"
	"sort"

	"github.com/avetisov/stratus/internal/model"
	"github.com/avetisov/stratus/internal/reliability"
)

// Builder computes one ConsensusMetric per measured quantity. It is pure and
// deterministic: the same observation batch and configuration always produce
// the same mapping.
type Builder struct {
	cfg      *model.Config
	weights  *reliability.Model
	priority map[string]int
}

// NewBuilder creates a Builder over the given read-only configuration.
func NewBuilder(cfg *model.Config, weights *reliability.Model) *Builder {
	priority := make(map[string]int, len(cfg.Providers))
	for rank, name := range cfg.ProviderPriority() {
		priority[name] = rank
	}
	return &Builder{cfg: cfg, weights: weights, priority: priority}
}

// Build reconciles the batch metric by metric. Failed observations contribute
// nothing; metrics with no contributing source come back flagged insufficient
// rather than defaulted.
func (b *Builder) Build(observations []model.Observation) map[string]model.ConsensusMetric {
	// Fix the iteration order so floating-point summation is reproducible
	// regardless of how the acquisition stage ordered the batch.
	obs := make([]model.Observation, len(observations))
	copy(obs, observations)
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Provider < obs[j].Provider })

	out := make(map[string]model.ConsensusMetric, len(model.NumericMetrics())+2)
	for _, spec := range model.NumericMetrics() {
		out[spec.Name] = b.buildNumeric(spec, obs)
	}
	out[model.MetricCondition] = b.buildCategorical(model.MetricCondition, obs, conditionLabel)
	out[model.MetricWindDirection] = b.buildCategorical(model.MetricWindDirection, obs, compassLabel)
	return out
}

type contribution struct {
	provider string
	value    float64
	weight   float64
}

func (b *Builder) buildNumeric(spec model.NumericMetric, obs []model.Observation) model.ConsensusMetric {
	metric := model.ConsensusMetric{Name: spec.Name, Unit: spec.Unit}

	saneRange := b.cfg.Engine.SaneRanges[spec.Name]
	tolerance := b.cfg.Engine.Tolerances[spec.Name]

	var subset []contribution
	for _, o := range obs {
		if o.Failed() {
			continue
		}
		v := spec.Value(o)
		if v == nil {
			continue
		}
		if !saneRange.Contains(*v) {
			// Implausible outlier: excluded from consensus, counted for
			// data-quality scoring.
			metric.Rejected++
			continue
		}
		subset = append(subset, contribution{
			provider: o.Provider,
			value:    *v,
			weight:   b.weights.Weight(o.Provider, o, spec.Name),
		})
	}

	metric.Sources = len(subset)
	if len(subset) == 0 {
		metric.Insufficient = true
		return metric
	}

	if len(subset) == 1 {
		// A single source cannot disagree with itself.
		v := subset[0].value
		metric.Value = model.Float(v)
		metric.Agreement = model.Float(1.0)
		metric.Min = model.Float(v)
		metric.Max = model.Float(v)
		return metric
	}

	normalizeWeights(subset)

	var mean float64
	minV, maxV := subset[0].value, subset[0].value
	for _, c := range subset {
		mean += c.weight * c.value
		if c.value < minV {
			minV = c.value
		}
		if c.value > maxV {
			maxV = c.value
		}
	}

	var variance float64
	for _, c := range subset {
		d := c.value - mean
		variance += c.weight * d * d
	}
	dispersion := math.Sqrt(variance)

	metric.Value = model.Float(mean)
	metric.Agreement = model.Float(clamp01(1 - dispersion/tolerance))
	metric.Min = model.Float(minV)
	metric.Max = model.Float(maxV)
	return metric
}

// buildCategorical reconciles a label-valued metric by weighted plurality.
// Agreement is the winning option's weight share. Ties break by configured
// provider priority, then lexically, never by input order.
func (b *Builder) buildCategorical(name string, obs []model.Observation, label func(model.Observation) (string, bool)) model.ConsensusMetric {
	metric := model.ConsensusMetric{Name: name}

	weightByLabel := make(map[string]float64)
	rankByLabel := make(map[string]int)
	var total float64
	var sources int

	for _, o := range obs {
		if o.Failed() {
			continue
		}
		l, ok := label(o)
		if !ok {
			continue
		}
		w := b.weights.Weight(o.Provider, o, name)
		sources++
		total += w
		weightByLabel[l] += w

		rank := b.providerRank(o.Provider)
		if best, ok := rankByLabel[l]; !ok || rank < best {
			rankByLabel[l] = rank
		}
	}

	metric.Sources = sources
	if sources == 0 {
		metric.Insufficient = true
		return metric
	}

	if total == 0 {
		// All contributors carried zero weight; fall back to an unweighted
		// vote so the metric still resolves.
		for l := range weightByLabel {
			weightByLabel[l] = 1
		}
		total = float64(len(weightByLabel))
	}

	labels := make([]string, 0, len(weightByLabel))
	for l := range weightByLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	winner := labels[0]
	for _, l := range labels[1:] {
		switch {
		case weightByLabel[l] > weightByLabel[winner]:
			winner = l
		case weightByLabel[l] == weightByLabel[winner] && rankByLabel[l] < rankByLabel[winner]:
			winner = l
		}
	}

	metric.Label = winner
	metric.Agreement = model.Float(weightByLabel[winner] / total)
	return metric
}

func (b *Builder) providerRank(name string) int {
	if rank, ok := b.priority[name]; ok {
		return rank
	}
	// Unconfigured providers rank after all configured ones.
	return len(b.priority)
}

// normalizeWeights scales the subset's weights to sum to 1. A subset whose
// weights sum to zero degrades to equal weighting.
func normalizeWeights(subset []contribution) {
	var sum float64
	for _, c := range subset {
		sum += c.weight
	}
	if sum == 0 {
		equal := 1 / float64(len(subset))
		for i := range subset {
			subset[i].weight = equal
		}
		return
	}
	for i := range subset {
		subset[i].weight /= sum
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func conditionLabel(o model.Observation) (string, bool) {
	if o.Condition == model.ConditionUnknown {
		return "", false
	}
	return string(o.Condition), true
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// compassLabel maps a wind direction in degrees onto the 16-point compass.
// Reconciling directions as labels sidesteps circular-mean artifacts (two
// sources at 350° and 10° should not average to south).
func compassLabel(o model.Observation) (string, bool) {
	if o.WindDirection == nil {
		return "", false
	}
	deg := math.Mod(*o.WindDirection, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.Round(deg/22.5)) % 16
	return compassPoints[idx], true
}
