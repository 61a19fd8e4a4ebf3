// Package assemble packages consensus metrics, alerts, and source outcomes
// into the final report.
package assemble

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/avetisov/stratus/internal/model"
)

// Assembler builds the immutable WeatherReport for one request. Pure
// assembly: the caller supplies the timestamp so identical inputs produce
// identical reports.
type Assembler struct{}

// NewAssembler creates a new assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble packages one request's results. It never fails: an all-failed
// input yields a report with every metric insufficient and the quality score
// at its floor.
func (a *Assembler) Assemble(location string, at time.Time, metrics map[string]model.ConsensusMetric, alerts []model.Alert, observations []model.Observation) *model.Report {
	report := &model.Report{
		Location:    location,
		GeneratedAt: at,
		Metrics:     metrics,
		Alerts:      alerts,
		Sources:     sourceOutcomes(observations),
	}

	succeeded, failed := 0, 0
	for _, o := range observations {
		if o.Failed() {
			failed++
		} else {
			succeeded++
		}
	}

	rejected := 0
	for _, m := range metrics {
		rejected += m.Rejected
	}

	report.Quality = model.DataQuality{
		Score:            qualityScore(metrics, succeeded, failed, rejected),
		SourcesSucceeded: succeeded,
		SourcesFailed:    failed,
		RejectedReadings: rejected,
	}
	report.Headline = headline(location, metrics, alerts, report.Quality)
	return report
}

// qualityScore combines per-metric agreement with source failure and outlier
// rates. Metrics flagged insufficient are excluded from the average; an
// absent agreement is not a zero agreement.
func qualityScore(metrics map[string]model.ConsensusMetric, succeeded, failed, rejected int) float64 {
	var weightedAgreement, totalWeight float64
	for _, m := range metrics {
		if !m.Defined() || m.Agreement == nil {
			continue
		}
		w := float64(m.Sources)
		weightedAgreement += w * *m.Agreement
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	score := weightedAgreement / totalWeight

	attempted := succeeded + failed
	if attempted > 0 {
		score *= float64(succeeded) / float64(attempted)
	}

	if rejected > 0 {
		clean := 0
		for _, m := range metrics {
			clean += m.Sources
		}
		score *= float64(clean) / float64(clean+rejected)
	}
	return score
}

// headline is a one-line factual summary for downstream consumers; the
// narrative stage expands it, this never editorializes.
func headline(location string, metrics map[string]model.ConsensusMetric, alerts []model.Alert, quality model.DataQuality) string {
	parts := []string{location}

	if m, ok := metrics[model.MetricCondition]; ok && m.Defined() && m.Label != "" {
		parts = append(parts, m.Label)
	}
	if m, ok := metrics[model.MetricTemperature]; ok && m.Defined() && m.Value != nil {
		parts = append(parts, fmt.Sprintf("%.1f %s", *m.Value, m.Unit))
	}
	if m, ok := metrics[model.MetricWindSpeed]; ok && m.Defined() && m.Value != nil {
		wind := fmt.Sprintf("wind %.1f %s", *m.Value, m.Unit)
		if d, ok := metrics[model.MetricWindDirection]; ok && d.Defined() && d.Label != "" {
			wind += " " + d.Label
		}
		parts = append(parts, wind)
	}

	parts = append(parts, fmt.Sprintf("%d/%d sources, quality %.2f",
		quality.SourcesSucceeded, quality.SourcesSucceeded+quality.SourcesFailed, quality.Score))

	if n := len(alerts); n > 0 {
		parts = append(parts, fmt.Sprintf("%d alert(s), max %s", n, maxSeverity(alerts)))
	}
	return strings.Join(parts, ", ")
}

func maxSeverity(alerts []model.Alert) model.Severity {
	max := model.SeverityInfo
	for _, a := range alerts {
		if a.Severity > max {
			max = a.Severity
		}
	}
	return max
}

func sourceOutcomes(observations []model.Observation) []model.SourceOutcome {
	outcomes := make([]model.SourceOutcome, 0, len(observations))
	for _, o := range observations {
		outcomes = append(outcomes, model.SourceOutcome{
			Provider: o.Provider,
			OK:       !o.Failed(),
			Failure:  o.Failure,
			Error:    o.FetchError,
		})
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Provider < outcomes[j].Provider })
	return outcomes
}
