// Package classify evaluates consensus metrics against threshold rules and
// derives severity-graded alerts.
package classify

import (
	"fmt"
	"sort"

	"github.com/avetisov/stratus/internal/model"
)

// Classifier applies the rule set to a consensus map. Rules are evaluated
// independently; several alerts may fire for one request. Output order is
// fixed: category, then descending severity, then metric name.
type Classifier struct {
	cfg *model.Config
}

// NewClassifier creates a Classifier over the given read-only configuration.
func NewClassifier(cfg *model.Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify derives all alerts for one consensus map.
func (c *Classifier) Classify(metrics map[string]model.ConsensusMetric) []model.Alert {
	var alerts []model.Alert
	alerts = append(alerts, c.extremeValueAlerts(metrics)...)
	alerts = append(alerts, c.conditionAlerts(metrics)...)
	alerts = append(alerts, c.inconsistencyAlerts(metrics)...)
	alerts = append(alerts, c.insufficientDataAlerts(metrics)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		return a.Metric < b.Metric
	})
	return alerts
}

// extremeValueAlerts applies the threshold bands. Band edges are inclusive:
// a value exactly at a threshold classifies into that band's tier. Metrics
// marked insufficient are skipped, never treated as zero.
func (c *Classifier) extremeValueAlerts(metrics map[string]model.ConsensusMetric) []model.Alert {
	var alerts []model.Alert
	for _, name := range sortedKeys(c.cfg.Engine.Bands) {
		set := c.cfg.Engine.Bands[name]
		m, ok := metrics[name]
		if !ok || !m.Defined() || m.Value == nil {
			continue
		}
		v := *m.Value

		// High side, most severe band first.
		for i := len(set.High) - 1; i >= 0; i-- {
			band := set.High[i]
			if v >= band.Threshold {
				alerts = append(alerts, model.Alert{
					Severity:  band.Severity,
					Category:  set.Category,
					Metric:    name,
					Trigger:   fmt.Sprintf("%s %.1f %s at or above %.1f %s", name, v, m.Unit, band.Threshold, m.Unit),
					Threshold: model.Float(band.Threshold),
					Value:     model.Float(v),
				})
				break
			}
		}

		// Low side, most severe band first.
		for i := len(set.Low) - 1; i >= 0; i-- {
			band := set.Low[i]
			if v <= band.Threshold {
				alerts = append(alerts, model.Alert{
					Severity:  band.Severity,
					Category:  set.Category,
					Metric:    name,
					Trigger:   fmt.Sprintf("%s %.1f %s at or below %.1f %s", name, v, m.Unit, band.Threshold, m.Unit),
					Threshold: model.Float(band.Threshold),
					Value:     model.Float(v),
				})
				break
			}
		}
	}
	return alerts
}

// conditionAlerts flags hazardous consensus sky conditions.
func (c *Classifier) conditionAlerts(metrics map[string]model.ConsensusMetric) []model.Alert {
	m, ok := metrics[model.MetricCondition]
	if !ok || !m.Defined() || m.Label == "" {
		return nil
	}
	severity, ok := c.cfg.Engine.ConditionSeverity[model.Condition(m.Label)]
	if !ok {
		return nil
	}
	return []model.Alert{{
		Severity: severity,
		Category: model.CategoryHazardousConditions,
		Metric:   model.MetricCondition,
		Trigger:  fmt.Sprintf("consensus condition is %s", m.Label),
	}}
}

// inconsistencyAlerts fires when sources sharply disagree. Disagreement
// itself is the signal: the rule ignores whether the consensus value looks
// extreme, and needs at least two contributing sources to be meaningful.
func (c *Classifier) inconsistencyAlerts(metrics map[string]model.ConsensusMetric) []model.Alert {
	var alerts []model.Alert
	for _, name := range sortedKeys(metrics) {
		m := metrics[name]
		if !m.Defined() || m.Sources < 2 || m.Agreement == nil {
			continue
		}
		if *m.Agreement >= c.cfg.Engine.MinAgreement {
			continue
		}
		alerts = append(alerts, model.Alert{
			Severity: model.SeverityAdvisory,
			Category: model.CategoryDataInconsistency,
			Metric:   name,
			Trigger: fmt.Sprintf("%d sources disagree on %s: agreement %.2f below minimum %.2f",
				m.Sources, name, *m.Agreement, c.cfg.Engine.MinAgreement),
			Value: model.Float(*m.Agreement),
		})
	}
	return alerts
}

// insufficientDataAlerts notes every expected metric that no source
// delivered. The gap is surfaced, never dropped: downstream consumers need
// to know confidence is reduced.
func (c *Classifier) insufficientDataAlerts(metrics map[string]model.ConsensusMetric) []model.Alert {
	var alerts []model.Alert
	for _, name := range c.cfg.Engine.ExpectedMetrics {
		m, ok := metrics[name]
		if !ok || !m.Insufficient {
			continue
		}
		alerts = append(alerts, model.Alert{
			Severity: model.SeverityInfo,
			Category: model.CategoryInsufficientData,
			Metric:   name,
			Trigger:  fmt.Sprintf("no source reported %s", name),
		})
	}
	return alerts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
