// Demo program for the reconciliation engine. It feeds synthetic conflicting
// observations through consensus, classification, and assembly, showing how
// outliers are rejected and disagreement surfaces in the report.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/avetisov/stratus/internal/assemble"
	"github.com/avetisov/stratus/internal/classify"
	"github.com/avetisov/stratus/internal/consensus"
	"github.com/avetisov/stratus/internal/model"
	"github.com/avetisov/stratus/internal/reliability"
)

func main() {
	fmt.Println("=== Consensus Reconciliation Demo ===")
	fmt.Println()

	cfg := model.DefaultConfig()
	builder := consensus.NewBuilder(cfg, reliability.NewModel(cfg))
	classifier := classify.NewClassifier(cfg)
	assembler := assemble.NewAssembler()

	scenarios := []struct {
		name         string
		observations []model.Observation
	}{
		{
			name: "agreement with one wild outlier",
			observations: []model.Observation{
				obs("openweathermap", 20.0, model.ConditionClear),
				obs("weatherapi", 21.0, model.ConditionClear),
				obs("visualcrossing", 95.0, model.ConditionClear), // outside sane range
			},
		},
		{
			name: "genuine disagreement",
			observations: []model.Observation{
				obs("openweathermap", 10.0, model.ConditionRain),
				obs("weatherapi", 18.0, model.ConditionClear),
				obs("visualcrossing", 14.0, model.ConditionCloudy),
			},
		},
		{
			name: "severe heat",
			observations: []model.Observation{
				obs("openweathermap", 45.0, model.ConditionClear),
				obs("weatherapi", 44.5, model.ConditionClear),
			},
		},
		{
			name: "two sources down",
			observations: []model.Observation{
				obs("openweathermap", 12.0, model.ConditionCloudy),
				model.NewFailedObservation("weatherapi", model.FailureTimeout, "deadline exceeded"),
				model.NewFailedObservation("visualcrossing", model.FailureNetwork, "connection refused"),
			},
		},
	}

	for _, sc := range scenarios {
		fmt.Printf("Scenario: %s\n", sc.name)
		fmt.Println(strings.Repeat("-", 60))

		metrics := builder.Build(sc.observations)
		alerts := classifier.Classify(metrics)
		report := assembler.Assemble("Demo City", time.Now().UTC(), metrics, alerts, sc.observations)

		temp := report.Metrics[model.MetricTemperature]
		if temp.Insufficient {
			fmt.Println("  temperature: insufficient data")
		} else {
			fmt.Printf("  temperature: %.1f °C (agreement %.2f, %d sources, %d rejected)\n",
				*temp.Value, *temp.Agreement, temp.Sources, temp.Rejected)
		}

		if cond, ok := report.Metrics[model.MetricCondition]; ok && cond.Defined() {
			fmt.Printf("  condition:   %s (agreement %.2f)\n", cond.Label, *cond.Agreement)
		}

		if len(report.Alerts) == 0 {
			fmt.Println("  alerts:      none")
		} else {
			for _, a := range report.Alerts {
				fmt.Printf("  alert:       [%s] %s: %s\n", strings.ToUpper(a.Severity.String()), a.Category, a.Trigger)
			}
		}

		fmt.Printf("  quality:     %.2f\n", report.Quality.Score)
		fmt.Println()
	}

	fmt.Println("=== Demo Complete ===")
}

func obs(provider string, temp float64, cond model.Condition) model.Observation {
	return model.Observation{
		Provider:    provider,
		Timestamp:   time.Now().UTC(),
		Temperature: model.Float(temp),
		Condition:   cond,
	}
}
