package model

import "fmt"

// Severity is the ordered alert tier: INFO < ADVISORY < WARNING < SEVERE.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityAdvisory
	SeverityWarning
	SeveritySevere
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityAdvisory:
		return "advisory"
	case SeverityWarning:
		return "warning"
	case SeveritySevere:
		return "severe"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity by name so JSON and YAML output stays
// readable and stable.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a severity name into its tier.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "info":
		return SeverityInfo, nil
	case "advisory":
		return SeverityAdvisory, nil
	case "warning":
		return SeverityWarning, nil
	case "severe":
		return SeveritySevere, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity: %q", name)
	}
}

// AlertCategory classifies what an alert is about.
type AlertCategory string

const (
	CategoryTemperatureExtreme  AlertCategory = "temperature-extreme"
	CategoryHighWind            AlertCategory = "high-wind"
	CategoryHazardousConditions AlertCategory = "hazardous-conditions"
	CategoryDataInconsistency   AlertCategory = "data-inconsistency"
	CategoryInsufficientData    AlertCategory = "insufficient-data"
)

// Alert is one classification finding. Alerts are recomputed fresh for every
// request and never mutated after creation. Trigger is a factual statement of
// the condition that fired, not narrative prose.
type Alert struct {
	Severity  Severity      `json:"severity"`
	Category  AlertCategory `json:"category"`
	Metric    string        `json:"metric"`
	Trigger   string        `json:"trigger"`
	Threshold *float64      `json:"threshold,omitempty"`
	Value     *float64      `json:"value,omitempty"`
}
