package model

import "time"

// Condition is a normalized high-level sky condition shared by all providers.
type Condition string

const (
	ConditionUnknown Condition = ""
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionDrizzle Condition = "drizzle"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionFog     Condition = "fog"
	ConditionMist    Condition = "mist"
)

// FailureClass tags why a provider fetch produced no usable reading.
// The engine only distinguishes failed from succeeded; the class is kept
// for source outcome reporting.
type FailureClass string

const (
	FailureNetwork FailureClass = "network"
	FailureTimeout FailureClass = "timeout"
	FailureParse   FailureClass = "parse"
	FailureConfig  FailureClass = "config"
)

// Observation is one provider's reading mapped into the common schema.
// Numeric fields are pointers: nil means the provider did not report that
// quantity. Invariant: a failed observation carries no measurement fields
// (use NewFailedObservation).
type Observation struct {
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`

	Temperature   *float64 `json:"temperature_c,omitempty"`    // °C
	FeelsLike     *float64 `json:"feels_like_c,omitempty"`     // °C
	Humidity      *float64 `json:"humidity_pct,omitempty"`     // %
	Pressure      *float64 `json:"pressure_hpa,omitempty"`     // hPa
	WindSpeed     *float64 `json:"wind_speed_ms,omitempty"`    // m/s
	WindDirection *float64 `json:"wind_direction_deg,omitempty"` // degrees, meteorological

	Condition Condition `json:"condition,omitempty"`

	Failure    FailureClass `json:"failure,omitempty"`
	FetchError string       `json:"fetch_error,omitempty"`
}

// Failed reports whether this observation is a tagged fetch failure.
func (o Observation) Failed() bool {
	return o.Failure != ""
}

// NewFailedObservation builds the failure marker for a provider whose fetch
// did not succeed. No measurement fields are ever set on it.
func NewFailedObservation(provider string, class FailureClass, msg string) Observation {
	return Observation{
		Provider:   provider,
		Timestamp:  time.Now().UTC(),
		Failure:    class,
		FetchError: msg,
	}
}

// Float returns a pointer to v. Convenience for building observations.
func Float(v float64) *float64 {
	return &v
}

// Metric names used as keys throughout the engine.
const (
	MetricTemperature   = "temperature"
	MetricFeelsLike     = "feels_like"
	MetricHumidity      = "humidity"
	MetricPressure      = "pressure"
	MetricWindSpeed     = "wind_speed"
	MetricWindDirection = "wind_direction"
	MetricCondition     = "condition"
)

// NumericMetric describes a numeric quantity subject to consensus and how to
// read it off an observation.
type NumericMetric struct {
	Name  string
	Unit  string
	Value func(Observation) *float64
}

// NumericMetrics returns the numeric metric schema in a fixed order.
func NumericMetrics() []NumericMetric {
	return []NumericMetric{
		{Name: MetricTemperature, Unit: "°C", Value: func(o Observation) *float64 { return o.Temperature }},
		{Name: MetricFeelsLike, Unit: "°C", Value: func(o Observation) *float64 { return o.FeelsLike }},
		{Name: MetricHumidity, Unit: "%", Value: func(o Observation) *float64 { return o.Humidity }},
		{Name: MetricPressure, Unit: "hPa", Value: func(o Observation) *float64 { return o.Pressure }},
		{Name: MetricWindSpeed, Unit: "m/s", Value: func(o Observation) *float64 { return o.WindSpeed }},
	}
}
