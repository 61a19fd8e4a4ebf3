package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfig marks construction-time configuration failures. They surface
// before any request is processed; nothing on the request path returns them.
var ErrConfig = errors.New("invalid configuration")

// Config is the full application configuration, constructed once at startup
// and passed read-only into every stage. The engine performs no implicit
// lookups of its own.
type Config struct {
	Providers []ProviderConfig `yaml:"providers" json:"providers"`

	// DefaultWeight applies to providers present in the input batch but
	// missing from Providers.
	DefaultWeight float64 `yaml:"default_weight" json:"default_weight"`

	Engine      EngineConfig      `yaml:"engine" json:"engine"`
	HTTP        HTTPConfig        `yaml:"http" json:"http"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// ProviderConfig describes one weather source. Order in Config.Providers is
// the priority order used for categorical tie-breaks.
type ProviderConfig struct {
	Name    string `yaml:"name" json:"name"`
	APIKey  string `yaml:"api_key" json:"-"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Weight is the static base reliability weight in [0,1].
	Weight float64 `yaml:"weight" json:"weight"`

	// MetricWeights optionally scales the base weight for specific metrics,
	// e.g. down-weighting a provider's wind data only.
	MetricWeights map[string]float64 `yaml:"metric_weights,omitempty" json:"metric_weights,omitempty"`
}

// EngineConfig holds every constant the reconciliation engine consumes.
// All values are calibration parameters; the defaults are illustrative, not
// authoritative.
type EngineConfig struct {
	// Tolerances: dispersion at which agreement for a numeric metric reaches
	// zero, in the metric's own unit.
	Tolerances map[string]float64 `yaml:"tolerances" json:"tolerances"`

	// SaneRanges: readings outside these bounds are rejected as implausible
	// before consensus, counted toward data-quality degradation.
	SaneRanges map[string]Range `yaml:"sane_ranges" json:"sane_ranges"`

	// Bands: severity threshold bands per numeric metric. Lower edges are
	// inclusive: a value exactly at a threshold takes that tier.
	Bands map[string]BandSet `yaml:"bands" json:"bands"`

	// ConditionSeverity maps hazardous sky conditions to an alert tier.
	ConditionSeverity map[Condition]Severity `yaml:"condition_severity" json:"condition_severity"`

	// MinAgreement: below this, with two or more contributing sources, the
	// data-inconsistency rule fires.
	MinAgreement float64 `yaml:"min_agreement" json:"min_agreement"`

	// ExpectedMetrics get an INFO alert when no source delivers them.
	ExpectedMetrics []string `yaml:"expected_metrics" json:"expected_metrics"`
}

// Range bounds plausible values for a metric.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies inside the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// BandSet is the threshold ladder for one metric. High bands fire when the
// consensus value is at or above the threshold, low bands at or below;
// both sides are evaluated from the most severe tier down.
type BandSet struct {
	Category AlertCategory `yaml:"category" json:"category"`
	High     []Band        `yaml:"high,omitempty" json:"high,omitempty"`
	Low      []Band        `yaml:"low,omitempty" json:"low,omitempty"`
}

// Band pairs a threshold with the tier it classifies into.
type Band struct {
	Threshold float64  `yaml:"threshold" json:"threshold"`
	Severity  Severity `yaml:"severity" json:"severity"`
}

// HTTPConfig applies to outbound provider requests.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" json:"http_proxy,omitempty"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" json:"https_proxy,omitempty"`
	NoProxy      string        `yaml:"no_proxy,omitempty" json:"no_proxy,omitempty"`
}

// CacheConfig controls the provider response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

// LLMConfig configures the optional narrative stage.
type LLMConfig struct {
	Provider    string  `yaml:"provider" json:"provider"` // openai, anthropic, ollama, "" = disabled
	Model       string  `yaml:"model" json:"model"`
	APIKey      string  `yaml:"api_key" json:"-"`
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout     int     `yaml:"timeout" json:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
}

// ConcurrencyConfig bounds concurrent work.
type ConcurrencyConfig struct {
	BatchWorkers  int     `yaml:"batch_workers" json:"batch_workers"`
	ProviderRPS   float64 `yaml:"provider_rps" json:"provider_rps"`
	ProviderBurst int     `yaml:"provider_burst" json:"provider_burst"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" json:"verbose"`
	IncludeFooter bool `yaml:"include_footer" json:"include_footer"`
}

// DefaultConfig returns the built-in defaults. Threshold, tolerance, and
// range values are documented calibration points, tune them per deployment.
func DefaultConfig() *Config {
	return &Config{
		Providers: []ProviderConfig{
			{Name: "openweathermap", Weight: 1.0},
			{Name: "weatherapi", Weight: 0.9},
			{Name: "visualcrossing", Weight: 0.85},
		},
		DefaultWeight: 0.5,
		Engine: EngineConfig{
			Tolerances: map[string]float64{
				MetricTemperature: 3.0, // °C
				MetricFeelsLike:   3.0, // °C
				MetricHumidity:    10,  // %
				MetricPressure:    8,   // hPa
				MetricWindSpeed:   4,   // m/s
			},
			SaneRanges: map[string]Range{
				MetricTemperature: {Min: -90, Max: 60},
				MetricFeelsLike:   {Min: -90, Max: 70},
				MetricHumidity:    {Min: 0, Max: 100},
				MetricPressure:    {Min: 850, Max: 1100},
				MetricWindSpeed:   {Min: 0, Max: 115},
			},
			Bands: map[string]BandSet{
				MetricTemperature: {
					Category: CategoryTemperatureExtreme,
					High: []Band{
						{Threshold: 32, Severity: SeverityAdvisory},
						{Threshold: 38, Severity: SeverityWarning},
						{Threshold: 44, Severity: SeveritySevere},
					},
					Low: []Band{
						{Threshold: 0, Severity: SeverityAdvisory},
						{Threshold: -12, Severity: SeverityWarning},
						{Threshold: -25, Severity: SeveritySevere},
					},
				},
				MetricWindSpeed: {
					Category: CategoryHighWind,
					High: []Band{
						{Threshold: 14, Severity: SeverityAdvisory},
						{Threshold: 21, Severity: SeverityWarning},
						{Threshold: 28, Severity: SeveritySevere},
					},
				},
			},
			ConditionSeverity: map[Condition]Severity{
				ConditionStorm: SeveritySevere,
				ConditionSnow:  SeverityAdvisory,
				ConditionFog:   SeverityInfo,
			},
			MinAgreement: 0.5,
			ExpectedMetrics: []string{
				MetricTemperature,
				MetricFeelsLike,
				MetricHumidity,
				MetricPressure,
				MetricWindSpeed,
				MetricCondition,
			},
		},
		HTTP: HTTPConfig{
			Timeout:      10 * time.Second,
			UserAgent:    "Stratus/0.1 (+https://github.com/avetisov/stratus)",
			MaxBodyBytes: 1_000_000,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:    "", // disabled by default
			Timeout:     30,
			MaxTokens:   1000,
			Temperature: 0.3,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers:  4,
			ProviderRPS:   2,
			ProviderBurst: 4,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// ProviderPriority returns provider names in tie-break order.
func (c *Config) ProviderPriority() []string {
	names := make([]string, len(c.Providers))
	for i, p := range c.Providers {
		names[i] = p.Name
	}
	return names
}

// Provider looks up a provider's configuration by name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Validate fails fast on configuration the engine cannot run with. It is the
// only place configuration errors surface; the request path assumes a valid
// config.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("%w: no providers configured", ErrConfig)
	}
	seen := make(map[string]bool)
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("%w: provider with empty name", ErrConfig)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate provider %q", ErrConfig, p.Name)
		}
		seen[p.Name] = true
		if p.Weight < 0 || p.Weight > 1 {
			return fmt.Errorf("%w: provider %q weight %v outside [0,1]", ErrConfig, p.Name, p.Weight)
		}
		for metric, w := range p.MetricWeights {
			if w < 0 || w > 1 {
				return fmt.Errorf("%w: provider %q metric %q weight %v outside [0,1]", ErrConfig, p.Name, metric, w)
			}
		}
	}
	if c.DefaultWeight < 0 || c.DefaultWeight > 1 {
		return fmt.Errorf("%w: default weight %v outside [0,1]", ErrConfig, c.DefaultWeight)
	}

	for _, m := range NumericMetrics() {
		tol, ok := c.Engine.Tolerances[m.Name]
		if !ok {
			return fmt.Errorf("%w: missing tolerance for metric %q", ErrConfig, m.Name)
		}
		if tol <= 0 {
			return fmt.Errorf("%w: tolerance for metric %q must be positive, got %v", ErrConfig, m.Name, tol)
		}
		r, ok := c.Engine.SaneRanges[m.Name]
		if !ok {
			return fmt.Errorf("%w: missing sane range for metric %q", ErrConfig, m.Name)
		}
		if r.Min >= r.Max {
			return fmt.Errorf("%w: sane range for metric %q has min >= max", ErrConfig, m.Name)
		}
	}

	for metric, set := range c.Engine.Bands {
		if set.Category == "" {
			return fmt.Errorf("%w: band set for metric %q has no category", ErrConfig, metric)
		}
		if err := validateBands(set.High, true); err != nil {
			return fmt.Errorf("%w: high bands for metric %q: %v", ErrConfig, metric, err)
		}
		if err := validateBands(set.Low, false); err != nil {
			return fmt.Errorf("%w: low bands for metric %q: %v", ErrConfig, metric, err)
		}
	}

	if c.Engine.MinAgreement < 0 || c.Engine.MinAgreement > 1 {
		return fmt.Errorf("%w: min agreement %v outside [0,1]", ErrConfig, c.Engine.MinAgreement)
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", ErrConfig)
	}
	if c.Concurrency.BatchWorkers < 1 {
		return fmt.Errorf("%w: batch workers must be at least 1", ErrConfig)
	}
	return nil
}

// validateBands requires thresholds to escalate with severity: ascending for
// high-side bands, descending for low-side.
func validateBands(bands []Band, high bool) error {
	for i, b := range bands {
		if b.Severity < SeverityAdvisory || b.Severity > SeveritySevere {
			return fmt.Errorf("band %d severity %s not allowed", i, b.Severity)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if b.Severity <= prev.Severity {
			return fmt.Errorf("band %d severity %s does not escalate", i, b.Severity)
		}
		if high && b.Threshold <= prev.Threshold {
			return fmt.Errorf("band %d threshold %v not ascending", i, b.Threshold)
		}
		if !high && b.Threshold >= prev.Threshold {
			return fmt.Errorf("band %d threshold %v not descending", i, b.Threshold)
		}
	}
	return nil
}
