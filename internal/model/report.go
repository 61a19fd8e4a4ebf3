package model

import "time"

// Report is the final reconciled view for one request: every consensus
// metric, every alert, the overall data quality, and per-source outcomes.
// It is assembled once, after consensus and classification complete, and is
// immutable from then on. The narrative stage consumes it; it never feeds
// back into it beyond attaching Narrative.
type Report struct {
	Location    string    `json:"location"`
	GeneratedAt time.Time `json:"generated_at"`

	Metrics map[string]ConsensusMetric `json:"metrics"`
	Alerts  []Alert                    `json:"alerts"`

	Quality DataQuality     `json:"quality"`
	Sources []SourceOutcome `json:"sources"`

	// Headline is a short factual summary line for downstream consumers.
	Headline string `json:"headline"`

	Narrative *Narrative `json:"narrative,omitempty"`
}

// DataQuality is the overall confidence indicator for a report.
type DataQuality struct {
	// Score combines per-metric agreement with the source failure rate and
	// the rejected-reading rate; 0..1, higher is better.
	Score float64 `json:"score"`

	SourcesSucceeded int `json:"sources_succeeded"`
	SourcesFailed    int `json:"sources_failed"`
	RejectedReadings int `json:"rejected_readings"`
}

// SourceOutcome records how one provider's fetch ended, for traceability.
type SourceOutcome struct {
	Provider string       `json:"provider"`
	OK       bool         `json:"ok"`
	Failure  FailureClass `json:"failure,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Narrative is the optional LLM-generated prose. It is produced after the
// report is assembled and never affects metrics, alerts, or quality.
type Narrative struct {
	Enabled  bool     `json:"enabled"`
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
	Question string   `json:"question,omitempty"`
	Text     string   `json:"text,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
