package model

// ConsensusMetric is the merged estimate for one metric across all sources.
//
// For numeric metrics Value carries the weighted mean; for categorical metrics
// Label carries the winning option. Agreement is nil when no source
// contributed (Insufficient is then true); absence of agreement is not the
// same as zero agreement.
type ConsensusMetric struct {
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`

	Value *float64 `json:"value,omitempty"`
	Label string   `json:"label,omitempty"`

	Agreement *float64 `json:"agreement,omitempty"` // 0..1, nil when undefined
	Sources   int      `json:"sources"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Rejected  int      `json:"rejected,omitempty"` // implausible readings excluded from consensus

	Insufficient bool `json:"insufficient"`
}

// Defined reports whether the metric carries a usable consensus estimate.
func (m ConsensusMetric) Defined() bool {
	return !m.Insufficient
}
