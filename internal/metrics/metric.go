// Package metrics records timing and outcome for every generation call.
package metrics

import "time"

// Generation stages a metric can belong to.
const (
	StageAnalyze    = "analyze"
	StageAnimate    = "animate"
	StageIllustrate = "illustrate"
)

// Metric is a single recorded provider call.
type Metric struct {
	// Attribution (for filtering/aggregation)
	BookID  string `json:"book_id,omitempty"`
	Stage   string `json:"stage,omitempty"`
	ItemKey string `json:"item_key,omitempty"` // e.g., "page_001.png"

	Provider string `json:"provider,omitempty"`

	TotalSeconds float64 `json:"total_seconds"`

	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
