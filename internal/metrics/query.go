package metrics

import (
	"sort"
	"time"
)

// Filter specifies query filters.
type Filter struct {
	BookID   string
	Stage    string
	Provider string
	After    time.Time
	Success  *bool // nil = any, true = success only, false = errors only
}

func (f Filter) matches(m Metric) bool {
	if f.BookID != "" && m.BookID != f.BookID {
		return false
	}
	if f.Stage != "" && m.Stage != f.Stage {
		return false
	}
	if f.Provider != "" && m.Provider != f.Provider {
		return false
	}
	if !f.After.IsZero() && !m.CreatedAt.After(f.After) {
		return false
	}
	if f.Success != nil && m.Success != *f.Success {
		return false
	}
	return true
}

// List returns metrics matching the filter, newest first. A limit of 0
// returns all of them.
func (r *Recorder) List(f Filter, limit int) []Metric {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Metric
	for i := len(r.metrics) - 1; i >= 0; i-- {
		if !f.matches(r.metrics[i]) {
			continue
		}
		out = append(out, r.metrics[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Summary provides a summary of metrics for a filter.
type Summary struct {
	Count          int     `json:"count"`
	SuccessCount   int     `json:"success_count"`
	ErrorCount     int     `json:"error_count"`
	AvgTimeSeconds float64 `json:"avg_time_seconds"`
	LatencyP50     float64 `json:"latency_p50"`
	LatencyP95     float64 `json:"latency_p95"`
	LatencyMax     float64 `json:"latency_max"`

	ByStage    map[string]int `json:"by_stage,omitempty"`
	ByProvider map[string]int `json:"by_provider,omitempty"`
}

// GetSummary returns a summary of metrics matching the filter.
func (r *Recorder) GetSummary(f Filter) *Summary {
	metrics := r.List(f, 0)
	s := &Summary{
		Count:      len(metrics),
		ByStage:    make(map[string]int),
		ByProvider: make(map[string]int),
	}
	if s.Count == 0 {
		return s
	}

	latencies := make([]float64, 0, len(metrics))
	var total float64
	for _, m := range metrics {
		if m.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
		s.ByStage[m.Stage]++
		s.ByProvider[m.Provider]++
		total += m.TotalSeconds
		latencies = append(latencies, m.TotalSeconds)
	}
	sort.Float64s(latencies)

	s.AvgTimeSeconds = total / float64(s.Count)
	s.LatencyP50 = percentile(latencies, 50)
	s.LatencyP95 = percentile(latencies, 95)
	s.LatencyMax = latencies[len(latencies)-1]
	return s
}

// percentile uses nearest-rank on sorted values.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
