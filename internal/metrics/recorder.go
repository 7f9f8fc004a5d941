package metrics

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultCapacity is how many metrics a Recorder keeps before dropping the
// oldest.
const DefaultCapacity = 2000

// Recorder keeps the most recent metrics in memory. A nil Recorder discards
// everything, so callers never need to check.
type Recorder struct {
	mu       sync.RWMutex
	capacity int
	metrics  []Metric
}

// NewRecorder creates a recorder holding up to capacity metrics.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{capacity: capacity}
}

// RecordOpts provides context for a metric recording.
type RecordOpts struct {
	BookID   string
	Stage    string
	ItemKey  string
	Provider string
}

// Record stores a single metric.
func (r *Recorder) Record(m Metric) {
	if r == nil {
		return
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.metrics) >= r.capacity {
		copy(r.metrics, r.metrics[1:])
		r.metrics = r.metrics[:len(r.metrics)-1]
	}
	r.metrics = append(r.metrics, m)
}

// RecordCall records a call that started at start and finished with err.
func (r *Recorder) RecordCall(opts RecordOpts, start time.Time, err error) {
	r.Record(Metric{
		BookID:       opts.BookID,
		Stage:        opts.Stage,
		ItemKey:      opts.ItemKey,
		Provider:     opts.Provider,
		TotalSeconds: time.Since(start).Seconds(),
		Success:      err == nil,
		ErrorType:    ErrorType(err),
	})
}

// ErrorType classifies err for aggregation.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "provider_error"
	}
}

// Len returns how many metrics are held.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.metrics)
}
