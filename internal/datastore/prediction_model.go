package datastore

import (
	"fmt"
	"time"
)

// PredictionRecord is the persisted unit of the prediction store. The id
// and timestamp are assigned by the store at insert time and never change;
// records are immutable except for whole-record deletion.
type PredictionRecord struct {
	ID             int64   `json:"id"`
	Filename       string  `json:"filename"`
	PredictedClass string  `json:"predicted_class"`
	Confidence     float64 `json:"confidence"`
	Timestamp      string  `json:"timestamp"` // RFC 3339, UTC
}

// BatchItem is one caller-supplied entry of a batch insert.
type BatchItem struct {
	Filename       string  `json:"filename"`
	PredictedClass string  `json:"predicted_class"`
	Confidence     float64 `json:"confidence"`
}

// QueryFilter holds the independently combinable filters of Query. The
// zero value selects everything with no limit.
type QueryFilter struct {
	// MinConfidence/MaxConfidence bound the confidence range. Values are
	// clamped to [0,1] and swapped if min ends up above max, so the range
	// is always well-ordered.
	MinConfidence *float64
	MaxConfidence *float64
	// PredictedClass filters on exact class equality when non-empty.
	PredictedClass string
	// StartTime/EndTime bound the record timestamp, inclusive on both ends.
	StartTime *time.Time
	EndTime   *time.Time
	// Limit caps the number of returned records; 0 means unbounded.
	Limit int
}

// PredictionStatistics summarizes the store contents.
type PredictionStatistics struct {
	TotalPredictions     int            `json:"total_predictions"`
	PredictionsByClass   map[string]int `json:"predictions_by_class"`
	AverageConfidence    *float64       `json:"average_confidence"` // nil when the store is empty
	RecentPredictions24h int            `json:"recent_predictions_24h"`
}

// StorageError wraps failures of the underlying persistence medium so
// callers can distinguish them from validation problems. The in-flight
// operation is rolled back; previously committed records are untouched.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
