// Package analytics derives read-only views from a snapshot of stored
// predictions. Every view is recomputed from the snapshot it is handed;
// nothing is cached between calls because the store may have changed.
package analytics

import (
	"robot-human-classifier/backend/internal/coreengine/confidenceresolver"
	"robot-human-classifier/backend/internal/datastore"
)

// BucketCounts holds per-strength-bucket record counts.
type BucketCounts struct {
	VeryHigh int `json:"very_high"`
	High     int `json:"high"`
	Moderate int `json:"moderate"`
	Low      int `json:"low"`
}

// ConfidenceDistribution is the bucketed confidence view of a snapshot,
// overall and split by predicted class.
type ConfidenceDistribution struct {
	Total             int                     `json:"total"`
	Distribution      BucketCounts            `json:"distribution"`
	ByClass           map[string]BucketCounts `json:"by_class"`
	AverageConfidence float64                 `json:"average_confidence"` // 0 when the snapshot is empty
}

// ClassShare is the count and percentage of one class in the snapshot.
type ClassShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ClassDistribution is the class-balance view of a snapshot. Percentages
// are 0 when the snapshot is empty, never NaN.
type ClassDistribution struct {
	Total   int                   `json:"total"`
	Classes map[string]ClassShare `json:"classes"`
}

// ComputeConfidenceDistribution buckets every record of the snapshot by
// strength, overall and per predicted class.
func ComputeConfidenceDistribution(records []datastore.PredictionRecord) ConfidenceDistribution {
	dist := ConfidenceDistribution{
		ByClass: map[string]BucketCounts{
			confidenceresolver.ClassHuman: {},
			confidenceresolver.ClassRobot: {},
		},
	}

	var totalConfidence float64
	for _, rec := range records {
		totalConfidence += rec.Confidence

		bucket := confidenceresolver.Strength(rec.Confidence)
		bump(&dist.Distribution, bucket)

		byClass := dist.ByClass[rec.PredictedClass]
		bump(&byClass, bucket)
		dist.ByClass[rec.PredictedClass] = byClass
	}

	dist.Total = len(records)
	if dist.Total > 0 {
		dist.AverageConfidence = totalConfidence / float64(dist.Total)
	}
	return dist
}

// ComputeClassDistribution counts each class and its share of the
// snapshot. Both fixed classes are always present in the result.
func ComputeClassDistribution(records []datastore.PredictionRecord) ClassDistribution {
	counts := map[string]int{
		confidenceresolver.ClassHuman: 0,
		confidenceresolver.ClassRobot: 0,
	}
	for _, rec := range records {
		counts[rec.PredictedClass]++
	}

	result := ClassDistribution{
		Total:   len(records),
		Classes: make(map[string]ClassShare, len(counts)),
	}
	for class, count := range counts {
		share := ClassShare{Count: count}
		if result.Total > 0 {
			share.Percentage = float64(count) / float64(result.Total) * 100
		}
		result.Classes[class] = share
	}
	return result
}

func bump(counts *BucketCounts, bucket string) {
	switch bucket {
	case confidenceresolver.StrengthVeryHigh:
		counts.VeryHigh++
	case confidenceresolver.StrengthHigh:
		counts.High++
	case confidenceresolver.StrengthModerate:
		counts.Moderate++
	default:
		counts.Low++
	}
}
