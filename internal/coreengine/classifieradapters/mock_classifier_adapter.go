package classifieradapters

import "math"

// MockClassifier is a deterministic stand-in for the real model, used in
// tests and local runs without a model file. The score is derived from a
// checksum of the input tensor, so the same image always scores the same.
type MockClassifier struct {
	fixed *float64
}

// NewMockClassifier returns the checksum-based mock.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// NewFixedScoreClassifier returns a mock that always scores the given
// value, which makes expected outcomes trivial to compute in tests.
func NewFixedScoreClassifier(score float64) *MockClassifier {
	return &MockClassifier{fixed: &score}
}

func (m *MockClassifier) Score(input []float32) (float64, error) {
	if m.fixed != nil {
		return *m.fixed, nil
	}

	var sum float64
	for i, v := range input {
		sum += float64(v) * float64(i%7+1)
	}
	// Fold the checksum into [0,1).
	frac := sum - math.Floor(sum)
	if frac < 0 {
		frac = 0
	}
	return frac, nil
}

func (m *MockClassifier) Close() error { return nil }
