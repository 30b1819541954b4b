package confidenceresolver

// Class labels for the binary classifier. The raw model score is
// interpreted as P(robot), so ClassRobot wins on scores above 0.5.
const (
	ClassHuman = "human"
	ClassRobot = "robot"
)

// Strength bucket names used for display and analytics. They are never
// persisted. Buckets are inclusive on their lower edge.
const (
	StrengthVeryHigh = "very_high" // confidence >= 0.90
	StrengthHigh     = "high"      // 0.75 <= confidence < 0.90
	StrengthModerate = "moderate"  // 0.60 <= confidence < 0.75
	StrengthLow      = "low"       // confidence < 0.60
)

// Resolve maps a raw classifier score in [0,1] to the winning class label
// and the probability mass assigned to that label. The input range is the
// classifier adapter's responsibility and is not re-validated here.
//
// The comparison is strictly greater-than, so a score of exactly 0.5
// resolves to human with confidence 0.5. This matches the comparison the
// model was originally deployed with; it is kept for compatibility rather
// than changed to a symmetric rule.
func Resolve(rawScore float64) (string, float64) {
	if rawScore > 0.5 {
		return ClassRobot, rawScore
	}
	return ClassHuman, 1 - rawScore
}

// Probabilities returns the per-class probability pair (p_human, p_robot)
// implied by a raw score.
func Probabilities(rawScore float64) (float64, float64) {
	return 1 - rawScore, rawScore
}

// Strength returns the qualitative bucket for a confidence value.
func Strength(confidence float64) string {
	switch {
	case confidence >= 0.90:
		return StrengthVeryHigh
	case confidence >= 0.75:
		return StrengthHigh
	case confidence >= 0.60:
		return StrengthModerate
	default:
		return StrengthLow
	}
}

// IsValidClass reports whether label is one of the fixed class labels.
func IsValidClass(label string) bool {
	return label == ClassHuman || label == ClassRobot
}
