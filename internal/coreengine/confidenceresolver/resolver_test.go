package confidenceresolver

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		name           string
		rawScore       float64
		wantClass      string
		wantConfidence float64
	}{
		{"clear robot", 0.9, ClassRobot, 0.9},
		{"clear human", 0.1, ClassHuman, 0.9},
		{"tie resolves to human", 0.5, ClassHuman, 0.5},
		{"just above tie", 0.5001, ClassRobot, 0.5001},
		{"just below tie", 0.4999, ClassHuman, 0.5001},
		{"certain robot", 1.0, ClassRobot, 1.0},
		{"certain human", 0.0, ClassHuman, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class, confidence := Resolve(tc.rawScore)
			if class != tc.wantClass {
				t.Errorf("Resolve(%v) class = %q, want %q", tc.rawScore, class, tc.wantClass)
			}
			if diff := confidence - tc.wantConfidence; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Resolve(%v) confidence = %v, want %v", tc.rawScore, confidence, tc.wantConfidence)
			}
		})
	}
}

func TestResolveConfidenceNeverBelowHalf(t *testing.T) {
	// Sweep the raw score range; the winning label must always carry at
	// least half the probability mass.
	for i := 0; i <= 1000; i++ {
		raw := float64(i) / 1000
		_, confidence := Resolve(raw)
		if confidence < 0.5 {
			t.Fatalf("Resolve(%v) confidence = %v, want >= 0.5", raw, confidence)
		}
	}
}

func TestProbabilities(t *testing.T) {
	pHuman, pRobot := Probabilities(0.3)
	if pRobot != 0.3 {
		t.Errorf("p_robot = %v, want 0.3", pRobot)
	}
	if diff := pHuman - 0.7; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("p_human = %v, want 0.7", pHuman)
	}
}

func TestStrengthBuckets(t *testing.T) {
	cases := []struct {
		confidence float64
		want       string
	}{
		{1.0, StrengthVeryHigh},
		{0.90, StrengthVeryHigh}, // lower edge inclusive
		{0.89, StrengthHigh},
		{0.75, StrengthHigh},
		{0.74, StrengthModerate},
		{0.60, StrengthModerate},
		{0.59, StrengthLow},
		{0.0, StrengthLow},
	}
	for _, tc := range cases {
		if got := Strength(tc.confidence); got != tc.want {
			t.Errorf("Strength(%v) = %q, want %q", tc.confidence, got, tc.want)
		}
	}
}

func TestIsValidClass(t *testing.T) {
	if !IsValidClass(ClassHuman) || !IsValidClass(ClassRobot) {
		t.Error("fixed labels must be valid")
	}
	if IsValidClass("android") {
		t.Error("unknown label must not be valid")
	}
}
