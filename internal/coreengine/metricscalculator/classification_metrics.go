package metricscalculator

import (
	"robot-human-classifier/backend/internal/coreengine/confidenceresolver"
)

// ClassOrder is the fixed label order used for confusion matrix rows and
// columns: index 0 is human, index 1 is robot.
var ClassOrder = [2]string{confidenceresolver.ClassHuman, confidenceresolver.ClassRobot}

// SamplePrediction is one scored sample of an evaluation run, retained for
// audit alongside the aggregate metrics.
type SamplePrediction struct {
	Filename       string  `json:"filename"`
	TrueClass      string  `json:"true_class"`
	PredictedClass string  `json:"predicted_class"`
	Confidence     float64 `json:"confidence"`
	ProbHuman      float64 `json:"prob_human"`
	ProbRobot      float64 `json:"prob_robot"`
}

// ClassMetrics holds the per-class quality numbers of one evaluation run.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

func classIndex(label string) int {
	for i, class := range ClassOrder {
		if class == label {
			return i
		}
	}
	return -1
}

// ConfusionMatrix counts samples into a 2x2 matrix: rows are true labels,
// columns are predicted labels, both in ClassOrder. Samples with a label
// outside the fixed set are ignored; upstream resolution can only produce
// labels from the fixed set.
func ConfusionMatrix(samples []SamplePrediction) [2][2]int {
	var matrix [2][2]int
	for _, sample := range samples {
		row := classIndex(sample.TrueClass)
		col := classIndex(sample.PredictedClass)
		if row < 0 || col < 0 {
			continue
		}
		matrix[row][col]++
	}
	return matrix
}

// Accuracy is the matrix trace over the total sample count, 0 for an
// empty matrix.
func Accuracy(matrix [2][2]int) float64 {
	total := 0
	correct := 0
	for i := range matrix {
		for j := range matrix[i] {
			total += matrix[i][j]
			if i == j {
				correct += matrix[i][j]
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// PerClassMetrics computes precision, recall, F1 and support for each
// class. Any zero denominator yields 0 for that metric rather than an
// undefined value, including the F1 of a class with zero precision and
// zero recall.
func PerClassMetrics(matrix [2][2]int) map[string]ClassMetrics {
	metrics := make(map[string]ClassMetrics, len(ClassOrder))
	for i, class := range ClassOrder {
		truePositive := matrix[i][i]
		falsePositive := 0
		falseNegative := 0
		for j := range ClassOrder {
			if j == i {
				continue
			}
			falsePositive += matrix[j][i]
			falseNegative += matrix[i][j]
		}

		precision := safeRatio(truePositive, truePositive+falsePositive)
		recall := safeRatio(truePositive, truePositive+falseNegative)
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		metrics[class] = ClassMetrics{
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   truePositive + falseNegative,
		}
	}
	return metrics
}

// AverageProbabilities returns, per true class, the arithmetic mean of the
// (p_human, p_robot) pairs over all samples with that true class. A class
// with zero samples reports 0 for both entries.
func AverageProbabilities(samples []SamplePrediction) map[string][2]float64 {
	sums := map[string][2]float64{}
	counts := map[string]int{}
	for _, sample := range samples {
		sum := sums[sample.TrueClass]
		sum[0] += sample.ProbHuman
		sum[1] += sample.ProbRobot
		sums[sample.TrueClass] = sum
		counts[sample.TrueClass]++
	}

	averages := make(map[string][2]float64, len(ClassOrder))
	for _, class := range ClassOrder {
		if counts[class] == 0 {
			averages[class] = [2]float64{0, 0}
			continue
		}
		sum := sums[class]
		n := float64(counts[class])
		averages[class] = [2]float64{sum[0] / n, sum[1] / n}
	}
	return averages
}

func safeRatio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
