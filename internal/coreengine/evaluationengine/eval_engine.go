package evaluationengine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"robot-human-classifier/backend/internal/coreengine/confidenceresolver"
	"robot-human-classifier/backend/internal/coreengine/metricscalculator"
)

// ErrEmptyCorpus is returned when the corpus yields zero valid samples
// after all skips. An evaluation with at least one valid sample always
// produces a result.
var ErrEmptyCorpus = errors.New("no valid images found in test corpus")

// Preprocessor is the slice of the preprocessing adapter the engine needs.
type Preprocessor interface {
	ValidateFormat(path string) bool
	Preprocess(path string) ([]float32, error)
}

// Classifier scores a preprocessed tensor as P(robot) in [0,1].
type Classifier interface {
	Score(input []float32) (float64, error)
}

// SkippedSample records an image that could not be evaluated. Skips are
// reported, never silently dropped.
type SkippedSample struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// EvaluationResult is the transient outcome of one evaluation run over a
// labeled corpus. It owns no identity, is never persisted and is never
// merged with another run.
type EvaluationResult struct {
	Accuracy         float64                                   `json:"accuracy"`
	TotalSamples     int                                       `json:"total_samples"`
	SamplesPerClass  map[string]int                            `json:"samples_per_class"`
	ClassOrder       [2]string                                 `json:"class_order"`
	ConfusionMatrix  [2][2]int                                 `json:"confusion_matrix"`
	Metrics          map[string]metricscalculator.ClassMetrics `json:"metrics"`
	AvgProbabilities map[string][2]float64                     `json:"average_probabilities"`
	Samples          []metricscalculator.SamplePrediction      `json:"samples"`
	Skipped          []SkippedSample                           `json:"skipped"`
}

// Engine runs the classifier over a labeled corpus directory. It only
// reads: results are returned to the caller and never written to the
// prediction store.
type Engine struct {
	preprocessor Preprocessor
	classifier   Classifier
}

// NewEngine builds an engine around the injected adapters.
func NewEngine(preprocessor Preprocessor, classifier Classifier) *Engine {
	return &Engine{preprocessor: preprocessor, classifier: classifier}
}

// EvaluateDirectory expects testDir to contain a human/ and a robot/
// subdirectory of images. A missing subdirectory contributes zero samples
// for that class; only a corpus with zero valid samples overall is an
// error. Samples are processed class directory by class directory, human
// first; order within a directory follows the filesystem listing. The
// context is checked between samples so a long corpus can be abandoned.
func (e *Engine) EvaluateDirectory(ctx context.Context, testDir string) (*EvaluationResult, error) {
	var samples []metricscalculator.SamplePrediction
	skipped := []SkippedSample{}

	for _, class := range metricscalculator.ClassOrder {
		classDir := filepath.Join(testDir, class)
		entries, err := os.ReadDir(classDir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Printf("Evaluation: class directory %s missing, treating as zero samples", classDir)
				continue
			}
			return nil, fmt.Errorf("failed to read class directory %s: %w", classDir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			path := filepath.Join(classDir, entry.Name())
			sample, err := e.evaluateSample(path, class)
			if err != nil {
				log.Printf("Evaluation: skipping %s: %v", path, err)
				skipped = append(skipped, SkippedSample{Path: path, Reason: err.Error()})
				continue
			}
			samples = append(samples, *sample)
		}
	}

	if len(samples) == 0 {
		return nil, ErrEmptyCorpus
	}

	perClass := make(map[string]int, len(metricscalculator.ClassOrder))
	for _, class := range metricscalculator.ClassOrder {
		perClass[class] = 0
	}
	for _, sample := range samples {
		perClass[sample.TrueClass]++
	}

	matrix := metricscalculator.ConfusionMatrix(samples)
	return &EvaluationResult{
		Accuracy:         metricscalculator.Accuracy(matrix),
		TotalSamples:     len(samples),
		SamplesPerClass:  perClass,
		ClassOrder:       metricscalculator.ClassOrder,
		ConfusionMatrix:  matrix,
		Metrics:          metricscalculator.PerClassMetrics(matrix),
		AvgProbabilities: metricscalculator.AverageProbabilities(samples),
		Samples:          samples,
		Skipped:          skipped,
	}, nil
}

func (e *Engine) evaluateSample(path, trueClass string) (*metricscalculator.SamplePrediction, error) {
	if !e.preprocessor.ValidateFormat(path) {
		return nil, fmt.Errorf("invalid image format")
	}

	input, err := e.preprocessor.Preprocess(path)
	if err != nil {
		return nil, fmt.Errorf("preprocess failed: %w", err)
	}

	rawScore, err := e.classifier.Score(input)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	label, confidence := confidenceresolver.Resolve(rawScore)
	pHuman, pRobot := confidenceresolver.Probabilities(rawScore)

	return &metricscalculator.SamplePrediction{
		Filename:       filepath.Base(path),
		TrueClass:      trueClass,
		PredictedClass: label,
		Confidence:     confidence,
		ProbHuman:      pHuman,
		ProbRobot:      pRobot,
	}, nil
}
