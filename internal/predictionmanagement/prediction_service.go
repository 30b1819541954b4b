package predictionmanagement

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"robot-human-classifier/backend/internal/coreengine/classifieradapters"
	"robot-human-classifier/backend/internal/coreengine/confidenceresolver"
	"robot-human-classifier/backend/internal/coreengine/preprocessing"
	"robot-human-classifier/backend/internal/datastore"
	"robot-human-classifier/backend/internal/objectstore"
)

// ErrInvalidImage is returned when an upload is not a readable image in a
// supported format. The upload is removed before the error is returned.
var ErrInvalidImage = errors.New("invalid or corrupted image file")

// PredictResult is the outcome of one classification, returned to the
// caller and persisted in the prediction store.
type PredictResult struct {
	RecordID       int64   `json:"id"`
	Filename       string  `json:"filename"`
	PredictedClass string  `json:"predicted_class"`
	Confidence     float64 `json:"confidence"`
	Strength       string  `json:"confidence_strength"`
	ProbHuman      float64 `json:"prob_human"`
	ProbRobot      float64 `json:"prob_robot"`
}

// BatchFailure records one input of a batch that could not be classified.
type BatchFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchResult aggregates per-item outcomes of a batch run. Failures never
// abort the batch; each item succeeds or fails on its own.
type BatchResult struct {
	Results  []PredictResult `json:"results"`
	Failures []BatchFailure  `json:"failures"`
	Total    int             `json:"total"`
	Stored   int             `json:"stored"`
}

// PredictionService wires the upload store, the preprocessing adapter, the
// classifier and the prediction store into the classify-and-persist flow.
// All collaborators are injected at construction.
type PredictionService struct {
	store        *datastore.PredictionStore
	preprocessor *preprocessing.ImagePreprocessor
	classifier   classifieradapters.Classifier
	uploads      *objectstore.LocalUploadStore
	archive      objectstore.UploadStore // optional, may be nil
}

// NewPredictionService builds the service. archive may be nil; when set,
// every successfully classified upload is also copied there.
func NewPredictionService(
	store *datastore.PredictionStore,
	preprocessor *preprocessing.ImagePreprocessor,
	classifier classifieradapters.Classifier,
	uploads *objectstore.LocalUploadStore,
	archive objectstore.UploadStore,
) *PredictionService {
	return &PredictionService{
		store:        store,
		preprocessor: preprocessor,
		classifier:   classifier,
		uploads:      uploads,
		archive:      archive,
	}
}

// PredictUpload saves the uploaded content, classifies it and persists the
// prediction. Invalid or undecodable images return ErrInvalidImage and
// leave nothing behind; storage failures surface as *datastore.StorageError
// with the classification already computed but not recorded.
func (s *PredictionService) PredictUpload(filename string, content io.Reader, size int64) (*PredictResult, error) {
	storedName, err := s.uploads.Save(filename, content, size)
	if err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	result, err := s.classifyStored(storedName)
	if err != nil {
		if removeErr := s.uploads.Remove(storedName); removeErr != nil {
			log.Printf("Failed to remove rejected upload %s: %v", storedName, removeErr)
		}
		return nil, err
	}

	if s.archive != nil {
		s.archiveStored(storedName)
	}
	return result, nil
}

// PredictFile classifies an image already on disk and persists the
// prediction. Used by the batch flow; the file is left in place.
func (s *PredictionService) PredictFile(path string) (*PredictResult, error) {
	label, confidence, probs, err := s.scoreFile(path)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Insert(filepath.Base(path), label, confidence)
	if err != nil {
		return nil, err
	}

	return &PredictResult{
		RecordID:       id,
		Filename:       filepath.Base(path),
		PredictedClass: label,
		Confidence:     confidence,
		Strength:       confidenceresolver.Strength(confidence),
		ProbHuman:      probs[0],
		ProbRobot:      probs[1],
	}, nil
}

// PredictDirectory classifies every regular file in dir. Items that fail
// validation or scoring are collected as failures; the survivors are
// persisted in one batch sharing a timestamp.
func (s *PredictionService) PredictDirectory(dir string) (*BatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch directory %s: %w", dir, err)
	}

	batch := &BatchResult{Results: []PredictResult{}, Failures: []BatchFailure{}}
	var items []datastore.BatchItem
	var pending []PredictResult

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		batch.Total++

		path := filepath.Join(dir, entry.Name())
		label, confidence, probs, err := s.scoreFile(path)
		if err != nil {
			batch.Failures = append(batch.Failures, BatchFailure{Filename: entry.Name(), Reason: err.Error()})
			continue
		}

		items = append(items, datastore.BatchItem{
			Filename:       entry.Name(),
			PredictedClass: label,
			Confidence:     confidence,
		})
		pending = append(pending, PredictResult{
			Filename:       entry.Name(),
			PredictedClass: label,
			Confidence:     confidence,
			Strength:       confidenceresolver.Strength(confidence),
			ProbHuman:      probs[0],
			ProbRobot:      probs[1],
		})
	}

	stored, err := s.store.InsertBatch(items)
	batch.Stored = stored
	batch.Results = append(batch.Results, pending[:stored]...)
	if err != nil {
		return batch, err
	}
	return batch, nil
}

func (s *PredictionService) classifyStored(storedName string) (*PredictResult, error) {
	path := s.uploads.Path(storedName)

	label, confidence, probs, err := s.scoreFile(path)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Insert(storedName, label, confidence)
	if err != nil {
		return nil, err
	}

	return &PredictResult{
		RecordID:       id,
		Filename:       storedName,
		PredictedClass: label,
		Confidence:     confidence,
		Strength:       confidenceresolver.Strength(confidence),
		ProbHuman:      probs[0],
		ProbRobot:      probs[1],
	}, nil
}

// scoreFile runs validation, preprocessing and the classifier on one file.
// Validation and decode failures both map to ErrInvalidImage so callers
// see a single recoverable error for bad inputs.
func (s *PredictionService) scoreFile(path string) (label string, confidence float64, probs [2]float64, err error) {
	if !s.preprocessor.ValidateFormat(path) {
		return "", 0, probs, ErrInvalidImage
	}

	input, err := s.preprocessor.Preprocess(path)
	if err != nil {
		var preprocessErr *preprocessing.PreprocessError
		if errors.As(err, &preprocessErr) {
			return "", 0, probs, fmt.Errorf("%w: %v", ErrInvalidImage, preprocessErr.Err)
		}
		return "", 0, probs, err
	}

	rawScore, err := s.classifier.Score(input)
	if err != nil {
		return "", 0, probs, fmt.Errorf("classification failed: %w", err)
	}

	label, confidence = confidenceresolver.Resolve(rawScore)
	probs[0], probs[1] = confidenceresolver.Probabilities(rawScore)
	return label, confidence, probs, nil
}

// archiveStored copies a stored upload to the configured archive. Archive
// failures are logged and never fail the prediction.
func (s *PredictionService) archiveStored(storedName string) {
	path := s.uploads.Path(storedName)
	f, err := os.Open(path)
	if err != nil {
		log.Printf("Failed to open upload %s for archiving: %v", storedName, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Printf("Failed to stat upload %s for archiving: %v", storedName, err)
		return
	}

	if _, err := s.archive.Save(storedName, f, info.Size()); err != nil {
		log.Printf("Failed to archive upload %s: %v", storedName, err)
	}
}
