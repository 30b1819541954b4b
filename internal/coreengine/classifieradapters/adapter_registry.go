package classifieradapters

import (
	"fmt"
	"log"
	"strings"
)

// NewClassifier selects a Classifier implementation by backend name.
// "onnx" (the default) loads the exported model; "mock" returns the
// deterministic mock, which keeps local runs working without a model
// file. Unknown backends are an error rather than a silent fallback.
func NewClassifier(backend, modelPath, metadataPath string) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "onnx":
		log.Printf("Selected ONNX classifier (model: %s)", modelPath)
		return NewONNXClassifier(modelPath, metadataPath)
	case "mock":
		log.Println("Selected mock classifier.")
		return NewMockClassifier(), nil
	default:
		return nil, fmt.Errorf("no classifier backend available for %q", backend)
	}
}
