package main

import (
	"log"
	"os"

	"robot-human-classifier/backend/internal/apigateway"
	"robot-human-classifier/backend/internal/auth"
	"robot-human-classifier/backend/internal/coreengine/classifieradapters"
	"robot-human-classifier/backend/internal/coreengine/evaluationengine"
	"robot-human-classifier/backend/internal/coreengine/preprocessing"
	"robot-human-classifier/backend/internal/datastore"
	"robot-human-classifier/backend/internal/objectstore"
	"robot-human-classifier/backend/internal/predictionmanagement"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	dbPath := envOr("CLASSIFIER_DB_PATH", "database/predictions.db")
	modelPath := envOr("MODEL_PATH", "models/model.onnx")
	metadataPath := envOr("MODEL_METADATA_PATH", "models/model_metadata.json")
	backend := os.Getenv("CLASSIFIER_BACKEND")
	uploadDir := envOr("UPLOAD_DIR", "uploads")
	port := envOr("PORT", "8080")

	store, err := datastore.NewPredictionStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open prediction store: %v", err)
	}
	defer store.Close()

	classifier, err := classifieradapters.NewClassifier(backend, modelPath, metadataPath)
	if err != nil {
		log.Fatalf("Failed to initialize classifier: %v", err)
	}
	defer classifier.Close()

	preprocessor := preprocessing.NewImagePreprocessor(preprocessing.DefaultTargetSize)

	uploads, err := objectstore.NewLocalUploadStore(uploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize upload store: %v", err)
	}

	// The MinIO archive is optional: without MINIO_* configuration the
	// service runs on local storage alone.
	var archive objectstore.UploadStore
	if os.Getenv("MINIO_ENDPOINT") != "" {
		minioStore, err := objectstore.NewMinioUploadStoreFromEnv()
		if err != nil {
			log.Fatalf("Failed to initialize MinIO archive: %v", err)
		}
		archive = minioStore
	} else {
		log.Println("MINIO_ENDPOINT not set; uploads are kept on local disk only.")
	}

	service := predictionmanagement.NewPredictionService(store, preprocessor, classifier, uploads, archive)
	engine := evaluationengine.NewEngine(preprocessor, classifier)
	handler := predictionmanagement.NewHandler(service, store, engine, uploads)
	authService := auth.NewServiceFromEnv()

	router := apigateway.SetupRouter(handler, authService)

	log.Printf("Starting server on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
