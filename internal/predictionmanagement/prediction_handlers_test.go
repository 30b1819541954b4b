package predictionmanagement

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"robot-human-classifier/backend/internal/coreengine/classifieradapters"
	"robot-human-classifier/backend/internal/coreengine/evaluationengine"
	"robot-human-classifier/backend/internal/coreengine/preprocessing"
	"robot-human-classifier/backend/internal/datastore"
	"robot-human-classifier/backend/internal/objectstore"

	"github.com/gin-gonic/gin"
)

func newTestHandler(t *testing.T, score float64) (*gin.Engine, *datastore.PredictionStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := datastore.NewPredictionStore(filepath.Join(t.TempDir(), "predictions.db"))
	if err != nil {
		t.Fatalf("NewPredictionStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	uploads, err := objectstore.NewLocalUploadStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalUploadStore: %v", err)
	}

	preprocessor := preprocessing.NewImagePreprocessor(8)
	classifier := classifieradapters.NewFixedScoreClassifier(score)
	service := NewPredictionService(store, preprocessor, classifier, uploads, nil)
	engine := evaluationengine.NewEngine(preprocessor, classifier)
	handler := NewHandler(service, store, engine, uploads)

	router := gin.New()
	router.GET("/health", handler.HealthHandler)
	router.POST("/predict", handler.PredictHandler)
	router.GET("/history", handler.HistoryHandler)
	router.GET("/statistics", handler.StatisticsHandler)
	router.DELETE("/prediction/:id", handler.DeletePredictionHandler)
	router.GET("/uploads/:filename", handler.ServeUploadHandler)
	router.GET("/analytics/confidence-distribution", handler.ConfidenceDistributionHandler)
	router.GET("/analytics/class-distribution", handler.ClassDistributionHandler)
	router.POST("/analytics/evaluate", handler.EvaluateHandler)
	return router, store
}

func multipartUpload(t *testing.T, field, filename string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestHandler(t, 0.5)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["database_connected"] != true {
		t.Errorf("database_connected = %v, want true", body["database_connected"])
	}
}

func TestPredictEndpointRoundTrip(t *testing.T) {
	router, store := newTestHandler(t, 0.83)

	body, contentType := multipartUpload(t, "file", "probe.png", encodeTestPNG(t))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var result PredictResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.PredictedClass != "robot" {
		t.Errorf("PredictedClass = %q, want robot", result.PredictedClass)
	}

	// The stored upload is retrievable through the uploads endpoint.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+result.Filename, nil))
	if w.Code != http.StatusOK {
		t.Errorf("uploads status = %d, want %d", w.Code, http.StatusOK)
	}

	records, err := store.Query(datastore.QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("stored %d records, want 1", len(records))
	}
}

func TestPredictEndpointRejectsMissingFile(t *testing.T) {
	router, _ := newTestHandler(t, 0.5)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPredictEndpointRejectsCorruptImage(t *testing.T) {
	router, _ := newTestHandler(t, 0.5)

	body, contentType := multipartUpload(t, "file", "broken.png", []byte("not an image"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHistoryEndpointFilters(t *testing.T) {
	router, store := newTestHandler(t, 0.5)

	seed := []struct {
		class      string
		confidence float64
	}{
		{"human", 0.95},
		{"robot", 0.7},
		{"human", 0.55},
	}
	for i, s := range seed {
		if _, err := store.Insert("seed.png", s.class, s.confidence); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history?class=human&min_confidence=0.6", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Count       int                          `json:"count"`
		Predictions []datastore.PredictionRecord `json:"predictions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 1 {
		t.Fatalf("count = %d, want 1", body.Count)
	}
	if body.Predictions[0].Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", body.Predictions[0].Confidence)
	}

	// A bad limit is rejected before touching the store.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history?limit=zero", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeletePredictionEndpoint(t *testing.T) {
	router, store := newTestHandler(t, 0.5)

	id, err := store.Insert("seed.png", "human", 0.9)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/prediction/"+formatID(id), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// Deleting the same record again is a 404.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/prediction/"+formatID(id), nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/prediction/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestServeUploadRejectsPathTraversal(t *testing.T) {
	router, _ := newTestHandler(t, 0.5)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/uploads/..%2Fsecret.db", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want rejection", w.Code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	router, store := newTestHandler(t, 0.5)

	for _, item := range []datastore.BatchItem{
		{Filename: "a.png", PredictedClass: "human", Confidence: 0.95},
		{Filename: "b.png", PredictedClass: "robot", Confidence: 0.65},
	} {
		if _, err := store.Insert(item.Filename, item.PredictedClass, item.Confidence); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analytics/confidence-distribution", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("confidence-distribution status = %d", w.Code)
	}
	var conf struct {
		Total        int `json:"total"`
		Distribution struct {
			VeryHigh int `json:"very_high"`
			Moderate int `json:"moderate"`
		} `json:"distribution"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &conf); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if conf.Total != 2 || conf.Distribution.VeryHigh != 1 || conf.Distribution.Moderate != 1 {
		t.Errorf("unexpected distribution: %+v", conf)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analytics/class-distribution", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("class-distribution status = %d", w.Code)
	}
	var classes struct {
		Total   int `json:"total"`
		Classes map[string]struct {
			Count      int     `json:"count"`
			Percentage float64 `json:"percentage"`
		} `json:"classes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &classes); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if classes.Classes["human"].Percentage != 50 {
		t.Errorf("human percentage = %v, want 50", classes.Classes["human"].Percentage)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	router, _ := newTestHandler(t, 0.2) // every image scores human

	corpus := t.TempDir()
	payload := encodeTestPNG(t)
	for _, class := range []string{"human", "robot"} {
		dir := filepath.Join(corpus, class)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "sample.png"), payload, 0o644); err != nil {
			t.Fatalf("write sample: %v", err)
		}
	}

	reqBody, _ := json.Marshal(EvaluateRequest{TestDir: corpus})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analytics/evaluate", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var result evaluationengine.EvaluationResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.TotalSamples != 2 {
		t.Errorf("TotalSamples = %d, want 2", result.TotalSamples)
	}
	if result.Accuracy != 0.5 {
		t.Errorf("Accuracy = %v, want 0.5", result.Accuracy)
	}

	// A missing corpus directory is a 404.
	reqBody, _ = json.Marshal(EvaluateRequest{TestDir: filepath.Join(corpus, "missing")})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/analytics/evaluate", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing corpus status = %d, want %d", w.Code, http.StatusNotFound)
	}

	// A corpus with no valid images is a 400.
	empty := t.TempDir()
	if err := os.MkdirAll(filepath.Join(empty, "human"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	reqBody, _ = json.Marshal(EvaluateRequest{TestDir: empty})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/analytics/evaluate", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty corpus status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
