package predictionmanagement

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"robot-human-classifier/backend/internal/analytics"
	"robot-human-classifier/backend/internal/coreengine/evaluationengine"
	"robot-human-classifier/backend/internal/datastore"
	"robot-human-classifier/backend/internal/objectstore"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps a single uploaded image.
const maxUploadBytes = 16 << 20

// defaultHistoryLimit is applied when the history request carries no limit.
const defaultHistoryLimit = 50

// Handler exposes the prediction, history, analytics and evaluation
// endpoints over gin. All dependencies are injected at construction.
type Handler struct {
	service *PredictionService
	store   *datastore.PredictionStore
	engine  *evaluationengine.Engine
	uploads *objectstore.LocalUploadStore
}

// NewHandler wires the handler to its collaborators.
func NewHandler(
	service *PredictionService,
	store *datastore.PredictionStore,
	engine *evaluationengine.Engine,
	uploads *objectstore.LocalUploadStore,
) *Handler {
	return &Handler{service: service, store: store, engine: engine, uploads: uploads}
}

// HealthHandler reports service liveness plus whether the classifier and
// the database answered.
func (h *Handler) HealthHandler(c *gin.Context) {
	_, dbErr := h.store.Statistics()
	c.JSON(http.StatusOK, gin.H{
		"status":             "healthy",
		"predictor_loaded":   h.service != nil,
		"database_connected": dbErr == nil,
	})
}

// PredictHandler accepts a multipart image upload under the "file" field,
// classifies it and returns the stored prediction.
func (h *Handler) PredictHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided in 'file' field"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the 16MB upload limit"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file: " + err.Error()})
		return
	}
	defer src.Close()

	result, err := h.service.PredictUpload(fileHeader.Filename, src, fileHeader.Size)
	if err != nil {
		h.writePredictError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BatchPredictRequest names the directory of images to classify.
type BatchPredictRequest struct {
	Directory string `json:"directory" binding:"required"`
}

// PredictBatchHandler classifies every image in a server-side directory.
// Per-item failures are reported alongside the successes.
func (h *Handler) PredictBatchHandler(c *gin.Context) {
	var req BatchPredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	if _, err := os.Stat(req.Directory); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Directory not found: " + req.Directory})
		return
	}

	batch, err := h.service.PredictDirectory(req.Directory)
	if err != nil {
		var storageErr *datastore.StorageError
		if errors.As(err, &storageErr) {
			// Partial progress is still worth returning.
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Batch aborted by storage failure: " + err.Error(),
				"batch": batch,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Batch prediction failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, batch)
}

// HistoryHandler returns stored predictions, most recent first, filtered
// by the optional query parameters limit, min_confidence, max_confidence,
// class, start and end.
func (h *Handler) HistoryHandler(c *gin.Context) {
	filter := datastore.QueryFilter{Limit: defaultHistoryLimit}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("min_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_confidence must be a number"})
			return
		}
		filter.MinConfidence = &v
	}
	if raw := c.Query("max_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_confidence must be a number"})
			return
		}
		filter.MaxConfidence = &v
	}
	filter.PredictedClass = c.Query("class")
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be an RFC 3339 timestamp"})
			return
		}
		filter.StartTime = &t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be an RFC 3339 timestamp"})
			return
		}
		filter.EndTime = &t
	}

	records, err := h.store.Query(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query predictions: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":       len(records),
		"predictions": records,
	})
}

// StatisticsHandler returns aggregate statistics over the whole store.
func (h *Handler) StatisticsHandler(c *gin.Context) {
	stats, err := h.store.Statistics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute statistics: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DeletePredictionHandler removes one stored prediction by id.
func (h *Handler) DeletePredictionHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prediction ID format"})
		return
	}

	deleted, err := h.store.Delete(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete prediction: " + err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prediction not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Prediction deleted", "id": id})
}

// ClearPredictionsHandler removes every stored prediction. Admin only.
func (h *Handler) ClearPredictionsHandler(c *gin.Context) {
	removed, err := h.store.Clear()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear predictions: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All predictions cleared", "deleted": removed})
}

// ServeUploadHandler serves a stored upload by name. The name must be a
// bare filename; anything resembling a path is rejected.
func (h *Handler) ServeUploadHandler(c *gin.Context) {
	name := c.Param("filename")
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}

	path := h.uploads.Path(name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
		return
	}

	c.File(path)
}

// ConfidenceDistributionHandler recomputes the bucketed confidence view
// from a fresh snapshot of the store.
func (h *Handler) ConfidenceDistributionHandler(c *gin.Context) {
	records, err := h.store.Query(datastore.QueryFilter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query predictions: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeConfidenceDistribution(records))
}

// ClassDistributionHandler recomputes the class-balance view from a fresh
// snapshot of the store.
func (h *Handler) ClassDistributionHandler(c *gin.Context) {
	records, err := h.store.Query(datastore.QueryFilter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query predictions: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, analytics.ComputeClassDistribution(records))
}

// EvaluateRequest names the labeled corpus directory to evaluate.
type EvaluateRequest struct {
	TestDir string `json:"test_dir"`
}

// EvaluateHandler runs the classifier over a labeled corpus with human/
// and robot/ subdirectories and returns the full metric set. Results are
// never persisted.
func (h *Handler) EvaluateHandler(c *gin.Context) {
	req := EvaluateRequest{TestDir: "data/test"}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
			return
		}
		if req.TestDir == "" {
			req.TestDir = "data/test"
		}
	}

	if _, err := os.Stat(req.TestDir); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Test directory not found: " + req.TestDir})
		return
	}

	result, err := h.engine.EvaluateDirectory(c.Request.Context(), req.TestDir)
	if err != nil {
		if errors.Is(err, evaluationengine.ErrEmptyCorpus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Evaluation failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) writePredictError(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidImage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var storageErr *datastore.StorageError
	if errors.As(err, &storageErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store prediction: " + err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed: " + err.Error()})
}
