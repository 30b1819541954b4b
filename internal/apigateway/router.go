package apigateway

import (
	"robot-human-classifier/backend/internal/auth"
	"robot-human-classifier/backend/internal/predictionmanagement"

	"github.com/gin-gonic/gin"
)

// SetupRouter initializes the main Gin router. Public routes cover
// prediction, history and analytics; destructive bulk operations sit
// behind the admin session middleware.
func SetupRouter(h *predictionmanagement.Handler, authService *auth.Service) *gin.Engine {
	router := gin.Default()

	router.GET("/health", h.HealthHandler)

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", authService.LoginHandler)
		authRoutes.POST("/logout", authService.LogoutHandler)
	}

	router.POST("/predict", h.PredictHandler)
	router.POST("/predict/batch", h.PredictBatchHandler)

	router.GET("/history", h.HistoryHandler)
	router.GET("/statistics", h.StatisticsHandler)
	router.DELETE("/prediction/:id", h.DeletePredictionHandler)
	router.GET("/uploads/:filename", h.ServeUploadHandler)

	analyticsRoutes := router.Group("/analytics")
	{
		analyticsRoutes.GET("/confidence-distribution", h.ConfidenceDistributionHandler)
		analyticsRoutes.GET("/class-distribution", h.ClassDistributionHandler)
		analyticsRoutes.POST("/evaluate", h.EvaluateHandler)
	}

	adminRoutes := router.Group("/admin")
	adminRoutes.Use(authService.Middleware())
	{
		adminRoutes.DELETE("/predictions", h.ClearPredictionsHandler)
	}

	return router
}
