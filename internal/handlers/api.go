package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/yishak-cs/FlavorAI/internal/ingest"
	"github.com/yishak-cs/FlavorAI/internal/models"
	"github.com/yishak-cs/FlavorAI/internal/services"
)

// TasteAPI is the service surface the handlers call
type TasteAPI interface {
	ProcessTakeout(ctx context.Context, userID string, archive io.ReaderAt, size int64) (services.ProcessResult, error)
	Onboard(ctx context.Context, userID string, answers models.OnboardingAnswers) (models.TasteProfile, error)
	GetProfile(ctx context.Context, userID string) (models.TasteProfile, error)
	SubmitFeedback(ctx context.Context, userID string, fb models.Feedback) (services.FeedbackResult, error)
	Recommend(ctx context.Context, userID string, req services.RecommendRequest) ([]models.Recommendation, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// APIHandler handles all API requests
type APIHandler struct {
	tasteService    TasteAPI
	health          HealthChecker
	maxArchiveBytes int64
}

// NewAPIHandler creates a new API handler. health may be nil.
func NewAPIHandler(tasteService TasteAPI, health HealthChecker, maxArchiveBytes int64) *APIHandler {
	return &APIHandler{
		tasteService:    tasteService,
		health:          health,
		maxArchiveBytes: maxArchiveBytes,
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/takeout/:userId", h.UploadTakeout)
		api.POST("/onboarding/:userId", h.Onboarding)
		api.GET("/userprofile/:userId", h.GetUserProfile)
		api.POST("/recommendations/:userId", h.GetRecommendations)
		api.POST("/feedback/:userId", h.SubmitFeedback)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Health reports service and database status
func (h *APIHandler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Health(c.Request.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// multipartOverhead is the room left in the request body for multipart
// boundaries and part headers on top of the archive itself
const multipartOverhead = 64 << 10

// UploadTakeout handles a Takeout archive upload in the multipart field "archive"
func (h *APIHandler) UploadTakeout(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	if h.maxArchiveBytes > 0 {
		limit := h.maxArchiveBytes + multipartOverhead
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Archive too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	header, err := c.FormFile("archive")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Archive too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing archive file"})
		return
	}
	if h.maxArchiveBytes > 0 && header.Size > h.maxArchiveBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Archive too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable archive"})
		return
	}
	defer file.Close()

	result, err := h.tasteService.ProcessTakeout(c.Request.Context(), userID, file, header.Size)
	if err != nil {
		h.writeError(c, err, "Failed to process archive")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Onboarding handles explicit sign-up preferences
func (h *APIHandler) Onboarding(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var answers models.OnboardingAnswers
	if err := c.ShouldBindJSON(&answers); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	profile, err := h.tasteService.Onboard(c.Request.Context(), userID, answers)
	if err != nil {
		h.writeError(c, err, "Failed to save onboarding answers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Onboarding data saved.",
		"profile": profile,
	})
}

// GetUserProfile returns the stored taste profile
func (h *APIHandler) GetUserProfile(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	profile, err := h.tasteService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "Failed to get profile")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetRecommendations ranks nearby restaurants for the user
func (h *APIHandler) GetRecommendations(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req services.RecommendRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	recommendations, err := h.tasteService.Recommend(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err, "Failed to get recommendations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":         userID,
		"recommendations": recommendations,
	})
}

// SubmitFeedback records a rating and adjusts the profile
func (h *APIHandler) SubmitFeedback(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var fb models.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.tasteService.SubmitFeedback(c.Request.Context(), userID, fb)
	if err != nil {
		h.writeError(c, err, "Failed to record feedback")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Feedback recorded for " + fb.RestaurantName + ".",
		"adjusted_axes": result.Adjusted,
		"profile":       result.Profile,
	})
}

func userIDParam(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return "", false
	}
	return userID, true
}

// writeError maps service errors onto HTTP status codes
func (h *APIHandler) writeError(c *gin.Context, err error, message string) {
	var cfgErr *models.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": cfgErr.Error(),
			"kind":  "configuration",
			"field": cfgErr.Field,
		})
	case errors.Is(err, ingest.ErrInvalidArchive):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No profile for user " + c.Param("userId")})
	case errors.Is(err, context.Canceled):
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("Request cancelled")
		c.JSON(499, gin.H{"error": "Request cancelled"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
