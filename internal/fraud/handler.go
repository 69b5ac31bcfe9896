package fraud

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kundrost/feedback-fraud/pkg/common"
)

// EngineService is the engine surface the HTTP handler depends on
type EngineService interface {
	AnalyzeSession(ctx context.Context, session *SessionData) (*FraudAnalysisResult, error)
	Stats(ctx context.Context) (*Stats, error)
	CleanupHistory(ctx context.Context) (int, error)
}

// Handler handles HTTP requests for fraud analysis
type Handler struct {
	engine EngineService
	repo   ResultRepository
}

// NewHandler creates a new fraud handler. repo may be nil when verdict
// persistence is disabled.
func NewHandler(engine EngineService, repo ResultRepository) *Handler {
	return &Handler{engine: engine, repo: repo}
}

// RegisterRoutes mounts the fraud endpoints on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	fraud := rg.Group("/fraud")
	{
		fraud.POST("/analyze", h.AnalyzeSession)
		fraud.GET("/stats", h.GetStats)
		fraud.POST("/cleanup", h.Cleanup)
		fraud.GET("/results/:session_id", h.GetResult)
		fraud.GET("/review", h.ListPendingReview)
	}
}

// AnalyzeSession runs fraud analysis over one feedback session
func (h *Handler) AnalyzeSession(c *gin.Context) {
	var session SessionData
	if err := c.ShouldBindJSON(&session); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.AnalyzeSession(c.Request.Context(), &session)
	if err != nil {
		if errors.Is(err, ErrInvalidSession) {
			common.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to analyze session")
		return
	}

	common.SuccessResponse(c, result)
}

// GetStats returns history sizes and the active configuration
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to read stats")
		return
	}
	common.SuccessResponse(c, stats)
}

// Cleanup removes history older than the retention window
func (h *Handler) Cleanup(c *gin.Context) {
	removed, err := h.engine.CleanupHistory(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to clean up history")
		return
	}
	common.SuccessResponse(c, gin.H{"removed": removed})
}

// GetResult returns the stored verdict for a session
func (h *Handler) GetResult(c *gin.Context) {
	if h.repo == nil {
		common.ErrorResponse(c, http.StatusNotFound, "verdict persistence is disabled")
		return
	}

	sessionID := c.Param("session_id")
	result, err := h.repo.GetResultBySession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrResultNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "no verdict for session")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to read verdict")
		return
	}

	common.SuccessResponse(c, result)
}

// ListPendingReview returns verdicts awaiting manual review
func (h *Handler) ListPendingReview(c *gin.Context) {
	if h.repo == nil {
		common.ErrorResponse(c, http.StatusNotFound, "verdict persistence is disabled")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	results, err := h.repo.ListPendingReview(c.Request.Context(), limit, offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list pending reviews")
		return
	}

	common.SuccessResponse(c, gin.H{
		"results": results,
		"limit":   limit,
		"offset":  offset,
	})
}
