package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/commentpulse/internal/analysis"
	"github.com/ppiankov/commentpulse/internal/model"
	"github.com/ppiankov/commentpulse/internal/pipeline"
)

const backendCheckTimeout = 10 * time.Second

// AnalyzeRequest is the body of POST /api/v1/analyze. Either Comments or
// Texts must be non-empty; Comments wins when both are set.
type AnalyzeRequest struct {
	VideoID        string             `json:"videoId"`
	Comments       []model.RawComment `json:"comments"`
	Texts          []string           `json:"texts"`
	AnalysisPrompt string             `json:"analysisPrompt"`
	AnalysisMethod string             `json:"analysisMethod"`
	Refresh        bool               `json:"refresh"`
}

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	// Uptime is in seconds.
	Uptime float64 `json:"uptime"`
}

// analyze handles POST /api/v1/analyze.
func (s *Server) analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	method, err := model.ParseMethod(req.AnalysisMethod)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid analysis method",
			Details: err.Error(),
		})
		return
	}

	comments := req.Comments
	if len(comments) == 0 {
		comments = model.CommentsFromTexts(req.Texts)
	}

	a, err := s.analyzer.AnalyzeComments(c.Request.Context(), pipeline.Request{
		VideoID:  req.VideoID,
		Comments: comments,
		Prompt:   req.AnalysisPrompt,
		Method:   method,
		Refresh:  req.Refresh,
	})
	switch {
	case errors.Is(err, analysis.ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "No comments to analyze",
			Details: "Provide a non-empty comments or texts list.",
		})
	case errors.Is(err, pipeline.ErrUnknownMethod):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid analysis method",
			Details: err.Error(),
		})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to analyze comments",
			Details: err.Error(),
		})
	default:
		c.JSON(http.StatusOK, a)
	}
}

// getAnalysis handles GET /api/v1/analyses/:videoId.
func (s *Server) getAnalysis(c *gin.Context) {
	a, ok := s.analyzer.Lookup(c.Param("videoId"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Analysis not found",
			Details: "Run the analysis for this video first.",
		})
		return
	}
	c.JSON(http.StatusOK, a)
}

// deleteAnalysis handles DELETE /api/v1/analyses/:videoId.
func (s *Server) deleteAnalysis(c *gin.Context) {
	if err := s.analyzer.Forget(c.Param("videoId")); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to delete analysis",
			Details: err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// health handles GET /health.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Seconds(),
	})
}

// backendHealth handles GET /health/backend. It calls the generative API,
// so unlike /health it is not meant for frequent polling.
func (s *Server) backendHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), backendCheckTimeout)
	defer cancel()

	status := s.analyzer.BackendStatus(ctx)
	code := http.StatusOK
	if status.Status == pipeline.BackendUnavailable {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// headHealth handles HEAD /health for load balancers.
func (s *Server) headHealth(c *gin.Context) {
	c.Status(http.StatusOK)
}
