package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/commentpulse/internal/worker"
)

// loggerMiddleware logs one line per request.
func loggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
			logger.Error("[Server] HTTP request with errors", attrs...)
			return
		}

		// Health checks are noisy.
		if strings.HasPrefix(path, "/health") {
			logger.Debug("[Server] HTTP request", attrs...)
			return
		}
		logger.Info("[Server] HTTP request", attrs...)
	}
}

// recoveryMiddleware turns a handler panic into a 500 error envelope.
func recoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("[Server] Panic recovered",
			slog.String("path", c.Request.URL.Path),
			slog.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Details: "An unexpected error occurred while processing your request",
		})
	})
}

// rateLimitMiddleware rejects clients that exceed their per-IP budget.
func rateLimitMiddleware(limiter *worker.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		logger.Warn("[Server] Rate limit exceeded",
			slog.String("client_ip", c.ClientIP()),
			slog.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "Too many requests",
			Details: "Slow down and retry shortly.",
		})
	}
}
