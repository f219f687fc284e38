package http

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nicklaros/stockengine/pkg/errors"
	"github.com/nicklaros/stockengine/pkg/utils"
)

// errorResponse is the standardized error envelope for every failed request.
type errorResponse struct {
	Error     errorInfo `json:"error"`
	RequestID string    `json:"request_id"`
}

type errorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) requestTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		fields := map[string]interface{}{
			"request_id":  requestID,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": status,
			"duration_ms": duration.Milliseconds(),
		}

		switch {
		case status >= 500:
			s.logger.WithFields(fields).Error("request completed")
		case status >= 400:
			s.logger.WithFields(fields).Warn("request completed")
		default:
			s.logger.WithFields(fields).Info("request completed")
		}
	}
}

func (s *Server) errorRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := make([]byte, 4096)
				length := runtime.Stack(stack, false)
				s.logger.WithFields(map[string]interface{}{
					"panic":       r,
					"stack_trace": string(stack[:length]),
					"request_id":  s.requestID(c),
				}).Error("panic recovered")

				s.respondError(c, errors.NewInternalError("internal server error", fmt.Errorf("%v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}

func (s *Server) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

func (s *Server) requestID(c *gin.Context) string {
	if id, ok := c.Get("request_id"); ok {
		if str, ok := id.(string); ok {
			return str
		}
	}
	return ""
}

// respondError maps an engine/query error to its REST status (§7) and
// shapes it as the standard error envelope.
func (s *Server) respondError(c *gin.Context, err error) {
	if appErr, ok := errors.IsAppError(err); ok {
		c.JSON(appErr.Code, errorResponse{
			Error:     errorInfo{Type: string(appErr.Type), Message: appErr.Message},
			RequestID: s.requestID(c),
		})
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"request_id": s.requestID(c),
		"error":      err.Error(),
	}).Error("unhandled error")

	c.JSON(http.StatusInternalServerError, errorResponse{
		Error:     errorInfo{Type: string(errors.ErrorTypeInternal), Message: "internal server error"},
		RequestID: s.requestID(c),
	})
}

// respondData shapes a single-item {data} response.
func (s *Server) respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

// respondList shapes a paginated {data, meta} response and sets the
// pagination headers the REST contract (§4.4) requires.
func (s *Server) respondList(c *gin.Context, data interface{}, page utils.PaginationInfo) {
	c.Header("X-Total-Count", fmt.Sprintf("%d", page.TotalCount))
	c.Header("X-Page", fmt.Sprintf("%d", page.Page))
	c.Header("X-Per-Page", fmt.Sprintf("%d", page.PerPage))
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{
			"total_count": page.TotalCount,
			"page":        page.Page,
			"per_page":    page.PerPage,
			"total_pages": page.TotalPages,
		},
	})
}
