package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIdHeader = "X-Request-Id"

// RequestIdMiddleware keeps an incoming request id or assigns a new one and
// echoes it back in the response.
func RequestIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(requestIdHeader)
		if _, err := uuid.Parse(requestId); err != nil {
			requestId = uuid.New().String()
		}
		c.Set("requestId", requestId)
		c.Header(requestIdHeader, requestId)
		c.Next()
	}
}

// ---------------------------

func ZerologLogger(metrics *httpMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ---------------------------
		// Start timer
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		// ---------------------------
		// Process request
		c.Next()
		// ---------------------------
		// Stop timer and gather information
		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()
		bodySize := c.Writer.Size()
		if raw != "" {
			path = path + "?" + raw
		}
		// ---------------------------
		log.Info().Str("requestId", c.GetString("requestId")).
			Dur("latency", latency).
			Str("clientIP", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("statusCode", statusCode).
			Str("errorMessage", errorMessage).
			Int("bodySize", bodySize).
			Msg("HTTPAPI")
		// ---------------------------
		if metrics != nil {
			// The matched route template keeps dataset names out of the labels
			hname := c.FullPath()
			ssCode := strconv.Itoa(statusCode)
			metrics.requestCount.WithLabelValues(ssCode, c.Request.Method, hname).Inc()
			metrics.requestDuration.WithLabelValues(ssCode, c.Request.Method, hname).Observe(latency.Seconds())
			metrics.responseSize.WithLabelValues(ssCode, c.Request.Method, hname).Observe(float64(bodySize))
		}
	}
}
