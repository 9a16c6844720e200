package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const headerTraceID = "X-Trace-Id"

// GinMiddleware attaches a trace ID to every request and logs it on completion.
// An incoming X-Trace-Id header is reused so traces can span the gateway.
func GinMiddleware(l *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(headerTraceID)
		if traceID == "" {
			traceID = NewTraceID()
		}
		c.Request = c.Request.WithContext(WithTraceID(c.Request.Context(), traceID))
		c.Header(headerTraceID, traceID)

		start := time.Now()
		c.Next()

		l.WithTraceID(traceID).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
