package middleware

import (
	"strings"
	"time"

	"communiconnect/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// TracingMiddleware adds tracing to HTTP requests.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, c.FullPath())
		defer span.End()

		span.SetAttributes(
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.remote_addr", c.ClientIP()),
		)
		if id := c.Param("id"); id != "" {
			switch {
			case strings.HasPrefix(c.FullPath(), "/api/v1/sessions"):
				span.SetAttributes(tracing.SessionIDKey.String(id))
			case strings.HasPrefix(c.FullPath(), "/api/v1/livestreams"):
				span.SetAttributes(tracing.LivestreamIDKey.String(id))
			}
		}

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		span.SetAttributes(
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.duration_ms", duration.Milliseconds()),
		)
		// The auth middleware runs inside this one, so the resolved
		// identity is only visible after the chain completes.
		if username := c.GetString("username"); username != "" {
			span.SetAttributes(semconv.EnduserIDKey.String(username))
		}

		if c.Writer.Status() >= 400 {
			span.SetStatus(codes.Error, c.Errors.String())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
