// Package middleware provides HTTP middleware for the sales and
// inventory backend.
package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukapos/backend/internal/domain/identity"
)

// Tracing returns OpenTelemetry middleware plus an enrichment pass that
// tags the server span with the request ID and, once authentication has
// run, the operator. Returns a no-op when tracing is disabled.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	otel := otelgin.Middleware(serviceName)
	return func(c *gin.Context) {
		otel(c)
	}
}

// TraceAttributes adds request-scoped attributes to the active span.
// Must run after RequestID and OperatorAuth.
func TraceAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.SpanContext().IsValid() {
			if requestID := c.GetString(RequestIDContextKey); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
			if value, ok := c.Get(OperatorContextKey); ok {
				if operator, ok := value.(identity.Operator); ok {
					span.SetAttributes(
						attribute.String("operator_id", operator.ID.String()),
						attribute.String("operator_role", string(operator.Role)),
					)
				}
			}
		}
		c.Next()
	}
}
