package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/ordersignal-backend/internal/platform/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// AttachTraceContext assigns every request a request id and a trace id. The
// trace id comes from the caller header, then the active span, then a fresh
// uuid. Both are echoed back as response headers.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := headerOr(c, HeaderRequestID, uuid.NewString)
		traceID := headerOr(c, HeaderTraceID, func() string {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				return sc.TraceID().String()
			}
			return uuid.NewString()
		})
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(HeaderTraceID, traceID)
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name string, def func() string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return def()
}
