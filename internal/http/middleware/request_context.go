package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/learndb-studio/internal/pkg/ctxutil"
)

const HeaderRequestID = "X-Request-Id"

// RequestContext attaches a request id (incoming or fresh) to the request
// context so gateway calls made on its behalf carry it.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if reqID == "" {
			reqID = ctxutil.NewRequestID()
		}
		ctx := ctxutil.WithRequestID(c.Request.Context(), reqID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("request_id", reqID)
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			c.Set("trace_id", sc.TraceID().String())
		}
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Next()
	}
}

func RequestIDFrom(c *gin.Context) string {
	return ctxutil.RequestID(c.Request.Context())
}
