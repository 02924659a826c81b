package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NeighborShare/service-booking/internal/response"
)

// SharerHeader carries the pre-resolved caller identity. The boundary in
// front of this service authenticates; this service only authorizes.
const SharerHeader = "X-Sharer-User-Id"

const requestIDKey = "request_id"
const sharerIDKey = "sharer_id"

// RequestID attaches a request ID to every request, reusing an inbound
// X-Request-Id when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// Logger logs one structured line per request.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get(requestIDKey)
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Any("request_id", requestID),
		)
	}
}

// Recovery converts panics into 500 responses and logs the panic value.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatus(500)
	})
}

// CORS allows cross-origin calls from any origin with the headers this
// service understands.
func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, SharerHeader, "X-Request-Id")
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	return cors.New(cfg)
}

// SecurityHeaders sets baseline hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Next()
	}
}

// Identity requires the trusted caller-identity header and parses it into
// the context. Requests without a well-formed identity are rejected before
// reaching any handler.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(SharerHeader)
		if raw == "" {
			response.BadRequest(c, SharerHeader+" header is required")
			c.Abort()
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid "+SharerHeader+" header")
			c.Abort()
			return
		}
		c.Set(sharerIDKey, id)
		c.Next()
	}
}

// CallerID returns the caller identity set by the Identity middleware.
func CallerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(sharerIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
