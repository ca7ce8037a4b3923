package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

const (
	// ViewerLoginHeader carries the login established by the upstream auth layer
	ViewerLoginHeader = "X-Viewer-Login"

	viewerKey = "viewer"
)

// Logger returns a middleware that logs requests
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"latency", time.Since(start),
		)
	}
}

// Viewer returns a middleware that maps the identity headers into the request.
// A request without a login is anonymous; the credential is never logged.
func Viewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		login := strings.TrimSpace(c.GetHeader(ViewerLoginHeader))
		if login != "" {
			c.Set(viewerKey, &domain.Viewer{
				Login:      login,
				Credential: bearerToken(c.GetHeader("Authorization")),
			})
		}
		c.Next()
	}
}

// ViewerFrom returns the viewer set by the Viewer middleware, or nil
func ViewerFrom(c *gin.Context) *domain.Viewer {
	v, ok := c.Get(viewerKey)
	if !ok {
		return nil
	}
	viewer, _ := v.(*domain.Viewer)
	return viewer
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// CORS returns a middleware that handles CORS
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+ViewerLoginHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Dashboard-Tier")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Recovery returns a middleware that recovers from panics
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}
