package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janwilmake/flaredream.dash/internal/dashboard"
	"github.com/janwilmake/flaredream.dash/internal/domain"
	apperrors "github.com/janwilmake/flaredream.dash/internal/errors"
)

// Refresher regenerates dashboards
type Refresher interface {
	Refresh(ctx context.Context, username string, viewer *domain.Viewer) (*dashboard.Result, error)
}

// PageReader serves cached dashboards
type PageReader interface {
	Read(ctx context.Context, username string, viewer *domain.Viewer, format domain.Format) (*dashboard.Page, error)
}

// Handler handles API requests
type Handler struct {
	refresher Refresher
	reader    PageReader
}

// NewHandler creates a new API handler
func NewHandler(refresher Refresher, reader PageReader) *Handler {
	return &Handler{
		refresher: refresher,
		reader:    reader,
	}
}

// RefreshResponse is the body returned by a successful refresh
type RefreshResponse struct {
	RefreshID    string    `json:"refresh_id"`
	Username     string    `json:"username"`
	Tier         string    `json:"tier"`
	GeneratedAt  time.Time `json:"generated_at"`
	PublicCount  int       `json:"public_count"`
	PrivateCount int       `json:"private_count"`
	Deployable   int       `json:"deployable"`
	Keys         []string  `json:"keys"`
}

// GetDashboard serves the cached dashboard at the tier the viewer may see
// GET /dashboard/:username
func (h *Handler) GetDashboard(c *gin.Context) {
	username := c.Param("username")
	format := requestedFormat(c)

	page, err := h.reader.Read(c.Request.Context(), username, ViewerFrom(c), format)
	if err != nil {
		respondError(c, err)
		return
	}
	if !page.Found {
		respondError(c, apperrors.NewNotGeneratedError(page.Username))
		return
	}

	c.Header("X-Dashboard-Tier", string(page.Tier))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, contentType(format), []byte(page.Content))
}

// RefreshDashboard regenerates the dashboards of a user
// POST /dashboard/:username/refresh
func (h *Handler) RefreshDashboard(c *gin.Context) {
	username := c.Param("username")

	result, err := h.refresher.Refresh(c.Request.Context(), username, ViewerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	keys := make([]string, 0, len(result.Keys))
	for _, k := range result.Keys {
		keys = append(keys, k.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"data": RefreshResponse{
			RefreshID:    result.RefreshID,
			Username:     result.Username,
			Tier:         string(result.Tier),
			GeneratedAt:  result.GeneratedAt,
			PublicCount:  result.PublicCount,
			PrivateCount: result.PrivateCount,
			Deployable:   result.Deployable,
			Keys:         keys,
		},
	})
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// requestedFormat reads ?format=, falling back to the Accept header
func requestedFormat(c *gin.Context) domain.Format {
	if f := c.Query("format"); f != "" {
		return domain.ParseFormat(f)
	}
	accept := c.GetHeader("Accept")
	if strings.Contains(accept, "text/plain") || strings.Contains(accept, "text/markdown") {
		return domain.FormatPlaintext
	}
	return domain.FormatMarkup
}

func contentType(format domain.Format) string {
	if format == domain.FormatPlaintext {
		return "text/plain; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound, apperrors.ErrCodeNotGenerated:
			status = http.StatusNotFound
		case apperrors.ErrCodeBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrCodeRateLimited:
			status = http.StatusTooManyRequests
		case apperrors.ErrCodeUpstreamFetch:
			status = http.StatusBadGateway
		case apperrors.ErrCodeCacheWrite:
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
