// Package v1 provides the public HTTP handlers.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/smartdoc/internal/catalog"
	"github.com/xiaot623/smartdoc/internal/domain"
	"github.com/xiaot623/smartdoc/internal/hub"
	"github.com/xiaot623/smartdoc/internal/service"
)

// StreamStats reports live stream connections.
type StreamStats interface {
	Stats() hub.Stats
}

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	catalog *catalog.Service
	stream  StreamStats
}

// NewHandler creates a new handler. stream may be nil when no session stream
// is served.
func NewHandler(service *service.Service, catalog *catalog.Service, stream StreamStats) *Handler {
	return &Handler{
		service: service,
		catalog: catalog,
		stream:  stream,
	}
}

// RegisterRoutes registers the public routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.DELETE("/v1/sessions/:session_id", h.EndSession)
	e.PUT("/v1/sessions/:session_id/subject", h.SetSubject)
	e.POST("/v1/sessions/:session_id/reset", h.ResetConversation)

	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)
	e.POST("/v1/sessions/:session_id/messages", h.SendMessage)

	e.POST("/v1/sessions/:session_id/analysis", h.Analyze)
	e.GET("/v1/sessions/:session_id/analysis", h.GetLatestAnalysis)

	e.GET("/v1/sessions/:session_id/events", h.GetSessionEvents)
	e.GET("/v1/catalog", h.GetCatalog)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	body := map[string]interface{}{
		"status":   "healthy",
		"version":  "0.1.0",
		"sessions": h.service.SessionCount(),
	}
	if h.stream != nil {
		body["stream"] = h.stream.Stats()
	}
	return c.JSON(http.StatusOK, body)
}

// writeError maps service errors to status codes.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSessionBusy):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidRole):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUploadRejected):
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
