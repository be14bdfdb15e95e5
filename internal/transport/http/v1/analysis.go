package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/smartdoc/internal/domain"
)

// Analyze runs a simulated analysis. The body is either JSON metadata or a
// multipart form with a "file" part plus "company" and "document_type"
// fields; only the file header is read.
// POST /v1/sessions/:session_id/analysis
func (h *Handler) Analyze(c echo.Context) error {
	var req domain.AnalysisRequest

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
		}
		req = domain.AnalysisRequest{
			FileName:     fh.Filename,
			FileType:     fh.Header.Get(echo.HeaderContentType),
			FileSize:     fh.Size,
			Company:      c.FormValue("company"),
			DocumentType: c.FormValue("document_type"),
		}
	} else if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.service.Analyze(context.WithoutCancel(c.Request().Context()), c.Param("session_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetLatestAnalysis returns the session's latest analysis.
// GET /v1/sessions/:session_id/analysis
func (h *Handler) GetLatestAnalysis(c echo.Context) error {
	result, err := h.service.LatestAnalysis(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	if result == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no analysis for session"})
	}
	return c.JSON(http.StatusOK, result)
}
