package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetCatalog returns subjects, companies, document types and dashboard data.
// GET /v1/catalog
func (h *Handler) GetCatalog(c echo.Context) error {
	cat, err := h.catalog.Get(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}
