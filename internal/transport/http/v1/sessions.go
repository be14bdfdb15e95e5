package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CreateSessionRequest is the body of POST /v1/sessions.
type CreateSessionRequest struct {
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
}

// SetSubjectRequest is the body of PUT /v1/sessions/:session_id/subject.
type SetSubjectRequest struct {
	Subject string `json:"subject"`
}

// CreateSession starts a session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.CreateSession(c.Request().Context(), req.UserID, req.Subject)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// GetSession returns a live session.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// EndSession ends a session.
// DELETE /v1/sessions/:session_id
func (h *Handler) EndSession(c echo.Context) error {
	if err := h.service.EndSession(c.Request().Context(), c.Param("session_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetSubject switches the knowledge subject.
// PUT /v1/sessions/:session_id/subject
func (h *Handler) SetSubject(c echo.Context) error {
	var req SetSubjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.SetSubject(c.Request().Context(), c.Param("session_id"), req.Subject)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// ResetConversation clears a session's conversation.
// POST /v1/sessions/:session_id/reset
func (h *Handler) ResetConversation(c echo.Context) error {
	session, err := h.service.ResetConversation(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}
