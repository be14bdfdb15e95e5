// Package ws serves the live session stream over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/smartdoc/internal/config"
	"github.com/xiaot623/smartdoc/internal/domain"
	"github.com/xiaot623/smartdoc/internal/hub"
	"github.com/xiaot623/smartdoc/internal/protocol"
	"github.com/xiaot623/smartdoc/internal/service"
)

// Server handles stream connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	service  *service.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		logger:  logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Stats reports the hub's current stream connections.
func (s *Server) Stats() hub.Stats {
	return s.hub.Stats()
}

// HandleWebSocket upgrades GET /v1/sessions/:session_id/stream and binds the
// connection to that session.
func (s *Server) HandleWebSocket(c echo.Context) error {
	sessionID := c.Param("session_id")
	ctx := c.Request().Context()

	if _, err := s.service.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return nil
	}

	conn := s.hub.NewConnection(ws, sessionID)
	ws.SetReadLimit(s.cfg.WSMaxMessageSize)

	// The ready snapshot and the registration happen with the session's
	// broadcasts held back, so the first frame after ready is the next change.
	err = s.service.Subscribe(ctx, sessionID, func(session domain.Session, messages []domain.Message) error {
		if err := conn.Queue(protocol.ReadyMessage{
			BaseMessage: protocol.NewBase(protocol.TypeReady, sessionID),
			Session:     session,
			Messages:    messages,
		}); err != nil {
			return err
		}
		s.hub.Register(conn)
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to subscribe stream", zap.String("session_id", sessionID), zap.Error(err))
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		ws.Close()
		return nil
	}

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads frames from the connection until it fails.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WSWriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write frame", zap.String("conn_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WSWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches a client frame.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case protocol.TypeChat:
		s.handleChat(conn, data)
	case protocol.TypeSetSubject:
		s.handleSetSubject(conn, data)
	case protocol.TypeReset:
		s.handleReset(conn, base.RequestID)
	default:
		s.sendError(conn, base.RequestID, protocol.ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

// handleChat sends a chat frame's text. The reply arrives as message frames
// broadcast by the service.
func (s *Server) handleChat(conn *hub.Connection, data []byte) {
	var msg protocol.ChatFrame
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid chat message")
		return
	}

	go func() {
		if _, err := s.service.SendMessage(context.Background(), conn.SessionID, msg.Text); err != nil {
			s.sendServiceError(conn, msg.RequestID, err)
		}
	}()
}

func (s *Server) handleSetSubject(conn *hub.Connection, data []byte) {
	var msg protocol.SetSubjectFrame
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid set_subject message")
		return
	}
	if _, err := s.service.SetSubject(context.Background(), conn.SessionID, msg.Subject); err != nil {
		s.sendServiceError(conn, msg.RequestID, err)
	}
}

func (s *Server) handleReset(conn *hub.Connection, requestID string) {
	if _, err := s.service.ResetConversation(context.Background(), conn.SessionID); err != nil {
		s.sendServiceError(conn, requestID, err)
	}
}

func (s *Server) sendServiceError(conn *hub.Connection, requestID string, err error) {
	code := protocol.ErrorCodeInternalError
	switch {
	case errors.Is(err, domain.ErrSessionBusy):
		code = protocol.ErrorCodeSessionBusy
	case errors.Is(err, domain.ErrSessionNotFound):
		code = protocol.ErrorCodeNotFound
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrInvalidRequest):
		code = protocol.ErrorCodeInvalidMessage
	}
	s.sendError(conn, requestID, code, err.Error())
}

// sendError sends an error frame to one connection.
func (s *Server) sendError(conn *hub.Connection, requestID, code, message string) {
	base := protocol.NewBase(protocol.TypeError, conn.SessionID)
	base.RequestID = requestID
	if err := s.hub.SendJSONToConnection(conn, protocol.ErrorMessage{
		BaseMessage: base,
		Code:        code,
		Message:     message,
	}); err != nil {
		s.logger.Warn("failed to send error frame", zap.String("conn_id", conn.ID), zap.Error(err))
	}
}
