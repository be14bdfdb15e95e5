package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/smartdoc/internal/adapter/llm"
	"github.com/xiaot623/smartdoc/internal/config"
	"github.com/xiaot623/smartdoc/internal/domain"
	"github.com/xiaot623/smartdoc/internal/hub"
	"github.com/xiaot623/smartdoc/internal/policy"
	"github.com/xiaot623/smartdoc/internal/protocol"
	"github.com/xiaot623/smartdoc/internal/service"
	"github.com/xiaot623/smartdoc/tests/helpers"
)

func newTestServer(t *testing.T) (*httptest.Server, *service.Service) {
	t.Helper()
	return newTestServerWith(t, llm.NewMockClient())
}

func newTestServerWith(t *testing.T, gen llm.Generator) (*httptest.Server, *service.Service) {
	t.Helper()
	cfg := &config.Config{
		DefaultSubject:   "Política de RH",
		MaxUploadBytes:   20 << 20,
		WSReadTimeout:    5 * time.Second,
		WSWriteTimeout:   time.Second,
		WSPingInterval:   time.Second,
		WSMaxMessageSize: 65536,
	}

	h := hub.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	assistant := llm.NewAssistant(gen, 5*time.Second, nil)
	svc := service.New(helpers.NewTestSQLiteStore(t), assistant, engine, h, cfg, nil)

	e := echo.New()
	e.GET("/v1/sessions/:session_id/stream", NewServer(cfg, h, svc, nil).HandleWebSocket)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, svc
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/" + sessionID + "/stream"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// gatedGenerator holds every call until release is closed.
type gatedGenerator struct {
	started chan struct{}
	release chan struct{}
}

func newGatedGenerator() *gatedGenerator {
	return &gatedGenerator{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedGenerator) GenerateChat(ctx context.Context, req *llm.ChatRequest) (string, error) {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return "Resposta liberada.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.GenerateChat(ctx, nil)
}

func (g *gatedGenerator) Model() string { return "gated" }

type frame struct {
	Type     string          `json:"type"`
	Code     string          `json:"code"`
	Pending  bool            `json:"pending"`
	Subject  string          `json:"subject"`
	Message  domain.Message  `json:"message"`
	Session  domain.Session  `json:"session"`
	Messages []domain.Message `json:"messages"`
}

func readFrame(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, c.ReadJSON(&f))
	return f
}

func TestStreamChatRoundTrip(t *testing.T) {
	srv, svc := newTestServer(t)
	sess, err := svc.CreateSession(context.Background(), "u1", "")
	require.NoError(t, err)

	c := dial(t, srv, sess.SessionID)

	ready := readFrame(t, c)
	assert.Equal(t, protocol.TypeReady, ready.Type)
	assert.Equal(t, sess.SessionID, ready.Session.SessionID)

	require.NoError(t, c.WriteJSON(map[string]string{"type": protocol.TypeChat, "text": "Qual a política de férias?"}))

	pending := readFrame(t, c)
	assert.Equal(t, protocol.TypePending, pending.Type)
	assert.True(t, pending.Pending)

	user := readFrame(t, c)
	assert.Equal(t, protocol.TypeMessage, user.Type)
	assert.Equal(t, domain.RoleUser, user.Message.Role)
	assert.Equal(t, "Qual a política de férias?", user.Message.Text)

	reply := readFrame(t, c)
	assert.Equal(t, protocol.TypeMessage, reply.Type)
	assert.Equal(t, domain.RoleModel, reply.Message.Role)
	assert.Contains(t, reply.Message.Text, "[MOCK]")

	done := readFrame(t, c)
	assert.Equal(t, protocol.TypePending, done.Type)
	assert.False(t, done.Pending)

	msgs, err := svc.GetMessages(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestStreamRejectsBlankChat(t *testing.T) {
	srv, svc := newTestServer(t)
	sess, err := svc.CreateSession(context.Background(), "u1", "")
	require.NoError(t, err)

	c := dial(t, srv, sess.SessionID)
	readFrame(t, c)

	require.NoError(t, c.WriteJSON(map[string]string{"type": protocol.TypeChat, "text": "  "}))
	f := readFrame(t, c)
	assert.Equal(t, protocol.TypeError, f.Type)
	assert.Equal(t, protocol.ErrorCodeInvalidMessage, f.Code)
}

func TestStreamSetSubjectAndUnknownType(t *testing.T) {
	srv, svc := newTestServer(t)
	sess, err := svc.CreateSession(context.Background(), "u1", "")
	require.NoError(t, err)

	c := dial(t, srv, sess.SessionID)
	readFrame(t, c)

	require.NoError(t, c.WriteJSON(map[string]string{"type": protocol.TypeSetSubject, "subject": "Jurídico Geral"}))
	f := readFrame(t, c)
	assert.Equal(t, protocol.TypeSubject, f.Type)
	assert.Equal(t, "Jurídico Geral", f.Subject)

	require.NoError(t, c.WriteJSON(map[string]string{"type": "bogus"}))
	f = readFrame(t, c)
	assert.Equal(t, protocol.TypeError, f.Type)
	assert.Equal(t, protocol.ErrorCodeInvalidMessage, f.Code)
}

func TestStreamUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/sess_missing/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamClosedOnEndSession(t *testing.T) {
	srv, svc := newTestServer(t)
	sess, err := svc.CreateSession(context.Background(), "u1", "")
	require.NoError(t, err)

	c := dial(t, srv, sess.SessionID)
	readFrame(t, c)

	require.NoError(t, svc.EndSession(context.Background(), sess.SessionID))

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = c.ReadMessage()
	assert.Error(t, err)
}

func TestStreamFrameSentRightAfterDial(t *testing.T) {
	srv, svc := newTestServer(t)
	sess, err := svc.CreateSession(context.Background(), "u1", "")
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		c := dial(t, srv, sess.SessionID)
		require.NoError(t, c.WriteJSON(map[string]string{"type": protocol.TypeSetSubject, "subject": "Jurídico Geral"}))
		require.NoError(t, c.WriteJSON(map[string]string{"type": "bogus"}))

		assert.Equal(t, protocol.TypeReady, readFrame(t, c).Type)
		var sawError bool
		for !sawError {
			f := readFrame(t, c)
			if f.Type == protocol.TypeError {
				assert.Equal(t, protocol.ErrorCodeInvalidMessage, f.Code)
				sawError = true
			}
		}
		c.Close()
	}
}

func TestStreamAttachedDuringCallReceivesReply(t *testing.T) {
	gen := newGatedGenerator()
	srv, svc := newTestServerWith(t, gen)
	sess, err := svc.CreateSession(context.Background(), "u1", "")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.SendMessage(context.Background(), sess.SessionID, "Qual o prazo de resposta?")
		done <- err
	}()
	<-gen.started

	c := dial(t, srv, sess.SessionID)
	ready := readFrame(t, c)
	require.Equal(t, protocol.TypeReady, ready.Type)
	assert.True(t, ready.Session.Pending)
	require.Len(t, ready.Messages, 2)
	assert.Equal(t, domain.RoleUser, ready.Messages[1].Role)

	close(gen.release)
	require.NoError(t, <-done)

	reply := readFrame(t, c)
	assert.Equal(t, protocol.TypeMessage, reply.Type)
	assert.Equal(t, domain.RoleModel, reply.Message.Role)
	assert.Equal(t, "Resposta liberada.", reply.Message.Text)

	idle := readFrame(t, c)
	assert.Equal(t, protocol.TypePending, idle.Type)
	assert.False(t, idle.Pending)
}

func TestStreamSeesEachMessageOnce(t *testing.T) {
	srv, svc := newTestServer(t)

	for i := 0; i < 10; i++ {
		sess, err := svc.CreateSession(context.Background(), "u1", "")
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() {
			_, err := svc.SendMessage(context.Background(), sess.SessionID, "Olá")
			done <- err
		}()

		c := dial(t, srv, sess.SessionID)
		ready := readFrame(t, c)
		require.Equal(t, protocol.TypeReady, ready.Type)
		require.NoError(t, <-done)

		seen := map[string]int{}
		for _, m := range ready.Messages {
			seen[m.ID]++
		}
		pending := ready.Session.Pending
		for pending || len(seen) < 3 {
			f := readFrame(t, c)
			switch f.Type {
			case protocol.TypeMessage:
				seen[f.Message.ID]++
			case protocol.TypePending:
				pending = f.Pending
			}
		}

		assert.Len(t, seen, 3)
		for id, n := range seen {
			assert.Equal(t, 1, n, "message %s delivered %d times", id, n)
		}
		c.Close()
	}
}
