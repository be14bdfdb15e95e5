package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/smartdoc/internal/adapter/llm"
	"github.com/xiaot623/smartdoc/internal/catalog"
	"github.com/xiaot623/smartdoc/internal/config"
	"github.com/xiaot623/smartdoc/internal/domain"
	"github.com/xiaot623/smartdoc/internal/hub"
	"github.com/xiaot623/smartdoc/internal/policy"
	"github.com/xiaot623/smartdoc/internal/service"
	"github.com/xiaot623/smartdoc/tests/helpers"
)

// failingGenerator fails every call, as an unreachable provider would.
type failingGenerator struct{}

func (failingGenerator) GenerateChat(context.Context, *llm.ChatRequest) (string, error) {
	return "", context.DeadlineExceeded
}

func (failingGenerator) GenerateText(context.Context, string) (string, error) {
	return "", context.DeadlineExceeded
}

func (failingGenerator) Model() string { return "down" }

// contextGenerator answers unless the call's context is already done.
type contextGenerator struct{}

func (contextGenerator) GenerateChat(ctx context.Context, _ *llm.ChatRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "Resposta completa.", nil
}

func (contextGenerator) GenerateText(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "## Resumo Executivo", nil
}

func (contextGenerator) Model() string { return "ctx" }

func newTestHandler(t *testing.T, gen llm.Generator) (*Handler, *service.Service) {
	t.Helper()
	cfg := &config.Config{DefaultSubject: "Política de RH", MaxUploadBytes: 1 << 20}
	db := helpers.NewTestSQLiteStore(t)
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := service.New(db, llm.NewAssistant(gen, time.Second, nil), policyEngine, nil, cfg, nil)
	return NewHandler(svc, catalog.New(db), nil), svc
}

func newJSONContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withSession(c echo.Context, sessionID string) echo.Context {
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID)
	return c
}

func createSession(t *testing.T, svc *service.Service) string {
	t.Helper()
	sess, err := svc.CreateSession(context.Background(), "u1", "")
	require.NoError(t, err)
	return sess.SessionID
}

func TestCreateSession(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, llm.NewMockClient())

	c, rec := newJSONContext(e, http.MethodPost, "/v1/sessions", `{"user_id":"alice","subject":"Jurídico Geral"}`)
	require.NoError(t, h.CreateSession(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var sess domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.NotEmpty(t, sess.SessionID)
	assert.Equal(t, "alice", sess.UserID)
	assert.Equal(t, "Jurídico Geral", sess.Subject)
	assert.Equal(t, 1, sess.MessageCount)
}

func TestCreateSessionInvalidBody(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, llm.NewMockClient())

	c, rec := newJSONContext(e, http.MethodPost, "/v1/sessions", `{bad`)
	require.NoError(t, h.CreateSession(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionNotFound(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, llm.NewMockClient())

	c, rec := newJSONContext(e, http.MethodGet, "/v1/sessions/nope", "")
	require.NoError(t, h.GetSession(withSession(c, "nope")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessage(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, llm.NewMockClient())
	id := createSession(t, svc)

	c, rec := newJSONContext(e, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"text":"Qual o horário de trabalho?"}`)
	require.NoError(t, h.SendMessage(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)

	var ex domain.ChatExchange
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ex))
	assert.Equal(t, "Qual o horário de trabalho?", ex.User.Text)
	assert.Equal(t, domain.RoleModel, ex.Reply.Role)
	assert.False(t, ex.Fallback)

	c, rec = newJSONContext(e, http.MethodGet, "/v1/sessions/"+id+"/messages", "")
	require.NoError(t, h.GetSessionMessages(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Messages, 3)
}

func TestSendMessageFallbackIsNotAnError(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, failingGenerator{})
	id := createSession(t, svc)

	c, rec := newJSONContext(e, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"text":"oi"}`)
	require.NoError(t, h.SendMessage(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)

	var ex domain.ChatExchange
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ex))
	assert.True(t, ex.Fallback)
	assert.Equal(t, llm.ChatFallback, ex.Reply.Text)
}

func TestSendMessageEmpty(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, llm.NewMockClient())
	id := createSession(t, svc)

	c, rec := newJSONContext(e, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"text":""}`)
	require.NoError(t, h.SendMessage(withSession(c, id)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetSubjectAndReset(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, llm.NewMockClient())
	id := createSession(t, svc)

	c, rec := newJSONContext(e, http.MethodPut, "/v1/sessions/"+id+"/subject", `{"subject":"Normas de Segurança"}`)
	require.NoError(t, h.SetSubject(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Normas de Segurança")

	_, err := svc.SendMessage(context.Background(), id, "oi")
	require.NoError(t, err)

	c, rec = newJSONContext(e, http.MethodPost, "/v1/sessions/"+id+"/reset", "")
	require.NoError(t, h.ResetConversation(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)

	var sess domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, 1, sess.MessageCount)
}

func TestEndSession(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, llm.NewMockClient())
	id := createSession(t, svc)

	c, rec := newJSONContext(e, http.MethodDelete, "/v1/sessions/"+id, "")
	require.NoError(t, h.EndSession(withSession(c, id)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newJSONContext(e, http.MethodDelete, "/v1/sessions/"+id, "")
	require.NoError(t, h.EndSession(withSession(c, id)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The journal remains readable.
	c, rec = newJSONContext(e, http.MethodGet, "/v1/sessions/"+id+"/events", "")
	require.NoError(t, h.GetSessionEvents(withSession(c, id)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeJSON(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, llm.NewMockClient())
	id := createSession(t, svc)

	c, rec := newJSONContext(e, http.MethodGet, "/v1/sessions/"+id+"/analysis", "")
	require.NoError(t, h.GetLatestAnalysis(withSession(c, id)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := `{"file_name":"NDA_Partner_Y.pdf","file_type":"application/pdf","file_size":1800,"company":"Partner Corp","document_type":"NDA"}`
	c, rec = newJSONContext(e, http.MethodPost, "/v1/sessions/"+id+"/analysis", body)
	require.NoError(t, h.Analyze(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Contains(t, res.Markdown, "Resumo Executivo")
	assert.Equal(t, "NDA_Partner_Y.pdf", res.FileName)

	c, rec = newJSONContext(e, http.MethodGet, "/v1/sessions/"+id+"/analysis", "")
	require.NoError(t, h.GetLatestAnalysis(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), res.ID)
}

func TestAnalyzeMultipart(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, failingGenerator{})
	id := createSession(t, svc)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("company", "Empresa X"))
	require.NoError(t, w.WriteField("document_type", "Contrato de Locação"))
	part, err := w.CreateFormFile("file", "Contrato_Locacao.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/analysis", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := withSession(e.NewContext(req, rec), id)

	require.NoError(t, h.Analyze(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Fallback)
	assert.Equal(t, llm.AnalysisFallback, res.Markdown)
	assert.Equal(t, "Contrato_Locacao.pdf", res.FileName)
}

func TestAnalyzeRejected(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, llm.NewMockClient())
	id := createSession(t, svc)

	body := `{"file_name":"big.pdf","file_type":"application/pdf","file_size":2097152,"company":"Empresa X","document_type":"NDA"}`
	c, rec := newJSONContext(e, http.MethodPost, "/v1/sessions/"+id+"/analysis", body)
	require.NoError(t, h.Analyze(withSession(c, id)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload size limit")

	body = `{"file_name":"a.pdf","file_type":"application/pdf","company":"","document_type":"NDA"}`
	c, rec = newJSONContext(e, http.MethodPost, "/v1/sessions/"+id+"/analysis", body)
	require.NoError(t, h.Analyze(withSession(c, id)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionEventsFilters(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, llm.NewMockClient())
	id := createSession(t, svc)
	_, err := svc.SendMessage(context.Background(), id, "oi")
	require.NoError(t, err)

	c, rec := newJSONContext(e, http.MethodGet, "/v1/sessions/"+id+"/events?types=llm_call_started,llm_call_done&limit=10", "")
	require.NoError(t, h.GetSessionEvents(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Events  []domain.Event `json:"events"`
		HasMore bool           `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, domain.EventTypeLLMCallStarted, resp.Events[0].Type)
	assert.Equal(t, domain.EventTypeLLMCallDone, resp.Events[1].Type)
	assert.False(t, resp.HasMore)

	c, rec = newJSONContext(e, http.MethodGet, "/v1/sessions/nope/events", "")
	require.NoError(t, h.GetSessionEvents(withSession(c, "nope")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCatalogCountsCalls(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, llm.NewMockClient())
	id := createSession(t, svc)
	_, err := svc.SendMessage(context.Background(), id, "oi")
	require.NoError(t, err)

	c, rec := newJSONContext(e, http.MethodGet, "/v1/catalog", "")
	require.NoError(t, h.GetCatalog(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var cat catalog.Catalog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))
	assert.Len(t, cat.Subjects, 5)
	require.Len(t, cat.Stats, 3)
	assert.Equal(t, 8433, cat.Stats[1].Value)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, llm.NewMockClient())
	createSession(t, svc)

	c, rec := newJSONContext(e, http.MethodGet, "/health", "")
	require.NoError(t, h.Health(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sessions":1`)
	assert.NotContains(t, rec.Body.String(), `"stream"`)
}

type fixedStats hub.Stats

func (f fixedStats) Stats() hub.Stats { return hub.Stats(f) }

func TestHealthReportsStreamConnections(t *testing.T) {
	e := echo.New()
	_, svc := newTestHandler(t, llm.NewMockClient())
	h := NewHandler(svc, nil, fixedStats{Connections: 3, Sessions: 2})

	c, rec := newJSONContext(e, http.MethodGet, "/health", "")
	require.NoError(t, h.Health(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stream":{"connections":3,"sessions":2}`)
}

func TestSendMessageOutlivesClientDisconnect(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, contextGenerator{})
	id := createSession(t, svc)

	c, rec := newJSONContext(e, http.MethodPost, "/", `{"text":"Qual o prazo?"}`)
	ctx, cancel := context.WithCancel(c.Request().Context())
	cancel()
	c.SetRequest(c.Request().WithContext(ctx))
	require.NoError(t, h.SendMessage(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)

	var ex domain.ChatExchange
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ex))
	assert.False(t, ex.Fallback)
	assert.Equal(t, "Resposta completa.", ex.Reply.Text)
}

func TestAnalyzeOutlivesClientDisconnect(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, contextGenerator{})
	id := createSession(t, svc)

	body := `{"file_name":"NDA.pdf","file_type":"application/pdf","file_size":10,"company":"Partner Corp","document_type":"NDA"}`
	c, rec := newJSONContext(e, http.MethodPost, "/", body)
	ctx, cancel := context.WithCancel(c.Request().Context())
	cancel()
	c.SetRequest(c.Request().WithContext(ctx))
	require.NoError(t, h.Analyze(withSession(c, id)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Fallback)
	assert.Equal(t, "## Resumo Executivo", res.Markdown)
}
