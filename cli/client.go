package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/smartdoc/internal/catalog"
	"github.com/xiaot623/smartdoc/internal/domain"
	"github.com/xiaot623/smartdoc/internal/protocol"
)

// apiError is the error body returned by the server.
type apiError struct {
	Error string `json:"error"`
}

// Client talks to the smartdoc REST API.
type Client struct {
	baseURL string
	http    *resty.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx).SetError(&apiError{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return checkResponse(resp)
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), e.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode())
}

// CreateSession starts a session.
func (c *Client) CreateSession(ctx context.Context, userID, subject string) (*domain.Session, error) {
	var sess domain.Session
	err := c.do(ctx, resty.MethodPost, "/v1/sessions", map[string]string{
		"user_id": userID,
		"subject": subject,
	}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// EndSession ends a session.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, resty.MethodDelete, "/v1/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// Analyze uploads path with its metadata and returns the analysis.
func (c *Client) Analyze(ctx context.Context, sessionID, path, company, docType string) (*domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		SetFormData(map[string]string{
			"company":       company,
			"document_type": docType,
		}).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/v1/sessions/" + url.PathEscape(sessionID) + "/analysis")
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return &result, nil
}

// Catalog fetches the reference data.
func (c *Client) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	var cat catalog.Catalog
	if err := c.do(ctx, resty.MethodGet, "/v1/catalog", nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Events fetches the call journal of a session.
func (c *Client) Events(ctx context.Context, sessionID string, limit int) ([]domain.Event, error) {
	var out struct {
		Events []domain.Event `json:"events"`
	}
	path := fmt.Sprintf("/v1/sessions/%s/events?limit=%d", url.PathEscape(sessionID), limit)
	if err := c.do(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// streamURL derives the websocket URL of a session stream.
func (c *Client) streamURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/sessions/" + url.PathEscape(sessionID) + "/stream"
	return u.String(), nil
}

// Stream is an open session stream.
type Stream struct {
	conn      *websocket.Conn
	sessionID string
}

// OpenStream dials the session stream.
func (c *Client) OpenStream(ctx context.Context, sessionID string) (*Stream, error) {
	addr, err := c.streamURL(sessionID)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Stream{conn: conn, sessionID: sessionID}, nil
}

// Close closes the stream.
func (s *Stream) Close() error {
	return s.conn.Close()
}

// SendChat sends text as the next user message.
func (s *Stream) SendChat(text string) error {
	return s.conn.WriteJSON(protocol.ChatFrame{
		BaseMessage: s.base(protocol.TypeChat),
		Text:        text,
	})
}

// SetSubject switches the session's subject.
func (s *Stream) SetSubject(subject string) error {
	return s.conn.WriteJSON(protocol.SetSubjectFrame{
		BaseMessage: s.base(protocol.TypeSetSubject),
		Subject:     subject,
	})
}

// Reset clears the conversation.
func (s *Stream) Reset() error {
	return s.conn.WriteJSON(s.base(protocol.TypeReset))
}

func (s *Stream) base(frameType string) protocol.BaseMessage {
	b := protocol.NewBase(frameType, s.sessionID)
	b.RequestID = fmt.Sprintf("req_%d", time.Now().UnixNano())
	return b
}

// Frame is a decoded server frame. Only the fields of its Type are set.
type Frame struct {
	Type     string                `json:"type"`
	Pending  bool                  `json:"pending"`
	Subject  string                `json:"subject"`
	Code     string                `json:"code"`
	Error    string                `json:"error"`
	Message  domain.Message        `json:"message"`
	Messages []domain.Message      `json:"messages"`
	Session  domain.Session        `json:"session"`
	Analysis domain.AnalysisResult `json:"analysis"`
	Fallback bool                  `json:"fallback"`
}

// Next blocks for the next frame.
func (s *Stream) Next() (*Frame, error) {
	var f Frame
	if err := s.conn.ReadJSON(&f); err != nil {
		return nil, err
	}
	return &f, nil
}
