// Package bridge is the web service's client for the agent runtime. It
// creates remote sessions, submits user messages and returns the raw
// runtime output for assembly.
//
//	c := bridge.New(bridge.DefaultConfig())
//	rs, err := c.CreateSession(ctx, "user-42")
//	reply, err := c.Reply(ctx, rs, "Photosynthesis, grade 7", apiKey)
//
// The model credential is an argument of each send and is never stored on
// the Client, so one Client serves every user.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tailored-agentic-units/studyplan/core/response"
	"github.com/tailored-agentic-units/studyplan/observability"
)

// APIKeyHeader carries the per-request model credential.
const APIKeyHeader = "X-API-Key"

// DefaultMaxBodyBytes bounds a runtime reply.
const DefaultMaxBodyBytes = 16 << 20

// Bridge event types.
const (
	EventSessionCreate observability.EventType = "bridge.session.create"
	EventSessionDelete observability.EventType = "bridge.session.delete"
	EventSend          observability.EventType = "bridge.send"
)

// RemoteSession identifies a session hosted by the runtime.
type RemoteSession struct {
	ID      string `json:"id"`
	AppName string `json:"appName"`
	UserID  string `json:"userId"`
}

// RunRequest is the body of a run call.
type RunRequest struct {
	AppName    string     `json:"app_name"`
	UserID     string     `json:"user_id"`
	SessionID  string     `json:"session_id"`
	NewMessage NewMessage `json:"new_message"`
	Streaming  bool       `json:"streaming"`
}

// NewMessage is the user turn submitted to the runtime.
type NewMessage struct {
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
}

// MessagePart is one part of a NewMessage.
type MessagePart struct {
	Text string `json:"text"`
}

// NewRunRequest builds the run body for message in rs.
func NewRunRequest(rs RemoteSession, message string) RunRequest {
	return RunRequest{
		AppName:    rs.AppName,
		UserID:     rs.UserID,
		SessionID:  rs.ID,
		NewMessage: NewMessage{Role: "user", Parts: []MessagePart{{Text: message}}},
	}
}

// Text returns the concatenated text of the message parts.
func (m NewMessage) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Its Timeout takes precedence
// over Config.Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver overrides the default slog observer.
func WithObserver(o observability.Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// Client talks to one agent runtime. Safe for concurrent use.
type Client struct {
	cfg      Config
	http     *http.Client
	observer observability.Observer
	maxBody  int64
}

// New creates a Client from cfg, filling unset fields with defaults.
func New(cfg Config, opts ...Option) *Client {
	full := DefaultConfig()
	full.Merge(&cfg)
	full.BaseURL = strings.TrimRight(full.BaseURL, "/")

	c := &Client{
		cfg:      full,
		http:     &http.Client{Timeout: full.Timeout.Std()},
		observer: observability.NewSlogObserver(nil),
		maxBody:  DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) sessionsURL(userID string) string {
	return fmt.Sprintf("%s/apps/%s/users/%s/sessions",
		c.cfg.BaseURL, url.PathEscape(c.cfg.AppName), url.PathEscape(userID))
}

// CreateSession opens a session for userID. A reply without an id is
// ErrSessionCreate.
func (c *Client) CreateSession(ctx context.Context, userID string) (RemoteSession, error) {
	start := time.Now()
	rs, status, err := c.createSession(ctx, userID)

	data := map[string]any{
		"user":                    userID,
		"status":                  status,
		observability.KeyDuration: time.Since(start),
		observability.KeyError:    err != nil,
	}
	level := observability.LevelVerbose
	if err != nil {
		level = observability.LevelWarning
		data["kind"] = Kind(err)
		data["detail"] = err.Error()
	}
	c.observer.OnEvent(ctx, observability.NewEvent(EventSessionCreate, level, "bridge.CreateSession", data))

	return rs, err
}

func (c *Client) createSession(ctx context.Context, userID string) (RemoteSession, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionsURL(userID), strings.NewReader("{}"))
	if err != nil {
		return RemoteSession{}, 0, fmt.Errorf("%w: %v", ErrSessionCreate, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return RemoteSession{}, 0, fmt.Errorf("%w: %w", ErrSessionCreate, unreachable(err))
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp.Body)
	if err != nil {
		return RemoteSession{}, resp.StatusCode, fmt.Errorf("%w: %w", ErrSessionCreate, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return RemoteSession{}, resp.StatusCode, fmt.Errorf("%w: %w", ErrSessionCreate, upstream(resp.StatusCode, body))
	}

	var rs RemoteSession
	if err := json.Unmarshal(body, &rs); err != nil {
		return RemoteSession{}, resp.StatusCode, fmt.Errorf("%w: invalid reply: %v", ErrSessionCreate, err)
	}
	if rs.ID == "" {
		return RemoteSession{}, resp.StatusCode, fmt.Errorf("%w: reply carried no session id", ErrSessionCreate)
	}
	if rs.AppName == "" {
		rs.AppName = c.cfg.AppName
	}
	if rs.UserID == "" {
		rs.UserID = userID
	}
	return rs, resp.StatusCode, nil
}

// DeleteSession removes rs from the runtime. A session the runtime no
// longer knows is not an error.
func (c *Client) DeleteSession(ctx context.Context, rs RemoteSession) error {
	u := c.sessionsURL(rs.UserID) + "/" + url.PathEscape(rs.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()
	body, _ := c.readBody(resp.Body)

	c.observer.OnEvent(ctx, observability.NewEvent(EventSessionDelete, observability.LevelVerbose, "bridge.DeleteSession", map[string]any{
		"session": rs.ID,
		"status":  resp.StatusCode,
	}))

	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return nil
	}
	return upstream(resp.StatusCode, body)
}

// Send submits message to rs and returns the runtime output undecoded.
// The reply is marked as streaming when the runtime answers with
// text/event-stream.
func (c *Client) Send(ctx context.Context, rs RemoteSession, message, apiKey string) (response.RawEvents, error) {
	start := time.Now()
	raw, status, err := c.send(ctx, rs, message, apiKey)

	data := map[string]any{
		"session":                 rs.ID,
		"status":                  status,
		"streaming":               raw.Streaming,
		"bytes":                   len(raw.Data),
		observability.KeyDuration: time.Since(start),
		observability.KeyError:    err != nil,
	}
	level := observability.LevelInfo
	if err != nil {
		level = observability.LevelError
		data["kind"] = Kind(err)
		data["detail"] = err.Error()
	}
	c.observer.OnEvent(ctx, observability.NewEvent(EventSend, level, "bridge.Send", data))

	return raw, err
}

func (c *Client) send(ctx context.Context, rs RemoteSession, message, apiKey string) (response.RawEvents, int, error) {
	path := "/run"
	if c.cfg.Streaming {
		path = "/run_sse"
	}

	payload, err := json.Marshal(NewRunRequest(rs, message))
	if err != nil {
		return response.RawEvents{}, 0, fmt.Errorf("failed to encode run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return response.RawEvents{}, 0, fmt.Errorf("failed to build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Streaming {
		req.Header.Set("Accept", "text/event-stream")
	}
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response.RawEvents{}, 0, unreachable(err)
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp.Body)
	if err != nil {
		return response.RawEvents{}, resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return response.RawEvents{}, resp.StatusCode, upstream(resp.StatusCode, body)
	}

	return response.RawEvents{Data: body, Streaming: isEventStream(resp.Header.Get("Content-Type"))}, resp.StatusCode, nil
}

// Reply sends message and assembles the runtime output into one reply.
func (c *Client) Reply(ctx context.Context, rs RemoteSession, message, apiKey string) (string, error) {
	raw, err := c.Send(ctx, rs, message, apiKey)
	if err != nil {
		return "", err
	}
	return response.Assemble(raw), nil
}

func isEventStream(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/event-stream"
}

// readBody reads at most maxBody bytes. A longer reply is an upstream
// error rather than a silently truncated document.
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, unreachable(err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: reply exceeds %d bytes", ErrUpstreamAgent, c.maxBody)
	}
	return body, nil
}

func upstream(status int, body []byte) error {
	return &UpstreamError{StatusCode: status, Body: strings.TrimSpace(string(body))}
}

func unreachable(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err)
}
