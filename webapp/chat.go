package webapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tailored-agentic-units/studyplan/bridge"
	"github.com/tailored-agentic-units/studyplan/internal/httpapi"
	"github.com/tailored-agentic-units/studyplan/observability"
	"github.com/tailored-agentic-units/studyplan/store"
)

const (
	EventSend          observability.EventType = "webapp.send"
	EventRemoteCleanup observability.EventType = "webapp.remote.cleanup"
)

const titleLimit = 50

// ChatView is the public form of a chat session.
type ChatView struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageView is the public form of a chat message.
type MessageView struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendRequest asks for a reply to Message, in chat SessionID or a new chat
// when it is absent.
type SendRequest struct {
	Message   string `json:"message"`
	SessionID *int64 `json:"session_id,omitempty"`
}

// SendResponse carries the assembled reply.
type SendResponse struct {
	Response  string `json:"response"`
	SessionID int64  `json:"session_id"`
}

type createChatRequest struct {
	Title string `json:"title"`
}

func viewOfChat(c store.Chat) ChatView {
	return ChatView{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

// chatTitle names a chat after its first message.
func chatTitle(msg string) string {
	runes := []rune(msg)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit]) + "..."
	}
	return msg
}

func chatID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.store.ListSessions(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]ChatView, 0, len(chats))
	for _, c := range chats {
		out = append(out, viewOfChat(c))
	}
	httpapi.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if r.ContentLength != 0 {
		if err := httpapi.Decode(w, r, &req); err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	c, err := s.store.CreateSession(r.Context(), userFrom(r.Context()).ID, strings.TrimSpace(req.Title))
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, viewOfChat(c))
}

func (s *Server) ownedChat(w http.ResponseWriter, r *http.Request, id int64) (store.Chat, bool) {
	c, err := s.store.Session(r.Context(), userFrom(r.Context()).ID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpapi.WriteError(w, http.StatusNotFound, "Session not found")
		return c, false
	case err != nil:
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return c, false
	}
	return c, true
}

func (s *Server) deleteChat(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		httpapi.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	c, ok := s.ownedChat(w, r, id)
	if !ok {
		return
	}

	if err := s.store.DeleteSession(r.Context(), c.UserID, c.ID); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if c.RemoteSessionID != "" {
		s.dropRemote(r.Context(), s.remote(c.UserID, c.RemoteSessionID))
	}
	message(w, "Session deleted")
}

// dropRemote closes a remote session. Failures are logged only; the
// runtime expires abandoned sessions on restart.
func (s *Server) dropRemote(ctx context.Context, rs bridge.RemoteSession) {
	err := s.runtime.DeleteSession(ctx, rs)
	level := observability.LevelVerbose
	data := map[string]any{"session": rs.ID, observability.KeyError: err != nil}
	if err != nil {
		level = observability.LevelWarning
		data["detail"] = err.Error()
	}
	s.observer.OnEvent(ctx, observability.NewEvent(EventRemoteCleanup, level, "webapp.Server", data))
}

func (s *Server) chatMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := chatID(r)
	if !ok {
		httpapi.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	if _, ok := s.ownedChat(w, r, id); !ok {
		return
	}

	msgs, err := s.store.Messages(r.Context(), id)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageView{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	httpapi.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) remote(userID int64, id string) bridge.RemoteSession {
	return bridge.RemoteSession{
		ID:      id,
		AppName: s.runtime.Config().AppName,
		UserID:  strconv.FormatInt(userID, 10),
	}
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := userFrom(ctx)

	var req SendRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		httpapi.WriteError(w, http.StatusUnprocessableEntity, "message: must not be empty")
		return
	}

	if !u.HasAPIKey() {
		httpapi.WriteError(w, http.StatusBadRequest, "Please set your Google API key in settings first")
		return
	}

	var chat store.Chat
	if req.SessionID == nil || *req.SessionID == 0 {
		c, err := s.store.CreateSession(ctx, u.ID, chatTitle(req.Message))
		if err != nil {
			httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		chat = c
	} else {
		c, ok := s.ownedChat(w, r, *req.SessionID)
		if !ok {
			return
		}
		chat = c
	}

	unlock, err := s.locker.Lock(ctx, "chat:"+strconv.FormatInt(chat.ID, 10))
	if err != nil {
		httpapi.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer unlock()

	if _, err := s.store.AppendMessage(ctx, chat.ID, store.RoleUser, req.Message); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	apiKey, err := s.cipher.Open(u.EncryptedAPIKey)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "Failed to decrypt API key")
		return
	}

	start := time.Now()
	reply, err := s.converse(ctx, u.ID, chat.ID, req.Message, apiKey)

	data := map[string]any{
		"chat":                    chat.ID,
		observability.KeyError:    err != nil,
		observability.KeyDuration: time.Since(start),
	}
	level := observability.LevelInfo
	if err != nil {
		level = observability.LevelError
		data["kind"] = bridge.Kind(err)
		data["detail"] = err.Error()
	}
	s.observer.OnEvent(ctx, observability.NewEvent(EventSend, level, "webapp.Server", data))

	if err != nil {
		writeGatewayError(w, err)
		return
	}

	if _, err := s.store.AppendMessage(ctx, chat.ID, store.RoleAssistant, reply); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.store.TouchSession(ctx, chat.ID); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, SendResponse{Response: reply, SessionID: chat.ID})
}

// converse sends message through the chat's remote session, opening one
// when the chat has none or the runtime no longer knows it. Must be called
// with the chat lock held.
func (s *Server) converse(ctx context.Context, userID, chatID int64, message, apiKey string) (string, error) {
	remoteID, err := s.store.RemoteSession(ctx, chatID)
	if err != nil {
		return "", err
	}

	fresh := false
	if remoteID == "" {
		if remoteID, err = s.openRemote(ctx, userID, chatID); err != nil {
			return "", err
		}
		fresh = true
	}

	reply, err := s.runtime.Reply(ctx, s.remote(userID, remoteID), message, apiKey)

	var upstream *bridge.UpstreamError
	if !fresh && errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
		if remoteID, err = s.openRemote(ctx, userID, chatID); err != nil {
			return "", err
		}
		reply, err = s.runtime.Reply(ctx, s.remote(userID, remoteID), message, apiKey)
	}
	return reply, err
}

func (s *Server) openRemote(ctx context.Context, userID, chatID int64) (string, error) {
	rs, err := s.runtime.CreateSession(ctx, strconv.FormatInt(userID, 10))
	if err != nil {
		return "", err
	}
	if err := s.store.SetRemoteSession(ctx, chatID, rs.ID); err != nil {
		return "", fmt.Errorf("failed to record remote session: %w", err)
	}
	return rs.ID, nil
}

func writeGatewayError(w http.ResponseWriter, err error) {
	var upstream *bridge.UpstreamError
	switch {
	case errors.As(err, &upstream):
		httpapi.WriteErrorf(w, http.StatusBadGateway, "Agent runtime error: %s", upstream.Body)
	case errors.Is(err, bridge.ErrUpstreamUnreachable):
		httpapi.WriteErrorf(w, http.StatusBadGateway, "Failed to connect to agent runtime: %v", err)
	case bridge.IsGateway(err):
		httpapi.WriteError(w, http.StatusBadGateway, err.Error())
	default:
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
