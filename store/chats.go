package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultTitle names a chat created without a title.
const DefaultTitle = "New Chat"

// Chat is one chat session of a user. RemoteSessionID is empty until the
// first message opens a session on the agent runtime.
type Chat struct {
	ID              int64
	UserID          int64
	Title           string
	RemoteSessionID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Message is one chat entry. Role is "user" or "assistant".
type Message struct {
	ID        int64
	SessionID int64
	Role      string
	Content   string
	CreatedAt time.Time
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const chatColumns = `id, user_id, title, COALESCE(remote_session_id, ''), created_at, updated_at`

func scanChat(row interface{ Scan(...any) error }) (Chat, error) {
	var (
		c                Chat
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.RemoteSessionID, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Chat{}, ErrNotFound
		}
		return Chat{}, err
	}
	c.CreatedAt = fromStamp(created)
	c.UpdatedAt = fromStamp(updated)
	return c, nil
}

// CreateSession creates a chat for the user. An empty title becomes
// DefaultTitle.
func (s *Store) CreateSession(ctx context.Context, userID int64, title string) (Chat, error) {
	if title == "" {
		title = DefaultTitle
	}
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		userID, title, now, now)
	if err != nil {
		return Chat{}, fmt.Errorf("failed to create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Chat{}, err
	}
	return s.session(ctx, id)
}

func (s *Store) session(ctx context.Context, id int64) (Chat, error) {
	return scanChat(s.db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chat_sessions WHERE id = ?`, id))
}

// Session returns the chat with id when it belongs to userID, and
// ErrNotFound otherwise.
func (s *Store) Session(ctx context.Context, userID, id int64) (Chat, error) {
	return scanChat(s.db.QueryRowContext(ctx,
		`SELECT `+chatColumns+` FROM chat_sessions WHERE id = ? AND user_id = ?`, id, userID))
}

// ListSessions returns the user's chats, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, userID int64) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	out := []Chat{}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SessionBelongsTo reports whether chat id is owned by userID.
func (s *Store) SessionBelongsTo(ctx context.Context, id, userID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE id = ? AND user_id = ?)`, id, userID)
}

// DeleteSession removes a chat owned by userID and its messages.
func (s *Store) DeleteSession(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return affected(res)
}

// SetRemoteSession records the agent runtime session backing chat id.
func (s *Store) SetRemoteSession(ctx context.Context, id int64, remoteID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET remote_session_id = ? WHERE id = ?`, remoteID, id)
	if err != nil {
		return fmt.Errorf("failed to set remote session: %w", err)
	}
	return affected(res)
}

// RemoteSession returns the agent runtime session of chat id, or "" when
// none has been opened.
func (s *Store) RemoteSession(ctx context.Context, id int64) (string, error) {
	var remote sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT remote_session_id FROM chat_sessions WHERE id = ?`, id).Scan(&remote)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return remote.String, nil
}

// AppendMessage adds a message to chat sessionID.
func (s *Store) AppendMessage(ctx context.Context, sessionID int64, role, content string) (Message, error) {
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, now)
	if err != nil {
		return Message{}, fmt.Errorf("failed to append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, err
	}
	return Message{ID: id, SessionID: sessionID, Role: role, Content: content, CreatedAt: fromStamp(now)}, nil
}

// Messages returns the messages of chat sessionID in insertion order.
func (s *Store) Messages(ctx context.Context, sessionID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM chat_messages WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var (
			m       Message
			created int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = fromStamp(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// TouchSession bumps the chat's update time.
func (s *Store) TouchSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, s.stamp(), id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return affected(res)
}
