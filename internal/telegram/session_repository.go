package telegram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoSession is returned when a chat has not linked a user yet.
var ErrNoSession = errors.New("chat is not logged in")

// SessionRepository binds Telegram chats to backend users.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Bind links a chat to a user, replacing any previous binding.
func (sr *SessionRepository) Bind(ctx context.Context, chatID int64, userID string) error {
	_, err := sr.db.ExecContext(ctx, `
		INSERT INTO telegram_sessions (chat_id, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET user_id = excluded.user_id, created_at = excluded.created_at`,
		chatID, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to bind chat session: %w", err)
	}
	return nil
}

// UserFor returns the user bound to the chat.
func (sr *SessionRepository) UserFor(ctx context.Context, chatID int64) (string, error) {
	var userID string
	err := sr.db.QueryRowContext(ctx,
		`SELECT user_id FROM telegram_sessions WHERE chat_id = ?`, chatID).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to look up chat session: %w", err)
	}
	return userID, nil
}

// Unbind removes the chat's binding.
func (sr *SessionRepository) Unbind(ctx context.Context, chatID int64) error {
	if _, err := sr.db.ExecContext(ctx,
		`DELETE FROM telegram_sessions WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to unbind chat session: %w", err)
	}
	return nil
}
