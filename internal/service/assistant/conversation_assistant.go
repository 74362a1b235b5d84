package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"meligy/internal/models"
)

const (
	DefaultTitle   = "New Chat"
	titleMaxLength = 30
)

// TitleFrom derives a conversation title from the first user message.
func TitleFrom(content string) string {
	r := []rune(content)
	if len(r) <= titleMaxLength {
		return content
	}
	return string(r[:titleMaxLength]) + "..."
}

// CreateConversation inserts an empty conversation titled "New Chat".
func (s *Service) CreateConversation(ctx context.Context, clientID string) (*models.Conversation, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("client_id is required")
	}
	now := s.now().UTC()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Title:     DefaultTitle,
		Messages:  []*models.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, client_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, clientID, conv.Title, now, now,
	); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns a client's conversations, most recently updated
// first, without their messages.
func (s *Service) ListConversations(ctx context.Context, clientID string) ([]*models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, title, created_at, updated_at FROM conversations WHERE client_id = ? ORDER BY updated_at DESC`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := []*models.Conversation{}
	for rows.Next() {
		c := new(models.Conversation)
		if err := rows.Scan(&c.ID, &c.ClientID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation returns one conversation and its messages in insertion order.
func (s *Service) GetConversation(ctx context.Context, clientID, convID string) (*models.Conversation, error) {
	var c models.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, title, created_at, updated_at FROM conversations WHERE id = ? AND client_id = ?`,
		convID, clientID,
	).Scan(&c.ID, &c.ClientID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, sender, content, type, media_url, table_html, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY id ASC`,
		convID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	c.Messages = []*models.ChatMessage{}
	for rows.Next() {
		m := new(models.ChatMessage)
		if err := rows.Scan(&m.ID, &m.Sender, &m.Content, &m.Type, &m.MediaURL, &m.TableHTML, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		c.Messages = append(c.Messages, m)
	}
	return &c, rows.Err()
}

// AppendMessage stores msg at the end of the conversation and refreshes
// updated_at. The first user message also sets the title. Missing id,
// timestamp or type are filled in.
func (s *Service) AppendMessage(ctx context.Context, clientID, convID string, msg *models.ChatMessage) (err error) {
	if msg == nil {
		return errors.New("message is required")
	}
	if msg.Sender != models.SenderUser && msg.Sender != models.SenderAssistant {
		return fmt.Errorf("invalid sender %q", msg.Sender)
	}
	if msg.Sender == models.SenderUser && strings.TrimSpace(msg.Content) == "" {
		return errors.New("content cannot be empty")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}
	if msg.ID == "" {
		msg.ID = s.ids.Next(msg.Timestamp)
	}
	if msg.Type == "" {
		msg.Type = models.TypeText
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var title string
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT title, (SELECT COUNT(*) FROM messages WHERE conversation_id = ?) FROM conversations WHERE id = ? AND client_id = ?`,
		convID, convID, clientID,
	).Scan(&title, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("verify conversation: %w", err)
	}
	if count == 0 && msg.Sender == models.SenderUser {
		title = TitleFrom(msg.Content)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, sender, content, type, media_url, table_html, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, convID, msg.Sender, msg.Content, msg.Type, msg.MediaURL, msg.TableHTML, msg.Timestamp,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
		title, s.now().UTC(), convID,
	); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit message: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation; its messages cascade.
func (s *Service) DeleteConversation(ctx context.Context, clientID, convID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ? AND client_id = ?`, convID, clientID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return expectAffected(res, ErrConversationNotFound)
}

// History returns the messages of a conversation, or nil when it has none.
func (s *Service) History(ctx context.Context, clientID, convID string) ([]*models.ChatMessage, error) {
	conv, err := s.GetConversation(ctx, clientID, convID)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}
