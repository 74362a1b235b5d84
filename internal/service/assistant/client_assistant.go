package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"meligy/internal/models"
)

var (
	ErrClientNotFound       = errors.New("client not found")
	ErrConversationNotFound = errors.New("conversation not found")
)

// Service persists clients, conversations and their messages.
type Service struct {
	db  *sql.DB
	ids *IDGenerator
	now func() time.Time
}

// NewService builds a new assistant service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db, ids: NewIDGenerator(), now: time.Now}
}

// IDs returns the message id generator shared by this service.
func (s *Service) IDs() *IDGenerator { return s.ids }

// RegisterClient creates an anonymous client with a fresh id.
func (s *Service) RegisterClient(ctx context.Context) (*models.Client, error) {
	client := &models.Client{ID: uuid.NewString(), CreatedAt: s.now().UTC()}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, subscribed, created_at) VALUES (?, ?, ?)`,
		client.ID, false, client.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// GetClient loads one client by id.
func (s *Service) GetClient(ctx context.Context, id string) (*models.Client, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrClientNotFound
	}
	var c models.Client
	err := s.db.QueryRowContext(ctx,
		`SELECT id, subscribed, created_at FROM clients WHERE id = ?`, id,
	).Scan(&c.ID, &c.Subscribed, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("query client: %w", err)
	}
	return &c, nil
}

// SetSubscribed updates the subscription flag that bypasses the daily limit.
func (s *Service) SetSubscribed(ctx context.Context, id string, subscribed bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE clients SET subscribed = ? WHERE id = ?`, subscribed, id)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return expectAffected(res, ErrClientNotFound)
}

// DeleteClient removes a client; tokens, conversations and messages cascade.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return expectAffected(res, ErrClientNotFound)
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
