package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/model"
)

// MessageStore persists broadcast messages.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error)
	List(ctx context.Context) ([]model.Message, error)
}

type PostgresMessageStore struct {
	DB *sql.DB
}

func (r *PostgresMessageStore) Create(ctx context.Context, m *model.Message) error {
	query := `
        INSERT INTO messages (id, body, sent_at, current_active_subscribers)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.DB.ExecContext(ctx, query, m.ID, m.Body, m.SentAt, m.CurrentActiveSubscribers)
	if err != nil {
		return appErrors.NewStorage("create message", err)
	}
	return nil
}

func (r *PostgresMessageStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	query := `
        SELECT id, body, sent_at, current_active_subscribers
        FROM messages WHERE id=$1
    `
	var m model.Message
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Body, &m.SentAt, &m.CurrentActiveSubscribers)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, appErrors.NewStorage("get message", err)
	}
	return &m, nil
}

func (r *PostgresMessageStore) List(ctx context.Context) ([]model.Message, error) {
	query := `
        SELECT id, body, sent_at, current_active_subscribers
        FROM messages ORDER BY sent_at DESC
    `
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, appErrors.NewStorage("list messages", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.Body, &m.SentAt, &m.CurrentActiveSubscribers); err != nil {
			return nil, appErrors.NewStorage("scan message", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
