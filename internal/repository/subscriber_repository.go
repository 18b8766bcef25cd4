package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/model"
)

// SubscriberStore holds the opt-in recipient list.
type SubscriberStore interface {
	// Upsert inserts by phone number; re-adding an existing number
	// reactivates the row instead of duplicating it.
	Upsert(ctx context.Context, s *model.Subscriber) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Subscriber, error)
	GetByPhone(ctx context.Context, phone string) (*model.Subscriber, error)
	List(ctx context.Context) ([]model.Subscriber, error)
	ListActive(ctx context.Context) ([]model.Subscriber, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubscriberStatus) error
}

type PostgresSubscriberStore struct {
	DB *sql.DB
}

func (r *PostgresSubscriberStore) Upsert(ctx context.Context, s *model.Subscriber) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.JoinedAt.IsZero() {
		s.JoinedAt = time.Now()
	}
	if s.Status == "" {
		s.Status = model.SubscriberActive
	}

	// phone_number is the natural key: conflict reactivates instead of
	// duplicating, and keeps the original id and joined_at.
	query := `
        INSERT INTO subscribers (id, phone_number, name, status, joined_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (phone_number) DO UPDATE
        SET status = 'active', name = COALESCE(NULLIF(EXCLUDED.name, ''), subscribers.name)
        RETURNING id, joined_at, status
    `
	err := r.DB.QueryRowContext(ctx, query, s.ID, s.PhoneNumber, s.Name, s.Status, s.JoinedAt).
		Scan(&s.ID, &s.JoinedAt, &s.Status)
	if err != nil {
		return appErrors.NewStorage("upsert subscriber", err)
	}
	return nil
}

func (r *PostgresSubscriberStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Subscriber, error) {
	query := `
        SELECT id, phone_number, name, status, joined_at
        FROM subscribers WHERE id=$1
    `
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PostgresSubscriberStore) GetByPhone(ctx context.Context, phone string) (*model.Subscriber, error) {
	query := `
        SELECT id, phone_number, name, status, joined_at
        FROM subscribers WHERE phone_number=$1
    `
	return r.scanOne(r.DB.QueryRowContext(ctx, query, phone))
}

func (r *PostgresSubscriberStore) scanOne(row *sql.Row) (*model.Subscriber, error) {
	var s model.Subscriber
	if err := row.Scan(&s.ID, &s.PhoneNumber, &s.Name, &s.Status, &s.JoinedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, appErrors.NewStorage("get subscriber", err)
	}
	return &s, nil
}

func (r *PostgresSubscriberStore) List(ctx context.Context) ([]model.Subscriber, error) {
	query := `
        SELECT id, phone_number, name, status, joined_at
        FROM subscribers ORDER BY joined_at DESC
    `
	return r.list(ctx, query)
}

func (r *PostgresSubscriberStore) ListActive(ctx context.Context) ([]model.Subscriber, error) {
	query := `
        SELECT id, phone_number, name, status, joined_at
        FROM subscribers WHERE status='active' ORDER BY joined_at DESC
    `
	return r.list(ctx, query)
}

func (r *PostgresSubscriberStore) list(ctx context.Context, query string) ([]model.Subscriber, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, appErrors.NewStorage("list subscribers", err)
	}
	defer rows.Close()

	subscribers := []model.Subscriber{}
	for rows.Next() {
		var s model.Subscriber
		if err := rows.Scan(&s.ID, &s.PhoneNumber, &s.Name, &s.Status, &s.JoinedAt); err != nil {
			return nil, appErrors.NewStorage("scan subscriber", err)
		}
		subscribers = append(subscribers, s)
	}
	return subscribers, rows.Err()
}

func (r *PostgresSubscriberStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubscriberStatus) error {
	query := `UPDATE subscribers SET status=$1 WHERE id=$2`
	res, err := r.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return appErrors.NewStorage("update subscriber status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewSubscriberNotFound(id)
	}
	return nil
}
