package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/model"
)

// LogFilter narrows the delivery-log listing.
type LogFilter struct {
	Search string // matches subscriber name, phone, or message text
	Status model.DeliveryStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// DeliveryLogWithSubscriber is a log row joined with recipient identity for
// display.
type DeliveryLogWithSubscriber struct {
	model.DeliveryLog
	SubscriberName  string `json:"subscriber_name,omitempty"`
	SubscriberPhone string `json:"subscriber_phone,omitempty"`
}

// DeliveryLogStore persists one row per delivery attempt plus inbound
// replies. Rows are appended and status-advanced, never deleted.
type DeliveryLogStore interface {
	Create(ctx context.Context, l *model.DeliveryLog) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus, telnyxMessageID, errorMessage string) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.DeliveryLog, error)
	GetByTelnyxID(ctx context.Context, telnyxMessageID string) (*model.DeliveryLog, error)
	HasDelivered(ctx context.Context, messageID, subscriberID uuid.UUID) (bool, error)
	CountsByMessage(ctx context.Context) (map[uuid.UUID]map[model.DeliveryStatus]int, error)
	CountByMessageAndStatus(ctx context.Context, messageID uuid.UUID, status model.DeliveryStatus) (int, error)
	List(ctx context.Context, f LogFilter) ([]DeliveryLogWithSubscriber, int, error)
}

type PostgresDeliveryLogStore struct {
	DB *sql.DB
}

func (r *PostgresDeliveryLogStore) Create(ctx context.Context, l *model.DeliveryLog) error {
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = time.Now()
	}
	query := `
        INSERT INTO delivery_logs
        (id, message_id, subscriber_id, direction, status, message_text, telnyx_message_id, error_message, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)
    `
	_, err := r.DB.ExecContext(ctx, query,
		l.ID,
		uuidOrNil(l.MessageID),
		uuidOrNil(l.SubscriberID),
		l.Direction,
		l.Status,
		l.MessageText,
		l.TelnyxMessageID,
		l.ErrorMessage,
		l.UpdatedAt,
	)
	if err != nil {
		return appErrors.NewStorage("create delivery log", err)
	}
	return nil
}

func (r *PostgresDeliveryLogStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus, telnyxMessageID, errorMessage string) error {
	query := `
        UPDATE delivery_logs
        SET status=$1,
            telnyx_message_id=COALESCE(NULLIF($2, ''), telnyx_message_id),
            error_message=NULLIF($3, ''),
            updated_at=$4
        WHERE id=$5
    `
	res, err := r.DB.ExecContext(ctx, query, status, telnyxMessageID, errorMessage, time.Now(), id)
	if err != nil {
		return appErrors.NewStorage("update delivery log status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewDeliveryLogNotFound(id)
	}
	return nil
}

const deliveryLogColumns = `id, message_id, subscriber_id, direction, status, message_text, telnyx_message_id, error_message, updated_at`

func (r *PostgresDeliveryLogStore) GetByID(ctx context.Context, id uuid.UUID) (*model.DeliveryLog, error) {
	query := `SELECT ` + deliveryLogColumns + ` FROM delivery_logs WHERE id=$1`
	return scanDeliveryLog(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PostgresDeliveryLogStore) GetByTelnyxID(ctx context.Context, telnyxMessageID string) (*model.DeliveryLog, error) {
	// At-most-one match expected; latest row wins if the vendor ever reuses
	// an id.
	query := `SELECT ` + deliveryLogColumns + ` FROM delivery_logs
        WHERE telnyx_message_id=$1 ORDER BY updated_at DESC LIMIT 1`
	return scanDeliveryLog(r.DB.QueryRowContext(ctx, query, telnyxMessageID))
}

func (r *PostgresDeliveryLogStore) HasDelivered(ctx context.Context, messageID, subscriberID uuid.UUID) (bool, error) {
	query := `
        SELECT 1 FROM delivery_logs
        WHERE message_id=$1 AND subscriber_id=$2 AND status='delivered'
        LIMIT 1
    `
	var tmp int
	err := r.DB.QueryRowContext(ctx, query, messageID, subscriberID).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, appErrors.NewStorage("check delivered", err)
	}
	return true, nil
}

func (r *PostgresDeliveryLogStore) CountsByMessage(ctx context.Context) (map[uuid.UUID]map[model.DeliveryStatus]int, error) {
	query := `
        SELECT message_id, status, COUNT(*)
        FROM delivery_logs
        WHERE direction='outbound' AND message_id IS NOT NULL
        GROUP BY message_id, status
    `
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, appErrors.NewStorage("count delivery logs", err)
	}
	defer rows.Close()

	counts := map[uuid.UUID]map[model.DeliveryStatus]int{}
	for rows.Next() {
		var messageID uuid.UUID
		var status model.DeliveryStatus
		var count int
		if err := rows.Scan(&messageID, &status, &count); err != nil {
			return nil, appErrors.NewStorage("scan delivery counts", err)
		}
		if counts[messageID] == nil {
			counts[messageID] = map[model.DeliveryStatus]int{}
		}
		counts[messageID][status] = count
	}
	return counts, rows.Err()
}

func (r *PostgresDeliveryLogStore) CountByMessageAndStatus(ctx context.Context, messageID uuid.UUID, status model.DeliveryStatus) (int, error) {
	query := `
        SELECT COUNT(*) FROM delivery_logs
        WHERE direction='outbound' AND message_id=$1 AND status=$2
    `
	var count int
	if err := r.DB.QueryRowContext(ctx, query, messageID, status).Scan(&count); err != nil {
		return 0, appErrors.NewStorage("count delivery logs", err)
	}
	return count, nil
}

func (r *PostgresDeliveryLogStore) List(ctx context.Context, f LogFilter) ([]DeliveryLogWithSubscriber, int, error) {
	base := `
        FROM delivery_logs l
        LEFT JOIN subscribers s ON s.id = l.subscriber_id
        WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if f.Status != "" {
		base += fmt.Sprintf(" AND l.status=$%d", argPos)
		args = append(args, f.Status)
		argPos++
	}
	if f.Search != "" {
		base += fmt.Sprintf(" AND (s.name ILIKE $%d OR s.phone_number ILIKE $%d OR l.message_text ILIKE $%d)", argPos, argPos, argPos)
		args = append(args, "%"+f.Search+"%")
		argPos++
	}
	if f.From != nil {
		base += fmt.Sprintf(" AND l.updated_at >= $%d", argPos)
		args = append(args, *f.From)
		argPos++
	}
	if f.To != nil {
		base += fmt.Sprintf(" AND l.updated_at <= $%d", argPos)
		args = append(args, *f.To)
		argPos++
	}

	countQuery := `SELECT COUNT(*) ` + base
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, appErrors.NewStorage("count delivery log listing", err)
	}

	query := `SELECT l.id, l.message_id, l.subscriber_id, l.direction, l.status, l.message_text,
        l.telnyx_message_id, l.error_message, l.updated_at,
        COALESCE(s.name, ''), COALESCE(s.phone_number, '') ` + base
	query += fmt.Sprintf(" ORDER BY l.updated_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, appErrors.NewStorage("list delivery logs", err)
	}
	defer rows.Close()

	logs := []DeliveryLogWithSubscriber{}
	for rows.Next() {
		var l DeliveryLogWithSubscriber
		var messageID, subscriberID uuid.NullUUID
		var telnyxID, errMsg sql.NullString
		err := rows.Scan(&l.ID, &messageID, &subscriberID, &l.Direction, &l.Status, &l.MessageText,
			&telnyxID, &errMsg, &l.UpdatedAt, &l.SubscriberName, &l.SubscriberPhone)
		if err != nil {
			return nil, 0, appErrors.NewStorage("scan delivery log", err)
		}
		if messageID.Valid {
			l.MessageID = &messageID.UUID
		}
		if subscriberID.Valid {
			l.SubscriberID = &subscriberID.UUID
		}
		l.TelnyxMessageID = telnyxID.String
		l.ErrorMessage = errMsg.String
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

func scanDeliveryLog(row *sql.Row) (*model.DeliveryLog, error) {
	var l model.DeliveryLog
	var messageID, subscriberID uuid.NullUUID
	var telnyxID, errMsg sql.NullString
	err := row.Scan(&l.ID, &messageID, &subscriberID, &l.Direction, &l.Status, &l.MessageText,
		&telnyxID, &errMsg, &l.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, appErrors.NewStorage("get delivery log", err)
	}
	if messageID.Valid {
		l.MessageID = &messageID.UUID
	}
	if subscriberID.Valid {
		l.SubscriberID = &subscriberID.UUID
	}
	l.TelnyxMessageID = telnyxID.String
	l.ErrorMessage = errMsg.String
	return &l, nil
}

func uuidOrNil(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
