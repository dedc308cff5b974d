// Package notify records notifications for clinic users. Delivery is a
// placeholder: no SMS or email leaves the system, records are just marked
// sent by the worker so the dashboard can show them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	ChannelPlaceholder = "placeholder"

	StatusPending = "pending"
	StatusSent    = "sent"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Channel   string
	Subject   string
	Message   string
	Status    string
	CreatedAt time.Time
	SentAt    *time.Time
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	Insert(ctx context.Context, n Notification) (*Notification, error)
	FindPending(ctx context.Context, limit int) ([]Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const notificationColumns = "id, user_id, channel, subject, message, status, created_at, sent_at"

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Channel,
		&n.Subject,
		&n.Message,
		&n.Status,
		&n.CreatedAt,
		&n.SentAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *PgRepository) Insert(ctx context.Context, n Notification) (*Notification, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, channel, subject, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+notificationColumns+`
	`, n.ID, n.UserID, n.Channel, n.Subject, n.Message, n.Status)
	return scanNotification(row)
}

func (r *PgRepository) FindPending(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *PgRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent', sent_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, sentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create queues a notification for placeholder delivery.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, subject, message, channel string) (*Notification, error) {
	if channel == "" {
		channel = ChannelPlaceholder
	}
	created, err := s.repo.Insert(ctx, Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Channel: channel,
		Subject: subject,
		Message: message,
		Status:  StatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return created, nil
}

// DispatchPending is called by the worker periodically. The placeholder
// channel never contacts any provider, it only flips the status.
func (s *Service) DispatchPending(ctx context.Context) (int, error) {
	pending, err := s.repo.FindPending(ctx, 100)
	if err != nil {
		return 0, fmt.Errorf("find pending notifications: %w", err)
	}

	dispatched := 0
	for _, n := range pending {
		if err := s.repo.MarkSent(ctx, n.ID, time.Now()); err != nil {
			if errors.Is(err, ErrNotificationNotFound) {
				continue
			}
			log.Printf("failed to dispatch notification %s: %v", n.ID, err)
			continue
		}
		log.Printf("notification %s dispatched via %s channel (no-op delivery)", n.ID, n.Channel)
		dispatched++
	}

	return dispatched, nil
}
