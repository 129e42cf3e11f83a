package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
)

const notificationColumns = `id, notification_id, negotiation_id, kind, dedupe_key, channel, title, body, payload, status, recipient_id, recipient_group, last_error, created_at, sent_at, read_at`

// NotificationRepository implements notification.Repository.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications
		(notification_id, negotiation_id, kind, dedupe_key, channel, title, body, payload, status, recipient_id, recipient_group, last_error, created_at, sent_at, read_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id
	`, n.NotificationID, n.NegotiationID, n.Kind, n.DedupeKey, n.Channel, n.Title, n.Body, nullJSON(n.Payload), n.Status, n.RecipientID, n.RecipientGroup, n.LastError, n.CreatedAt, n.SentAt, n.ReadAt)
	return row.Scan(&n.ID)
}

func (r *NotificationRepository) GetByID(ctx context.Context, notificationID uuid.UUID) (*notification.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE notification_id=$1`, notificationID)
	return scanNotification(row)
}

func (r *NotificationRepository) FindByDedupeKey(ctx context.Context, dedupeKey string) (*notification.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE dedupe_key=$1`, dedupeKey)
	return scanNotification(row)
}

func (r *NotificationRepository) List(ctx context.Context, filter notification.Filter, limit, offset int) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications`
	args := []interface{}{}
	idx := 1
	if filter.NegotiationID != nil {
		query += " WHERE negotiation_id=$" + itoa(idx)
		args = append(args, *filter.NegotiationID)
		idx++
	}
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	switch {
	case filter.RecipientID != nil && len(filter.Groups) > 0:
		query += addWhere(query) + " (recipient_id=$" + itoa(idx) + " OR recipient_group = ANY($" + itoa(idx+1) + "))"
		args = append(args, *filter.RecipientID, filter.Groups)
		idx += 2
	case filter.RecipientID != nil:
		query += addWhere(query) + " recipient_id=$" + itoa(idx)
		args = append(args, *filter.RecipientID)
		idx++
	case len(filter.Groups) > 0:
		query += addWhere(query) + " recipient_group = ANY($" + itoa(idx) + ")"
		args = append(args, filter.Groups)
		idx++
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) UpdateStatus(ctx context.Context, notificationID uuid.UUID, status notification.Status, at time.Time) error {
	var err error
	switch status {
	case notification.StatusSent:
		_, err = r.pool.Exec(ctx, `UPDATE notifications SET status=$1, sent_at=$2, last_error=NULL WHERE notification_id=$3`, status, at, notificationID)
	case notification.StatusRead:
		_, err = r.pool.Exec(ctx, `UPDATE notifications SET status=$1, read_at=$2 WHERE notification_id=$3`, status, at, notificationID)
	default:
		_, err = r.pool.Exec(ctx, `UPDATE notifications SET status=$1 WHERE notification_id=$2`, status, notificationID)
	}
	return err
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	var payload []byte
	if err := row.Scan(&n.ID, &n.NotificationID, &n.NegotiationID, &n.Kind, &n.DedupeKey, &n.Channel, &n.Title, &n.Body, &payload, &n.Status, &n.RecipientID, &n.RecipientGroup, &n.LastError, &n.CreatedAt, &n.SentAt, &n.ReadAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(payload) > 0 {
		n.Payload = payload
	}
	return &n, nil
}
