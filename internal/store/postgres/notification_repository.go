package postgres

import (
	"context"

	"airtime/internal/domain/notification"
	"airtime/internal/store/repositories"

	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, sim_id, identity, text, type, transaction_id, received_at`

// notificationRepository implements NotificationRepository
type notificationRepository struct {
	q querier
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(q querier) repositories.NotificationRepository {
	return &notificationRepository{q: q}
}

// Save inserts a notification. Existing rows only ever change through
// LinkTransaction, so Save refuses to rewrite them.
func (r *notificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	if n.ID != 0 {
		ok, err := exists(ctx, r.q, "operator_notifications", n.ID)
		if err != nil {
			return err
		}
		if !ok {
			return repositories.ErrNotFound
		}
		return nil
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO operator_notifications (sim_id, identity, text, type, transaction_id, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		n.SIMID, n.Identity, n.Text, string(n.Type), n.TransactionID, n.Received).Scan(&n.ID)
}

func (r *notificationRepository) FindByID(ctx context.Context, id int64) (*notification.Notification, error) {
	row := r.q.QueryRow(ctx, `SELECT `+notificationColumns+` FROM operator_notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

func (r *notificationRepository) List(ctx context.Context, limit, offset int) ([]*notification.Notification, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM operator_notifications
		ORDER BY id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// LinkTransaction sets transaction_id once.
func (r *notificationRepository) LinkTransaction(ctx context.Context, notificationID, transactionID int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE operator_notifications
		SET transaction_id = $1
		WHERE id = $2 AND transaction_id IS NULL`, transactionID, notificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	ok, err := exists(ctx, r.q, "operator_notifications", notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return repositories.ErrNotFound
	}
	return repositories.ErrConflict
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	var typ string
	if err := row.Scan(&n.ID, &n.SIMID, &n.Identity, &n.Text, &typ, &n.TransactionID, &n.Received); err != nil {
		return nil, err
	}
	n.Type = notification.Type(typ)
	return &n, nil
}
