// ===============================
// internal/services/notification.go - Stored notifications with realtime push
// ===============================

package services

import (
	"context"

	"freezybe/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Notifier pushes a stored notification to a connected user.
type Notifier interface {
	PushNotification(userID string, n *models.Notification)
}

type NotificationService struct {
	db       *sqlx.DB
	notifier Notifier
	logger   *zap.Logger
}

func NewNotificationService(db *sqlx.DB, notifier Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{db: db, notifier: notifier, logger: logger}
}

const insertNotification = `
	INSERT INTO notifications (id, user_id, title, body, type, data)
	VALUES (:id, :user_id, :title, :body, :type, :data)
	RETURNING created_at`

func newNotification(uid string, tpl models.NotificationTemplate) *models.Notification {
	notificationType := tpl.Type
	if notificationType == "" {
		notificationType = models.NotificationGeneral
	}
	data := tpl.Data
	if data == nil {
		data = models.JSONMap{}
	}
	return &models.Notification{
		ID:     uuid.New().String(),
		UserID: uid,
		Title:  tpl.Title,
		Body:   tpl.Body,
		Type:   notificationType,
		Data:   data,
	}
}

// storeNotification inserts n with any sqlx executor so admin actions can
// write it inside their own transaction.
func storeNotification(ctx context.Context, ext sqlx.ExtContext, n *models.Notification) error {
	rows, err := sqlx.NamedQueryContext(ctx, ext, insertNotification, n)
	if err != nil {
		return errors.Wrap(err, "failed to store notification")
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&n.CreatedAt); err != nil {
			return errors.Wrap(err, "failed to read notification")
		}
	}
	return nil
}

// Send stores a notification and pushes it to the user when connected.
func (s *NotificationService) Send(ctx context.Context, uid string, tpl models.NotificationTemplate) (*models.Notification, error) {
	n := newNotification(uid, tpl)
	if err := storeNotification(ctx, s.db, n); err != nil {
		return nil, err
	}
	s.Push(n)
	return n, nil
}

// Push delivers an already stored notification.
func (s *NotificationService) Push(n *models.Notification) {
	if s.notifier != nil {
		s.notifier.PushNotification(n.UserID, n)
	}
}

// SendToAdmins notifies every admin, e.g. when a payment proof arrives.
func (s *NotificationService) SendToAdmins(ctx context.Context, tpl models.NotificationTemplate) (int, error) {
	var admins []string
	if err := s.db.SelectContext(ctx, &admins, "SELECT uid FROM users WHERE user_type = 'admin'"); err != nil {
		return 0, errors.Wrap(err, "failed to list admins")
	}

	sent := 0
	for _, uid := range admins {
		if _, err := s.Send(ctx, uid, tpl); err != nil {
			s.logger.Warn("failed to notify admin", zap.String("uid", uid), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// List returns one page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, uid string, limit, offset int) (*models.NotificationListResponse, error) {
	notifications := []models.Notification{}
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT id, user_id, title, body, type, data, is_read, created_at, read_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, uid, limit+1, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}

	hasMore := len(notifications) > limit
	if hasMore {
		notifications = notifications[:limit]
	}

	unread, err := s.UnreadCount(ctx, uid)
	if err != nil {
		return nil, err
	}

	return &models.NotificationListResponse{Notifications: notifications, HasMore: hasMore, UnreadCount: unread}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, uid string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false", uid)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count unread notifications")
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, uid, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = true, read_at = COALESCE(read_at, NOW())
		WHERE id::text = $1 AND user_id = $2`, id, uid)
	if err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, uid string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = true, read_at = NOW()
		WHERE user_id = $1 AND is_read = false`, uid)
	if err != nil {
		return 0, errors.Wrap(err, "failed to mark notifications read")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *NotificationService) Delete(ctx context.Context, uid, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE id::text = $1 AND user_id = $2", id, uid)
	if err != nil {
		return errors.Wrap(err, "failed to delete notification")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
