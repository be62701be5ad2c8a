package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dashboard/internal/models"

	"go.uber.org/zap"
)

// SubscriptionRepository defines the interface for notification subscriptions.
type SubscriptionRepository interface {
	// Create inserts the subscription unless the chat is already subscribed to
	// that student and event type. It reports whether a row was added.
	Create(ctx context.Context, sub *models.Subscription) (bool, error)
	GetByChatID(ctx context.Context, chatID int64) ([]*models.Subscription, error)
	GetMatching(ctx context.Context, studentName string, eventType models.EventType) ([]*models.Subscription, error)
	DeleteByChatID(ctx context.Context, chatID int64) (int64, error)
}

type subscriptionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *DB, logger *zap.Logger) SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

var subscriptionColumns = []string{"id", "chat_id", "student_id", "student_name", "organization_id", "event_type", "created_at"}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) (bool, error) {
	query, args, err := r.db.Builder.
		Insert("subscriptions").
		Columns("chat_id", "student_id", "student_name", "organization_id", "event_type", "created_at").
		Values(sub.ChatID, sub.StudentID, sub.StudentName, sub.OrganizationID, sub.EventType, sub.CreatedAt).
		Suffix("ON CONFLICT (chat_id, student_id, event_type) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert subscription: %w", err)
	}

	err = r.db.QueryRowxContext(ctx, query, args...).Scan(&sub.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		r.logger.Error("Failed to create subscription", zap.Int64("chat_id", sub.ChatID), zap.Error(err))
		return false, err
	}

	return true, nil
}

func (r *subscriptionRepository) GetByChatID(ctx context.Context, chatID int64) ([]*models.Subscription, error) {
	query, args, err := r.db.Builder.
		Select(subscriptionColumns...).
		From("subscriptions").
		Where("chat_id = ?", chatID).
		OrderBy("student_name", "event_type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select subscriptions: %w", err)
	}

	var subs []*models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		r.logger.Error("Failed to get subscriptions by chat", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, err
	}

	return subs, nil
}

func (r *subscriptionRepository) GetMatching(ctx context.Context, studentName string, eventType models.EventType) ([]*models.Subscription, error) {
	query, args, err := r.db.Builder.
		Select(subscriptionColumns...).
		From("subscriptions").
		Where("student_name = ? AND event_type = ?", studentName, eventType).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select subscriptions: %w", err)
	}

	var subs []*models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		r.logger.Error("Failed to get matching subscriptions",
			zap.String("student_name", studentName),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
		return nil, err
	}

	return subs, nil
}

func (r *subscriptionRepository) DeleteByChatID(ctx context.Context, chatID int64) (int64, error) {
	query, args, err := r.db.Builder.
		Delete("subscriptions").
		Where("chat_id = ?", chatID).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete subscriptions: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to delete subscriptions", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0, err
	}

	return result.RowsAffected()
}
