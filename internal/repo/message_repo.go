// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file is the message log: an append-only, time-ordered
// store whose reads exclude rows past the retention window.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
)

// CreateMessage inserts a new message row with the given creation time.
// Messages are immutable once created.
func CreateMessage(ctx context.Context, db *gorm.DB, groupID, handle, text string, createdAt time.Time) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Handle:    handle,
		Text:      text,
		CreatedAt: createdAt,
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// GetMessage fetches a single message by primary key. Returns ErrNotFound
// when no row exists.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns group messages newer than cutoff, ordered
// deterministically (CreatedAt ASC, ID ASC). The cutoff makes expiry lazy:
// rows the sweeper has not removed yet are still invisible to readers.
func ListMessages(ctx context.Context, db *gorm.DB, groupID string, cutoff time.Time) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("group_id = ? AND created_at > ?", groupID, cutoff).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListMessagesPage returns a paginated slice of unexpired group messages
// ordered (CreatedAt ASC, ID ASC).
func ListMessagesPage(ctx context.Context, db *gorm.DB, groupID string, cutoff time.Time, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("group_id = ? AND created_at > ?", groupID, cutoff).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, groupID string, cutoff time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE group_id = ? AND created_at > ?", groupID, cutoff).
		Scan(&total).Error
	return total, err
}

// DeleteMessagesBefore removes message rows at or older than cutoff and
// returns the number of rows deleted. Used by the retention sweeper.
func DeleteMessagesBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at <= ?", cutoff).
		Delete(&domain.Message{})
	return res.RowsAffected, res.Error
}
