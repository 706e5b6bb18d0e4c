// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User
// model's moderation fields.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
)

// GetUser fetches a user by ID, returning ErrNotFound when absent.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user row. Account provisioning lives in the external
// account system; this helper exists for migrations, seeding, and tests.
func CreateUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	u := &domain.User{ID: id, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// IncrementReportCount bumps a user's report counter and flips IsBanned once
// the counter reaches banThreshold. Both happen in one transaction so two
// concurrent reports cannot lose an increment. The updated user is returned.
func IncrementReportCount(ctx context.Context, db *gorm.DB, userID string, banThreshold int) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		u.ReportCount++
		if banThreshold > 0 && u.ReportCount >= banThreshold {
			u.IsBanned = true
		}
		return tx.Model(&domain.User{}).Where("id = ?", userID).
			Updates(map[string]any{"report_count": u.ReportCount, "is_banned": u.IsBanned}).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}
