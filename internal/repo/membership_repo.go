// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file is the membership store: the durable record of
// which users belong to which groups and under which handle.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
)

// GetMembership returns the membership row for (groupID, userID) or
// ErrNotFound.
func GetMembership(ctx context.Context, db *gorm.DB, groupID, userID string) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMembershipByHandle resolves the owner of a handle within a group. When
// two users share a handle (an accepted join-race tolerance) the earliest
// membership wins, matching insertion order.
func GetMembershipByHandle(ctx context.Context, db *gorm.DB, groupID, handle string) (*domain.Membership, error) {
	var m domain.Membership
	err := db.WithContext(ctx).
		Where("group_id = ? AND handle = ?", groupID, handle).
		Order("created_at ASC, id ASC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMembers returns the number of memberships in a group. The count feeds
// ordinal handle assignment.
func CountMembers(ctx context.Context, db *gorm.DB, groupID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Membership{}).
		Where("group_id = ?", groupID).
		Count(&total).Error
	return total, err
}

// CreateMembership inserts a membership row. A concurrent first join for the
// same (group, user) pair surfaces as ErrDuplicate via the unique index; the
// caller re-reads the surviving row instead of failing the join.
func CreateMembership(ctx context.Context, db *gorm.DB, groupID, userID, handle string) (*domain.Membership, error) {
	m := &domain.Membership{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		UserID:    userID,
		Handle:    handle,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}

// ListMemberHandles returns the handles of all group members ordered by join
// time. It never selects user IDs, so callers cannot accidentally leak the
// real identity behind a handle.
func ListMemberHandles(ctx context.Context, db *gorm.DB, groupID string) ([]string, error) {
	var handles []string
	err := db.WithContext(ctx).Model(&domain.Membership{}).
		Where("group_id = ?", groupID).
		Order("created_at ASC, id ASC").
		Pluck("handle", &handles).Error
	return handles, err
}
