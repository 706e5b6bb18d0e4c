// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Group model.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
)

// GetGroup fetches a group by ID, returning ErrNotFound when absent.
func GetGroup(ctx context.Context, db *gorm.DB, id string) (*domain.Group, error) {
	var g domain.Group
	err := db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroupByCode fetches a group by its invite code (case-insensitive; codes
// are stored uppercase).
func GetGroupByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Group, error) {
	var g domain.Group
	err := db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup inserts a group row. Group provisioning (including code
// generation) lives in the external management surface; this helper exists
// for migrations, seeding, and tests.
func CreateGroup(ctx context.Context, db *gorm.DB, name, code, createdBy string) (*domain.Group, error) {
	g := &domain.Group{
		ID:        uuid.NewString(),
		Name:      name,
		Code:      strings.ToUpper(code),
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(g).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return g, nil
}
