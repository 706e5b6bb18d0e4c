// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file is the block registry: directed blocker→blocked
// edges consulted during delivery fan-out.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
)

// IsBlocked reports whether blockerID has blocked blockedID. The relation is
// directional; the reverse edge is never consulted.
func IsBlocked(ctx context.Context, db *gorm.DB, blockerID, blockedID string) (bool, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.BlockRelation{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&total).Error
	return total > 0, err
}

// CreateBlock inserts a blocker→blocked edge. The insert is idempotent: an
// existing edge is not an error.
func CreateBlock(ctx context.Context, db *gorm.DB, blockerID, blockedID string) error {
	b := &domain.BlockRelation{
		ID:        uuid.NewString(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

// BlockersOf returns the subset of candidateIDs that have blocked senderID.
// One batched query replaces a per-recipient point lookup during fan-out, so
// fan-out cost does not scale with room size times lookup latency.
func BlockersOf(ctx context.Context, db *gorm.DB, senderID string, candidateIDs []string) (map[string]struct{}, error) {
	blockers := make(map[string]struct{})
	if len(candidateIDs) == 0 {
		return blockers, nil
	}
	var ids []string
	err := db.WithContext(ctx).Model(&domain.BlockRelation{}).
		Where("blocked_id = ? AND blocker_id IN ?", senderID, candidateIDs).
		Pluck("blocker_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		blockers[id] = struct{}{}
	}
	return blockers, nil
}
