// Package services – IdentityService
//
// This file implements the identity resolver: the component that maps a
// long-lived user identity to a per-group pseudonymous handle. It owns the
// invariant that one user has exactly one handle per group, delegating
// enforcement to the membership store's (group_id, user_id) unique index
// because concurrent first joins race.
//
// Handle assignment is intentionally cheap: a pseudo-random prefix from a
// small fixed vocabulary plus the current member count + 1. Two racing first
// joins by different users may observe the same count and end up with the
// same handle; that collision is a known, accepted tolerance rather than a
// bug, and nothing here tries to deduplicate handles.
package services

import (
	"context"
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
)

// handlePrefixes is the fixed vocabulary for generated handles.
var handlePrefixes = []string{"User", "Member", "Guest", "Anon"}

// MembershipRepo defines the membership store contract required by
// IdentityService.
type MembershipRepo interface {
	// GetMembership returns the row for (groupID, userID) or repo.ErrNotFound.
	GetMembership(ctx context.Context, db *gorm.DB, groupID, userID string) (*domain.Membership, error)

	// GetMembershipByHandle resolves the owner of a handle within a group.
	GetMembershipByHandle(ctx context.Context, db *gorm.DB, groupID, handle string) (*domain.Membership, error)

	// CountMembers returns the group's member count for ordinal assignment.
	CountMembers(ctx context.Context, db *gorm.DB, groupID string) (int64, error)

	// CreateMembership inserts a row, returning repo.ErrDuplicate when the
	// (group, user) pair already exists.
	CreateMembership(ctx context.Context, db *gorm.DB, groupID, userID, handle string) (*domain.Membership, error)
}

// IdentityService resolves and assigns per-group pseudonymous handles.
type IdentityService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the membership store used by this service.
	Repo MembershipRepo

	// PickPrefix selects a prefix from the handle vocabulary. Defaults to a
	// uniform pseudo-random pick; tests pin it for determinism.
	PickPrefix func() string
}

// NewIdentityService constructs an IdentityService with the default
// pseudo-random prefix picker.
func NewIdentityService(db *gorm.DB, r MembershipRepo) *IdentityService {
	return &IdentityService{
		DB:   db,
		Repo: r,
		PickPrefix: func() string {
			return handlePrefixes[rand.Intn(len(handlePrefixes))]
		},
	}
}

// ResolveOrAssignHandle returns the user's handle in the group, creating the
// membership on first join. The call is idempotent: an existing membership
// short-circuits, and a lost insert race falls back to the surviving row.
func (s *IdentityService) ResolveOrAssignHandle(ctx context.Context, groupID, userID string) (string, error) {
	if m, err := s.Repo.GetMembership(ctx, s.DB, groupID, userID); err == nil {
		return m.Handle, nil
	} else if !isNotFound(err) {
		return "", err
	}

	count, err := s.Repo.CountMembers(ctx, s.DB, groupID)
	if err != nil {
		return "", err
	}
	handle := fmt.Sprintf("%s%d", s.prefix(), count+1)

	m, err := s.Repo.CreateMembership(ctx, s.DB, groupID, userID, handle)
	if err == nil {
		return m.Handle, nil
	}
	if isDuplicate(err) {
		// Lost the first-join race: another request inserted our row. The
		// surviving handle is authoritative.
		existing, gerr := s.Repo.GetMembership(ctx, s.DB, groupID, userID)
		if gerr != nil {
			return "", gerr
		}
		return existing.Handle, nil
	}
	return "", err
}

// MemberHandle returns the user's handle in the group without assigning one,
// or ErrNotAMember when no membership exists.
func (s *IdentityService) MemberHandle(ctx context.Context, groupID, userID string) (string, error) {
	m, err := s.Repo.GetMembership(ctx, s.DB, groupID, userID)
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotAMember
		}
		return "", err
	}
	return m.Handle, nil
}

// HandleOwner resolves the real user behind a handle in a group. The result
// stays server-side; it is never exposed to other clients.
func (s *IdentityService) HandleOwner(ctx context.Context, groupID, handle string) (string, error) {
	m, err := s.Repo.GetMembershipByHandle(ctx, s.DB, groupID, handle)
	if err != nil {
		if isNotFound(err) {
			return "", ErrMemberNotFound
		}
		return "", err
	}
	return m.UserID, nil
}

// IsMember reports whether the user belongs to the group.
func (s *IdentityService) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	_, err := s.Repo.GetMembership(ctx, s.DB, groupID, userID)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *IdentityService) prefix() string {
	if s.PickPrefix != nil {
		return s.PickPrefix()
	}
	return handlePrefixes[rand.Intn(len(handlePrefixes))]
}
