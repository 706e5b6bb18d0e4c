// Package services – ModerationService
//
// This file implements the moderation feed: turning a report against a
// handle into a ban decision once the threshold is reached, and recording
// directed block relations. Both operations resolve the handle's owner
// server-side; a reporter or blocker never learns the user ID behind the
// handle they acted on.
//
// Bans here only flip the flag on the user record. Existing live connections
// are not forcibly terminated; the flag takes effect at the next
// authentication handshake.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBanThreshold is the report count at which a user is banned.
const DefaultBanThreshold = 3

// ModerationRepo defines the persistence contract required by
// ModerationService.
type ModerationRepo interface {
	// GetMembershipByHandle resolves the owner of a handle within a group.
	GetMembershipByHandle(ctx context.Context, db *gorm.DB, groupID, handle string) (*domain.Membership, error)

	// IncrementReportCount bumps the report counter and bans at threshold.
	IncrementReportCount(ctx context.Context, db *gorm.DB, userID string, banThreshold int) (*domain.User, error)

	// CreateBlock inserts a blocker→blocked edge, idempotently.
	CreateBlock(ctx context.Context, db *gorm.DB, blockerID, blockedID string) error
}

// ReportResult summarizes the outcome of a report.
type ReportResult struct {
	ReportCount int  `json:"report_count"`
	IsBanned    bool `json:"is_banned"`
}

// ModerationService handles reports and blocks against anonymous handles.
type ModerationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the moderation persistence surface.
	Repo ModerationRepo

	// BanThreshold is the report count that triggers a ban.
	BanThreshold int
}

// NewModerationService constructs a ModerationService with the default ban
// threshold.
func NewModerationService(db *gorm.DB, r ModerationRepo) *ModerationService {
	return &ModerationService{DB: db, Repo: r, BanThreshold: DefaultBanThreshold}
}

// Report files one report against the handle in the group. The owning user's
// report counter is incremented, and the user is banned when the counter
// reaches the threshold.
func (s *ModerationService) Report(ctx context.Context, groupID, handle string) (*ReportResult, error) {
	tr := otel.Tracer("services/ModerationService")
	ctx, span := tr.Start(ctx, "Report",
		trace.WithAttributes(attribute.String("group.id", groupID)),
	)
	defer span.End()

	m, err := s.Repo.GetMembershipByHandle(ctx, s.DB, groupID, handle)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	u, err := s.Repo.IncrementReportCount(ctx, s.DB, m.UserID, s.BanThreshold)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &ReportResult{ReportCount: u.ReportCount, IsBanned: u.IsBanned}, nil
}

// Block records that blockerID no longer wants to receive messages from the
// user behind the handle. Self-blocks are rejected; repeated blocks of the
// same pair succeed without creating a second relation.
func (s *ModerationService) Block(ctx context.Context, blockerID, groupID, handle string) error {
	tr := otel.Tracer("services/ModerationService")
	ctx, span := tr.Start(ctx, "Block",
		trace.WithAttributes(attribute.String("group.id", groupID)),
	)
	defer span.End()

	m, err := s.Repo.GetMembershipByHandle(ctx, s.DB, groupID, handle)
	if err != nil {
		if isNotFound(err) {
			return ErrMemberNotFound
		}
		return err
	}

	if m.UserID == blockerID {
		return ErrSelfBlock
	}
	return s.Repo.CreateBlock(ctx, s.DB, blockerID, m.UserID)
}
