// Package services – MessageService
//
// This file implements MessageService, the application-level component behind
// the synchronous message surface: posting a message over REST and reading a
// group's history. It validates input, gates every operation on membership,
// and projects history rows to {handle, text, createdAt} so stored identity
// never leaks past the service boundary.
//
// History reads apply the retention cutoff at query time; the background
// sweeper in repo reclaims expired rows independently.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// group/user identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
	"github.com/hushwire/go-anonchat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessagePayload is the outward projection of a stored message. It carries
// the sender's handle only; the user ID behind it is never included.
type MessagePayload struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Handle    string    `json:"handle"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageService coordinates message persistence and history reads.
type MessageService struct {
	DB *gorm.DB

	// Retention is the message visibility window (14 days in production).
	Retention time.Duration

	// MaxTextRunes caps message length; zero disables the cap.
	MaxTextRunes int

	// Now is the clock used for message timestamps and retention cutoffs.
	// Defaults to time.Now; tests inject a fixed clock.
	Now func() time.Time
}

// Post validates and persists one message sent by userID to groupID and
// returns its projection. Membership is required; text is trimmed and must
// be non-empty. Fan-out to live connections is the broadcaster's concern;
// REST posts are visible to readers through history.
func (s *MessageService) Post(ctx context.Context, groupID, userID, text string) (*MessagePayload, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Post",
		trace.WithAttributes(
			attribute.String("group.id", groupID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxTextRunes > 0 && utf8.RuneCountInString(text) > s.MaxTextRunes {
		return nil, ErrMessageTooLong
	}

	if _, err := repo.GetGroup(ctx, s.DB, groupID); err != nil {
		if isNotFound(err) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	m, err := repo.GetMembership(ctx, s.DB, groupID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotAMember
		}
		return nil, err
	}

	msg, err := repo.CreateMessage(ctx, s.DB, groupID, m.Handle, text, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return project(msg), nil
}

// Append persists one message under an already-resolved handle without
// re-running Post's gating. Used by the broadcaster, which validates text
// and membership before calling.
func (s *MessageService) Append(ctx context.Context, groupID, handle, text string) (*MessagePayload, error) {
	msg, err := repo.CreateMessage(ctx, s.DB, groupID, handle, text, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return project(msg), nil
}

// History returns the group's unexpired messages in createdAt ascending
// order, gated on the caller's membership.
func (s *MessageService) History(ctx context.Context, groupID, userID string) ([]MessagePayload, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("group.id", groupID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	rows, err := repo.ListMessages(ctx, s.DB, groupID, s.cutoff())
	if err != nil {
		return nil, err
	}
	out := make([]MessagePayload, 0, len(rows))
	for i := range rows {
		out = append(out, *project(&rows[i]))
	}
	return out, nil
}

// HistoryPage returns one page of unexpired messages plus the total count.
func (s *MessageService) HistoryPage(ctx context.Context, groupID, userID string, page, pageSize int) ([]MessagePayload, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "HistoryPage",
		trace.WithAttributes(
			attribute.String("group.id", groupID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	cutoff := s.cutoff()
	total, err := repo.CountMessages(ctx, s.DB, groupID, cutoff)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []MessagePayload{}, 0, nil
	}

	rows, err := repo.ListMessagesPage(ctx, s.DB, groupID, cutoff, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MessagePayload, 0, len(rows))
	for i := range rows {
		out = append(out, *project(&rows[i]))
	}
	return out, total, nil
}

func (s *MessageService) requireMember(ctx context.Context, groupID, userID string) error {
	if _, err := repo.GetGroup(ctx, s.DB, groupID); err != nil {
		if isNotFound(err) {
			return ErrGroupNotFound
		}
		return err
	}
	if _, err := repo.GetMembership(ctx, s.DB, groupID, userID); err != nil {
		if isNotFound(err) {
			return ErrNotAMember
		}
		return err
	}
	return nil
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MessageService) cutoff() time.Time {
	if s.Retention <= 0 {
		// No retention configured: everything is visible.
		return time.Time{}
	}
	return s.now().UTC().Add(-s.Retention)
}

func project(m *domain.Message) *MessagePayload {
	return &MessagePayload{
		ID:        m.ID,
		GroupID:   m.GroupID,
		Handle:    m.Handle,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}
