// Group HTTP handlers.
//
// This file exposes REST endpoints for group bootstrap and membership:
//   - GET  /groups/{id}          (group info + caller's membership/handle)
//   - POST /groups/join/{code}   (join by invite code, idempotent)
//   - GET  /groups/{id}/members  (handles only, member-gated)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. None of them ever
// exposes the user ID behind a handle.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hushwire/go-anonchat-backend/internal/auth"
	"github.com/hushwire/go-anonchat-backend/internal/domain"
	"github.com/hushwire/go-anonchat-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// IdentityService defines handle resolution operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use.
type IdentityService interface {
	// ResolveOrAssignHandle returns the caller's handle in the group,
	// creating the membership on first join.
	ResolveOrAssignHandle(ctx context.Context, groupID, userID string) (string, error)
	// MemberHandle returns the caller's handle without assigning one.
	MemberHandle(ctx context.Context, groupID, userID string) (string, error)
}

// GroupStore defines the group/membership reads the handlers need.
type GroupStore interface {
	// GetGroup fetches a group by ID.
	GetGroup(ctx context.Context, id string) (*domain.Group, error)
	// GetGroupByCode fetches a group by invite code.
	GetGroupByCode(ctx context.Context, code string) (*domain.Group, error)
	// ListMemberHandles returns the group's member handles in join order.
	ListMemberHandles(ctx context.Context, groupID string) ([]string, error)
}

// MessageService defines the synchronous message surface.
type MessageService interface {
	// Post validates and persists one message, returning its projection.
	Post(ctx context.Context, groupID, userID, text string) (*services.MessagePayload, error)
	// History returns the group's unexpired messages in ascending order.
	History(ctx context.Context, groupID, userID string) ([]services.MessagePayload, error)
	// HistoryPage returns one page of unexpired messages plus the total.
	HistoryPage(ctx context.Context, groupID, userID string, page, pageSize int) ([]services.MessagePayload, int64, error)
}

// ModerationService defines report/block operations against handles.
type ModerationService interface {
	// Report files one report; the owner is banned at the threshold.
	Report(ctx context.Context, groupID, handle string) (*services.ReportResult, error)
	// Block records a directed block relation for the caller.
	Block(ctx context.Context, blockerID, groupID, handle string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for groups, messages, and moderation.
type Handlers struct {
	identity IdentityService
	groups   GroupStore
	msgSvc   MessageService
	modSvc   ModerationService

	// AfterPost is invoked with every message persisted through the REST
	// surface so the broadcaster can fan it out to live room members.
	// Optional; nil disables live fan-out for REST posts.
	AfterPost func(ctx context.Context, msg *services.MessagePayload)

	// RecordIdempotency persists a completed POST under its Idempotency-Key
	// so that retries can be answered without re-executing. Optional.
	RecordIdempotency func(ctx context.Context, userID, groupID, key, messageID string, status int)

	// LookupIdempotentMessage returns the message previously persisted under
	// a replayed Idempotency-Key, or nil when unknown. Optional.
	LookupIdempotentMessage func(ctx context.Context, userID, groupID, key string) *services.MessagePayload
}

// New constructs a Handlers instance bound to the given services.
func New(identity IdentityService, groups GroupStore, msgSvc MessageService, modSvc ModerationService) *Handlers {
	return &Handlers{identity: identity, groups: groups, msgSvc: msgSvc, modSvc: modSvc}
}

// userID extracts the authenticated user id set by the gatekeeper middleware.
func userID(c *gin.Context) string {
	if v, ok := c.Get(auth.ContextUserIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

//
// DTOs
//

// GroupResponse is the bootstrap payload for a group page: the group's
// public fields plus the caller's membership state. Handle is empty when the
// caller has not joined.
type GroupResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	IsMember bool   `json:"is_member"`
	Handle   string `json:"handle,omitempty"`
}

// JoinGroupResponse confirms a join (or prior membership) with the handle.
type JoinGroupResponse struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
	Handle  string `json:"handle"`
}

// GroupMembersResponse lists member handles only.
type GroupMembersResponse struct {
	GroupID string   `json:"group_id"`
	Handles []string `json:"handles"`
}

//
// Handlers
//

// GetGroup returns group info plus the caller's membership and handle. Used
// by clients to bootstrap before opening a live connection.
func (h *Handlers) GetGroup(c *gin.Context) {
	groupID := c.Param("id")
	if _, err := uuid.Parse(groupID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group id must be a UUID")
		return
	}

	ctx := c.Request.Context()
	g, err := h.groups.GetGroup(ctx, groupID)
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "group not found")
		return
	}

	resp := GroupResponse{ID: g.ID, Name: g.Name, Code: g.Code}
	if handle, err := h.identity.MemberHandle(ctx, groupID, userID(c)); err == nil {
		resp.IsMember = true
		resp.Handle = handle
	}
	ok(c, http.StatusOK, resp)
}

// JoinGroup joins the caller to the group behind an invite code, assigning a
// handle on first join. Calling it again returns the existing handle.
func (h *Handlers) JoinGroup(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group code is required")
		return
	}

	ctx := c.Request.Context()
	g, err := h.groups.GetGroupByCode(ctx, code)
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "group not found")
		return
	}

	handle, err := h.identity.ResolveOrAssignHandle(ctx, g.ID, userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeJoinFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, JoinGroupResponse{GroupID: g.ID, Name: g.Name, Handle: handle})
}

// ListGroupMembers returns the group's member handles, gated on the caller's
// own membership.
func (h *Handlers) ListGroupMembers(c *gin.Context) {
	groupID := c.Param("id")
	if _, err := uuid.Parse(groupID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group id must be a UUID")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.identity.MemberHandle(ctx, groupID, userID(c)); err != nil {
		if errors.Is(err, services.ErrNotAMember) {
			fail(c, http.StatusForbidden, ErrCodeNotAMember, "you are not a member of this group")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	handles, err := h.groups.ListMemberHandles(ctx, groupID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, GroupMembersResponse{GroupID: groupID, Handles: handles})
}
