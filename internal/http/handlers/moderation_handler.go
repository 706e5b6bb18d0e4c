// Moderation HTTP handlers.
//
// This file exposes the moderation surface:
//   - POST /users/report  (report a handle; 3 reports ban the owner)
//   - POST /users/block   (stop receiving messages from a handle's owner)
//
// Both endpoints act on (groupId, handle) pairs; the resolved user ID stays
// server-side.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hushwire/go-anonchat-backend/internal/services"
)

// ModerationRequest is the JSON payload for report and block.
type ModerationRequest struct {
	GroupID string `json:"group_id" binding:"required"`
	Handle  string `json:"handle"   binding:"required"`
}

// BlockResponse confirms a block without revealing the blocked user.
type BlockResponse struct {
	GroupID string `json:"group_id"`
	Handle  string `json:"handle"`
	Blocked bool   `json:"blocked"`
}

// bindModeration parses and validates the shared report/block payload.
func bindModeration(c *gin.Context) (*ModerationRequest, bool) {
	var req ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group_id and handle are required")
		return nil, false
	}
	if _, err := uuid.Parse(req.GroupID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group id must be a UUID")
		return nil, false
	}
	return &req, true
}

// ReportUser files one report against a handle. The owner's report count is
// incremented and the ban flag set once the threshold is reached; existing
// live connections stay up until their next authentication.
func (h *Handlers) ReportUser(c *gin.Context) {
	req, okReq := bindModeration(c)
	if !okReq {
		return
	}

	res, err := h.modSvc.Report(c.Request.Context(), req.GroupID, req.Handle)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "member not found")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, res)
}

// BlockUser records that the caller no longer wants to receive messages
// from the handle's owner. Self-blocks fail; repeats are no-ops.
func (h *Handlers) BlockUser(c *gin.Context) {
	req, okReq := bindModeration(c)
	if !okReq {
		return
	}

	err := h.modSvc.Block(c.Request.Context(), userID(c), req.GroupID, req.Handle)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "member not found")
		case errors.Is(err, services.ErrSelfBlock):
			fail(c, http.StatusBadRequest, ErrCodeSelfBlock, "cannot block yourself")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, BlockResponse{GroupID: req.GroupID, Handle: req.Handle, Blocked: true})
}
