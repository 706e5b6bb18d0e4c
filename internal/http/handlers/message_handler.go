// Message HTTP handlers.
//
// This file exposes the synchronous message surface:
//   - GET  /groups/{id}/messages  (history, member-gated, paginated)
//   - POST /groups/{id}/messages  (send without a live connection)
//
// History rows are projected to {handle, text, created_at}; the user ID
// behind a handle never crosses this boundary. POST participates in the
// idempotency middleware: a replayed Idempotency-Key returns the previously
// persisted message instead of creating a second row.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hushwire/go-anonchat-backend/internal/http/middleware"
	"github.com/hushwire/go-anonchat-backend/internal/services"
	"github.com/hushwire/go-anonchat-backend/internal/utils"
)

// SendMessageRequest is the JSON payload for posting a message.
type SendMessageRequest struct {
	// Text is the message body; trimmed server-side, must be non-empty.
	Text string `json:"text" binding:"required"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListMessagesResponse wraps a page of messages and pagination information.
type ListMessagesResponse struct {
	Messages   []services.MessagePayload `json:"messages"`
	Pagination Pagination                `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// ListMessages returns the group's unexpired message history ordered by
// created_at ascending.
func (h *Handlers) ListMessages(c *gin.Context) {
	groupID := c.Param("id")
	if _, err := uuid.Parse(groupID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.msgSvc.HistoryPage(c.Request.Context(), groupID, userID(c), page, pageSize)
	if err != nil {
		status, code, msg := mapServiceError(err)
		fail(c, status, code, msg)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// PostMessage persists one message for clients without a live connection and
// hands it to the broadcaster for fan-out to live room members.
func (h *Handlers) PostMessage(c *gin.Context) {
	groupID := c.Param("id")
	if _, err := uuid.Parse(groupID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group id must be a UUID")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message text is required")
		return
	}

	ctx := c.Request.Context()

	// A replayed Idempotency-Key means this message was already persisted.
	if middleware.IsReplay(c) {
		if key, okKey := middleware.GetIdempotencyKey(c); okKey {
			if msg := h.replayedMessage(c, groupID, key); msg != nil {
				ok(c, http.StatusOK, msg)
				return
			}
		}
	}

	msg, err := h.msgSvc.Post(ctx, groupID, userID(c), req.Text)
	if err != nil {
		status, code, m := mapServiceError(err)
		fail(c, status, code, m)
		return
	}

	if key, okKey := middleware.GetIdempotencyKey(c); okKey && h.RecordIdempotency != nil {
		// Best effort: a failed record only disables replay detection.
		h.RecordIdempotency(ctx, userID(c), groupID, key, msg.ID, http.StatusCreated)
	}

	if h.AfterPost != nil {
		h.AfterPost(ctx, msg)
	}
	ok(c, http.StatusCreated, msg)
}

// replayedMessage resolves the previously persisted message for a replayed
// Idempotency-Key, or nil when the lookup is unavailable or misses.
func (h *Handlers) replayedMessage(c *gin.Context, groupID, key string) *services.MessagePayload {
	if h.LookupIdempotentMessage == nil {
		return nil
	}
	return h.LookupIdempotentMessage(c.Request.Context(), userID(c), groupID, key)
}

// mapServiceError translates service sentinels into HTTP responses.
func mapServiceError(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusOK, "", ""
	case errors.Is(err, services.ErrGroupNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "group not found"
	case errors.Is(err, services.ErrNotAMember):
		return http.StatusForbidden, ErrCodeNotAMember, "you are not a member of this group"
	case errors.Is(err, services.ErrEmptyMessage):
		return http.StatusBadRequest, ErrCodeBadRequest, "message text is required"
	case errors.Is(err, services.ErrMessageTooLong):
		return http.StatusBadRequest, ErrCodeBadRequest, "message too long"
	default:
		return http.StatusInternalServerError, ErrCodeSendFailed, err.Error()
	}
}
