// Package ws – HTTP handshake
//
// This file upgrades authenticated HTTP requests to websocket connections
// and wires the hub's Store interface to the application services. The
// gatekeeper runs before the upgrade: a missing, invalid, or expired
// credential, and likewise a banned or unknown user, terminates the attempt
// with 401 and no websocket is established. Re-verification is not performed per
// message; the resolved user ID stays bound for the connection's lifetime.
package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/auth"
	"github.com/hushwire/go-anonchat-backend/internal/repo"
	"github.com/hushwire/go-anonchat-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin from the chat frontend; CORS
	// posture for the REST surface is handled separately.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS returns the Gin handler for the websocket endpoint.
func ServeWS(hub *Hub, gate *auth.Gatekeeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := gate.Authenticate(c.Request.Context(), auth.BearerToken(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "authentication error",
			})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			log.Debug().Err(err).Msg("ws upgrade failed")
			return
		}

		client := NewClient(hub, conn, userID)
		hub.Register(client)

		go client.WritePump()
		// The read pump owns the connection's lifetime; it must not inherit
		// the request context, which Gin cancels when this handler returns.
		go client.ReadPump(context.Background())
	}
}

// StoreAdapter satisfies Store on top of the identity service, the message
// service, and the block registry.
type StoreAdapter struct {
	DB       *gorm.DB
	Identity *services.IdentityService
	Messages *services.MessageService
}

// IsMember proxies IdentityService.IsMember.
func (a *StoreAdapter) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	return a.Identity.IsMember(ctx, groupID, userID)
}

// MemberHandle proxies IdentityService.MemberHandle.
func (a *StoreAdapter) MemberHandle(ctx context.Context, groupID, userID string) (string, error) {
	return a.Identity.MemberHandle(ctx, groupID, userID)
}

// HandleOwner proxies IdentityService.HandleOwner.
func (a *StoreAdapter) HandleOwner(ctx context.Context, groupID, handle string) (string, error) {
	return a.Identity.HandleOwner(ctx, groupID, handle)
}

// SaveMessage persists a pre-validated message under the resolved handle.
// The hub has already gated membership, so this writes directly to the
// message log rather than re-running MessageService.Post's checks.
func (a *StoreAdapter) SaveMessage(ctx context.Context, groupID, handle, text string) (*services.MessagePayload, error) {
	return a.Messages.Append(ctx, groupID, handle, text)
}

// BlockersOf proxies the batched block-registry lookup.
func (a *StoreAdapter) BlockersOf(ctx context.Context, senderID string, candidateIDs []string) (map[string]struct{}, error) {
	return repo.BlockersOf(ctx, a.DB, senderID, candidateIDs)
}
