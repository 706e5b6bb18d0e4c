// Package ws – Hub
//
// The hub owns the one shared mutable resource of the broadcast subsystem:
// the mapping from room (group) IDs to the set of live connections joined to
// them. All mutations of that mapping happen under a single mutex which is
// never held across a storage call; storage lookups run before or after the
// critical section, and fan-out works from a snapshot taken inside it.
// Connections that join mid-fan-out may or may not receive that message.
package ws

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hushwire/go-anonchat-backend/internal/services"
)

// Store is the persistence surface the hub depends on. It is satisfied by a
// thin adapter over the identity service, the message service, and the block
// registry (see StoreAdapter in handler.go).
type Store interface {
	// IsMember reports whether the user belongs to the group.
	IsMember(ctx context.Context, groupID, userID string) (bool, error)

	// MemberHandle returns the user's handle in the group, or
	// services.ErrNotAMember.
	MemberHandle(ctx context.Context, groupID, userID string) (string, error)

	// HandleOwner resolves the user behind a handle in a group.
	HandleOwner(ctx context.Context, groupID, handle string) (string, error)

	// SaveMessage persists one message and returns its projection.
	SaveMessage(ctx context.Context, groupID, handle, text string) (*services.MessagePayload, error)

	// BlockersOf returns the subset of candidateIDs that blocked senderID.
	BlockersOf(ctx context.Context, senderID string, candidateIDs []string) (map[string]struct{}, error)
}

// Hub tracks live connections per room and performs block-aware fan-out.
// All exported methods are safe for concurrent use.
type Hub struct {
	store Store

	mu      sync.Mutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
}

// NewHub constructs a Hub bound to the given store.
func NewHub(store Store) *Hub {
	return &Hub{
		store:   store,
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
	}
}

// Register adds an authenticated connection to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	connectionsGauge.Inc()
	log.Debug().Str("user_id", c.userID).Msg("ws connected")
}

// Disconnect removes the connection from every room and discards it. Safe to
// call more than once and for connections never registered.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	_, known := h.clients[c]
	delete(h.clients, c)
	for groupID, set := range h.rooms {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, groupID)
		}
	}
	h.mu.Unlock()

	c.shutdown()
	if known {
		connectionsGauge.Dec()
		log.Debug().Str("user_id", c.userID).Msg("ws disconnected")
	}
}

// Join adds the connection to a room after validating membership, then
// confirms with the member's handle. A join by a non-member is dropped
// silently: no confirmation, no room mutation, and no hint about whether the
// group exists. Storage failures are reported to the joining connection only.
func (h *Hub) Join(ctx context.Context, c *Client, groupID string) {
	if groupID == "" {
		return
	}
	member, err := h.store.IsMember(ctx, groupID, c.userID)
	if err != nil {
		c.sendError("Failed to join group")
		return
	}
	if !member {
		return
	}
	handle, err := h.store.MemberHandle(ctx, groupID, c.userID)
	if err != nil {
		c.sendError("Failed to join group")
		return
	}

	h.mu.Lock()
	set, ok := h.rooms[groupID]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[groupID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	c.sendEvent(EventJoinedGroup, JoinedGroupPayload{GroupID: groupID, Handle: handle})
}

// Leave removes the connection from a room's live set. It always succeeds,
// including for connections not currently in the room.
func (h *Hub) Leave(c *Client, groupID string) {
	h.mu.Lock()
	if set, ok := h.rooms[groupID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, groupID)
		}
	}
	h.mu.Unlock()
}

// Send validates, persists, and fans out one message.
//
// Persistence strictly precedes fan-out, and a fan-out problem never rolls
// persistence back: once stored, the message is at least visible in history.
// Eligibility is recipient-initiated blocking only, without consulting the
// sender's own block list, and the check fails open: when the sender's or a
// recipient's identity cannot be resolved, the message is delivered rather
// than silently dropped. Deliveries are independent, non-blocking pushes to
// each recipient's buffer; a slow recipient cannot stall the room.
func (h *Hub) Send(ctx context.Context, c *Client, groupID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		c.sendError("Message text is required")
		return
	}

	member, err := h.store.IsMember(ctx, groupID, c.userID)
	if err != nil {
		c.sendError("Failed to send message")
		return
	}
	if !member {
		c.sendError("You are not a member of this group")
		return
	}
	handle, err := h.store.MemberHandle(ctx, groupID, c.userID)
	if err != nil {
		c.sendError("Failed to send message")
		return
	}

	msg, err := h.store.SaveMessage(ctx, groupID, handle, text)
	if err != nil {
		c.sendError("Failed to send message")
		return
	}
	messagesTotal.Inc()

	h.broadcast(ctx, groupID, handle, msg)
}

// Publish fans an already-persisted message out to the room's live set. It
// backs the REST posting path so socket clients see messages regardless of
// which transport carried them in.
func (h *Hub) Publish(ctx context.Context, msg *services.MessagePayload) {
	if msg == nil {
		return
	}
	h.broadcast(ctx, msg.GroupID, msg.Handle, msg)
}

// broadcast fans one persisted message out to the room's current live set.
func (h *Hub) broadcast(ctx context.Context, groupID, handle string, msg *services.MessagePayload) {
	// Snapshot under the lock; membership changes after this point do not
	// affect this fan-out.
	h.mu.Lock()
	set := h.rooms[groupID]
	recipients := make([]*Client, 0, len(set))
	for rc := range set {
		recipients = append(recipients, rc)
	}
	h.mu.Unlock()

	if len(recipients) == 0 {
		return
	}

	frame, err := encode(EventNewMessage, NewMessagePayload{
		ID:        msg.ID,
		GroupID:   msg.GroupID,
		Handle:    msg.Handle,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		log.Error().Err(err).Msg("encode broadcast frame")
		return
	}

	// The sender's identity is re-derived from the membership record, not
	// trusted from the connection, because duplicate handles are tolerated.
	// If resolution fails everyone receives.
	var blockers map[string]struct{}
	senderID, err := h.store.HandleOwner(ctx, groupID, handle)
	if err == nil && senderID != "" {
		ids := make([]string, 0, len(recipients))
		for _, rc := range recipients {
			if rc.userID != "" {
				ids = append(ids, rc.userID)
			}
		}
		blockers, err = h.store.BlockersOf(ctx, senderID, ids)
		if err != nil {
			blockers = nil
		}
	}

	for _, rc := range recipients {
		if blockers != nil && rc.userID != "" {
			if _, blocked := blockers[rc.userID]; blocked {
				continue
			}
		}
		if !rc.enqueue(frame) {
			deliveriesDropped.Inc()
			continue
		}
		deliveriesTotal.Inc()
	}
}

// RoomSize reports the current number of live connections in a room.
func (h *Hub) RoomSize(groupID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[groupID])
}

