// Package domain defines the persistence models for users, groups,
// anonymous memberships, block relations, and messages. These types are
// mapped with GORM and form the core data layer of the chat backend.
package domain

import (
	"time"
)

// User is the stable account identity owned by the external account system.
// The chat core only reads ID/IsBanned and mutates ReportCount/IsBanned
// through the moderation flow.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - IsBanned: set when ReportCount reaches the ban threshold; checked at
//     connection authentication time only.
//   - ReportCount: number of reports filed against this user across groups.
type User struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	IsBanned    bool      `json:"is_banned"    gorm:"not null;default:false"`
	ReportCount int       `json:"report_count" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Group is a chat room boundary. Rows are owned by the external group
// management surface; the core only needs the identity and the invite code
// used by the join-by-code endpoint.
type Group struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Code      string    `json:"code"       gorm:"type:varchar(16);not null;uniqueIndex:ux_group_code"`
	CreatedBy string    `json:"created_by" gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Group.
func (Group) TableName() string { return "groups" }

// Membership binds a user to a group under a pseudonymous handle.
//
// Invariants:
//   - At most one row per (group_id, user_id), enforced by the unique index
//     rather than an application check because concurrent first joins race.
//   - Handle is immutable once assigned.
//   - Handle is deliberately NOT unique per group: two racing first joins
//     may observe the same member count and produce the same handle. That
//     collision is an accepted tolerance.
type Membership struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	GroupID   string    `json:"group_id" gorm:"type:char(36);not null;uniqueIndex:ux_member_group_user,priority:1;index:idx_member_group_handle,priority:1"`
	UserID    string    `json:"user_id"  gorm:"type:char(36);not null;uniqueIndex:ux_member_group_user,priority:2"`
	Handle    string    `json:"handle"   gorm:"type:varchar(64);not null;index:idx_member_group_handle,priority:2"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Membership.
func (Membership) TableName() string { return "memberships" }

// BlockRelation is a directed "blocker blocks blocked" edge. Blocking is not
// symmetric and a relation is never removed automatically. Only the
// recipient's own edges gate delivery during fan-out.
type BlockRelation struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	BlockerID string    `json:"blocker_id" gorm:"type:char(36);not null;uniqueIndex:ux_block_pair,priority:1"`
	BlockedID string    `json:"blocked_id" gorm:"type:char(36);not null;uniqueIndex:ux_block_pair,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for BlockRelation.
func (BlockRelation) TableName() string { return "block_relations" }

// Message is one posted room message. Rows are append-only and immutable;
// they reference the sender's handle rather than the user ID so stored
// history never reveals the real identity. Rows past the retention window
// are filtered out of reads and removed by the background sweeper.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	GroupID   string    `json:"group_id"   gorm:"type:char(36);not null;index:idx_group_msgs,priority:1"`
	Handle    string    `json:"handle"     gorm:"type:varchar(64);not null"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_group_msgs,priority:2"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Idempotency records a completed POST so that client retries carrying the
// same Idempotency-Key can be answered without re-executing the operation.
// Records expire after a TTL and are matched per (user, group, key).
type Idempotency struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_idem_user_group_key,priority:1"`
	GroupID   string    `json:"group_id"   gorm:"type:char(36);not null;uniqueIndex:ux_idem_user_group_key,priority:2"`
	Key       string    `json:"key"        gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_user_group_key,priority:3"`
	MessageID string    `json:"message_id" gorm:"type:char(36)"`
	Status    int       `json:"status"     gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

// TableName returns the database table name for Idempotency.
func (Idempotency) TableName() string { return "idempotency_keys" }
