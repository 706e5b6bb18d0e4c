// Package services defines the business logic for identity resolution,
// messaging, and moderation. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages, HTTP status codes, or websocket error events is
// performed at the transport layer.
package services

import (
	"errors"

	"github.com/hushwire/go-anonchat-backend/internal/repo"
)

var (
	// ErrGroupNotFound indicates that the requested group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrNotAMember is returned when an operation requires membership in a
	// group the user has not joined. Deliberately indistinguishable from an
	// unknown group on the live surface so joins cannot probe for existence.
	ErrNotAMember = errors.New("not a member of this group")

	// ErrMemberNotFound indicates that no member of the group owns the given
	// handle.
	ErrMemberNotFound = errors.New("member not found")

	// ErrUserNotFound indicates that the resolved user record is missing.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmptyMessage is returned when a message text is empty or whitespace
	// only after trimming.
	ErrEmptyMessage = errors.New("message text is required")

	// ErrMessageTooLong is returned when a message exceeds the configured
	// maximum rune length.
	ErrMessageTooLong = errors.New("message too long")

	// ErrSelfBlock is returned when a user attempts to block their own
	// handle. No block relation is created.
	ErrSelfBlock = errors.New("cannot block yourself")
)

// isNotFound reports whether err is the repository's missing-row sentinel.
func isNotFound(err error) bool { return errors.Is(err, repo.ErrNotFound) }

// isDuplicate reports whether err is the repository's unique-violation sentinel.
func isDuplicate(err error) bool { return errors.Is(err, repo.ErrDuplicate) }
