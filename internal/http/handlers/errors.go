// Package handlers defines HTTP-layer error codes used across all API
// endpoints. Codes are lowercase snake_case; generic ones mirror common HTTP
// status semantics, domain-specific ones cover business failures that the
// status alone cannot convey. Handlers pick the most specific matching code
// and pass it to fail() together with the HTTP status and message.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeNotAMember       = "not_a_member"
	ErrCodeSelfBlock        = "self_block"
	ErrCodeSendFailed       = "send_failed"
	ErrCodeJoinFailed       = "join_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
