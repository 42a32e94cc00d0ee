// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants supplement the human-readable messages carried in
// the ErrorResponse envelope and give clients a stable taxonomy to branch
// on. Generic codes mirror common HTTP status semantics; `gone` is the one
// coupon-specific addition, marking a code whose validity window has passed
// (HTTP 410).
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeGone             = "gone"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
