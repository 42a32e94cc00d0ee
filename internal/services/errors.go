// Package services defines the business logic of the coupon lifecycle:
// issuance, validation, and offline batch reconciliation. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Issuance-related errors.
var (
	// ErrMissingUser is returned when an issuance request carries an empty
	// customer identifier.
	ErrMissingUser = errors.New("userId is required")

	// ErrMissingOffer is returned when an issuance request carries an empty
	// offer identifier.
	ErrMissingOffer = errors.New("offerId is required")

	// ErrMintExhausted is returned when repeated code generation kept
	// colliding with existing codes until the retry limit was reached.
	ErrMintExhausted = errors.New("could not mint a unique coupon code")
)

// Validation-related errors.
var (
	// ErrInvalidCode is returned when a submitted code is empty or not of
	// the expected length. The store is never touched in this case.
	ErrInvalidCode = errors.New("coupon code must be 6 characters")

	// ErrCouponNotFound indicates no coupon exists for the submitted code.
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCouponUsed indicates the coupon was already redeemed. Terminal:
	// validating it again can never succeed.
	ErrCouponUsed = errors.New("coupon already used")

	// ErrCouponExpired indicates the coupon's validity window has passed.
	// Terminal, and accompanied by a lazy status fix-up on first observation.
	ErrCouponExpired = errors.New("coupon expired")
)

// Reconciliation-related errors.
var (
	// ErrNoCodes is returned when a batch sync request contains no codes.
	ErrNoCodes = errors.New("an array of codes is required")
)
