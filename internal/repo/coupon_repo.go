// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Coupon
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. The lifecycle rules (expire sweep
// before lookup, conditional pending→used transition) are sequenced by the
// services layer; this file only guarantees that each individual mutation is
// atomic and conditional on the status it claims to transition from.
//
// Error semantics:
//   - When a coupon is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Unique violations on the code column surface as ErrDuplicateCode so
//     the issuance service can regenerate and retry.
//   - On other DB errors (connectivity, constraint class we do not map),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clubelocal/go-coupon-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicateCode indicates an insert collided with an existing coupon code.
var ErrDuplicateCode = errors.New("coupon code already exists")

// ErrDuplicatePending indicates an insert collided with the partial unique
// index guarding one pending coupon per (user, offer) pair, i.e. a
// concurrent issuance call won the race.
var ErrDuplicatePending = errors.New("pending coupon already exists for pair")

// CreateCoupon inserts a new pending coupon for the (userID, offerID) pair
// with the given code, expiring at now+ttl. The coupon ID is a randomly
// generated UUID and CreatedAt is set to now (UTC recommended).
//
// Unique violations are mapped to ErrDuplicateCode or ErrDuplicatePending
// depending on which index tripped; other DB errors pass through.
func CreateCoupon(ctx context.Context, db *gorm.DB, userID, offerID, code string, now time.Time, ttl time.Duration) (*domain.Coupon, error) {
	c := &domain.Coupon{
		ID:        uuid.NewString(),
		UserID:    userID,
		OfferID:   offerID,
		Code:      code,
		Status:    domain.StatusPending,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, mapDuplicate(err)
	}
	return c, nil
}

// GetLiveCoupon returns the pending, unexpired coupon for the pair, or
// ErrNotFound when the pair has no live coupon.
func GetLiveCoupon(ctx context.Context, db *gorm.DB, userID, offerID string, now time.Time) (*domain.Coupon, error) {
	var c domain.Coupon
	err := db.WithContext(ctx).
		Where("user_id = ? AND offer_id = ? AND status = ? AND expires_at > ?",
			userID, offerID, domain.StatusPending, now).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ExpireStalePair flips any pending coupon of the pair whose expires_at has
// passed to expired, returning the number of rows touched. Issuance runs
// this unconditionally before its reuse lookup so the lookup never observes
// a stale-but-still-pending row.
func ExpireStalePair(ctx context.Context, db *gorm.DB, userID, offerID string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Coupon{}).
		Where("user_id = ? AND offer_id = ? AND status = ? AND expires_at < ?",
			userID, offerID, domain.StatusPending, now).
		Update("status", domain.StatusExpired)
	return res.RowsAffected, res.Error
}

// GetCouponByCode fetches a coupon by exact code match, or ErrNotFound.
// Callers are expected to pass an already-normalized (uppercase) code.
func GetCouponByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := db.WithContext(ctx).
		Where("code = ?", code).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkUsed transitions the coupon to used, conditioned on the row still
// being pending. It reports whether this caller won the transition: false
// with a nil error means another validator consumed (or expired) the coupon
// between the caller's read and this write. This conditional write is the
// single point of truth for at-most-once redemption.
func MarkUsed(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Coupon{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", domain.StatusUsed)
	return res.RowsAffected > 0, res.Error
}

// MarkExpired transitions the coupon to expired, conditioned on it still
// being pending. Used for the lazy expiry fix-up when a stale coupon is
// read; losing the condition race is harmless, so no row count is exposed.
func MarkExpired(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Coupon{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", domain.StatusExpired).Error
}

// ListRedeemableCodes returns, among the submitted codes, those belonging to
// a coupon that is currently pending and unexpired. The result preserves no
// particular order and never exceeds the input set.
func ListRedeemableCodes(ctx context.Context, db *gorm.DB, codes []string, now time.Time) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.Coupon{}).
		Where("code IN ? AND status = ? AND expires_at > ?", codes, domain.StatusPending, now).
		Pluck("code", &out).Error
	return out, err
}

// MarkUsedBulk transitions every still-pending coupon in codes to used in a
// single statement, returning the number of rows updated. The offline sync
// path feeds it the subset ListRedeemableCodes selected; the extra status
// condition keeps a concurrently consumed code from being double-counted.
func MarkUsedBulk(ctx context.Context, db *gorm.DB, codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Coupon{}).
		Where("code IN ? AND status = ?", codes, domain.StatusPending).
		Update("status", domain.StatusUsed)
	return res.RowsAffected, res.Error
}

// mapDuplicate classifies unique-constraint violations across drivers.
// glebarez/sqlite reports plain-text errors naming the index; Postgres names
// the constraint in the message. Anything else passes through unchanged.
func mapDuplicate(err error) error {
	low := strings.ToLower(err.Error())
	isUnique := errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
	if !isUnique {
		return err
	}
	if strings.Contains(low, "ux_pending_pair") ||
		strings.Contains(low, "user_id") {
		return ErrDuplicatePending
	}
	return ErrDuplicateCode
}
