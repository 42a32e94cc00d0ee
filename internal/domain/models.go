// Package domain defines the persistence models for coupons and the
// provider-owned profile and offer tables. These types are mapped with GORM
// and form the core data layer of the coupon backend.
package domain

import (
	"time"
)

// Coupon status values. A coupon starts as pending and terminates exactly
// once as either used or expired.
const (
	StatusPending = "pending"
	StatusUsed    = "used"
	StatusExpired = "expired"
)

// Coupon represents a single-use, time-limited redemption code minted for a
// (customer, offer) pair. At most one pending coupon may exist per pair at a
// time, and a code is never reused even after the coupon expires.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: owning customer identity (opaque reference to the external
//     identity provider); indexed together with OfferID.
//   - OfferID: the offer this coupon redeems.
//   - Code: 6-character uppercase code from A–Z0–9; globally unique across
//     all coupons regardless of state.
//   - Status: pending | used | expired (enforced by DB constraint).
//   - ExpiresAt: absolute expiry instant, creation time + TTL.
//   - CreatedAt: creation timestamp.
type Coupon struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_offer,priority:1"`
	OfferID   string    `json:"offer_id"   gorm:"type:varchar(64);not null;index:idx_user_offer,priority:2"`
	Code      string    `json:"code"       gorm:"type:char(6);not null;uniqueIndex:ux_coupon_code"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','used','expired');index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Coupon.
func (Coupon) TableName() string { return "coupons" }

// Expired reports whether the coupon's validity window has passed at now.
// Expiry is a wall-clock comparison at read time; the status column is only
// updated lazily when a stale pending coupon is observed.
func (c Coupon) Expired(now time.Time) bool { return now.After(c.ExpiresAt) }

// Terminal reports whether the coupon is in a terminal state. Terminal
// coupons admit no further status transitions.
func (c Coupon) Terminal() bool { return c.Status == StatusUsed || c.Status == StatusExpired }

// Profile mirrors the identity provider's profiles table. Only the columns
// needed for the validation receipt are mapped; the provider owns the rest.
type Profile struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	CompanyName *string   `json:"company_name" gorm:"type:varchar(255)"`
	UserType    *string   `json:"user_type"    gorm:"type:varchar(16)"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// Offer mirrors the provider's offers table. Coupons reference offers by ID
// and the offer title is joined into the validation receipt.
type Offer struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Offer.
func (Offer) TableName() string { return "offers" }
