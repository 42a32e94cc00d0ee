// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only lookups into the
// provider-owned profiles and offers tables. They back the best-effort joins
// performed after a redemption commits; a miss here never rolls the
// redemption back.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/clubelocal/go-coupon-backend/internal/domain"
)

// GetProfile fetches a profile by ID, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOffer fetches an offer by ID, or ErrNotFound.
func GetOffer(ctx context.Context, db *gorm.DB, id string) (*domain.Offer, error) {
	var o domain.Offer
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}
