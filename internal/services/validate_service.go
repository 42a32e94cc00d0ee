// Package services – ValidationService
//
// This file implements the ValidationService, which consumes a redemption
// code presented at a partner terminal. The coupon state machine is strict:
// pending transitions exactly once to used (successful redemption) or to
// expired (lazy fix-up when a stale coupon is observed); used and expired
// are terminal and always fail validation without side effects.
//
// At-most-once redemption is enforced by conditioning the used write on the
// row still being pending, so two concurrent validators of the same code
// cannot both succeed.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/clubelocal/go-coupon-backend/internal/codegen"
	"github.com/clubelocal/go-coupon-backend/internal/domain"
	"github.com/clubelocal/go-coupon-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Placeholder strings for the redemption receipt when the best-effort joins
// against the provider tables come up empty. Customer-facing, hence the
// product language.
const (
	placeholderCustomer = "Cliente"
	placeholderOffer    = "Oferta não encontrada"
)

// ValidationData is the receipt assembled after a successful redemption.
type ValidationData struct {
	CustomerName string
	OfferTitle   string
	ValidatedAt  time.Time
}

// ValidationService redeems coupons presented at partner terminals.
type ValidationService struct {
	// DB is the GORM handle used for all coupon reads and status writes.
	DB *gorm.DB
}

// Validate redeems the coupon identified by code.
//
// Semantics, in order:
//   - The code is trimmed and uppercased; anything not exactly 6 characters
//     fails with ErrInvalidCode before the store is touched.
//   - An unknown code fails with ErrCouponNotFound.
//   - A used coupon fails with ErrCouponUsed; no mutation.
//   - An expired coupon (status or wall clock) fails with ErrCouponExpired;
//     if the status column had not caught up yet it is flipped to expired
//     first (the only mutation on a failure path).
//   - Otherwise the coupon is transitioned pending→used conditionally on it
//     still being pending. Losing that condition to a concurrent validator
//     re-reads the row and reports ErrCouponUsed or ErrCouponExpired.
//
// On success the customer name and offer title are joined in best-effort
// fashion; the redemption is already committed at that point, so join
// failures yield placeholder text rather than an error.
func (s *ValidationService) Validate(ctx context.Context, code string) (*ValidationData, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codegen.Length {
		return nil, ErrInvalidCode
	}

	tr := otel.Tracer("services/ValidationService")
	ctx, span := tr.Start(ctx, "Validate",
		trace.WithAttributes(attribute.String("coupon.code", code)),
	)
	defer span.End()

	c, err := repo.GetCouponByCode(ctx, s.DB, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()

	if c.Status == domain.StatusUsed {
		return nil, ErrCouponUsed
	}
	if c.Status == domain.StatusExpired || c.Expired(now) {
		if c.Status != domain.StatusExpired {
			// Lazy expiry fix-up; losing this write to a racer is harmless.
			if err := repo.MarkExpired(ctx, s.DB, c.ID); err != nil {
				return nil, err
			}
		}
		return nil, ErrCouponExpired
	}

	won, err := repo.MarkUsed(ctx, s.DB, c.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent validator or sync batch got here first. Re-read to
		// report the terminal state it left behind.
		return nil, s.classifyLoss(ctx, c.ID)
	}

	return &ValidationData{
		CustomerName: s.customerName(ctx, c.UserID),
		OfferTitle:   s.offerTitle(ctx, c.OfferID),
		ValidatedAt:  now,
	}, nil
}

// classifyLoss maps the terminal state of a coupon whose pending→used write
// was lost to a concurrent transition.
func (s *ValidationService) classifyLoss(ctx context.Context, id string) error {
	var c domain.Coupon
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return err
	}
	if c.Status == domain.StatusExpired {
		return ErrCouponExpired
	}
	return ErrCouponUsed
}

// customerName resolves the owning profile's display name, falling back to
// a placeholder on any miss.
func (s *ValidationService) customerName(ctx context.Context, userID string) string {
	p, err := repo.GetProfile(ctx, s.DB, userID)
	if err != nil || p.CompanyName == nil || strings.TrimSpace(*p.CompanyName) == "" {
		return placeholderCustomer
	}
	return *p.CompanyName
}

// offerTitle resolves the redeemed offer's title, falling back to a
// placeholder on any miss.
func (s *ValidationService) offerTitle(ctx context.Context, offerID string) string {
	o, err := repo.GetOffer(ctx, s.DB, offerID)
	if err != nil || strings.TrimSpace(o.Title) == "" {
		return placeholderOffer
	}
	return o.Title
}
