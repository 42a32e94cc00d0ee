// Package services – IssueService
//
// This file implements the IssueService, which owns coupon issuance for a
// (customer, offer) pair. Issuance is idempotent while a coupon is alive:
// repeated requests return the existing code and expiry untouched. A new
// code is minted only once the previous one has been redeemed or has aged
// out of its validity window.
//
// Service-level errors (ErrMissingUser, ErrMissingOffer, ErrMintExhausted)
// are returned for predictable cases so handlers can map them to HTTP
// results consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/clubelocal/go-coupon-backend/internal/codegen"
	"github.com/clubelocal/go-coupon-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultTTL is the validity window applied to freshly minted coupons.
	DefaultTTL = 10 * time.Minute

	// defaultMintRetries bounds how many fresh codes are tried when inserts
	// keep colliding with the code uniqueness index.
	defaultMintRetries = 3
)

// IssueResult is the outcome of an issuance call: the live code for the
// pair and its absolute expiry. Reused distinguishes returning an existing
// live coupon from minting a new one, which the HTTP layer surfaces as
// 200 versus 201.
type IssueResult struct {
	Code      string
	ExpiresAt time.Time
	Reused    bool
}

// IssueService coordinates the expire-sweep, reuse-lookup, mint sequence
// that guarantees at most one live coupon per (customer, offer) pair.
//
// Two layers close the concurrent-issuance race: requests for the same pair
// are collapsed in-process through a singleflight group, and the store's
// partial unique index on pending pairs catches racers from other
// processes. A caller that loses the index race re-reads and returns the
// winner's coupon.
type IssueService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Gen mints candidate codes. The zero value is production-ready.
	Gen codegen.Generator

	// TTL is the coupon validity window; DefaultTTL when zero.
	TTL time.Duration
	// MintRetries caps regeneration attempts on code collision;
	// defaultMintRetries when zero.
	MintRetries int

	group singleflight.Group
}

// Issue returns the live coupon for (userID, offerID), minting one if the
// pair has none. Identifiers are trimmed and must be non-empty; their
// existence is not verified here, the store's foreign keys and the caller
// are trusted.
//
// Sequence:
//  1. Expire any stale pending coupon of the pair, so the lookup below
//     never observes a stale-but-still-pending row.
//  2. Return the pending, unexpired coupon if one exists (Reused=true).
//  3. Otherwise generate a code and insert a pending coupon expiring at
//     now+TTL, regenerating on code collision up to MintRetries times.
//
// Concurrent calls for the same pair share a single execution and therefore
// a single coupon.
func (s *IssueService) Issue(ctx context.Context, userID, offerID string) (*IssueResult, error) {
	userID = strings.TrimSpace(userID)
	offerID = strings.TrimSpace(offerID)
	if userID == "" {
		return nil, ErrMissingUser
	}
	if offerID == "" {
		return nil, ErrMissingOffer
	}

	tr := otel.Tracer("services/IssueService")
	ctx, span := tr.Start(ctx, "Issue",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("offer.id", offerID),
		),
	)
	defer span.End()

	v, err, _ := s.group.Do(userID+"\x00"+offerID, func() (any, error) {
		return s.issue(ctx, userID, offerID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*IssueResult), nil
}

func (s *IssueService) issue(ctx context.Context, userID, offerID string) (*IssueResult, error) {
	now := time.Now().UTC()

	if _, err := repo.ExpireStalePair(ctx, s.DB, userID, offerID, now); err != nil {
		return nil, err
	}

	if live, err := repo.GetLiveCoupon(ctx, s.DB, userID, offerID, now); err == nil {
		return &IssueResult{Code: live.Code, ExpiresAt: live.ExpiresAt, Reused: true}, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	return s.mint(ctx, userID, offerID, now)
}

// mint inserts a fresh pending coupon, regenerating the code on collision.
func (s *IssueService) mint(ctx context.Context, userID, offerID string, now time.Time) (*IssueResult, error) {
	retries := s.MintRetries
	if retries <= 0 {
		retries = defaultMintRetries
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	for attempt := 0; attempt < retries; attempt++ {
		c, err := repo.CreateCoupon(ctx, s.DB, userID, offerID, s.Gen.Code(), now, ttl)
		switch {
		case err == nil:
			return &IssueResult{Code: c.Code, ExpiresAt: c.ExpiresAt, Reused: false}, nil
		case errors.Is(err, repo.ErrDuplicateCode):
			// Another coupon owns this code; try a fresh one.
			continue
		case errors.Is(err, repo.ErrDuplicatePending):
			// A concurrent issuer won the pair slot; hand back its coupon.
			return s.adoptWinner(ctx, userID, offerID, now)
		default:
			return nil, err
		}
	}
	return nil, ErrMintExhausted
}

// adoptWinner re-reads the live coupon inserted by a concurrent issuer.
func (s *IssueService) adoptWinner(ctx context.Context, userID, offerID string, now time.Time) (*IssueResult, error) {
	live, err := repo.GetLiveCoupon(ctx, s.DB, userID, offerID, now)
	if err != nil {
		return nil, err
	}
	return &IssueResult{Code: live.Code, ExpiresAt: live.ExpiresAt, Reused: true}, nil
}
