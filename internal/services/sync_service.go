// Package services – SyncService
//
// This file implements the SyncService, the server half of offline
// reconciliation. Partner terminals that validated codes while disconnected
// replay them here in one batch. Each code is re-checked against live store
// state at sync time, so a code redeemed online elsewhere in the meantime
// is correctly reported as failed rather than double-consumed.
//
// Unlike the single-code validation path, the batch path deliberately does
// not distinguish failure reasons: every non-redeemable code gets the same
// generic message.
package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/clubelocal/go-coupon-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// syncFailReason is the single generic reason attached to every code the
// batch could not redeem. The terminal drops these codes permanently, so no
// finer taxonomy is needed.
const syncFailReason = "Inválido, expirado, já utilizado ou não encontrado."

// SyncFailure reports one code the batch could not redeem.
type SyncFailure struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// SyncResult partitions a batch into redeemed and rejected codes. Both
// slices are always non-nil so the JSON encoding stays an array.
type SyncResult struct {
	Success []string      `json:"success"`
	Failed  []SyncFailure `json:"failed"`
}

// SyncService replays offline-validated codes against the coupon store.
type SyncService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Sync redeems every submitted code that is still pending and unexpired,
// in one bulk transition, and reports the rest as failed.
//
// Codes are uppercased and de-duplicated first. The select-then-update pair
// runs inside a transaction; if the bulk write itself fails the whole batch
// errors and nothing is reported as succeeded, so the terminal keeps its
// queue and retries later. An empty batch fails fast with ErrNoCodes.
func (s *SyncService) Sync(ctx context.Context, codes []string) (*SyncResult, error) {
	if len(codes) == 0 {
		return nil, ErrNoCodes
	}

	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "Sync",
		trace.WithAttributes(attribute.Int("batch.size", len(codes))),
	)
	defer span.End()

	normalized := normalizeCodes(codes)
	if len(normalized) == 0 {
		return nil, ErrNoCodes
	}
	now := time.Now().UTC()

	var redeemed []string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		valid, err := repo.ListRedeemableCodes(ctx, tx, normalized, now)
		if err != nil {
			return err
		}
		if _, err := repo.MarkUsedBulk(ctx, tx, valid); err != nil {
			return err
		}
		redeemed = valid
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &SyncResult{Success: []string{}, Failed: []SyncFailure{}}
	won := make(map[string]struct{}, len(redeemed))
	for _, c := range redeemed {
		won[c] = struct{}{}
	}
	for _, c := range normalized {
		if _, ok := won[c]; ok {
			res.Success = append(res.Success, c)
		} else {
			res.Failed = append(res.Failed, SyncFailure{Code: c, Reason: syncFailReason})
		}
	}
	return res, nil
}

// normalizeCodes uppercases, trims, and de-duplicates preserving first
// occurrence order. Empty entries are dropped.
func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
