package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clubelocal/go-coupon-backend/internal/domain"
	"github.com/clubelocal/go-coupon-backend/internal/repo"
)

func seedPending(t *testing.T, svc *ValidationService, userID, offerID, code string, age time.Duration) *domain.Coupon {
	t.Helper()
	c, err := repo.CreateCoupon(context.Background(), svc.DB, userID, offerID, code,
		time.Now().UTC().Add(-age), 10*time.Minute)
	if err != nil {
		t.Fatalf("seed coupon %s: %v", code, err)
	}
	return c
}

func TestValidate_RejectsMalformedCodes(t *testing.T) {
	svc := &ValidationService{DB: newTestDB(t)}

	for _, code := range []string{"", "ABC", "ABCDEFG", "   "} {
		if _, err := svc.Validate(context.Background(), code); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("code %q err = %v, want ErrInvalidCode", code, err)
		}
	}
}

func TestValidate_UnknownCode(t *testing.T) {
	svc := &ValidationService{DB: newTestDB(t)}

	if _, err := svc.Validate(context.Background(), "ZZ99ZZ"); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("err = %v, want ErrCouponNotFound", err)
	}
}

func TestValidate_SuccessWithJoins(t *testing.T) {
	db := newTestDB(t)
	svc := &ValidationService{DB: db}
	ctx := context.Background()

	name := "Barbearia ZN Style"
	if err := db.Create(&domain.Profile{ID: "u1", CompanyName: &name}).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := db.Create(&domain.Offer{ID: "42", UserID: "p1", Title: "20% de desconto"}).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	seedPending(t, svc, "u1", "42", "AB12CD", 0)

	before := time.Now().UTC()
	data, err := svc.Validate(ctx, "ab12cd") // lowercase on purpose
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if data.CustomerName != name {
		t.Fatalf("customer = %q, want %q", data.CustomerName, name)
	}
	if data.OfferTitle != "20% de desconto" {
		t.Fatalf("offer = %q", data.OfferTitle)
	}
	if data.ValidatedAt.Before(before) || data.ValidatedAt.After(time.Now().UTC().Add(time.Second)) {
		t.Fatalf("validatedAt %v not near now", data.ValidatedAt)
	}

	c, err := repo.GetCouponByCode(ctx, db, "AB12CD")
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if c.Status != domain.StatusUsed {
		t.Fatalf("status = %q, want used", c.Status)
	}
}

func TestValidate_JoinMissesFallBackToPlaceholders(t *testing.T) {
	svc := &ValidationService{DB: newTestDB(t)}
	seedPending(t, svc, "ghost", "404", "AB12CD", 0)

	data, err := svc.Validate(context.Background(), "AB12CD")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if data.CustomerName != placeholderCustomer {
		t.Fatalf("customer = %q, want placeholder", data.CustomerName)
	}
	if data.OfferTitle != placeholderOffer {
		t.Fatalf("offer = %q, want placeholder", data.OfferTitle)
	}
}

func TestValidate_SecondCallReportsUsed(t *testing.T) {
	svc := &ValidationService{DB: newTestDB(t)}
	seedPending(t, svc, "u1", "42", "AB12CD", 0)
	ctx := context.Background()

	if _, err := svc.Validate(ctx, "AB12CD"); err != nil {
		t.Fatalf("first Validate: %v", err)
	}
	if _, err := svc.Validate(ctx, "AB12CD"); !errors.Is(err, ErrCouponUsed) {
		t.Fatalf("second Validate err = %v, want ErrCouponUsed", err)
	}
}

func TestValidate_LazyExpiryFromColdState(t *testing.T) {
	db := newTestDB(t)
	svc := &ValidationService{DB: db}
	ctx := context.Background()

	// Past its window but never read since, so status still says pending.
	c := seedPending(t, svc, "u1", "42", "AB12CD", 11*time.Minute)

	if _, err := svc.Validate(ctx, "AB12CD"); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("err = %v, want ErrCouponExpired", err)
	}

	var got domain.Coupon
	if err := db.Where("id = ?", c.ID).First(&got).Error; err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if got.Status != domain.StatusExpired {
		t.Fatalf("status = %q, want expired (lazy fix-up)", got.Status)
	}

	// Terminal: repeat calls keep failing the same way, with no mutation.
	if _, err := svc.Validate(ctx, "AB12CD"); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("repeat err = %v, want ErrCouponExpired", err)
	}
}

func TestValidate_AtMostOnceUnderConcurrency(t *testing.T) {
	svc := &ValidationService{DB: newTestDB(t)}
	seedPending(t, svc, "u1", "42", "AB12CD", 0)

	const validators = 8
	errs := make([]error, validators)

	var wg sync.WaitGroup
	wg.Add(validators)
	for i := 0; i < validators; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Validate(context.Background(), "AB12CD")
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrCouponUsed):
		default:
			t.Fatalf("validator %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d validators succeeded, want exactly 1", wins)
	}
}
