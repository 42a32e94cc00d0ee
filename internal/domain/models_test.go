package domain

import (
	"testing"
	"time"
)

func TestCoupon_Expired(t *testing.T) {
	now := time.Now().UTC()
	c := Coupon{ExpiresAt: now.Add(10 * time.Minute)}

	if c.Expired(now) {
		t.Fatal("coupon inside its window reported expired")
	}
	if c.Expired(now.Add(9*time.Minute + 59*time.Second)) {
		t.Fatal("coupon one second before expiry reported expired")
	}
	if !c.Expired(now.Add(10*time.Minute + 1*time.Second)) {
		t.Fatal("coupon past expiry not reported expired")
	}
}

func TestCoupon_Terminal(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{StatusPending, false},
		{StatusUsed, true},
		{StatusExpired, true},
	}
	for _, tc := range cases {
		c := Coupon{Status: tc.status}
		if got := c.Terminal(); got != tc.want {
			t.Fatalf("Terminal() for %q = %v, want %v", tc.status, got, tc.want)
		}
	}
}
