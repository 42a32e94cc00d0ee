// Package codegen produces the short, human-enterable redemption codes that
// customers read out at a partner terminal. Codes are fixed-length strings
// over an unambiguous uppercase alphanumeric alphabet, giving a space of
// 36^6 (≈2.18e9) which keeps the accidental-collision rate negligible at the
// platform's scale. Collisions that do occur are caught by the store's
// unique index and retried by the issuance service.
package codegen

import (
	"math/rand/v2"
	"strings"
)

// Alphabet is the 36-symbol set codes are drawn from. Uppercase letters and
// digits only, so codes survive being read aloud or typed on a terminal.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the fixed code length.
const Length = 6

// Generator mints redemption codes. The zero value draws from the process
// PRNG and is safe for concurrent use; a deterministic source can be
// injected for tests.
type Generator struct {
	// IntN returns a uniform int in [0, n). When nil, math/rand/v2 is used.
	IntN func(n int) int
}

// Code returns a fresh random code of exactly Length characters drawn
// independently and uniformly from Alphabet. It has no side effects and may
// be called repeatedly, which is what the issuance service does when an
// insert trips the code uniqueness constraint.
func (g Generator) Code() string {
	intn := g.IntN
	if intn == nil {
		intn = rand.IntN
	}
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		b.WriteByte(Alphabet[intn(len(Alphabet))])
	}
	return b.String()
}
