// Package credential issues and validates the short-lived tokens printed in
// activation QR codes.
package credential

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTTL = 5 * time.Minute

	tokenPrefix = "qr_"
)

// Validation is the outcome of a token lookup. A missing or expired token is
// a normal negative result, not an error.
type Validation struct {
	Valid        bool
	ActivationID uint
	IssuedAt     time.Time
}

type Store interface {
	Issue(ctx context.Context, activationID uint) (string, error)
	Validate(ctx context.Context, tokenID string) (Validation, error)
	Invalidate(ctx context.Context, tokenID string) error
	Sweep(ctx context.Context) error
}

func newTokenID() string {
	return tokenPrefix + uuid.NewString()
}

// expired reports whether a token issued at issuedAt is past its window at now.
// A token aged exactly ttl is still valid.
func expired(issuedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(issuedAt) > ttl
}
