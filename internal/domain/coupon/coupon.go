package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage discounts a percentage of the order's product total.
	TypePercentage Type = "PERCENTAGE"
	// TypeFixed discounts a fixed amount, capped at the product total.
	TypeFixed Type = "FIXED"
)

var (
	// ErrNotFound is returned when a referenced coupon grant does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrAlreadyUsed is returned when marking a grant used that already
	// carries a used timestamp.
	ErrAlreadyUsed = errors.New("coupon already used")
)

// Rule defines a coupon's discount behaviour: what kind of discount it
// yields and the order total required to redeem it.
type Rule struct {
	Type          Type
	Value         decimal.Decimal
	MinOrderPrice decimal.Decimal
}

// Grant is a user's issued instance of a coupon. A nil UsedAt means the
// grant has not been consumed by any order.
type Grant struct {
	ID        int64
	CouponID  int64
	UserID    int64
	Name      string
	Rule      Rule
	IssuedAt  time.Time
	ExpiredAt time.Time
	UsedAt    *time.Time
}

// IsUsable reports whether the grant can be consumed at the given instant:
// never used and not yet expired.
func (g *Grant) IsUsable(now time.Time) bool {
	return g.UsedAt == nil && now.Before(g.ExpiredAt)
}

// Repository is the coupon gateway contract. Ownership checks belong to the
// caller; the gateway only loads and flips usage state.
type Repository interface {
	GetGrant(ctx context.Context, id int64) (*Grant, error)
	// Use stamps the grant as consumed. Returns ErrAlreadyUsed when the
	// grant is already consumed.
	Use(ctx context.Context, grantID int64, usedAt time.Time) error
	// Restore clears the used timestamp, the exact inverse of Use.
	Restore(ctx context.Context, grantID int64) error
}
