package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/oakmart/orderd/internal/domain/coupon"
)

const (
	getGrantSQL = `SELECT uc.id, uc.coupon_id, uc.user_id, c.name, c.coupon_type, c.discount_value, c.min_order_price,
		uc.issued_at, uc.expired_at, uc.used_at
		FROM user_coupons uc
		JOIN coupons c ON c.id = uc.coupon_id
		WHERE uc.id = $1`

	// The used_at IS NULL guard makes consumption first-writer-wins even
	// without a row lock.
	useGrantSQL = `UPDATE user_coupons SET used_at = $2 WHERE id = $1 AND used_at IS NULL`

	restoreGrantSQL = `UPDATE user_coupons SET used_at = NULL WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	q Querier
}

// NewCouponRepository returns a CouponRepository that uses the given querier.
func NewCouponRepository(q Querier) *CouponRepository {
	return &CouponRepository{q: q}
}

// GetGrant loads a user's coupon grant joined with its coupon definition.
func (r *CouponRepository) GetGrant(ctx context.Context, id int64) (*coupon.Grant, error) {
	rows, err := r.q.Query(ctx, getGrantSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon grant %d: %w", id, err)
	}

	g, err := pgx.CollectExactlyOneRow(rows, scanGrant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon grant %d: %w", id, err)
	}
	return &g, nil
}

// Use stamps the grant as consumed at usedAt. Returns coupon.ErrAlreadyUsed
// when another transaction consumed it first.
func (r *CouponRepository) Use(ctx context.Context, grantID int64, usedAt time.Time) error {
	tag, err := r.q.Exec(ctx, useGrantSQL, grantID, usedAt)
	if err != nil {
		return fmt.Errorf("using coupon grant %d: %w", grantID, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(coupon.ErrAlreadyUsed, "grant %d", grantID)
	}
	return nil
}

// Restore clears the used timestamp so the grant can be applied again.
func (r *CouponRepository) Restore(ctx context.Context, grantID int64) error {
	_, err := r.q.Exec(ctx, restoreGrantSQL, grantID)
	if err != nil {
		return fmt.Errorf("restoring coupon grant %d: %w", grantID, err)
	}
	return nil
}

func scanGrant(row pgx.CollectableRow) (coupon.Grant, error) {
	var (
		g          coupon.Grant
		couponType string
	)
	err := row.Scan(
		&g.ID, &g.CouponID, &g.UserID, &g.Name, &couponType,
		&g.Rule.Value, &g.Rule.MinOrderPrice,
		&g.IssuedAt, &g.ExpiredAt, &g.UsedAt,
	)
	g.Rule.Type = coupon.Type(couponType)
	return g, err
}
