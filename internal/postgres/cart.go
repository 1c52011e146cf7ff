package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oakmart/orderd/internal/domain/cart"
)

const (
	getCartItemsSQL = `SELECT product_id, quantity FROM cart_items
		WHERE user_id = $1 ORDER BY added_at`

	removeCartItemsSQL = `DELETE FROM cart_items
		WHERE user_id = $1 AND product_id = ANY($2)`

	// Adding a product already in the cart bumps its quantity in place.
	addCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	q Querier
}

// NewCartRepository returns a CartRepository that uses the given querier.
func NewCartRepository(q Querier) *CartRepository {
	return &CartRepository{q: q}
}

// Items returns the user's cart lines in the order they were added.
func (r *CartRepository) Items(ctx context.Context, userID int64) ([]cart.Item, error) {
	rows, err := r.q.Query(ctx, getCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ProductID, &it.Quantity)
		return it, err
	})
}

// Remove deletes the given products from the user's cart.
func (r *CartRepository) Remove(ctx context.Context, userID int64, productIDs []int64) error {
	_, err := r.q.Exec(ctx, removeCartItemsSQL, userID, productIDs)
	if err != nil {
		return fmt.Errorf("removing cart items for user %d: %w", userID, err)
	}
	return nil
}

// Add puts an item in the user's cart, incrementing the quantity when the
// product is already present.
func (r *CartRepository) Add(ctx context.Context, userID int64, item cart.Item) error {
	_, err := r.q.Exec(ctx, addCartItemSQL, userID, item.ProductID, item.Quantity)
	if err != nil {
		return fmt.Errorf("adding cart item for user %d: %w", userID, err)
	}
	return nil
}
