// Package cart defines the narrow contract the order flow consumes from the
// cart collaborator. Cart CRUD itself lives outside this core.
package cart

import "context"

// Item is a (product, quantity) pair held in a user's cart.
type Item struct {
	ProductID int64
	Quantity  int
}

// Repository exposes the two operations order creation needs: read the
// user's lines, and remove the ordered product set once the order commits.
// Add upserts a line, incrementing the quantity when the product is already
// present.
type Repository interface {
	Items(ctx context.Context, userID int64) ([]Item, error)
	Remove(ctx context.Context, userID int64, productIDs []int64) error
	Add(ctx context.Context, userID int64, item Item) error
}
