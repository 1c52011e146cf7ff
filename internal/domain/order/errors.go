package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order validation and access control.
var (
	ErrEmptyOrder       = errors.New("order must contain at least one item")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNotFound         = errors.New("order not found")
	ErrUnauthorized     = errors.New("order belongs to another user")
	ErrDuplicateRequest = errors.New("duplicate order request")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InsufficientStockError carries the deficit observed at validation time.
// Retrying without reducing the quantity cannot succeed.
type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// InvalidCouponError indicates the referenced grant cannot be applied:
// unusable (used or expired) or owned by a different user.
type InvalidCouponError struct {
	Reason string
}

func (e *InvalidCouponError) Error() string {
	return "invalid coupon: " + e.Reason
}

// MinimumOrderNotMetError carries the current total and the coupon's
// required minimum.
type MinimumOrderNotMetError struct {
	Total   decimal.Decimal
	Minimum decimal.Decimal
}

func (e *MinimumOrderNotMetError) Error() string {
	return fmt.Sprintf("order total %s is below the coupon minimum %s",
		e.Total, e.Minimum)
}

// CannotCancelError indicates the order's current status forbids
// cancellation.
type CannotCancelError struct {
	Status Status
}

func (e *CannotCancelError) Error() string {
	switch e.Status {
	case StatusShipping:
		return "order is already shipping and can no longer be cancelled"
	case StatusDelivered:
		return "order has been delivered and can no longer be cancelled"
	case StatusCancelled:
		return "order is already cancelled"
	default:
		return fmt.Sprintf("order in status %s cannot be cancelled", e.Status)
	}
}
