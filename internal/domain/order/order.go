package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/orderd/internal/domain/coupon"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipping  Status = "SHIPPING"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus converts a string to a Status, case-insensitively on the
// canonical upper-case form.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(s)); st {
	case StatusPending, StatusConfirmed, StatusShipping, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", errors.Errorf("unknown order status %q", s)
}

// transitions is the complete state machine. Fulfillment drives the forward
// edges; only the cancellation edges are exercised by this package.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipping, StatusCancelled},
	StatusShipping:  {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Cancelable reports whether an order in this status may still be cancelled.
func (s Status) Cancelable() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// Delivery holds the shipping destination captured with the order.
type Delivery struct {
	RecipientName  string
	RecipientPhone string
	Address        string
	DetailAddress  string
	Message        string
}

// Item is one order line. UnitPrice is a snapshot of the product's price at
// order time and never changes with the catalog.
type Item struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// CouponUse summarises the coupon grant applied to an order, for responses.
type CouponUse struct {
	GrantID int64
	Name    string
	Type    coupon.Type
	Value   decimal.Decimal
}

// Order is the persisted aggregate. After creation only cancellation mutates
// it (status + cancel reason); line items are immutable.
type Order struct {
	ID            int64
	UserID        int64
	CouponGrantID *int64
	Coupon        *CouponUse

	TotalProductPrice decimal.Decimal
	DiscountAmount    decimal.Decimal
	DeliveryFee       decimal.Decimal
	FinalPrice        decimal.Decimal

	Delivery     Delivery
	Status       Status
	CancelReason string

	Items []Item

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilter narrows and pages a user's order listing.
type ListFilter struct {
	Status *Status
	Offset int
	Limit  int
}

// Page is one page of a user's order history, newest first.
type Page struct {
	Orders []Order
	Total  int64
	Page   int
	Limit  int
}

// Repository defines persistence for orders. Create assigns ID and
// timestamps and persists the line items with the aggregate.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetWithDetails(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64, f ListFilter) ([]Order, int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status, cancelReason string) error
}
