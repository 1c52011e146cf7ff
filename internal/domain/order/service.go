package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oakmart/orderd/internal/domain/cart"
	"github.com/oakmart/orderd/internal/domain/coupon"
	"github.com/oakmart/orderd/internal/domain/pricing"
	"github.com/oakmart/orderd/internal/domain/product"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Tx bundles the gateways bound to one unit of work. Every repository
// obtained from the same Tx reads and writes inside the same transaction.
type Tx interface {
	Orders() Repository
	Products() product.Repository
	Coupons() coupon.Repository
	Carts() cart.Repository
}

// Transactor runs a function inside a single atomic unit of work. If fn
// returns an error, nothing it did is observable.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// IdempotencyStore guards against duplicate order submissions. Claim returns
// false when the key was already claimed; Release frees a claimed key so a
// failed creation can be retried.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// NopIdempotency is used when no idempotency backend is configured; every
// claim succeeds.
type NopIdempotency struct{}

func (NopIdempotency) Claim(context.Context, string) (bool, error) { return true, nil }
func (NopIdempotency) Release(context.Context, string) error       { return nil }

// LineRequest is one requested (product, quantity) pair.
type LineRequest struct {
	ProductID int64
	Quantity  int
}

// CreateRequest holds the input for creating an order from typed lines.
type CreateRequest struct {
	Items          []LineRequest
	CouponGrantID  *int64
	Delivery       Delivery
	IdempotencyKey string
}

// CreateFromCartRequest creates an order from the caller's cart contents.
type CreateFromCartRequest struct {
	CouponGrantID  *int64
	Delivery       Delivery
	IdempotencyKey string
}

// ListQuery narrows and pages the order listing. Page is 1-based; values
// out of range are clamped. An unrecognized Status lists all orders.
type ListQuery struct {
	Page   int
	Limit  int
	Status string
}

// Service is the order lifecycle engine: it validates requests against live
// inventory and coupon state, prices them, and commits creation and
// cancellation as single atomic units.
type Service struct {
	db     Transactor
	orders Repository
	idem   IdempotencyStore
	now    func() time.Time
}

// NewService creates a Service. orders is the read path used by List and
// Get; all mutations go through db.
func NewService(db Transactor, orders Repository, idem IdempotencyStore) *Service {
	if idem == nil {
		idem = NopIdempotency{}
	}
	return &Service{
		db:     db,
		orders: orders,
		idem:   idem,
		now:    time.Now,
	}
}

// Create validates the requested lines and optional coupon grant, prices the
// order, and commits the order row, its items, the stock deductions, and the
// coupon consumption in one unit of work.
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	release, err := s.claimIdempotency(ctx, userID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var created *Order
	err = s.db.WithinTx(ctx, func(tx Tx) error {
		o, err := s.createInTx(ctx, tx, userID, req.Items, req.CouponGrantID, req.Delivery)
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		release(ctx)
		return nil, err
	}

	zctx.From(ctx).Info("order created",
		zap.Int64("order_id", created.ID),
		zap.Int64("user_id", userID),
		zap.String("final_price", created.FinalPrice.String()),
	)
	return created, nil
}

// CreateFromCart behaves like Create but sources the lines from the caller's
// cart and clears the ordered product set from it inside the same unit of
// work.
func (s *Service) CreateFromCart(ctx context.Context, userID int64, req CreateFromCartRequest) (*Order, error) {
	release, err := s.claimIdempotency(ctx, userID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var created *Order
	err = s.db.WithinTx(ctx, func(tx Tx) error {
		lines, err := tx.Carts().Items(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "load cart")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		items := make([]LineRequest, len(lines))
		productIDs := make([]int64, len(lines))
		for i, l := range lines {
			items[i] = LineRequest{ProductID: l.ProductID, Quantity: l.Quantity}
			productIDs[i] = l.ProductID
		}

		o, err := s.createInTx(ctx, tx, userID, items, req.CouponGrantID, req.Delivery)
		if err != nil {
			return err
		}

		if err := tx.Carts().Remove(ctx, userID, productIDs); err != nil {
			return errors.Wrap(err, "clear cart")
		}
		created = o
		return nil
	})
	if err != nil {
		release(ctx)
		return nil, err
	}

	zctx.From(ctx).Info("order created from cart",
		zap.Int64("order_id", created.ID),
		zap.Int64("user_id", userID),
		zap.Int("lines", len(created.Items)),
	)
	return created, nil
}

// createInTx is the shared creation path: validate products and stock,
// validate the coupon, price, persist, deduct stock, consume the coupon.
func (s *Service) createInTx(
	ctx context.Context,
	tx Tx,
	userID int64,
	items []LineRequest,
	grantID *int64,
	delivery Delivery,
) (*Order, error) {
	ids := make([]int64, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
		ids[i] = it.ProductID
	}

	fetched, err := tx.Products().GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	priceItems := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		p, ok := productMap[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if p.Stock < it.Quantity {
			return nil, &InsufficientStockError{
				ProductName: p.Name,
				Requested:   it.Quantity,
				Available:   p.Stock,
			}
		}
		priceItems = append(priceItems, pricing.Item{
			ProductID: p.ID,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
		})
	}

	var (
		grant *coupon.Grant
		rule  *coupon.Rule
	)
	if grantID != nil {
		grant, err = tx.Coupons().GetGrant(ctx, *grantID)
		if err != nil {
			return nil, err
		}
		if !grant.IsUsable(s.now()) {
			return nil, &InvalidCouponError{Reason: "coupon is already used or expired"}
		}
		if grant.UserID != userID {
			return nil, &InvalidCouponError{Reason: "coupon belongs to another user"}
		}

		total := runningTotal(priceItems)
		if total.LessThan(grant.Rule.MinOrderPrice) {
			return nil, &MinimumOrderNotMetError{
				Total:   total,
				Minimum: grant.Rule.MinOrderPrice,
			}
		}
		rule = &grant.Rule
	}

	breakdown := pricing.Calculate(priceItems, rule)

	o := &Order{
		UserID:            userID,
		CouponGrantID:     grantID,
		TotalProductPrice: breakdown.TotalProductPrice,
		DiscountAmount:    breakdown.DiscountAmount,
		DeliveryFee:       breakdown.DeliveryFee,
		FinalPrice:        breakdown.FinalPrice,
		Delivery:          delivery,
		Status:            StatusPending,
	}
	for _, it := range items {
		p := productMap[it.ProductID]
		o.Items = append(o.Items, Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		})
	}
	if grant != nil {
		o.Coupon = &CouponUse{
			GrantID: grant.ID,
			Name:    grant.Name,
			Type:    grant.Rule.Type,
			Value:   grant.Rule.Value,
		}
	}

	if err := tx.Orders().Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	for _, it := range items {
		p := productMap[it.ProductID]
		if err := tx.Products().DeductStock(ctx, p.ID, it.Quantity, p.Version); err != nil {
			return nil, errors.Wrapf(err, "deduct stock for product %d", p.ID)
		}
	}

	if grant != nil {
		if err := tx.Coupons().Use(ctx, grant.ID, s.now()); err != nil {
			return nil, errors.Wrap(err, "use coupon")
		}
	}

	return o, nil
}

// Cancel reverses a creation: restores stock for every line, restores the
// coupon grant when one was used, and marks the order CANCELLED with the
// given reason, all in one unit of work.
func (s *Service) Cancel(ctx context.Context, userID, orderID int64, reason string) (*Order, error) {
	var cancelled *Order
	err := s.db.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetWithDetails(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrUnauthorized
		}
		if !o.Status.Cancelable() {
			return &CannotCancelError{Status: o.Status}
		}

		ids := make([]int64, len(o.Items))
		for i, it := range o.Items {
			ids[i] = it.ProductID
		}
		products, err := tx.Products().GetByIDs(ctx, ids)
		if err != nil {
			return errors.Wrap(err, "get products")
		}
		versions := make(map[int64]int64, len(products))
		for _, p := range products {
			versions[p.ID] = p.Version
		}

		for _, it := range o.Items {
			v, ok := versions[it.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: it.ProductID}
			}
			if err := tx.Products().RestoreStock(ctx, it.ProductID, it.Quantity, v); err != nil {
				return errors.Wrapf(err, "restore stock for product %d", it.ProductID)
			}
		}

		if o.CouponGrantID != nil {
			if err := tx.Coupons().Restore(ctx, *o.CouponGrantID); err != nil {
				return errors.Wrap(err, "restore coupon")
			}
		}

		if err := tx.Orders().UpdateStatus(ctx, o.ID, StatusCancelled, reason); err != nil {
			return errors.Wrap(err, "update order status")
		}
		o.Status = StatusCancelled
		o.CancelReason = reason
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("order cancelled",
		zap.Int64("order_id", cancelled.ID),
		zap.Int64("user_id", userID),
		zap.String("refund", cancelled.FinalPrice.String()),
	)
	return cancelled, nil
}

// List returns one page of the caller's orders, newest first. An
// unrecognized status filter is logged and ignored.
func (s *Service) List(ctx context.Context, userID int64, q ListQuery) (*Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	switch {
	case limit < 1:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	f := ListFilter{Offset: (page - 1) * limit, Limit: limit}
	if q.Status != "" {
		st, err := ParseStatus(q.Status)
		if err != nil {
			zctx.From(ctx).Warn("ignoring unknown status filter",
				zap.String("status", q.Status))
		} else {
			f.Status = &st
		}
	}

	orders, total, err := s.orders.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	return &Page{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// Get returns a single order with items and coupon, enforcing ownership.
func (s *Service) Get(ctx context.Context, userID, orderID int64) (*Order, error) {
	o, err := s.orders.GetWithDetails(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrUnauthorized
	}
	return o, nil
}

// claimIdempotency claims the request key when one is supplied. The returned
// release func frees the claim; callers invoke it only on failure so a
// successful creation keeps the key claimed for the TTL.
func (s *Service) claimIdempotency(ctx context.Context, userID int64, key string) (func(context.Context), error) {
	if key == "" {
		return func(context.Context) {}, nil
	}

	scoped := fmt.Sprintf("order:%d:%s", userID, key)
	ok, err := s.idem.Claim(ctx, scoped)
	if err != nil {
		return nil, errors.Wrap(err, "idempotency claim")
	}
	if !ok {
		return nil, ErrDuplicateRequest
	}

	return func(ctx context.Context) {
		// The key must be freed even when the request context is already
		// cancelled, otherwise retries stay blocked for the full TTL.
		ctx = context.WithoutCancel(ctx)
		if err := s.idem.Release(ctx, scoped); err != nil {
			zctx.From(ctx).Warn("failed to release idempotency key",
				zap.String("key", scoped), zap.Error(err))
		}
	}, nil
}

func runningTotal(items []pricing.Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		total = total.Add(line)
	}
	return total
}
