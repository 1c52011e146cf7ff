package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/oakmart/orderd/internal/domain/coupon"
	"github.com/oakmart/orderd/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (user_id, user_coupon_id,
		total_product_price, discount_amount, delivery_fee, final_price,
		recipient_name, recipient_phone, delivery_address, delivery_detail_address, delivery_message,
		order_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	getOrderSQL = `SELECT o.id, o.user_id, o.user_coupon_id,
		o.total_product_price, o.discount_amount, o.delivery_fee, o.final_price,
		o.recipient_name, o.recipient_phone, o.delivery_address, o.delivery_detail_address, o.delivery_message,
		o.order_status, o.cancel_reason, o.created_at, o.updated_at,
		c.name, c.coupon_type, c.discount_value
		FROM orders o
		LEFT JOIN user_coupons uc ON uc.id = o.user_coupon_id
		LEFT JOIN coupons c ON c.id = uc.coupon_id
		WHERE o.id = $1`

	getOrderItemsSQL = `SELECT product_id, product_name, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	listOrdersSQL = `SELECT o.id, o.user_id, o.user_coupon_id,
		o.total_product_price, o.discount_amount, o.delivery_fee, o.final_price,
		o.recipient_name, o.recipient_phone, o.delivery_address, o.delivery_detail_address, o.delivery_message,
		o.order_status, o.cancel_reason, o.created_at, o.updated_at,
		c.name, c.coupon_type, c.discount_value
		FROM orders o
		LEFT JOIN user_coupons uc ON uc.id = o.user_coupon_id
		LEFT JOIN coupons c ON c.id = uc.coupon_id
		WHERE o.user_id = $1 AND ($2::text IS NULL OR o.order_status = $2)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $3 OFFSET $4`

	countOrdersSQL = `SELECT count(*) FROM orders
		WHERE user_id = $1 AND ($2::text IS NULL OR order_status = $2)`

	updateOrderStatusSQL = `UPDATE orders
		SET order_status = $2, cancel_reason = $3, updated_at = now()
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository returns an OrderRepository that uses the given querier.
func NewOrderRepository(q Querier) *OrderRepository {
	return &OrderRepository{q: q}
}

// Create persists an order and its line items. The generated ID and
// timestamps are written back into o.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.q.QueryRow(ctx, createOrderSQL,
		o.UserID, o.CouponGrantID,
		o.TotalProductPrice, o.DiscountAmount, o.DeliveryFee, o.FinalPrice,
		o.Delivery.RecipientName, o.Delivery.RecipientPhone,
		o.Delivery.Address, o.Delivery.DetailAddress, o.Delivery.Message,
		string(o.Status),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(createOrderItemSQL, o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("creating order %d items: %w", o.ID, err)
	}
	return nil
}

// GetWithDetails loads one order with its line items and coupon summary.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) GetWithDetails(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.q.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	itemRows, err := r.q.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d items: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting order %d items: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns one page of a user's orders, newest first, plus the
// total count for the same filter.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64, f order.ListFilter) ([]order.Order, int64, error) {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	var total int64
	if err := r.q.QueryRow(ctx, countOrdersSQL, userID, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders for user %d: %w", userID, err)
	}

	rows, err := r.q.Query(ctx, listOrdersSQL, userID, status, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders for user %d: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders for user %d: %w", userID, err)
	}
	return orders, total, nil
}

// UpdateStatus sets the order's status and cancel reason.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status, cancelReason string) error {
	tag, err := r.q.Exec(ctx, updateOrderStatusSQL, id, string(status), cancelReason)
	if err != nil {
		return fmt.Errorf("updating order %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		status      string
		couponName  *string
		couponType  *string
		couponValue *decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.CouponGrantID,
		&o.TotalProductPrice, &o.DiscountAmount, &o.DeliveryFee, &o.FinalPrice,
		&o.Delivery.RecipientName, &o.Delivery.RecipientPhone,
		&o.Delivery.Address, &o.Delivery.DetailAddress, &o.Delivery.Message,
		&status, &o.CancelReason, &o.CreatedAt, &o.UpdatedAt,
		&couponName, &couponType, &couponValue,
	)
	o.Status = order.Status(status)
	if o.CouponGrantID != nil && couponName != nil {
		o.Coupon = &order.CouponUse{
			GrantID: *o.CouponGrantID,
			Name:    *couponName,
			Type:    coupon.Type(*couponType),
			Value:   *couponValue,
		}
	}
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice)
	return it, err
}
