package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/oakmart/orderd/internal/domain/product"
)

const (
	getProductsByIDsSQL = `SELECT id, sku, name, description, price, stock, product_status, version, created_at, updated_at
		FROM products WHERE id = ANY($1)`

	// Stock moves are guarded by the version column; zero rows affected
	// means the row changed since it was read. The status follows the new
	// stock level unless the product was deactivated.
	deductStockSQL = `UPDATE products
		SET stock = stock - $2,
		    product_status = CASE
		        WHEN product_status = 'INACTIVE' THEN product_status
		        WHEN stock - $2 <= 0 THEN 'SOLD_OUT'
		        ELSE 'ACTIVE'
		    END,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $3 AND stock >= $2`

	restoreStockSQL = `UPDATE products
		SET stock = stock + $2,
		    product_status = CASE
		        WHEN product_status = 'INACTIVE' THEN product_status
		        WHEN stock + $2 > 0 THEN 'ACTIVE'
		        ELSE 'SOLD_OUT'
		    END,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $3`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	q Querier
}

// NewProductRepository returns a ProductRepository that uses the given querier.
func NewProductRepository(q Querier) *ProductRepository {
	return &ProductRepository{q: q}
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.q.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// DeductStock decrements a product's stock, guarded by the version the caller
// read. Returns product.ErrVersionConflict when the row moved underneath us.
func (r *ProductRepository) DeductStock(ctx context.Context, id int64, quantity int, version int64) error {
	tag, err := r.q.Exec(ctx, deductStockSQL, id, quantity, version)
	if err != nil {
		return fmt.Errorf("deducting stock for product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(product.ErrVersionConflict, "product %d", id)
	}
	return nil
}

// RestoreStock adds quantity back, the exact inverse of DeductStock.
func (r *ProductRepository) RestoreStock(ctx context.Context, id int64, quantity int, version int64) error {
	tag, err := r.q.Exec(ctx, restoreStockSQL, id, quantity, version)
	if err != nil {
		return fmt.Errorf("restoring stock for product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(product.ErrVersionConflict, "product %d", id)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p      product.Product
		status string
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price,
		&p.Stock, &status, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Status = product.Status(status)
	return p, err
}
