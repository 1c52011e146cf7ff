package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrVersionConflict is returned when a stock mutation loses an
	// optimistic-concurrency race. The whole operation is safe to retry.
	ErrVersionConflict = errors.New("concurrent product update conflict")
)

// Status is the lifecycle state of a catalog product.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusSoldOut  Status = "SOLD_OUT"
	StatusInactive Status = "INACTIVE"
)

// DeriveStatus returns the status a product should carry after its stock
// changes to newStock. INACTIVE is administrative and never left by stock
// movement alone.
func DeriveStatus(current Status, newStock int) Status {
	if current == StatusInactive {
		return StatusInactive
	}
	if newStock <= 0 {
		return StatusSoldOut
	}
	return StatusActive
}

// Product represents a catalog item available for purchase. Version is a
// monotonically increasing token bumped on every stock mutation; writers
// must condition their updates on it.
type Product struct {
	ID          int64
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Status      Status
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository is the inventory gateway contract. DeductStock and RestoreStock
// are conditional writes keyed on the version token read beforehand; a lost
// race surfaces as ErrVersionConflict, never as a silent overwrite.
type Repository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	DeductStock(ctx context.Context, id int64, quantity int, version int64) error
	RestoreStock(ctx context.Context, id int64, quantity int, version int64) error
}
