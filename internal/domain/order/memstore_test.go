package order

import (
	"context"
	"sort"
	"time"

	"github.com/oakmart/orderd/internal/domain/cart"
	"github.com/oakmart/orderd/internal/domain/coupon"
	"github.com/oakmart/orderd/internal/domain/product"
)

// memStore is an in-memory Transactor + Tx used by the service tests. It
// applies writes directly and rolls the whole state back when the unit of
// work fails, mirroring the transactional semantics of the real store.
type memStore struct {
	products map[int64]*product.Product
	grants   map[int64]*coupon.Grant
	carts    map[int64]map[int64]int
	orders   map[int64]*Order

	nextOrderID int64
	clock       time.Time

	// deductErr, when set, fails the next DeductStock call.
	deductErr error
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]*product.Product),
		grants:   make(map[int64]*coupon.Grant),
		carts:    make(map[int64]map[int64]int),
		orders:   make(map[int64]*Order),
		clock:    time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	snap := s.clone()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) Orders() Repository           { return (*memOrders)(s) }
func (s *memStore) Products() product.Repository { return (*memProducts)(s) }
func (s *memStore) Coupons() coupon.Repository   { return (*memCoupons)(s) }
func (s *memStore) Carts() cart.Repository       { return (*memCarts)(s) }

func (s *memStore) clone() *memStore {
	c := newMemStore()
	c.nextOrderID = s.nextOrderID
	c.clock = s.clock
	for id, p := range s.products {
		cp := *p
		c.products[id] = &cp
	}
	for id, g := range s.grants {
		cg := *g
		if g.UsedAt != nil {
			t := *g.UsedAt
			cg.UsedAt = &t
		}
		c.grants[id] = &cg
	}
	for uid, items := range s.carts {
		m := make(map[int64]int, len(items))
		for pid, q := range items {
			m[pid] = q
		}
		c.carts[uid] = m
	}
	for id, o := range s.orders {
		co := *o
		co.Items = append([]Item(nil), o.Items...)
		c.orders[id] = &co
	}
	return c
}

func (s *memStore) restore(snap *memStore) {
	s.products = snap.products
	s.grants = snap.grants
	s.carts = snap.carts
	s.orders = snap.orders
	s.nextOrderID = snap.nextOrderID
	s.clock = snap.clock
}

type memProducts memStore

func (s *memProducts) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memProducts) DeductStock(_ context.Context, id int64, qty int, version int64) error {
	if s.deductErr != nil {
		err := s.deductErr
		s.deductErr = nil
		return err
	}
	p, ok := s.products[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.Version != version || p.Stock < qty {
		return product.ErrVersionConflict
	}
	p.Stock -= qty
	p.Version++
	p.Status = product.DeriveStatus(p.Status, p.Stock)
	return nil
}

func (s *memProducts) RestoreStock(_ context.Context, id int64, qty int, version int64) error {
	p, ok := s.products[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.Version != version {
		return product.ErrVersionConflict
	}
	p.Stock += qty
	p.Version++
	p.Status = product.DeriveStatus(p.Status, p.Stock)
	return nil
}

type memCoupons memStore

func (s *memCoupons) GetGrant(_ context.Context, id int64) (*coupon.Grant, error) {
	g, ok := s.grants[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	cg := *g
	return &cg, nil
}

func (s *memCoupons) Use(_ context.Context, grantID int64, usedAt time.Time) error {
	g, ok := s.grants[grantID]
	if !ok {
		return coupon.ErrNotFound
	}
	if g.UsedAt != nil {
		return coupon.ErrAlreadyUsed
	}
	g.UsedAt = &usedAt
	return nil
}

func (s *memCoupons) Restore(_ context.Context, grantID int64) error {
	g, ok := s.grants[grantID]
	if !ok {
		return coupon.ErrNotFound
	}
	g.UsedAt = nil
	return nil
}

type memOrders memStore

func (s *memOrders) Create(_ context.Context, o *Order) error {
	s.nextOrderID++
	s.clock = s.clock.Add(time.Second)
	o.ID = s.nextOrderID
	o.CreatedAt = s.clock
	o.UpdatedAt = s.clock

	stored := *o
	stored.Items = append([]Item(nil), o.Items...)
	s.orders[o.ID] = &stored
	return nil
}

func (s *memOrders) GetWithDetails(_ context.Context, id int64) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	co := *o
	co.Items = append([]Item(nil), o.Items...)
	return &co, nil
}

func (s *memOrders) ListByUser(_ context.Context, userID int64, f ListFilter) ([]Order, int64, error) {
	var matched []Order
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		matched = append(matched, *o)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

func (s *memOrders) UpdateStatus(_ context.Context, id int64, status Status, reason string) error {
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.CancelReason = reason
	s.clock = s.clock.Add(time.Second)
	o.UpdatedAt = s.clock
	return nil
}

type memCarts memStore

func (s *memCarts) Items(_ context.Context, userID int64) ([]cart.Item, error) {
	lines := s.carts[userID]
	out := make([]cart.Item, 0, len(lines))
	for pid, qty := range lines {
		out = append(out, cart.Item{ProductID: pid, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *memCarts) Remove(_ context.Context, userID int64, productIDs []int64) error {
	lines := s.carts[userID]
	for _, pid := range productIDs {
		delete(lines, pid)
	}
	return nil
}

func (s *memCarts) Add(_ context.Context, userID int64, item cart.Item) error {
	if s.carts[userID] == nil {
		s.carts[userID] = make(map[int64]int)
	}
	s.carts[userID][item.ProductID] += item.Quantity
	return nil
}

// memIdem is an in-memory IdempotencyStore. releaseCtxErr records the state
// of the context passed to the last Release call.
type memIdem struct {
	claimed       map[string]bool
	releaseCtxErr error
}

func newMemIdem() *memIdem {
	return &memIdem{claimed: make(map[string]bool)}
}

func (m *memIdem) Claim(_ context.Context, key string) (bool, error) {
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *memIdem) Release(ctx context.Context, key string) error {
	m.releaseCtxErr = ctx.Err()
	delete(m.claimed, key)
	return nil
}
