// Command seed-db provisions a development database: demo users with API
// keys, a small catalog, coupons with per-user grants, and a pre-filled cart.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/oakmart/orderd/internal/domain/auth"
	"github.com/oakmart/orderd/internal/domain/cart"
	"github.com/oakmart/orderd/internal/postgres"
)

const (
	upsertUserSQL = `INSERT INTO users (email, name) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	upsertAPIKeySQL = `INSERT INTO api_keys (key_hash, user_id) VALUES ($1, $2)
		ON CONFLICT (key_hash) DO NOTHING`

	upsertProductSQL = `INSERT INTO products (sku, name, description, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			updated_at = now()
		RETURNING id`

	insertCouponSQL = `INSERT INTO coupons (name, coupon_type, discount_value, min_order_price)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (SELECT 1 FROM coupons WHERE name = $1)`

	grantCouponSQL = `INSERT INTO user_coupons (coupon_id, user_id, expired_at)
		SELECT c.id, $2, $3 FROM coupons c
		WHERE c.name = $1
		AND NOT EXISTS (
			SELECT 1 FROM user_coupons uc WHERE uc.coupon_id = c.id AND uc.user_id = $2
		)`
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed for the demo user (or ORDERD_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERD_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ORDERD_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or ORDERD_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ORDERD_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	userID, err := seedUser(ctx, pool, apiKey, pepper)
	if err != nil {
		return errors.Wrap(err, "seed user")
	}

	productIDs, err := seedProducts(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool, userID); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedCart(ctx, pool, userID, productIDs); err != nil {
		return errors.Wrap(err, "seed cart")
	}

	return nil
}

func seedUser(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) (int64, error) {
	slog.Info("seeding demo user")

	var userID int64
	err := pool.QueryRow(ctx, upsertUserSQL, "demo@example.com", "Demo User").Scan(&userID)
	if err != nil {
		return 0, errors.Wrap(err, "upsert user")
	}

	keyHash := auth.HashKey(pepper, apiKey)
	if _, err := pool.Exec(ctx, upsertAPIKeySQL, keyHash, userID); err != nil {
		return 0, errors.Wrap(err, "upsert api key")
	}

	slog.Info("seeded demo user", slog.Int64("user_id", userID))
	return userID, nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	products := []struct {
		sku, name, description string
		price                  string
		stock                  int
	}{
		{"MUG-001", "Stoneware Mug", "350ml ceramic mug", "12000.00", 50},
		{"PLT-001", "Dinner Plate", "27cm stoneware plate", "18000.00", 40},
		{"GLS-001", "Highball Glass", "Set of 2 tumblers", "9500.00", 60},
		{"KTL-001", "Pour-over Kettle", "1L gooseneck kettle", "45000.00", 15},
		{"TRY-001", "Serving Tray", "Walnut serving tray", "32000.00", 20},
		{"CRF-001", "Glass Carafe", "Small-batch 1L carafe", "8000.00", 3},
	}

	slog.Info("seeding products", slog.Int("count", len(products)))

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return nil, errors.Wrapf(err, "parse price for %s", p.sku)
		}

		var id int64
		err = pool.QueryRow(ctx, upsertProductSQL,
			p.sku, p.name, p.description, price, p.stock,
		).Scan(&id)
		if err != nil {
			return nil, errors.Wrapf(err, "upsert product %s", p.sku)
		}
		ids = append(ids, id)

		slog.Info("upserted product", slog.String("sku", p.sku), slog.String("name", p.name))
	}

	return ids, nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, userID int64) error {
	coupons := []struct {
		name, couponType             string
		discountValue, minOrderPrice string
	}{
		{"WELCOME10", "PERCENTAGE", "10", "0"},
		{"SAVE3000", "FIXED", "3000", "20000"},
	}

	slog.Info("seeding coupons", slog.Int("count", len(coupons)))

	expiredAt := time.Now().AddDate(0, 1, 0)
	for _, c := range coupons {
		value, err := decimal.NewFromString(c.discountValue)
		if err != nil {
			return errors.Wrapf(err, "parse value for %s", c.name)
		}
		minPrice, err := decimal.NewFromString(c.minOrderPrice)
		if err != nil {
			return errors.Wrapf(err, "parse min order price for %s", c.name)
		}

		if _, err := pool.Exec(ctx, insertCouponSQL, c.name, c.couponType, value, minPrice); err != nil {
			return errors.Wrapf(err, "insert coupon %s", c.name)
		}
		if _, err := pool.Exec(ctx, grantCouponSQL, c.name, userID, expiredAt); err != nil {
			return errors.Wrapf(err, "grant coupon %s", c.name)
		}

		slog.Info("granted coupon", slog.String("name", c.name), slog.Int64("user_id", userID))
	}

	return nil
}

func seedCart(ctx context.Context, pool *pgxpool.Pool, userID int64, productIDs []int64) error {
	slog.Info("seeding demo cart")

	carts := postgres.NewCartRepository(pool)
	for i, id := range productIDs[:2] {
		if err := carts.Add(ctx, userID, cart.Item{ProductID: id, Quantity: i + 1}); err != nil {
			return errors.Wrapf(err, "add product %d to cart", id)
		}
	}

	return nil
}
