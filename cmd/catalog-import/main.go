// Command catalog-import loads gzipped JSONL product dumps into the catalog.
// Each line is one product object. Files are streamed concurrently; a bloom
// filter skips SKUs already imported in this run so overlapping dumps do not
// hammer the database with redundant upserts.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/oakmart/orderd/internal/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

const upsertProductSQL = `INSERT INTO products (sku, name, description, price, stock)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (sku) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		stock = EXCLUDED.stock,
		updated_at = now()`

type productJSON struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing products-*.jsonl.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "products-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no products-*.jsonl.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// seen is approximate: a false positive only skips an upsert of a SKU
	// that another file already wrote in this run.
	var (
		seenMu sync.Mutex
		seen   = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	)

	products := make(chan productJSON, 1024)

	g, ctx := errgroup.WithContext(ctx)
	var readers errgroup.Group
	for _, f := range files {
		readers.Go(streamFile(ctx, f, &seenMu, seen, products))
	}
	g.Go(func() error {
		defer close(products)
		return readers.Wait()
	})

	// Single writer keeps upsert ordering deterministic per SKU.
	g.Go(func() error {
		var written uint64
		for p := range products {
			if _, err := pool.Exec(ctx, upsertProductSQL,
				p.SKU, p.Name, p.Description, p.Price, p.Stock,
			); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.SKU)
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("import progress", slog.Uint64("written", written))
			}
		}
		slog.Info("import complete", slog.Uint64("written", written))
		return nil
	})

	return g.Wait()
}

// streamFile decompresses one dump and emits products whose SKU has not been
// seen yet in this run.
func streamFile(
	ctx context.Context,
	path string,
	seenMu *sync.Mutex,
	seen *bloom.BloomFilter,
	out chan<- productJSON,
) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count, skipped uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var p productJSON
			if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
				return errors.Wrapf(err, "parse line %d of %s", count+skipped+1, path)
			}
			if p.SKU == "" {
				return errors.Errorf("missing sku at line %d of %s", count+skipped+1, path)
			}

			seenMu.Lock()
			dup := seen.TestString(p.SKU)
			if !dup {
				seen.AddString(p.SKU)
			}
			seenMu.Unlock()
			if dup {
				skipped++
				continue
			}

			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
			count++
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("file complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("products", count),
			slog.Uint64("duplicates_skipped", skipped),
		)
		return nil
	}
}
