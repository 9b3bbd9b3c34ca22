// Command catalog-import bulk-loads products from CSV files into the
// catalog. Files may be gzip-compressed (.gz). Expected columns:
//
//	code,name,price,cost,stock,category
//
// Files are parsed concurrently; rows are then upserted by code, so an
// import can both add new products and refresh existing ones.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tillcore/pos/internal/domain/product"
	"github.com/tillcore/pos/internal/repository"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		slog.Error("usage: catalog-import [flags] file.csv[.gz]...")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, flag.Args()); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	// Parse every file concurrently before touching the database, so a
	// malformed file aborts the import with nothing written.
	parsed := make([][]product.Product, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			rows, err := parseFile(gctx, f)
			if err != nil {
				return errors.Wrapf(err, "parse %s", f)
			}
			parsed[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := repository.NewProductRepository(pool)
	total := 0
	for i, rows := range parsed {
		for j := range rows {
			if err := products.Upsert(ctx, &rows[j]); err != nil {
				return errors.Wrapf(err, "upsert %s from %s", rows[j].Code, files[i])
			}
		}
		total += len(rows)
		slog.Info("imported file", slog.String("file", files[i]), slog.Int("rows", len(rows)))
	}

	slog.Info("catalog updated", slog.Int("rows", total))
	return nil
}

// parseFile reads one CSV file, transparently decompressing .gz input.
func parseFile(ctx context.Context, path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer gz.Close()
		src = gz
	}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = 6

	var out []product.Product
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		// Skip a header row.
		if line == 1 && strings.EqualFold(record[0], "code") {
			continue
		}

		p, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		out = append(out, p)
	}
}

func parseRecord(record []string) (product.Product, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return product.Product{}, errors.Wrap(err, "price")
	}
	cost, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return product.Product{}, errors.Wrap(err, "cost")
	}
	stock, err := strconv.ParseInt(strings.TrimSpace(record[4]), 10, 32)
	if err != nil {
		return product.Product{}, errors.Wrap(err, "stock")
	}

	p := product.Product{
		Code:     strings.TrimSpace(record[0]),
		Name:     strings.TrimSpace(record[1]),
		Price:    price.Round(2),
		Cost:     cost.Round(2),
		Stock:    int32(stock),
		Category: strings.TrimSpace(record[5]),
	}
	if err := p.Validate(); err != nil {
		return product.Product{}, err
	}
	return p, nil
}
