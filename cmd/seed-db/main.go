// Command seed-db runs migrations and loads the demo catalog, optionally
// setting the initial administrator secret so guarded operations are
// reachable out of the box.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tillcore/pos/internal/domain/credential"
	"github.com/tillcore/pos/internal/domain/product"
	"github.com/tillcore/pos/internal/repository"
)

// demoCatalog mirrors the sample stock a fresh till starts with.
var demoCatalog = []product.Product{
	{Code: "P001", Name: "Soda 600ml", Price: decimal.RequireFromString("18.00"), Cost: decimal.RequireFromString("12.00"), Stock: 50, Category: "Drinks"},
	{Code: "P002", Name: "Water 500ml", Price: decimal.RequireFromString("10.00"), Cost: decimal.RequireFromString("6.00"), Stock: 80, Category: "Drinks"},
	{Code: "P003", Name: "Potato chips", Price: decimal.RequireFromString("15.00"), Cost: decimal.RequireFromString("9.00"), Stock: 30, Category: "Snacks"},
	{Code: "P004", Name: "Cookies", Price: decimal.RequireFromString("12.00"), Cost: decimal.RequireFromString("7.00"), Stock: 40, Category: "Snacks"},
	{Code: "P005", Name: "Americano coffee", Price: decimal.RequireFromString("25.00"), Cost: decimal.RequireFromString("10.00"), Stock: 20, Category: "Coffee"},
}

func main() {
	var (
		databaseURL string
		adminSecret string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminSecret, "admin-secret", "", "initial administrator secret (or POS_SEED_ADMIN_SECRET env); skipped when empty or already configured")
	flag.StringVar(&pepper, "credential-pepper", "", "HMAC pepper for secret digests (or POS_CREDENTIAL_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminSecret == "" {
		adminSecret = os.Getenv("POS_SEED_ADMIN_SECRET")
	}
	if pepper == "" {
		pepper = os.Getenv("POS_CREDENTIAL_PEPPER")
	}
	if adminSecret != "" && pepper == "" {
		slog.Error("credential pepper is required to seed a secret: set --credential-pepper or POS_CREDENTIAL_PEPPER")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, adminSecret, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, adminSecret, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := repository.NewProductRepository(pool)
	for i := range demoCatalog {
		p := demoCatalog[i]
		if err := products.Create(ctx, &p); err != nil {
			if errors.Is(err, product.ErrDuplicateCode) {
				slog.Info("product already present", slog.String("code", p.Code))
				continue
			}
			return errors.Wrapf(err, "seed product %s", p.Code)
		}
		slog.Info("seeded product", slog.String("code", p.Code), slog.Int64("id", p.ID))
	}

	if adminSecret == "" {
		return nil
	}

	creds := credential.NewService(repository.NewCredentialRepository(pool), []byte(pepper))
	configured, err := creds.IsConfigured(ctx)
	if err != nil {
		return errors.Wrap(err, "check credential")
	}
	if configured {
		slog.Info("administrator secret already configured, skipping")
		return nil
	}
	if err := creds.SetSecret(ctx, adminSecret); err != nil {
		return errors.Wrap(err, "seed administrator secret")
	}
	slog.Info("administrator secret configured")
	return nil
}
