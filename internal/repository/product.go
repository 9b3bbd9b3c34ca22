package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillcore/pos/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, code, name, price, cost, stock, category
		FROM products ORDER BY name`

	searchProductsSQL = `SELECT id, code, name, price, cost, stock, category
		FROM products WHERE code ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%'
		ORDER BY name`

	getProductByIDSQL = `SELECT id, code, name, price, cost, stock, category
		FROM products WHERE id = $1`

	getProductByCodeSQL = `SELECT id, code, name, price, cost, stock, category
		FROM products WHERE code = $1`

	createProductSQL = `INSERT INTO products (code, name, price, cost, stock, category)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	updateProductSQL = `UPDATE products
		SET code = $2, name = $3, price = $4, cost = $5, stock = $6, category = $7
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (code, name, price, cost, stock, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, cost = EXCLUDED.cost,
		    stock = EXCLUDED.stock, category = EXCLUDED.category`
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Search returns products whose code or name contains query,
// case-insensitively, ordered by name.
func (r *ProductRepository) Search(ctx context.Context, query string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, searchProductsSQL, query)
	if err != nil {
		return nil, fmt.Errorf("searching products %q: %w", query, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by surrogate key.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return collectOneProduct(rows, fmt.Sprintf("product %d", id))
}

// GetByCode returns a single product by its operator-facing code.
func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", code, err)
	}
	return collectOneProduct(rows, fmt.Sprintf("product %q", code))
}

// Create inserts a catalog entry and fills in its new id. A code collision
// is reported as product.ErrDuplicateCode with no partial insert.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.Code, p.Name, p.Price, p.Cost, p.Stock, p.Category,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrDuplicateCode
		}
		return fmt.Errorf("creating product %q: %w", p.Code, err)
	}
	return nil
}

// Update rewrites every editable field of the product.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Code, p.Name, p.Price, p.Cost, p.Stock, p.Category,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrDuplicateCode
		}
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a catalog entry. Ledger lines referencing it survive; they
// carry their own snapshots.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Upsert inserts the product or, when the code already exists, overwrites
// the catalog entry with the imported fields. Used by bulk catalog import.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.Code, p.Name, p.Price, p.Cost, p.Stock, p.Category,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.Code, err)
	}
	return nil
}

func collectOneProduct(rows pgx.Rows, what string) (*product.Product, error) {
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s: %w", what, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Price, &p.Cost, &p.Stock, &p.Category)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
