package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillcore/pos/internal/domain/sale"
)

const (
	insertSaleSQL = `INSERT INTO sales (created_at, total) VALUES ($1, $2) RETURNING id`

	insertSaleLineSQL = `INSERT INTO sale_lines
		(sale_id, product_id, name, price, cost, quantity, subtotal, profit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	// The stock >= quantity guard keeps the non-negative stock invariant even
	// under a racing catalog edit; a miss aborts the whole transaction.
	decrementStockSQL = `UPDATE products SET stock = stock - $1
		WHERE id = $2 AND stock >= $1`

	getSaleSQL = `SELECT id, created_at, total FROM sales WHERE id = $1`

	getSaleLinesSQL = `SELECT id, sale_id, product_id, name, price, cost, quantity, subtotal, profit
		FROM sale_lines WHERE sale_id = $1 ORDER BY id`

	listSalesSQL = `SELECT id, created_at, total FROM sales ORDER BY id DESC LIMIT $1`

	deleteSaleLinesSQL = `DELETE FROM sale_lines WHERE sale_id = $1`

	deleteSaleSQL = `DELETE FROM sales WHERE id = $1`

	daySummarySQL = `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM sales
		WHERE created_at >= $1 AND created_at < $2`
)

var _ sale.Repository = (*SaleRepository)(nil)

// SaleRepository implements the sales ledger backed by PostgreSQL.
type SaleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository returns a SaleRepository that uses the given pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// Create persists the sale as one transaction: header, snapshot lines, and
// a guarded stock decrement per line. Any failure rolls back everything;
// on success the sale and its lines carry their new ids.
func (r *SaleRepository) Create(ctx context.Context, s *sale.Sale) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning sale transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := tx.QueryRow(ctx, insertSaleSQL, s.CreatedAt, s.Total).Scan(&s.ID); err != nil {
		return fmt.Errorf("inserting sale header: %w", err)
	}

	for i := range s.Lines {
		ln := &s.Lines[i]
		ln.SaleID = s.ID

		err := tx.QueryRow(ctx, insertSaleLineSQL,
			ln.SaleID, ln.ProductID, ln.Name, ln.Price, ln.Cost,
			ln.Quantity, ln.Subtotal, ln.Profit,
		).Scan(&ln.ID)
		if err != nil {
			return fmt.Errorf("inserting sale line for product %d: %w", ln.ProductID, err)
		}

		tag, err := tx.Exec(ctx, decrementStockSQL, ln.Quantity, ln.ProductID)
		if err != nil {
			return fmt.Errorf("decrementing stock for product %d: %w", ln.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return &sale.StockConflictError{ProductID: ln.ProductID}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing sale: %w", err)
	}
	return nil
}

// GetByID returns the sale header with all its lines.
func (r *SaleRepository) GetByID(ctx context.Context, id int64) (*sale.Sale, error) {
	rows, err := r.pool.Query(ctx, getSaleSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting sale %d: %w", id, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sale.ErrNotFound
		}
		return nil, fmt.Errorf("getting sale %d: %w", id, err)
	}

	lineRows, err := r.pool.Query(ctx, getSaleLinesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting lines for sale %d: %w", id, err)
	}
	s.Lines, err = pgx.CollectRows(lineRows, scanSaleLine)
	if err != nil {
		return nil, fmt.Errorf("getting lines for sale %d: %w", id, err)
	}
	return &s, nil
}

// List returns up to limit sale headers, newest first, without lines.
func (r *SaleRepository) List(ctx context.Context, limit int32) ([]sale.Sale, error) {
	rows, err := r.pool.Query(ctx, listSalesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	return pgx.CollectRows(rows, scanSale)
}

// Delete removes the sale as one transaction, children first: every line
// referencing the header, then the header itself. The ordering guarantees
// no window where lines dangle without their parent. Returns
// sale.ErrNotFound when the header does not exist; catalog stock is not
// touched.
func (r *SaleRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, deleteSaleLinesSQL, id); err != nil {
		return fmt.Errorf("deleting lines of sale %d: %w", id, err)
	}

	tag, err := tx.Exec(ctx, deleteSaleSQL, id)
	if err != nil {
		return fmt.Errorf("deleting sale %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return sale.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete of sale %d: %w", id, err)
	}
	return nil
}

// SummaryForDay returns the count and summed total of sales committed on
// the calendar day containing day, in day's location.
func (r *SaleRepository) SummaryForDay(ctx context.Context, day time.Time) (sale.DaySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var sum sale.DaySummary
	if err := r.pool.QueryRow(ctx, daySummarySQL, start, end).Scan(&sum.Count, &sum.Total); err != nil {
		return sale.DaySummary{}, fmt.Errorf("summarizing sales for %s: %w", start.Format("2006-01-02"), err)
	}
	return sum, nil
}

func scanSale(row pgx.CollectableRow) (sale.Sale, error) {
	var s sale.Sale
	err := row.Scan(&s.ID, &s.CreatedAt, &s.Total)
	return s, err
}

func scanSaleLine(row pgx.CollectableRow) (sale.Line, error) {
	var l sale.Line
	err := row.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.Name, &l.Price, &l.Cost,
		&l.Quantity, &l.Subtotal, &l.Profit)
	return l, err
}
