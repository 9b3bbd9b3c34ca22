package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested sale does not exist.
var ErrNotFound = errors.New("sale not found")

// StockConflictError indicates the transactional stock decrement for a line
// found less stock than the committed quantity. The whole commit rolls back.
type StockConflictError struct {
	ProductID int64
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock changed under product %d during commit", e.ProductID)
}

// Sale is one committed checkout: an immutable header plus its snapshot
// line items. It is only ever removed whole, via the guarded deletion flow.
type Sale struct {
	ID        int64
	CreatedAt time.Time
	Total     decimal.Decimal
	Lines     []Line
}

// Line is a snapshot line item. All fields are copies taken at sale time so
// the ledger stays historically accurate if the product is later edited or
// deleted; ProductID is kept only as a historical reference.
type Line struct {
	ID        int64
	SaleID    int64
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Cost      decimal.Decimal
	Quantity  int32
	Subtotal  decimal.Decimal
	Profit    decimal.Decimal
}

// DaySummary aggregates the ledger for one calendar day.
type DaySummary struct {
	Count int64
	Total decimal.Decimal
}

// Repository defines persistence operations for the sales ledger.
//
// Create and Delete are the only operations that mutate durable state and
// each must run as a single atomic transaction: Create inserts the header
// and lines and decrements catalog stock, Delete removes the lines first
// and then the header. Either everything persists or nothing does.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, limit int32) ([]Sale, error)
	Delete(ctx context.Context, id int64) error
	SummaryForDay(ctx context.Context, day time.Time) (DaySummary, error)
}
