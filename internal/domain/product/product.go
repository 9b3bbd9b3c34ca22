package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog operations.
var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")

	// ErrDuplicateCode is returned when a write collides with an existing
	// operator-facing product code.
	ErrDuplicateCode = errors.New("product code already exists")
)

// Product represents a catalog item available for sale. Code is the unique
// operator-facing identifier; ID is the surrogate key the ledger references.
type Product struct {
	ID       int64
	Code     string
	Name     string
	Price    decimal.Decimal
	Cost     decimal.Decimal
	Stock    int32
	Category string
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
}

// Validate checks operator-supplied fields before a catalog write.
// An empty category defaults to "General".
func (p *Product) Validate() error {
	if p.Code == "" {
		return errors.New("code is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	if p.Cost.IsNegative() {
		return errors.New("cost must not be negative")
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	if p.Category == "" {
		p.Category = "General"
	}
	return nil
}
