// Package cart implements the in-memory staging area for one checkout
// session. Prices and costs are snapshotted when a line is added, so a later
// catalog edit cannot change an uncommitted cart's totals. Stock checks use
// the product snapshot the caller last loaded from the catalog; the cart
// itself never queries storage.
package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tillcore/pos/internal/domain/product"
)

// Sentinel errors for cart mutations.
var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNoSuchLine      = errors.New("no cart line at that index")
)

// OutOfStockError indicates the product has no stock at all.
type OutOfStockError struct {
	Name string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%q is out of stock", e.Name)
}

// InsufficientStockError indicates the requested quantity would exceed the
// product's available stock. Max carries the maximum allowed quantity.
type InsufficientStockError struct {
	Name string
	Max  int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: maximum %d", e.Name, e.Max)
}

// Line is one staged product with its price/cost snapshots.
type Line struct {
	ProductID int64
	Code      string
	Name      string
	Price     decimal.Decimal
	Cost      decimal.Decimal
	Quantity  int32
	// Stock is the catalog stock snapshot at the last Add, kept so the
	// surrounding UI can show how many more units may be staged.
	Stock int32
}

// Subtotal returns price × quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered collection of staged lines. One instance is active per
// till session; it is discarded on commit or explicit clear. Cart is not
// safe for concurrent use; the owner serializes access.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add stages qty units of p. When p is already staged the existing line's
// quantity is incremented and its stock snapshot refreshed; the price/cost
// snapshots from the first Add are kept. Fails with OutOfStockError when p
// has no stock, and with InsufficientStockError when the resulting quantity
// would exceed the last-loaded stock.
func (c *Cart) Add(p product.Product, qty int32) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if p.Stock <= 0 {
		return &OutOfStockError{Name: p.Name}
	}

	for i := range c.lines {
		if c.lines[i].ProductID != p.ID {
			continue
		}
		if c.lines[i].Quantity+qty > p.Stock {
			return &InsufficientStockError{Name: p.Name, Max: p.Stock}
		}
		c.lines[i].Quantity += qty
		c.lines[i].Stock = p.Stock
		return nil
	}

	if qty > p.Stock {
		return &InsufficientStockError{Name: p.Name, Max: p.Stock}
	}
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Price:     p.Price,
		Cost:      p.Cost,
		Quantity:  qty,
		Stock:     p.Stock,
	})
	return nil
}

// Remove drops the line at index. It has no other side effect.
func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.lines) {
		return ErrNoSuchLine
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// Clear discards every staged line. Asking the operator for confirmation is
// the caller's concern.
func (c *Cart) Clear() {
	c.lines = c.lines[:0]
}

// Total returns the sum of line subtotals. Pure; safe to call at any time.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Len returns the number of staged lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the staged lines for display or commit. Mutating
// the returned slice does not affect the cart.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}
