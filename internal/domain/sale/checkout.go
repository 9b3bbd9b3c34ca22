package sale

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tillcore/pos/internal/domain/cart"
)

// ErrEmptyCart is returned when Commit is called on a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// Checkout turns a staged cart into a durable sale. Confirming the computed
// total with the operator happens before Commit is called; the engine does
// not prompt.
type Checkout struct {
	sales Repository
	now   func() time.Time
}

// NewCheckout creates a checkout engine writing to the given ledger.
func NewCheckout(sales Repository) *Checkout {
	return &Checkout{sales: sales, now: time.Now}
}

// Commit records the cart as one sale: a header stamped now with the cart
// total and one snapshot line per cart line, with subtotal and profit
// computed at 2 decimal places. Persistence and the stock decrement happen
// in a single transaction inside the repository; on any failure the store
// is left exactly as before and the cart keeps its lines. On success the
// cart is cleared and the stored sale (with its new id) is returned.
//
// Stock sufficiency is not re-validated here beyond what the cart enforced
// at add time; the repository's guarded decrement keeps stock non-negative
// regardless.
func (c *Checkout) Commit(ctx context.Context, crt *cart.Cart) (*Sale, error) {
	staged := crt.Lines()
	if len(staged) == 0 {
		return nil, ErrEmptyCart
	}

	s := &Sale{
		CreatedAt: c.now(),
		Total:     crt.Total().Round(2),
		Lines:     make([]Line, len(staged)),
	}
	for i, ln := range staged {
		qty := decimal.NewFromInt(int64(ln.Quantity))
		s.Lines[i] = Line{
			ProductID: ln.ProductID,
			Name:      ln.Name,
			Price:     ln.Price,
			Cost:      ln.Cost,
			Quantity:  ln.Quantity,
			Subtotal:  ln.Price.Mul(qty).Round(2),
			Profit:    ln.Price.Sub(ln.Cost).Mul(qty).Round(2),
		}
	}

	if err := c.sales.Create(ctx, s); err != nil {
		return nil, errors.Wrap(err, "record sale")
	}

	crt.Clear()
	return s, nil
}
