package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/tillcore/pos/internal/domain/cart"
	"github.com/tillcore/pos/internal/domain/product"
)

type cartLinePayload struct {
	Index    int     `json:"index"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int32   `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

type cartPayload struct {
	Lines []cartLinePayload `json:"lines"`
	Total float64           `json:"total"`
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
}

// cartSnapshot builds the display payload. Caller holds h.mu.
func (h *Handler) cartSnapshot() cartPayload {
	lines := h.cart.Lines()
	out := cartPayload{Lines: make([]cartLinePayload, len(lines))}
	for i, l := range lines {
		out.Lines[i] = cartLinePayload{
			Index:    i,
			Code:     l.Code,
			Name:     l.Name,
			Price:    l.Price.InexactFloat64(),
			Quantity: l.Quantity,
			Subtotal: l.Subtotal().InexactFloat64(),
		}
	}
	out.Total = h.cart.Total().InexactFloat64()
	return out
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	snap := h.cartSnapshot()
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

// addCartItem stages a product. The product is loaded here; the cart works
// off this freshly loaded snapshot and never queries storage itself.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternal(w, r, err)
		return
	}

	h.mu.Lock()
	err = h.cart.Add(*p, req.Quantity)
	snap := h.cartSnapshot()
	h.mu.Unlock()

	if err != nil {
		var (
			oosErr   *cart.OutOfStockError
			shortErr *cart.InsufficientStockError
		)
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &oosErr):
			writeError(w, http.StatusConflict, oosErr.Error())
		case errors.As(err, &shortErr):
			writeError(w, http.StatusConflict,
				fmt.Sprintf("maximum stock for %q: %d", shortErr.Name, shortErr.Max))
		default:
			writeInternal(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	h.mu.Lock()
	err = h.cart.Remove(index)
	snap := h.cartSnapshot()
	h.mu.Unlock()

	if err != nil {
		writeError(w, http.StatusNotFound, "no cart line at that index")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// clearCart empties the cart. The yes/no prompt before discarding staged
// lines belongs to the UI.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.cart.Clear()
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
