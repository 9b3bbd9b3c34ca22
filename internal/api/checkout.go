package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/tillcore/pos/internal/domain/sale"
)

type checkoutResponse struct {
	SaleID int64   `json:"saleId"`
	Total  float64 `json:"total"`
}

// commitCheckout records the active cart as a sale. The operator confirmed
// the displayed total in the UI before this call; commit itself is
// all-or-nothing and clears the cart only on success.
func (h *Handler) commitCheckout(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	s, err := h.checkout.Commit(r.Context(), h.cart)
	h.mu.Unlock()

	if err != nil {
		var conflict *sale.StockConflictError
		switch {
		case errors.Is(err, sale.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, "cart is empty")
		case errors.As(err, &conflict):
			writeError(w, http.StatusConflict, conflict.Error())
		default:
			writeInternal(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		SaleID: s.ID,
		Total:  s.Total.InexactFloat64(),
	})
}
