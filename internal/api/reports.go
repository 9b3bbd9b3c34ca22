package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"

	"github.com/tillcore/pos/internal/domain/sale"
)

// historyLimit caps the sale history listing.
const historyLimit = 200

type saleSummaryPayload struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Total     float64   `json:"total"`
}

type saleLinePayload struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Cost      float64 `json:"cost"`
	Quantity  int32   `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
	Profit    float64 `json:"profit"`
}

type saleDetailPayload struct {
	ID        int64             `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	Total     float64           `json:"total"`
	Lines     []saleLinePayload `json:"lines"`
}

type daySummaryPayload struct {
	Date  string  `json:"date"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

func toSaleSummary(s sale.Sale) saleSummaryPayload {
	return saleSummaryPayload{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Total:     s.Total.InexactFloat64(),
	}
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	limit := int32(historyLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if int32(n) < limit {
			limit = int32(n)
		}
	}

	sales, err := h.sales.List(r.Context(), limit)
	if err != nil {
		writeInternal(w, r, err)
		return
	}

	out := make([]saleSummaryPayload, len(sales))
	for i, s := range sales {
		out[i] = toSaleSummary(s)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s, err := h.sales.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sale.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sale not found")
			return
		}
		writeInternal(w, r, err)
		return
	}

	out := saleDetailPayload{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Total:     s.Total.InexactFloat64(),
		Lines:     make([]saleLinePayload, len(s.Lines)),
	}
	for i, l := range s.Lines {
		out.Lines[i] = saleLinePayload{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price.InexactFloat64(),
			Cost:      l.Cost.InexactFloat64(),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal.InexactFloat64(),
			Profit:    l.Profit.InexactFloat64(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// daySummary reports the sale count and summed total for one calendar day
// (?date=YYYY-MM-DD, defaulting to today).
func (h *Handler) daySummary(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		day = parsed
	}

	sum, err := h.sales.SummaryForDay(r.Context(), day)
	if err != nil {
		writeInternal(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, daySummaryPayload{
		Date:  day.Format("2006-01-02"),
		Count: sum.Count,
		Total: sum.Total.InexactFloat64(),
	})
}
