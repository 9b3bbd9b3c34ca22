package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tillcore/pos/internal/domain/product"
)

type productPayload struct {
	ID       int64   `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost"`
	Stock    int32   `json:"stock"`
	Category string  `json:"category"`
}

type productRequest struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost"`
	Stock    int32   `json:"stock"`
	Category string  `json:"category"`
}

func toProductPayload(p product.Product) productPayload {
	return productPayload{
		ID:       p.ID,
		Code:     p.Code,
		Name:     p.Name,
		Price:    p.Price.InexactFloat64(),
		Cost:     p.Cost.InexactFloat64(),
		Stock:    p.Stock,
		Category: p.Category,
	}
}

func (req productRequest) toDomain() product.Product {
	return product.Product{
		Code:     req.Code,
		Name:     req.Name,
		Price:    decimal.NewFromFloat(req.Price).Round(2),
		Cost:     decimal.NewFromFloat(req.Cost).Round(2),
		Stock:    req.Stock,
		Category: req.Category,
	}
}

// listProducts returns the catalog, optionally filtered by ?q= over code
// and name (the UI's live search).
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		items []product.Product
		err   error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		items, err = h.products.Search(r.Context(), q)
	} else {
		items, err = h.products.List(r.Context())
	}
	if err != nil {
		writeInternal(w, r, err)
		return
	}

	out := make([]productPayload, len(items))
	for i, p := range items {
		out[i] = toProductPayload(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductPayload(*p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p := req.toDomain()
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.products.Create(r.Context(), &p); err != nil {
		if errors.Is(err, product.ErrDuplicateCode) {
			writeError(w, http.StatusConflict, "code "+p.Code+" already exists")
			return
		}
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductPayload(p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p := req.toDomain()
	p.ID = id
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.products.Update(r.Context(), &p); err != nil {
		switch {
		case errors.Is(err, product.ErrNotFound):
			writeError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, product.ErrDuplicateCode):
			writeError(w, http.StatusConflict, "code "+p.Code+" already exists")
		default:
			writeInternal(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toProductPayload(p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
