// Package api exposes the checkout core over HTTP for the surrounding
// till application: catalog maintenance, cart staging, checkout, guarded
// deletion, credential lifecycle, and history reporting.
package api

import (
	"net/http"
	"sync"

	"github.com/tillcore/pos/internal/domain/cart"
	"github.com/tillcore/pos/internal/domain/credential"
	"github.com/tillcore/pos/internal/domain/deletion"
	"github.com/tillcore/pos/internal/domain/product"
	"github.com/tillcore/pos/internal/domain/sale"
)

// Handler serves the till API. It owns the single-operator session state:
// one active cart and at most one active guarded-deletion flow, both
// serialized behind mu. The UI only ever observes this state through the
// endpoints; it never mutates it directly.
type Handler struct {
	products product.Repository
	sales    sale.Repository
	checkout *sale.Checkout
	creds    *credential.Service

	mu   sync.Mutex
	cart *cart.Cart
	flow *deletion.Flow
}

// NewHandler constructs a Handler with the required domain dependencies and
// an empty cart.
func NewHandler(
	products product.Repository,
	sales sale.Repository,
	checkout *sale.Checkout,
	creds *credential.Service,
) *Handler {
	return &Handler{
		products: products,
		sales:    sales,
		checkout: checkout,
		creds:    creds,
		cart:     cart.New(),
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("POST /api/products", h.createProduct)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.deleteProduct)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{index}", h.removeCartItem)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/checkout", h.commitCheckout)

	mux.HandleFunc("GET /api/sales", h.listSales)
	mux.HandleFunc("GET /api/sales/summary", h.daySummary)
	mux.HandleFunc("GET /api/sales/{id}", h.getSale)

	mux.HandleFunc("GET /api/admin/credential", h.credentialStatus)
	mux.HandleFunc("POST /api/admin/credential", h.createCredential)
	mux.HandleFunc("PUT /api/admin/credential", h.changeCredential)

	mux.HandleFunc("POST /api/sales/{id}/deletion", h.beginDeletion)
	mux.HandleFunc("GET /api/deletion", h.deletionState)
	mux.HandleFunc("POST /api/deletion/secret", h.submitDeletionSecret)
	mux.HandleFunc("POST /api/deletion/confirm", h.confirmDeletion)
	mux.HandleFunc("POST /api/deletion/cancel", h.cancelDeletion)
}
