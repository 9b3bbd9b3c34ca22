//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"
)

// findProduct looks a product up by code.
func findProduct(t *testing.T, code string) productResponse {
	t.Helper()

	resp := doGet(t, "/api/products")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list products: expected 200, got %d", resp.StatusCode)
	}

	for _, p := range decodeJSON[[]productResponse](t, resp) {
		if p.Code == code {
			return p
		}
	}
	t.Fatalf("product %s not found", code)
	return productResponse{}
}

// clearCart resets the session cart so tests do not leak staged lines.
func clearCart(t *testing.T) {
	t.Helper()

	resp := doDelete(t, "/api/cart")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear cart: expected 204, got %d", resp.StatusCode)
	}
}

// commitSale stages one Soda and one Water and checks them out.
func commitSale(t *testing.T) checkoutResponse {
	t.Helper()
	clearCart(t)

	soda := findProduct(t, "P001")
	water := findProduct(t, "P002")

	resp := doPost(t, "/api/cart/items", addItemRequest{ProductID: soda.ID, Quantity: 2})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add soda: expected 200, got %d", resp.StatusCode)
	}
	resp = doPost(t, "/api/cart/items", addItemRequest{ProductID: water.ID, Quantity: 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add water: expected 200, got %d", resp.StatusCode)
	}

	resp = doPost(t, "/api/checkout", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checkout: expected 200, got %d", resp.StatusCode)
	}
	return decodeJSON[checkoutResponse](t, resp)
}

func TestCartStaging(t *testing.T) {
	clearCart(t)
	soda := findProduct(t, "P001")

	resp := doPost(t, "/api/cart/items", addItemRequest{ProductID: soda.ID, Quantity: 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()

	if len(cart.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Lines))
	}
	if cart.Lines[0].Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", cart.Lines[0].Quantity)
	}
	if cart.Lines[0].Subtotal != 36.0 {
		t.Errorf("subtotal: got %v, want 36.0", cart.Lines[0].Subtotal)
	}
	if cart.Total != 36.0 {
		t.Errorf("total: got %v, want 36.0", cart.Total)
	}

	clearCart(t)
}

func TestCheckout_EmptyCart(t *testing.T) {
	clearCart(t)

	resp := doPost(t, "/api/checkout", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCheckout_CommitsAndDecrementsStock(t *testing.T) {
	sodaBefore := findProduct(t, "P001")

	committed := commitSale(t)
	if committed.SaleID == 0 {
		t.Fatal("checkout returned no sale ID")
	}
	if committed.Total != 46.0 {
		t.Errorf("total: got %v, want 46.0", committed.Total)
	}

	// The committed quantities left the shelf.
	sodaAfter := findProduct(t, "P001")
	if got, want := sodaAfter.Stock, sodaBefore.Stock-2; got != want {
		t.Errorf("soda stock: got %d, want %d", got, want)
	}

	// The cart is empty again.
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()
	cart := decodeJSON[cartResponse](t, resp)
	if len(cart.Lines) != 0 {
		t.Errorf("expected empty cart after checkout, got %d lines", len(cart.Lines))
	}
}

func TestSaleHistoryAndDetail(t *testing.T) {
	committed := commitSale(t)

	resp := doGet(t, "/api/sales")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list sales: expected 200, got %d", resp.StatusCode)
	}
	sales := decodeJSON[[]saleSummaryResponse](t, resp)
	resp.Body.Close()

	if len(sales) == 0 {
		t.Fatal("expected at least one sale")
	}
	// Newest first.
	if sales[0].ID != committed.SaleID {
		t.Errorf("first sale: got %d, want %d", sales[0].ID, committed.SaleID)
	}

	resp = doGet(t, "/api/sales/"+itoa(committed.SaleID))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get sale: expected 200, got %d", resp.StatusCode)
	}
	detail := decodeJSON[saleDetailResponse](t, resp)

	if len(detail.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(detail.Lines))
	}
	if detail.Total != 46.0 {
		t.Errorf("total: got %v, want 46.0", detail.Total)
	}
	var sum, profit float64
	for _, l := range detail.Lines {
		sum += l.Subtotal
		profit += l.Profit
	}
	if sum != detail.Total {
		t.Errorf("line subtotals %v do not sum to header total %v", sum, detail.Total)
	}
	if profit != 16.0 {
		t.Errorf("profit: got %v, want 16.0", profit)
	}
}

func TestDaySummary(t *testing.T) {
	commitSale(t)

	today := time.Now().Format("2006-01-02")
	resp := doGet(t, "/api/sales/summary?date="+today)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	sum := decodeJSON[daySummaryResponse](t, resp)

	if sum.Date != today {
		t.Errorf("date: got %q, want %q", sum.Date, today)
	}
	if sum.Count < 1 {
		t.Errorf("count: got %d, want at least 1", sum.Count)
	}
	if sum.Total < 46.0 {
		t.Errorf("total: got %v, want at least 46.0", sum.Total)
	}
}
