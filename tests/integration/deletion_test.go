//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCredentialStatus_Seeded(t *testing.T) {
	resp := doGet(t, "/api/admin/credential")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	status := decodeJSON[credentialStatusResponse](t, resp)
	if !status.Configured {
		t.Fatal("expected seeded administrator secret")
	}
}

func TestCreateCredential_AlreadyConfigured(t *testing.T) {
	resp := doPost(t, "/api/admin/credential", submitSecretRequest{Secret: "another-secret"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestDeletion_HappyPath(t *testing.T) {
	committed := commitSale(t)

	resp := doPost(t, "/api/sales/"+itoa(committed.SaleID)+"/deletion", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("begin: expected 201, got %d", resp.StatusCode)
	}
	flow := decodeJSON[deletionResponse](t, resp)
	resp.Body.Close()

	if flow.State != "authenticating" {
		t.Fatalf("state: got %q, want authenticating", flow.State)
	}
	if flow.Remaining != 3 {
		t.Errorf("remaining: got %d, want 3", flow.Remaining)
	}
	if flow.Sale.ID != committed.SaleID {
		t.Errorf("target: got %d, want %d", flow.Sale.ID, committed.SaleID)
	}

	resp = doPost(t, "/api/deletion/secret", submitSecretRequest{Secret: adminSecret})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("secret: expected 200, got %d", resp.StatusCode)
	}
	flow = decodeJSON[deletionResponse](t, resp)
	resp.Body.Close()
	if flow.State != "confirming" {
		t.Fatalf("state: got %q, want confirming", flow.State)
	}

	resp = doPost(t, "/api/deletion/confirm", confirmRequest{Confirmed: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", resp.StatusCode)
	}
	flow = decodeJSON[deletionResponse](t, resp)
	resp.Body.Close()
	if flow.State != "succeeded" {
		t.Fatalf("state: got %q, want succeeded", flow.State)
	}
	if flow.DeletedID != committed.SaleID {
		t.Errorf("deletedId: got %d, want %d", flow.DeletedID, committed.SaleID)
	}

	// The sale is gone, header and lines both.
	resp = doGet(t, "/api/sales/"+itoa(committed.SaleID))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestDeletion_DoesNotRestoreStock(t *testing.T) {
	committed := commitSale(t)
	sodaAfterSale := findProduct(t, "P001")

	resp := doPost(t, "/api/sales/"+itoa(committed.SaleID)+"/deletion", nil)
	resp.Body.Close()
	resp = doPost(t, "/api/deletion/secret", submitSecretRequest{Secret: adminSecret})
	resp.Body.Close()
	resp = doPost(t, "/api/deletion/confirm", confirmRequest{Confirmed: true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", resp.StatusCode)
	}

	// Removing the record corrects the ledger only; the goods stay sold.
	sodaAfterDelete := findProduct(t, "P001")
	if sodaAfterDelete.Stock != sodaAfterSale.Stock {
		t.Errorf("stock changed on deletion: got %d, want %d",
			sodaAfterDelete.Stock, sodaAfterSale.Stock)
	}
}

func TestDeletion_WrongSecretExhaustsAttempts(t *testing.T) {
	committed := commitSale(t)

	resp := doPost(t, "/api/sales/"+itoa(committed.SaleID)+"/deletion", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("begin: expected 201, got %d", resp.StatusCode)
	}

	var flow deletionResponse
	for i := 0; i < 3; i++ {
		resp = doPost(t, "/api/deletion/secret", submitSecretRequest{Secret: "not-the-secret"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("secret attempt %d: expected 200, got %d", i+1, resp.StatusCode)
		}
		flow = decodeJSON[deletionResponse](t, resp)
		resp.Body.Close()
	}

	if flow.State != "aborted" {
		t.Fatalf("state: got %q, want aborted", flow.State)
	}
	if flow.Reason != "auth_exhausted" {
		t.Errorf("reason: got %q, want auth_exhausted", flow.Reason)
	}

	// A fourth attempt is refused outright.
	resp = doPost(t, "/api/deletion/secret", submitSecretRequest{Secret: adminSecret})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("post-abort attempt: expected 409, got %d", resp.StatusCode)
	}

	// The sale survived.
	resp = doGet(t, "/api/sales/"+itoa(committed.SaleID))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected sale to survive, got %d", resp.StatusCode)
	}
}

func TestDeletion_Cancelled(t *testing.T) {
	committed := commitSale(t)

	resp := doPost(t, "/api/sales/"+itoa(committed.SaleID)+"/deletion", nil)
	resp.Body.Close()

	resp = doPost(t, "/api/deletion/cancel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}
	flow := decodeJSON[deletionResponse](t, resp)
	resp.Body.Close()

	if flow.State != "aborted" || flow.Reason != "user_cancelled" {
		t.Fatalf("got state %q reason %q, want aborted/user_cancelled", flow.State, flow.Reason)
	}

	resp = doGet(t, "/api/sales/"+itoa(committed.SaleID))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected sale to survive, got %d", resp.StatusCode)
	}
}

func TestDeletion_EmptySecretKeepsAttempt(t *testing.T) {
	committed := commitSale(t)

	resp := doPost(t, "/api/sales/"+itoa(committed.SaleID)+"/deletion", nil)
	resp.Body.Close()

	resp = doPost(t, "/api/deletion/secret", submitSecretRequest{Secret: "  "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank secret: expected 400, got %d", resp.StatusCode)
	}

	resp = doGet(t, "/api/deletion")
	flow := decodeJSON[deletionResponse](t, resp)
	resp.Body.Close()
	if flow.Attempt != 1 {
		t.Errorf("attempt: got %d, want 1", flow.Attempt)
	}

	// Leave no in-flight flow behind for later tests.
	resp = doPost(t, "/api/deletion/cancel", nil)
	resp.Body.Close()
}
