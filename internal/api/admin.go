package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/tillcore/pos/internal/domain/credential"
)

type credentialStatusPayload struct {
	Configured bool `json:"configured"`
}

type setSecretRequest struct {
	Secret string `json:"secret"`
}

type changeSecretRequest struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

func (h *Handler) credentialStatus(w http.ResponseWriter, r *http.Request) {
	configured, err := h.creds.IsConfigured(r.Context())
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialStatusPayload{Configured: configured})
}

// createCredential performs first-run secret creation. Once a secret
// exists it must be replaced through the change path, never overwritten
// blind.
func (h *Handler) createCredential(w http.ResponseWriter, r *http.Request) {
	var req setSecretRequest
	if !decodeBody(w, r, &req) {
		return
	}

	configured, err := h.creds.IsConfigured(r.Context())
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	if configured {
		writeError(w, http.StatusConflict, "secret already configured; use change")
		return
	}

	if err := h.creds.SetSecret(r.Context(), req.Secret); err != nil {
		if errors.Is(err, credential.ErrSecretTooShort) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, credentialStatusPayload{Configured: true})
}

func (h *Handler) changeCredential(w http.ResponseWriter, r *http.Request) {
	var req changeSecretRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.creds.ChangeSecret(r.Context(), req.Current, req.Next)
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrNotConfigured):
			writeError(w, http.StatusPreconditionFailed, "secret not configured yet")
		case errors.Is(err, credential.ErrBadSecret):
			writeError(w, http.StatusForbidden, "current secret does not verify")
		case errors.Is(err, credential.ErrSecretTooShort),
			errors.Is(err, credential.ErrSecretUnchanged):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeInternal(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, credentialStatusPayload{Configured: true})
}
