package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/tillcore/pos/internal/domain/credential"
	"github.com/tillcore/pos/internal/domain/deletion"
	"github.com/tillcore/pos/internal/domain/sale"
)

type deletionPayload struct {
	State     string             `json:"state"`
	Attempt   int                `json:"attempt,omitempty"`
	Remaining int                `json:"remaining,omitempty"`
	Sale      saleSummaryPayload `json:"sale"`
	Reason    string             `json:"reason,omitempty"`
	DeletedID int64              `json:"deletedId,omitempty"`
	Fault     string             `json:"fault,omitempty"`
}

type submitSecretRequest struct {
	Secret string `json:"secret"`
}

type confirmRequest struct {
	Confirmed bool `json:"confirmed"`
}

func toDeletionPayload(f *deletion.Flow) deletionPayload {
	t := f.Target()
	out := deletionPayload{
		State:     f.State().String(),
		Attempt:   f.Attempt(),
		Remaining: f.Remaining(),
		Sale: saleSummaryPayload{
			ID:        t.ID,
			CreatedAt: t.CreatedAt,
			Total:     t.Total.InexactFloat64(),
		},
		Reason: f.Reason().String(),
	}
	if f.State() == deletion.StateSucceeded {
		out.DeletedID = t.ID
	}
	if f.Fault() != nil {
		out.Fault = f.Fault().Error()
	}
	return out
}

// beginDeletion starts a guarded deletion flow for the selected sale. One
// flow may be active at a time; a terminal flow is replaced, an in-flight
// one is a conflict. While no administrator secret exists the request is
// redirected into the secret-creation path with 412.
func (h *Handler) beginDeletion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	h.mu.Lock()
	if h.flow != nil {
		st := h.flow.State()
		if st != deletion.StateSucceeded && st != deletion.StateAborted {
			h.mu.Unlock()
			writeError(w, http.StatusConflict, "a deletion flow is already in progress")
			return
		}
	}
	h.mu.Unlock()

	flow, err := deletion.Begin(r.Context(), h.creds, h.sales, id)
	if err != nil {
		switch {
		case errors.Is(err, deletion.ErrNoSelection):
			writeError(w, http.StatusBadRequest, "no sale selected")
		case errors.Is(err, credential.ErrNotConfigured):
			writeError(w, http.StatusPreconditionFailed,
				"administrator secret not configured; create it first")
		case errors.Is(err, sale.ErrNotFound):
			writeError(w, http.StatusNotFound, "sale not found")
		default:
			writeInternal(w, r, err)
		}
		return
	}

	h.mu.Lock()
	h.flow = flow
	payload := toDeletionPayload(flow)
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, payload)
}

func (h *Handler) deletionState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.flow == nil {
		writeError(w, http.StatusNotFound, "no deletion flow")
		return
	}
	writeJSON(w, http.StatusOK, toDeletionPayload(h.flow))
}

func (h *Handler) submitDeletionSecret(w http.ResponseWriter, r *http.Request) {
	var req submitSecretRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.flow == nil {
		writeError(w, http.StatusNotFound, "no deletion flow")
		return
	}

	_, err := h.flow.SubmitSecret(r.Context(), req.Secret)
	if err != nil {
		switch {
		case errors.Is(err, deletion.ErrEmptySecret):
			// Re-prompt; no attempt consumed.
			writeError(w, http.StatusBadRequest, "secret must not be empty")
		case errors.Is(err, deletion.ErrFlowFinished), errors.Is(err, deletion.ErrWrongState):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeInternal(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toDeletionPayload(h.flow))
}

func (h *Handler) confirmDeletion(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.flow == nil {
		writeError(w, http.StatusNotFound, "no deletion flow")
		return
	}

	_, err := h.flow.Confirm(r.Context(), req.Confirmed)
	if err != nil {
		switch {
		case errors.Is(err, deletion.ErrFlowFinished), errors.Is(err, deletion.ErrWrongState):
			writeError(w, http.StatusConflict, err.Error())
			return
		default:
			// Storage fault: the transaction rolled back whole; the flow is
			// aborted and the payload carries the diagnostic detail.
			writeJSON(w, http.StatusInternalServerError, toDeletionPayload(h.flow))
			return
		}
	}
	writeJSON(w, http.StatusOK, toDeletionPayload(h.flow))
}

func (h *Handler) cancelDeletion(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.flow == nil {
		writeError(w, http.StatusNotFound, "no deletion flow")
		return
	}

	if _, err := h.flow.Cancel(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toDeletionPayload(h.flow))
}
