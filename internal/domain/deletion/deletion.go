// Package deletion implements the guarded removal of a committed sale: a
// bounded-retry authentication state machine wrapping an atomic
// lines-then-header delete. The flow is driven by discrete events supplied
// by the surrounding application (secret submitted, cancelled, confirmed)
// and performs no durable writes until the final delete, so it is fully
// testable without a UI harness.
package deletion

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tillcore/pos/internal/domain/credential"
	"github.com/tillcore/pos/internal/domain/sale"
)

// MaxAttempts bounds consecutive failed authentication attempts. The third
// failure aborts the flow; a fourth prompt is never offered.
const MaxAttempts = 3

// State identifies where the flow currently is.
type State uint8

const (
	// StateAuthenticating waits for a secret candidate.
	StateAuthenticating State = iota
	// StateConfirming presents the target sale and waits for yes/no.
	StateConfirming
	// StateSucceeded means the sale and its lines were removed.
	StateSucceeded
	// StateAborted means the flow terminated without mutating anything,
	// except for ReasonStorageFault where the failed transaction was rolled
	// back whole.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateConfirming:
		return "confirming"
	case StateSucceeded:
		return "succeeded"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// AbortReason explains a terminal StateAborted.
type AbortReason uint8

const (
	ReasonNone AbortReason = iota
	ReasonUserCancelled
	ReasonAuthExhausted
	ReasonStorageFault
)

func (r AbortReason) String() string {
	switch r {
	case ReasonUserCancelled:
		return "user_cancelled"
	case ReasonAuthExhausted:
		return "auth_exhausted"
	case ReasonStorageFault:
		return "storage_fault"
	default:
		return ""
	}
}

// Flow event errors.
var (
	// ErrNoSelection is returned by Begin when no sale is targeted.
	ErrNoSelection = errors.New("no sale selected")

	// ErrEmptySecret rejects blank input without consuming an attempt.
	ErrEmptySecret = errors.New("secret must not be empty")

	// ErrFlowFinished is returned for any event sent to a terminal flow.
	ErrFlowFinished = errors.New("deletion flow already finished")

	// ErrWrongState is returned when an event does not apply to the current
	// state, e.g. confirming while still authenticating.
	ErrWrongState = errors.New("event not valid in current state")
)

// Target carries the sale header fields shown to the operator while
// authenticating and confirming.
type Target struct {
	ID        int64
	CreatedAt time.Time
	Total     decimal.Decimal
}

// Flow is one guarded deletion attempt. It is not safe for concurrent use;
// the owner serializes events.
type Flow struct {
	creds *credential.Service
	sales sale.Repository

	target  Target
	state   State
	attempt int
	reason  AbortReason
	fault   error
}

// Begin starts a guarded deletion for the selected sale. It fails with
// ErrNoSelection when no sale is targeted, with credential.ErrNotConfigured
// while no administrator secret exists (the caller must redirect into the
// secret-creation path), and with sale.ErrNotFound when the target is gone.
func Begin(ctx context.Context, creds *credential.Service, sales sale.Repository, saleID int64) (*Flow, error) {
	if saleID <= 0 {
		return nil, ErrNoSelection
	}

	configured, err := creds.IsConfigured(ctx)
	if err != nil {
		return nil, err
	}
	if !configured {
		return nil, credential.ErrNotConfigured
	}

	target, err := sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, errors.Wrap(err, "load target sale")
	}

	return &Flow{
		creds: creds,
		sales: sales,
		target: Target{
			ID:        target.ID,
			CreatedAt: target.CreatedAt,
			Total:     target.Total,
		},
		state:   StateAuthenticating,
		attempt: 1,
	}, nil
}

// State returns the current state.
func (f *Flow) State() State { return f.state }

// Target returns the sale header carried for display.
func (f *Flow) Target() Target { return f.target }

// Attempt returns the current authentication attempt number (1-based), or 0
// outside StateAuthenticating.
func (f *Flow) Attempt() int {
	if f.state != StateAuthenticating {
		return 0
	}
	return f.attempt
}

// Remaining returns how many attempts are left including the current one,
// or 0 outside StateAuthenticating.
func (f *Flow) Remaining() int {
	if f.state != StateAuthenticating {
		return 0
	}
	return MaxAttempts - f.attempt + 1
}

// Reason returns the abort reason, or ReasonNone.
func (f *Flow) Reason() AbortReason { return f.reason }

// Fault returns the underlying storage error after a ReasonStorageFault
// abort, for diagnostics.
func (f *Flow) Fault() error { return f.fault }

func (f *Flow) terminal() bool {
	return f.state == StateSucceeded || f.state == StateAborted
}

func (f *Flow) abort(reason AbortReason) {
	f.state = StateAborted
	f.reason = reason
}

// SubmitSecret handles one authentication attempt. Empty or blank input is
// rejected without consuming an attempt. A wrong secret consumes one; the
// failure of attempt MaxAttempts aborts with ReasonAuthExhausted. A
// verification read error leaves the state unchanged so the event can be
// retried.
func (f *Flow) SubmitSecret(ctx context.Context, plaintext string) (State, error) {
	if f.terminal() {
		return f.state, ErrFlowFinished
	}
	if f.state != StateAuthenticating {
		return f.state, ErrWrongState
	}
	if strings.TrimSpace(plaintext) == "" {
		return f.state, ErrEmptySecret
	}

	ok, err := f.creds.Verify(ctx, plaintext)
	if err != nil {
		return f.state, errors.Wrap(err, "verify secret")
	}
	if ok {
		f.state = StateConfirming
		return f.state, nil
	}

	if f.attempt >= MaxAttempts {
		f.abort(ReasonAuthExhausted)
		return f.state, nil
	}
	f.attempt++
	return f.state, nil
}

// Cancel aborts the flow with ReasonUserCancelled. The operator may cancel
// while authenticating or confirming; no mutation is performed.
func (f *Flow) Cancel() (State, error) {
	if f.terminal() {
		return f.state, ErrFlowFinished
	}
	f.abort(ReasonUserCancelled)
	return f.state, nil
}

// Confirm resolves the yes/no confirmation. "No" aborts with
// ReasonUserCancelled. "Yes" performs the removal as one atomic unit: the
// repository deletes every line of the target sale and then the header. On
// a storage fault the transaction is rolled back whole, the flow aborts
// with ReasonStorageFault, and the underlying error is both retained on the
// flow and returned.
//
// Deleting a sale intentionally does not restore the stock decremented at
// commit time: correcting the ledger does not imply the goods were un-sold.
func (f *Flow) Confirm(ctx context.Context, confirmed bool) (State, error) {
	if f.terminal() {
		return f.state, ErrFlowFinished
	}
	if f.state != StateConfirming {
		return f.state, ErrWrongState
	}
	if !confirmed {
		f.abort(ReasonUserCancelled)
		return f.state, nil
	}

	if err := f.sales.Delete(ctx, f.target.ID); err != nil {
		f.fault = err
		f.abort(ReasonStorageFault)
		return f.state, errors.Wrap(err, "delete sale")
	}

	f.state = StateSucceeded
	return f.state, nil
}
