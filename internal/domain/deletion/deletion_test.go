package deletion

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillcore/pos/internal/domain/credential"
	"github.com/tillcore/pos/internal/domain/sale"
)

// --- Fakes ---

type memCredRepo struct {
	digest string
}

func (m *memCredRepo) Get(_ context.Context) (string, error) {
	if m.digest == "" {
		return "", credential.ErrNotConfigured
	}
	return m.digest, nil
}

func (m *memCredRepo) Set(_ context.Context, digest string) error {
	m.digest = digest
	return nil
}

type fakeSaleRepo struct {
	sales     map[int64]*sale.Sale
	deleted   []int64
	deleteErr error
}

func newFakeSaleRepo(sales ...*sale.Sale) *fakeSaleRepo {
	r := &fakeSaleRepo{sales: make(map[int64]*sale.Sale)}
	for _, s := range sales {
		r.sales[s.ID] = s
	}
	return r
}

func (r *fakeSaleRepo) Create(_ context.Context, _ *sale.Sale) error { return nil }

func (r *fakeSaleRepo) GetByID(_ context.Context, id int64) (*sale.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, sale.ErrNotFound
	}
	return s, nil
}

func (r *fakeSaleRepo) List(_ context.Context, _ int32) ([]sale.Sale, error) { return nil, nil }

func (r *fakeSaleRepo) Delete(_ context.Context, id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.sales[id]; !ok {
		return sale.ErrNotFound
	}
	delete(r.sales, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeSaleRepo) SummaryForDay(_ context.Context, _ time.Time) (sale.DaySummary, error) {
	return sale.DaySummary{}, nil
}

// --- Helpers ---

const testSecret = "hunter22"

func configuredCreds(t *testing.T) *credential.Service {
	t.Helper()
	svc := credential.NewService(&memCredRepo{}, []byte("test-pepper"))
	require.NoError(t, svc.SetSecret(context.Background(), testSecret))
	return svc
}

func testSale() *sale.Sale {
	return &sale.Sale{
		ID:        7,
		CreatedAt: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		Total:     decimal.RequireFromString("46.00"),
	}
}

func beganFlow(t *testing.T, repo *fakeSaleRepo) *Flow {
	t.Helper()
	f, err := Begin(context.Background(), configuredCreds(t), repo, 7)
	require.NoError(t, err)
	return f
}

// --- Begin ---

func TestBegin(t *testing.T) {
	f := beganFlow(t, newFakeSaleRepo(testSale()))

	assert.Equal(t, StateAuthenticating, f.State())
	assert.Equal(t, 1, f.Attempt())
	assert.Equal(t, MaxAttempts, f.Remaining())
	assert.Equal(t, int64(7), f.Target().ID)
	assert.True(t, decimal.RequireFromString("46.00").Equal(f.Target().Total))
}

func TestBegin_NoSelection(t *testing.T) {
	_, err := Begin(context.Background(), configuredCreds(t), newFakeSaleRepo(), 0)
	require.ErrorIs(t, err, ErrNoSelection)
}

func TestBegin_NotConfigured(t *testing.T) {
	creds := credential.NewService(&memCredRepo{}, []byte("test-pepper"))

	_, err := Begin(context.Background(), creds, newFakeSaleRepo(testSale()), 7)
	require.ErrorIs(t, err, credential.ErrNotConfigured)
}

func TestBegin_SaleGone(t *testing.T) {
	_, err := Begin(context.Background(), configuredCreds(t), newFakeSaleRepo(), 7)
	require.ErrorIs(t, err, sale.ErrNotFound)
}

// --- SubmitSecret ---

func TestSubmitSecret_EmptyConsumesNoAttempt(t *testing.T) {
	f := beganFlow(t, newFakeSaleRepo(testSale()))
	ctx := context.Background()

	for _, input := range []string{"", "   ", "\t"} {
		st, err := f.SubmitSecret(ctx, input)
		require.ErrorIs(t, err, ErrEmptySecret)
		assert.Equal(t, StateAuthenticating, st)
		assert.Equal(t, 1, f.Attempt())
	}
}

func TestSubmitSecret_CorrectAdvancesToConfirming(t *testing.T) {
	f := beganFlow(t, newFakeSaleRepo(testSale()))

	st, err := f.SubmitSecret(context.Background(), testSecret)
	require.NoError(t, err)
	assert.Equal(t, StateConfirming, st)
	assert.Equal(t, 0, f.Attempt())
	assert.Equal(t, 0, f.Remaining())
}

func TestSubmitSecret_WrongConsumesAttempt(t *testing.T) {
	f := beganFlow(t, newFakeSaleRepo(testSale()))

	st, err := f.SubmitSecret(context.Background(), "nope-1")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticating, st)
	assert.Equal(t, 2, f.Attempt())
	assert.Equal(t, 2, f.Remaining())
}

func TestSubmitSecret_ExhaustionAborts(t *testing.T) {
	repo := newFakeSaleRepo(testSale())
	f := beganFlow(t, repo)
	ctx := context.Background()

	for i := 0; i < MaxAttempts-1; i++ {
		st, err := f.SubmitSecret(ctx, "nope")
		require.NoError(t, err)
		assert.Equal(t, StateAuthenticating, st)
	}

	st, err := f.SubmitSecret(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, StateAborted, st)
	assert.Equal(t, ReasonAuthExhausted, f.Reason())

	// Target sale untouched, and a fourth attempt is refused.
	assert.Contains(t, repo.sales, int64(7))
	_, err = f.SubmitSecret(ctx, testSecret)
	require.ErrorIs(t, err, ErrFlowFinished)
}

func TestSubmitSecret_SucceedsOnFinalAttempt(t *testing.T) {
	f := beganFlow(t, newFakeSaleRepo(testSale()))
	ctx := context.Background()

	for i := 0; i < MaxAttempts-1; i++ {
		_, err := f.SubmitSecret(ctx, "nope")
		require.NoError(t, err)
	}
	require.Equal(t, MaxAttempts, f.Attempt())

	st, err := f.SubmitSecret(ctx, testSecret)
	require.NoError(t, err)
	assert.Equal(t, StateConfirming, st)
}

func TestSubmitSecret_WrongState(t *testing.T) {
	f := beganFlow(t, newFakeSaleRepo(testSale()))
	_, err := f.SubmitSecret(context.Background(), testSecret)
	require.NoError(t, err)

	_, err = f.SubmitSecret(context.Background(), testSecret)
	require.ErrorIs(t, err, ErrWrongState)
}

// --- Cancel ---

func TestCancel_WhileAuthenticating(t *testing.T) {
	repo := newFakeSaleRepo(testSale())
	f := beganFlow(t, repo)

	st, err := f.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StateAborted, st)
	assert.Equal(t, ReasonUserCancelled, f.Reason())
	assert.Contains(t, repo.sales, int64(7))
}

func TestCancel_WhileConfirming(t *testing.T) {
	f := beganFlow(t, newFakeSaleRepo(testSale()))
	_, err := f.SubmitSecret(context.Background(), testSecret)
	require.NoError(t, err)

	st, err := f.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StateAborted, st)
	assert.Equal(t, ReasonUserCancelled, f.Reason())
}

func TestCancel_Finished(t *testing.T) {
	f := beganFlow(t, newFakeSaleRepo(testSale()))
	_, err := f.Cancel()
	require.NoError(t, err)

	_, err = f.Cancel()
	require.ErrorIs(t, err, ErrFlowFinished)
}

// --- Confirm ---

func TestConfirm_Declined(t *testing.T) {
	repo := newFakeSaleRepo(testSale())
	f := beganFlow(t, repo)
	ctx := context.Background()
	_, err := f.SubmitSecret(ctx, testSecret)
	require.NoError(t, err)

	st, err := f.Confirm(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, StateAborted, st)
	assert.Equal(t, ReasonUserCancelled, f.Reason())
	assert.Contains(t, repo.sales, int64(7))
	assert.Empty(t, repo.deleted)
}

func TestConfirm_DeletesSale(t *testing.T) {
	repo := newFakeSaleRepo(testSale())
	f := beganFlow(t, repo)
	ctx := context.Background()
	_, err := f.SubmitSecret(ctx, testSecret)
	require.NoError(t, err)

	st, err := f.Confirm(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, st)
	assert.Equal(t, []int64{7}, repo.deleted)
	assert.NotContains(t, repo.sales, int64(7))
}

func TestConfirm_StorageFault(t *testing.T) {
	repo := newFakeSaleRepo(testSale())
	repo.deleteErr = errors.New("connection reset")
	f := beganFlow(t, repo)
	ctx := context.Background()
	_, err := f.SubmitSecret(ctx, testSecret)
	require.NoError(t, err)

	st, err := f.Confirm(ctx, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete sale")
	assert.Equal(t, StateAborted, st)
	assert.Equal(t, ReasonStorageFault, f.Reason())
	require.Error(t, f.Fault())
	assert.Contains(t, f.Fault().Error(), "connection reset")

	// The flow is terminal; retrying the confirmation is refused.
	_, err = f.Confirm(ctx, true)
	require.ErrorIs(t, err, ErrFlowFinished)
}

func TestConfirm_WrongState(t *testing.T) {
	f := beganFlow(t, newFakeSaleRepo(testSale()))

	_, err := f.Confirm(context.Background(), true)
	require.ErrorIs(t, err, ErrWrongState)
}

// --- Labels ---

func TestStateAndReasonStrings(t *testing.T) {
	assert.Equal(t, "authenticating", StateAuthenticating.String())
	assert.Equal(t, "confirming", StateConfirming.String())
	assert.Equal(t, "succeeded", StateSucceeded.String())
	assert.Equal(t, "aborted", StateAborted.String())

	assert.Equal(t, "user_cancelled", ReasonUserCancelled.String())
	assert.Equal(t, "auth_exhausted", ReasonAuthExhausted.String())
	assert.Equal(t, "storage_fault", ReasonStorageFault.String())
	assert.Equal(t, "", ReasonNone.String())
}
