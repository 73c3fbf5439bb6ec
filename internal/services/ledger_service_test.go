package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
	"finboard/internal/storage"
)

type fakePublisher struct {
	mu   sync.Mutex
	sent []core.ChangeSet
	err  error
}

func (f *fakePublisher) PublishChange(_ context.Context, cs core.ChangeSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cs)
	return f.err
}

func newTestService(t *testing.T, pub ChangePublisher) *LedgerService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	svc := NewLedgerService(repo, pub)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func amount(v int64) *int64 { return &v }

func TestLedgerService_CreateAccountPublishesChange(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	a, cs, err := svc.CreateAccount(ctx, "user_1", core.NameInput{Name: "  Checking  "})
	require.NoError(t, err)
	assert.Equal(t, "Checking", a.Name, "name is trimmed")
	assert.Equal(t, core.NewChangeSet(core.ResourceAccounts, core.ActionCreated, "user_1", a.ID), cs)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, cs, pub.sent[0])
}

func TestLedgerService_ValidationFailsBeforeStorage(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	_, _, err := svc.CreateCategory(ctx, "user_1", core.NameInput{Name: "   "})
	verr, ok := core.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "name")
	assert.Empty(t, pub.sent)

	list, err := svc.ListCategories(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLedgerService_PublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(t, pub)

	a, cs, err := svc.CreateAccount(context.Background(), "user_1", core.NameInput{Name: "Checking"})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, cs.IDs)

	_, err = svc.GetAccount(context.Background(), "user_1", a.ID)
	assert.NoError(t, err)
}

func TestLedgerService_NilPublisher(t *testing.T) {
	svc := newTestService(t, nil)
	_, cs, err := svc.CreateAccount(context.Background(), "user_1", core.NameInput{Name: "Checking"})
	require.NoError(t, err)
	assert.False(t, cs.Empty())
}

func TestLedgerService_BulkCreateIndexesFieldErrors(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()
	a, _, err := svc.CreateAccount(ctx, "user_1", core.NameInput{Name: "Checking"})
	require.NoError(t, err)
	pub.sent = nil

	_, _, err = svc.BulkCreateTransactions(ctx, "user_1", []core.TransactionInput{
		{AccountID: a.ID, Date: core.NewDate(2025, 3, 1), Payee: "ok", Amount: amount(1)},
		{AccountID: a.ID, Date: core.NewDate(2025, 3, 1), Payee: " ", Amount: nil},
	})
	verr, ok := core.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "[1].payee")
	assert.Contains(t, verr.Fields, "[1].amount")
	assert.NotContains(t, verr.Fields, "[0].payee")
	assert.Empty(t, pub.sent)

	created, cs, err := svc.BulkCreateTransactions(ctx, "user_1", []core.TransactionInput{
		{AccountID: a.ID, Date: core.NewDate(2025, 3, 1), Payee: "one", Amount: amount(1)},
		{AccountID: a.ID, Date: core.NewDate(2025, 3, 2), Payee: "two", Amount: amount(2)},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, []string{created[0].ID, created[1].ID}, cs.IDs)
	require.Len(t, pub.sent, 1)
}

func TestLedgerService_EmptyBulkDeleteIsNotPublished(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)

	deleted, cs, err := svc.BulkDeleteTransactions(context.Background(), "user_1", []string{"missing"})
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.True(t, cs.Empty())
	assert.Empty(t, pub.sent)
}

func TestLedgerService_Summary(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	a, _, err := svc.CreateAccount(ctx, "user_1", core.NameInput{Name: "Checking"})
	require.NoError(t, err)
	food, _, err := svc.CreateCategory(ctx, "user_1", core.NameInput{Name: "Food"})
	require.NoError(t, err)

	tx := func(d core.Date, cat *string, v int64) {
		_, _, err := svc.CreateTransaction(ctx, "user_1", core.TransactionInput{
			AccountID: a.ID, CategoryID: cat, Date: d, Payee: "p", Amount: amount(v),
		})
		require.NoError(t, err)
	}
	// previous window: 2025-02-22 .. 2025-02-28
	tx(core.NewDate(2025, 2, 25), nil, 1000)
	tx(core.NewDate(2025, 2, 25), &food.ID, -500)
	// current window: 2025-03-01 .. 2025-03-07
	tx(core.NewDate(2025, 3, 1), nil, 2000)
	tx(core.NewDate(2025, 3, 3), &food.ID, -1000)

	f := core.TransactionFilter{Range: core.DateRange{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 7)}}
	sum, err := svc.Summary(ctx, "user_1", f)
	require.NoError(t, err)

	assert.Equal(t, int64(2000), sum.IncomeAmount)
	assert.Equal(t, int64(-1000), sum.ExpensesAmount)
	assert.Equal(t, int64(1000), sum.RemainingAmount)
	assert.InDelta(t, 100.0, sum.IncomeChange, 0.001)
	assert.InDelta(t, 100.0, sum.ExpensesChange, 0.001)
	assert.InDelta(t, 100.0, sum.RemainingChange, 0.001)
	assert.Equal(t, []core.CategoryAmount{{Name: "Food", Value: 1000}}, sum.Categories)
	require.Len(t, sum.Days, 7)
	assert.Equal(t, int64(2000), sum.Days[0].Income)
	assert.Equal(t, int64(1000), sum.Days[2].Expenses)
	assert.Equal(t, core.DayAmount{Date: core.NewDate(2025, 3, 7)}, sum.Days[6])
}

func TestLedgerService_SummaryIsRecomputedAfterChange(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	a, _, err := svc.CreateAccount(ctx, "user_1", core.NameInput{Name: "Checking"})
	require.NoError(t, err)

	f := core.TransactionFilter{Range: core.DateRange{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 7)}}
	before, err := svc.Summary(ctx, "user_1", f)
	require.NoError(t, err)
	assert.Zero(t, before.IncomeAmount)
	assert.Equal(t, 1, svc.summaries.Size())

	// Another user's change leaves user_1's entry alone.
	_, _, err = svc.CreateAccount(ctx, "user_2", core.NameInput{Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, 1, svc.summaries.Size())

	_, _, err = svc.CreateTransaction(ctx, "user_1", core.TransactionInput{
		AccountID: a.ID, Date: core.NewDate(2025, 3, 2), Payee: "Salary", Amount: amount(3000),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, svc.summaries.Size())

	after, err := svc.Summary(ctx, "user_1", f)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), after.IncomeAmount)
}

func TestLedgerService_SummaryRejectsLongWindow(t *testing.T) {
	svc := newTestService(t, nil)
	f := core.TransactionFilter{Range: core.DateRange{From: core.NewDate(1, 1, 1), To: core.NewDate(9999, 12, 31)}}

	_, err := svc.Summary(context.Background(), "user_1", f)
	verr, ok := core.AsValidationError(err)
	require.True(t, ok, "got %v", err)
	assert.Contains(t, verr.Fields, "from")

	f.Range = core.DateRange{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 12, 31)}
	sum, err := svc.Summary(context.Background(), "user_1", f)
	require.NoError(t, err)
	assert.Len(t, sum.Days, core.MaxSummaryDays)
}

func TestLedgerService_SummaryNotCachedWhenWriteLandsDuringReads(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	a, _, err := svc.CreateAccount(ctx, "user_1", core.NameInput{Name: "Checking"})
	require.NoError(t, err)

	written := false
	svc.afterSummaryReads = func() {
		if written {
			return
		}
		written = true
		_, _, err := svc.CreateTransaction(ctx, "user_1", core.TransactionInput{
			AccountID: a.ID, Date: core.NewDate(2025, 3, 2), Payee: "Salary", Amount: amount(3000),
		})
		require.NoError(t, err)
	}

	f := core.TransactionFilter{Range: core.DateRange{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 7)}}
	stale, err := svc.Summary(ctx, "user_1", f)
	require.NoError(t, err)
	assert.Zero(t, stale.IncomeAmount, "reads finished before the write")
	assert.Equal(t, 0, svc.summaries.Size())

	fresh, err := svc.Summary(ctx, "user_1", f)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), fresh.IncomeAmount)
	assert.Equal(t, 1, svc.summaries.Size())
}
