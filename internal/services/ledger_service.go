package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/storage"
)

// ChangePublisher announces committed mutations. *amqp.Client implements it.
type ChangePublisher interface {
	PublishChange(ctx context.Context, cs core.ChangeSet) error
}

// LedgerService validates input, runs it against SQLite and announces every
// committed change. The database is the source of truth: a failed publish is
// logged and never fails the request.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher ChangePublisher
	summaries *cache.LRUCache[core.Summary]
	caches    *cache.Manager

	// afterSummaryReads runs between the summary queries and the cache store.
	afterSummaryReads func()
}

const (
	summaryCacheSize = 1024
	summaryCacheTTL  = 5 * time.Minute
)

// NewLedgerService creates a service; publisher may be nil.
func NewLedgerService(storage *storage.SQLiteRepository, publisher ChangePublisher) *LedgerService {
	s := &LedgerService{
		storage:   storage,
		publisher: publisher,
		summaries: cache.NewLRUCache[core.Summary](summaryCacheSize, summaryCacheTTL),
		caches:    cache.NewManager(),
	}
	s.caches.Register(s.summaries)
	s.caches.StartCleanup(time.Minute)
	return s
}

func (s *LedgerService) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	return s.storage.ListAccounts(ctx, userID)
}

func (s *LedgerService) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	return s.storage.GetAccount(ctx, userID, id)
}

func (s *LedgerService) CreateAccount(ctx context.Context, userID string, in core.NameInput) (core.Account, core.ChangeSet, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Account{}, core.ChangeSet{}, err
	}
	a, err := s.storage.CreateAccount(ctx, userID, in.Name)
	if err != nil {
		return core.Account{}, core.ChangeSet{}, fmt.Errorf("create account: %w", err)
	}
	return a, s.announce(ctx, core.ResourceAccounts, core.ActionCreated, userID, a.ID), nil
}

func (s *LedgerService) UpdateAccount(ctx context.Context, userID, id string, in core.NameInput) (core.Account, core.ChangeSet, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Account{}, core.ChangeSet{}, err
	}
	a, err := s.storage.UpdateAccount(ctx, userID, id, in.Name)
	if err != nil {
		return core.Account{}, core.ChangeSet{}, fmt.Errorf("update account: %w", err)
	}
	return a, s.announce(ctx, core.ResourceAccounts, core.ActionUpdated, userID, a.ID), nil
}

func (s *LedgerService) DeleteAccount(ctx context.Context, userID, id string) (string, core.ChangeSet, error) {
	deleted, err := s.storage.DeleteAccount(ctx, userID, id)
	if err != nil {
		return "", core.ChangeSet{}, fmt.Errorf("delete account: %w", err)
	}
	return deleted, s.announce(ctx, core.ResourceAccounts, core.ActionDeleted, userID, deleted), nil
}

func (s *LedgerService) BulkDeleteAccounts(ctx context.Context, userID string, ids []string) ([]string, core.ChangeSet, error) {
	deleted, err := s.storage.BulkDeleteAccounts(ctx, userID, ids)
	if err != nil {
		return nil, core.ChangeSet{}, fmt.Errorf("bulk delete accounts: %w", err)
	}
	return deleted, s.announce(ctx, core.ResourceAccounts, core.ActionDeleted, userID, deleted...), nil
}

func (s *LedgerService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	return s.storage.ListCategories(ctx, userID)
}

func (s *LedgerService) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	return s.storage.GetCategory(ctx, userID, id)
}

func (s *LedgerService) CreateCategory(ctx context.Context, userID string, in core.NameInput) (core.Category, core.ChangeSet, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Category{}, core.ChangeSet{}, err
	}
	c, err := s.storage.CreateCategory(ctx, userID, in.Name)
	if err != nil {
		return core.Category{}, core.ChangeSet{}, fmt.Errorf("create category: %w", err)
	}
	return c, s.announce(ctx, core.ResourceCategories, core.ActionCreated, userID, c.ID), nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, userID, id string, in core.NameInput) (core.Category, core.ChangeSet, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Category{}, core.ChangeSet{}, err
	}
	c, err := s.storage.UpdateCategory(ctx, userID, id, in.Name)
	if err != nil {
		return core.Category{}, core.ChangeSet{}, fmt.Errorf("update category: %w", err)
	}
	return c, s.announce(ctx, core.ResourceCategories, core.ActionUpdated, userID, c.ID), nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, userID, id string) (string, core.ChangeSet, error) {
	deleted, err := s.storage.DeleteCategory(ctx, userID, id)
	if err != nil {
		return "", core.ChangeSet{}, fmt.Errorf("delete category: %w", err)
	}
	return deleted, s.announce(ctx, core.ResourceCategories, core.ActionDeleted, userID, deleted), nil
}

func (s *LedgerService) BulkDeleteCategories(ctx context.Context, userID string, ids []string) ([]string, core.ChangeSet, error) {
	deleted, err := s.storage.BulkDeleteCategories(ctx, userID, ids)
	if err != nil {
		return nil, core.ChangeSet{}, fmt.Errorf("bulk delete categories: %w", err)
	}
	return deleted, s.announce(ctx, core.ResourceCategories, core.ActionDeleted, userID, deleted...), nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.TransactionRow, error) {
	return s.storage.ListTransactions(ctx, userID, f)
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, userID, id)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, in core.TransactionInput) (core.Transaction, core.ChangeSet, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Transaction{}, core.ChangeSet{}, err
	}
	t, err := s.storage.CreateTransaction(ctx, userID, in)
	if err != nil {
		return core.Transaction{}, core.ChangeSet{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, s.announce(ctx, core.ResourceTransactions, core.ActionCreated, userID, t.ID), nil
}

// BulkCreateTransactions validates every input before touching the database.
// Field errors are keyed by index, e.g. "[1].payee".
func (s *LedgerService) BulkCreateTransactions(ctx context.Context, userID string, in []core.TransactionInput) ([]core.Transaction, core.ChangeSet, error) {
	verr := core.NewValidationError()
	for i := range in {
		in[i].Normalize()
		if err := in[i].Validate(); err != nil {
			if itemErr, ok := core.AsValidationError(err); ok {
				verr.Merge("["+strconv.Itoa(i)+"].", itemErr)
			}
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, core.ChangeSet{}, err
	}

	created, err := s.storage.BulkCreateTransactions(ctx, userID, in)
	if err != nil {
		return nil, core.ChangeSet{}, fmt.Errorf("bulk create transactions: %w", err)
	}
	ids := make([]string, len(created))
	for i, t := range created {
		ids[i] = t.ID
	}
	return created, s.announce(ctx, core.ResourceTransactions, core.ActionCreated, userID, ids...), nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, in core.TransactionInput) (core.Transaction, core.ChangeSet, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Transaction{}, core.ChangeSet{}, err
	}
	t, err := s.storage.UpdateTransaction(ctx, userID, id, in)
	if err != nil {
		return core.Transaction{}, core.ChangeSet{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, s.announce(ctx, core.ResourceTransactions, core.ActionUpdated, userID, t.ID), nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) (string, core.ChangeSet, error) {
	deleted, err := s.storage.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return "", core.ChangeSet{}, fmt.Errorf("delete transaction: %w", err)
	}
	return deleted, s.announce(ctx, core.ResourceTransactions, core.ActionDeleted, userID, deleted), nil
}

func (s *LedgerService) BulkDeleteTransactions(ctx context.Context, userID string, ids []string) ([]string, core.ChangeSet, error) {
	deleted, err := s.storage.BulkDeleteTransactions(ctx, userID, ids)
	if err != nil {
		return nil, core.ChangeSet{}, fmt.Errorf("bulk delete transactions: %w", err)
	}
	return deleted, s.announce(ctx, core.ResourceTransactions, core.ActionDeleted, userID, deleted...), nil
}

// Summary compares f's window with the window of equal length right before it.
// Results are cached per user until that user's next change.
func (s *LedgerService) Summary(ctx context.Context, userID string, f core.TransactionFilter) (core.Summary, error) {
	if f.Range.Days() > core.MaxSummaryDays {
		return core.Summary{}, core.FieldError("from", fmt.Sprintf("window must not exceed %d days", core.MaxSummaryDays))
	}
	key := f.Range.From.String() + "|" + f.Range.To.String() + "|" + f.AccountID
	if sum, ok := s.summaries.Get(userID, key); ok {
		return sum, nil
	}
	// A write committed while the queries run bumps the generation, and the
	// result below is then returned without being cached.
	gen := s.summaries.Generation(userID)

	prev := f
	prev.Range = f.Range.Previous()

	current, err := s.storage.PeriodTotals(ctx, userID, f)
	if err != nil {
		return core.Summary{}, err
	}
	previous, err := s.storage.PeriodTotals(ctx, userID, prev)
	if err != nil {
		return core.Summary{}, err
	}
	byCategory, err := s.storage.SpendingByCategory(ctx, userID, f)
	if err != nil {
		return core.Summary{}, err
	}
	byDay, err := s.storage.DailyTotals(ctx, userID, f)
	if err != nil {
		return core.Summary{}, err
	}
	sum := core.BuildSummary(f.Range, current, previous, byCategory, byDay)
	if s.afterSummaryReads != nil {
		s.afterSummaryReads()
	}
	s.summaries.SetIfGeneration(userID, key, sum, gen)
	return sum, nil
}

// Ping reports database readiness.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// announce builds the change set for a committed mutation and publishes it
// when a publisher is configured and the set is not empty.
func (s *LedgerService) announce(ctx context.Context, resource, action, userID string, ids ...string) core.ChangeSet {
	cs := core.NewChangeSet(resource, action, userID, ids...)
	if cs.Empty() {
		return cs
	}
	s.summaries.InvalidateOwner(userID)
	if s.publisher == nil {
		return cs
	}
	if err := s.publisher.PublishChange(ctx, cs); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change",
			"resource", resource,
			"action", action,
			"count", len(cs.IDs),
			"error", err)
	}
	return cs
}

// Close stops cache cleanup and closes the storage. The publisher is owned by
// the caller.
func (s *LedgerService) Close() error {
	s.caches.Stop()
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
