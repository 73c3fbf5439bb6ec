package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"finboard/internal/core"
)

var (
	transactionColumns = []string{
		"t.id", "t.date", "t.category_id", "t.payee", "t.amount", "t.notes", "t.account_id",
	}
	transactionRowColumns = []string{
		"t.id", "t.date", "c.name", "t.category_id", "t.payee", "t.amount", "t.notes", "a.name", "t.account_id",
	}
	// returningTransaction mirrors transactionColumns for statements on the bare table.
	returningTransaction = "RETURNING id, date, category_id, payee, amount, notes, account_id"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		date       string
		categoryID sql.NullString
		notes      sql.NullString
	)
	if err := s.Scan(&t.ID, &date, &categoryID, &t.Payee, &t.Amount, &notes, &t.AccountID); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q of transaction %s: %w", date, t.ID, err)
	}
	t.Date = d
	t.CategoryID = nullable(categoryID)
	t.Notes = nullable(notes)
	return t, nil
}

func scanTransactionRow(s rowScanner) (core.TransactionRow, error) {
	var (
		t          core.TransactionRow
		date       string
		category   sql.NullString
		categoryID sql.NullString
		notes      sql.NullString
	)
	if err := s.Scan(&t.ID, &date, &category, &categoryID, &t.Payee, &t.Amount, &notes, &t.Account, &t.AccountID); err != nil {
		return core.TransactionRow{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.TransactionRow{}, fmt.Errorf("stored date %q of transaction %s: %w", date, t.ID, err)
	}
	t.Date = d
	t.Category = nullable(category)
	t.CategoryID = nullable(categoryID)
	t.Notes = nullable(notes)
	return t, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// ListTransactions returns the requester's transactions in f's window, newest
// first, enriched with account and category names.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.TransactionRow, error) {
	b := ownedTransactions(userID, transactionRowColumns...).
		LeftJoin("categories c ON c.id = t.category_id")
	query, args, err := applyFilter(b, f).
		OrderBy("t.date DESC", "t.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list transactions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.TransactionRow{}
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return getTransaction(ctx, r.db, userID, id)
}

func getTransaction(ctx context.Context, q queryer, userID, id string) (core.Transaction, error) {
	query, args, err := ownedTransactions(userID, transactionColumns...).
		Where(sq.Eq{"t.id": id}).
		ToSql()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("build get transaction: %w", err)
	}
	t, err := scanTransaction(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// CreateTransaction inserts one transaction after checking that its account
// and category belong to userID. in must already be normalized and valid.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, in core.TransactionInput) (core.Transaction, error) {
	var created core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		verr, err := checkReferences(ctx, tx, userID, in, "")
		if err != nil {
			return fmt.Errorf("check references: %w", err)
		}
		if !verr.Empty() {
			return verr
		}
		created, err = insertTransaction(ctx, tx, in)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transaction created", "id", created.ID, "account_id", created.AccountID)
	return created, nil
}

// BulkCreateTransactions inserts all inputs in one database transaction. Any
// foreign reference fails the whole batch with field errors prefixed by the
// input index, e.g. "[2].accountId".
func (r *SQLiteRepository) BulkCreateTransactions(ctx context.Context, userID string, in []core.TransactionInput) ([]core.Transaction, error) {
	created := make([]core.Transaction, 0, len(in))
	if len(in) == 0 {
		return created, nil
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		verr := core.NewValidationError()
		for i, item := range in {
			itemErr, err := checkReferences(ctx, tx, userID, item, "["+strconv.Itoa(i)+"].")
			if err != nil {
				return fmt.Errorf("check references: %w", err)
			}
			verr.Merge("", itemErr)
		}
		if !verr.Empty() {
			return verr
		}
		for _, item := range in {
			t, err := insertTransaction(ctx, tx, item)
			if err != nil {
				return err
			}
			created = append(created, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Transactions bulk created", "count", len(created))
	return created, nil
}

func insertTransaction(ctx context.Context, q queryer, in core.TransactionInput) (core.Transaction, error) {
	query, args, err := sq.Insert("transactions").
		Columns("id", "date", "category_id", "payee", "amount", "notes", "account_id").
		Values(newID(), in.Date.String(), nullString(in.CategoryID), in.Payee, *in.Amount, nullString(in.Notes), in.AccountID).
		Suffix(returningTransaction).
		ToSql()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("build insert transaction: %w", err)
	}
	t, err := scanTransaction(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction replaces every field of a visible transaction. A target
// the requester cannot see is NotFound before references are checked.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, in core.TransactionInput) (core.Transaction, error) {
	var updated core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTransaction(ctx, tx, userID, id); err != nil {
			return err
		}
		verr, err := checkReferences(ctx, tx, userID, in, "")
		if err != nil {
			return fmt.Errorf("check references: %w", err)
		}
		if !verr.Empty() {
			return verr
		}

		owned, err := ownedTransactionIDs(userID, id)
		if err != nil {
			return fmt.Errorf("build ownership predicate: %w", err)
		}
		query, args, err := sq.Update("transactions").
			Set("date", in.Date.String()).
			Set("category_id", nullString(in.CategoryID)).
			Set("payee", in.Payee).
			Set("amount", *in.Amount).
			Set("notes", nullString(in.Notes)).
			Set("account_id", in.AccountID).
			Where(owned).
			Suffix(returningTransaction).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update transaction: %w", err)
		}
		updated, err = scanTransaction(tx.QueryRowContext(ctx, query, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) (string, error) {
	return deleteOne(r.deleteTransactions(ctx, userID, []string{id}))
}

// BulkDeleteTransactions returns the ids actually deleted; ids that are
// unknown or belong to another user's accounts are silently left out.
func (r *SQLiteRepository) BulkDeleteTransactions(ctx context.Context, userID string, ids []string) ([]string, error) {
	return r.deleteTransactions(ctx, userID, ids)
}

func (r *SQLiteRepository) deleteTransactions(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	owned, err := ownedTransactionIDs(userID, ids...)
	if err != nil {
		return nil, fmt.Errorf("build ownership predicate: %w", err)
	}
	query, args, err := sq.Delete("transactions").
		Where(owned).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delete transactions: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delete transactions: %w", err)
	}
	deleted, err := collectIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("delete transactions: %w", err)
	}
	slog.InfoContext(ctx, "Transactions deleted", "requested", len(ids), "deleted", len(deleted))
	return deleted, nil
}
