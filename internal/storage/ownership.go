package storage

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"finboard/internal/core"
)

// ownedTransactions is the single place that joins transactions to their
// account and filters on the account owner. Every transaction query starts here.
func ownedTransactions(userID string, columns ...string) sq.SelectBuilder {
	return sq.Select(columns...).
		From("transactions t").
		Join("accounts a ON a.id = t.account_id").
		Where(sq.Eq{"a.user_id": userID})
}

// ownedTransactionIDs restricts an UPDATE or DELETE on the bare transactions
// table to the given ids that userID can see. Evaluated inside the same
// statement, so there is no read-then-write window.
func ownedTransactionIDs(userID string, ids ...string) (sq.Sqlizer, error) {
	sub := ownedTransactions(userID, "t.id")
	if len(ids) == 1 {
		sub = sub.Where(sq.Eq{"t.id": ids[0]})
	} else {
		sub = sub.Where(sq.Eq{"t.id": ids})
	}
	subSQL, args, err := sub.ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr("id IN ("+subSQL+")", args...), nil
}

// applyFilter narrows an ownedTransactions query to a date window and,
// optionally, one account.
func applyFilter(b sq.SelectBuilder, f core.TransactionFilter) sq.SelectBuilder {
	b = b.Where(sq.GtOrEq{"t.date": f.Range.From.String()}).
		Where(sq.LtOrEq{"t.date": f.Range.To.String()})
	if f.AccountID != "" {
		b = b.Where(sq.Eq{"t.account_id": f.AccountID})
	}
	return b
}

// ownsRow reports whether table has a row id directly owned by userID.
func ownsRow(ctx context.Context, q queryer, table, userID, id string) (bool, error) {
	query, args, err := sq.Select("1").
		From(table).
		Where(sq.Eq{"id": id, "user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// checkReferences verifies that the account and optional category a
// transaction points at belong to userID. Missing and foreign rows look the
// same. prefix qualifies field names for bulk input (e.g. "[3].").
func checkReferences(ctx context.Context, q queryer, userID string, in core.TransactionInput, prefix string) (*core.ValidationError, error) {
	verr := core.NewValidationError()
	ok, err := ownsRow(ctx, q, "accounts", userID, in.AccountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		verr.Add(prefix+"accountId", "account not found")
	}
	if in.CategoryID != nil {
		ok, err := ownsRow(ctx, q, "categories", userID, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			verr.Add(prefix+"categoryId", "category not found")
		}
	}
	return verr, nil
}
