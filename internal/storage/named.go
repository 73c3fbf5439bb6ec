package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"finboard/internal/core"
)

// Accounts and categories share one shape: id, owner, name. namedRow and the
// helpers below serve both tables; the exported methods pick the table.

type namedRow struct {
	ID   string
	Name string
}

func (r *SQLiteRepository) listNamed(ctx context.Context, table, userID string) ([]namedRow, error) {
	query, args, err := sq.Select("id", "name").
		From(table).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("name COLLATE NOCASE", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list %s: %w", table, err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := []namedRow{}
	for rows.Next() {
		var n namedRow
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) getNamed(ctx context.Context, table, userID, id string) (namedRow, error) {
	query, args, err := sq.Select("id", "name").
		From(table).
		Where(sq.Eq{"user_id": userID, "id": id}).
		ToSql()
	if err != nil {
		return namedRow{}, fmt.Errorf("build get %s: %w", table, err)
	}
	var n namedRow
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&n.ID, &n.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return namedRow{}, core.ErrNotFound
	}
	if err != nil {
		return namedRow{}, fmt.Errorf("get %s: %w", table, err)
	}
	return n, nil
}

func (r *SQLiteRepository) createNamed(ctx context.Context, table, userID, name string) (namedRow, error) {
	query, args, err := sq.Insert(table).
		Columns("id", "user_id", "name").
		Values(newID(), userID, name).
		Suffix("RETURNING id, name").
		ToSql()
	if err != nil {
		return namedRow{}, fmt.Errorf("build create %s: %w", table, err)
	}
	var n namedRow
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n.ID, &n.Name); err != nil {
		return namedRow{}, fmt.Errorf("create %s: %w", table, err)
	}
	slog.InfoContext(ctx, "Row created", "table", table, "id", n.ID)
	return n, nil
}

func (r *SQLiteRepository) renameNamed(ctx context.Context, table, userID, id, name string) (namedRow, error) {
	query, args, err := sq.Update(table).
		Set("name", name).
		Where(sq.Eq{"user_id": userID, "id": id}).
		Suffix("RETURNING id, name").
		ToSql()
	if err != nil {
		return namedRow{}, fmt.Errorf("build update %s: %w", table, err)
	}
	var n namedRow
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&n.ID, &n.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return namedRow{}, core.ErrNotFound
	}
	if err != nil {
		return namedRow{}, fmt.Errorf("update %s: %w", table, err)
	}
	return n, nil
}

// deleteNamed deletes the given ids owned by userID in one statement and
// returns the ids actually removed. Foreign and unknown ids are skipped.
func (r *SQLiteRepository) deleteNamed(ctx context.Context, table, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	query, args, err := sq.Delete(table).
		Where(sq.Eq{"user_id": userID, "id": ids}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delete %s: %w", table, err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.deleteError(table, err)
	}
	deleted, err := collectIDs(rows)
	if err != nil {
		return nil, r.deleteError(table, err)
	}
	slog.InfoContext(ctx, "Rows deleted", "table", table, "requested", len(ids), "deleted", len(deleted))
	return deleted, nil
}

func (r *SQLiteRepository) deleteError(table string, err error) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%s still referenced by transactions: %w", table, core.ErrConflict)
	}
	return fmt.Errorf("delete %s: %w", table, err)
}

func deleteOne(ids []string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", core.ErrNotFound
	}
	return ids[0], nil
}

func toAccount(userID string, n namedRow) core.Account {
	return core.Account{ID: n.ID, UserID: userID, Name: n.Name}
}

func toCategory(userID string, n namedRow) core.Category {
	return core.Category{ID: n.ID, UserID: userID, Name: n.Name}
}

// ListAccounts returns the accounts owned by userID.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.listNamed(ctx, "accounts", userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Account, len(rows))
	for i, n := range rows {
		out[i] = toAccount(userID, n)
	}
	return out, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	n, err := r.getNamed(ctx, "accounts", userID, id)
	if err != nil {
		return core.Account{}, err
	}
	return toAccount(userID, n), nil
}

// CreateAccount stores a new account owned by userID.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, userID, name string) (core.Account, error) {
	n, err := r.createNamed(ctx, "accounts", userID, name)
	if err != nil {
		return core.Account{}, err
	}
	return toAccount(userID, n), nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, userID, id, name string) (core.Account, error) {
	n, err := r.renameNamed(ctx, "accounts", userID, id, name)
	if err != nil {
		return core.Account{}, err
	}
	return toAccount(userID, n), nil
}

// DeleteAccount fails with core.ErrConflict while transactions reference the account.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) (string, error) {
	return deleteOne(r.deleteNamed(ctx, "accounts", userID, []string{id}))
}

func (r *SQLiteRepository) BulkDeleteAccounts(ctx context.Context, userID string, ids []string) ([]string, error) {
	return r.deleteNamed(ctx, "accounts", userID, ids)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.listNamed(ctx, "categories", userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, len(rows))
	for i, n := range rows {
		out[i] = toCategory(userID, n)
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	n, err := r.getNamed(ctx, "categories", userID, id)
	if err != nil {
		return core.Category{}, err
	}
	return toCategory(userID, n), nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID, name string) (core.Category, error) {
	n, err := r.createNamed(ctx, "categories", userID, name)
	if err != nil {
		return core.Category{}, err
	}
	return toCategory(userID, n), nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID, id, name string) (core.Category, error) {
	n, err := r.renameNamed(ctx, "categories", userID, id, name)
	if err != nil {
		return core.Category{}, err
	}
	return toCategory(userID, n), nil
}

// DeleteCategory leaves referencing transactions uncategorized (ON DELETE SET NULL).
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) (string, error) {
	return deleteOne(r.deleteNamed(ctx, "categories", userID, []string{id}))
}

func (r *SQLiteRepository) BulkDeleteCategories(ctx context.Context, userID string, ids []string) ([]string, error) {
	return r.deleteNamed(ctx, "categories", userID, ids)
}
