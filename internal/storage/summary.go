package storage

import (
	"context"
	"fmt"

	"finboard/internal/core"
)

const (
	incomeSum   = "COALESCE(SUM(CASE WHEN t.amount > 0 THEN t.amount ELSE 0 END), 0)"
	expensesSum = "COALESCE(SUM(CASE WHEN t.amount < 0 THEN t.amount ELSE 0 END), 0)"
	absExpenses = "COALESCE(SUM(CASE WHEN t.amount < 0 THEN -t.amount ELSE 0 END), 0)"
)

// PeriodTotals sums income, expenses and the net remaining amount of the
// requester's transactions in f's window.
func (r *SQLiteRepository) PeriodTotals(ctx context.Context, userID string, f core.TransactionFilter) (core.PeriodTotals, error) {
	query, args, err := applyFilter(ownedTransactions(userID, incomeSum, expensesSum, "COALESCE(SUM(t.amount), 0)"), f).
		ToSql()
	if err != nil {
		return core.PeriodTotals{}, fmt.Errorf("build period totals: %w", err)
	}
	var p core.PeriodTotals
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.Income, &p.Expenses, &p.Remaining); err != nil {
		return core.PeriodTotals{}, fmt.Errorf("period totals: %w", err)
	}
	return p, nil
}

// SpendingByCategory returns absolute expense totals per category name.
// Uncategorized transactions are not included.
func (r *SQLiteRepository) SpendingByCategory(ctx context.Context, userID string, f core.TransactionFilter) ([]core.CategoryAmount, error) {
	b := ownedTransactions(userID, "c.name", absExpenses).
		Join("categories c ON c.id = t.category_id").
		Where("t.amount < 0")
	query, args, err := applyFilter(b, f).
		GroupBy("c.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build spending by category: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("spending by category: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Value); err != nil {
			return nil, fmt.Errorf("scan category amount: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DailyTotals returns income and absolute expenses for each day of f's window
// that has at least one transaction.
func (r *SQLiteRepository) DailyTotals(ctx context.Context, userID string, f core.TransactionFilter) ([]core.DayAmount, error) {
	query, args, err := applyFilter(ownedTransactions(userID, "t.date", incomeSum, absExpenses), f).
		GroupBy("t.date").
		OrderBy("t.date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build daily totals: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	out := []core.DayAmount{}
	for rows.Next() {
		var (
			date string
			d    core.DayAmount
		)
		if err := rows.Scan(&date, &d.Income, &d.Expenses); err != nil {
			return nil, fmt.Errorf("scan day amount: %w", err)
		}
		if d.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("stored date %q: %w", date, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
