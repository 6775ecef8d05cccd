package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/musicclub/apiserver/types"
)

// FinanceRepository handles persistence for the club ledger.
type FinanceRepository struct {
	db *sqlx.DB
}

func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

const financeSelect = `
	SELECT id, type, category, amount, to_char(date, 'YYYY-MM-DD') AS date, description, attachment
	FROM finances`

func (r *FinanceRepository) List(ctx context.Context) ([]types.Finance, error) {
	entries := make([]types.Finance, 0)
	if err := r.db.SelectContext(ctx, &entries, financeSelect+` ORDER BY date DESC, id DESC`); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *FinanceRepository) Get(ctx context.Context, id int) (types.Finance, error) {
	var entry types.Finance
	if err := r.db.GetContext(ctx, &entry, financeSelect+` WHERE id = $1`, id); err != nil {
		return types.Finance{}, notFound(err)
	}
	return entry, nil
}

func (r *FinanceRepository) Create(ctx context.Context, f types.Finance) (int, error) {
	const query = `
		INSERT INTO finances (type, category, amount, date, description, attachment, created_at, updated_at)
		VALUES (:type, :category, :amount, :date, :description, :attachment, :now, :now)
		RETURNING id`
	params := map[string]any{
		"type":        f.Type,
		"category":    f.Category,
		"amount":      f.Amount,
		"date":        f.Date,
		"description": f.Description,
		"attachment":  f.Attachment,
		"now":         time.Now(),
	}
	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return 0, translate(err)
	}
	defer rows.Close()

	var id int
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("insert finance: no id returned")
}

// Update applies the non-nil fields of patch.
func (r *FinanceRepository) Update(ctx context.Context, id int, patch types.FinancePatch) error {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Type != nil {
		set("type", *patch.Type)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Amount != nil {
		set("amount", *patch.Amount)
	}
	if patch.Date != nil {
		set("date", *patch.Date)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Attachment != nil {
		set("attachment", *patch.Attachment)
	}
	set("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE finances SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *FinanceRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM finances WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// MonthlySummary totals income and expense per month of year, newest month first.
func (r *FinanceRepository) MonthlySummary(ctx context.Context, year int) ([]types.MonthlySummary, error) {
	const query = `
		SELECT to_char(date, 'YYYY-MM') AS month,
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0) AS income,
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0) AS expense,
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0)
				- COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0) AS balance
		FROM finances
		WHERE EXTRACT(YEAR FROM date) = $1
		GROUP BY to_char(date, 'YYYY-MM')
		ORDER BY month DESC`
	summary := make([]types.MonthlySummary, 0)
	if err := r.db.SelectContext(ctx, &summary, query, year); err != nil {
		return nil, err
	}
	return summary, nil
}
