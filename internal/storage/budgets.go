package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const budgetColumns = `id, name, category, amount, period, start_date, end_date,
	alert_threshold, alert_enabled, last_alert_sent, current_spent, last_reset_date,
	created_at, updated_at, is_active, rollover_unused, auto_adjust, tags, notes`

// SaveBudget stores a new budget. Duplicate IDs are rejected with
// common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}
	return s.saveBudgetTx(ctx, s.db, budget)
}

func (s *SQLiteStorage) saveBudgetTx(ctx context.Context, q queryable, budget *model.Budget) error {
	tagsJSON, err := json.Marshal(budget.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		budget.ID,
		budget.Name,
		budget.Category,
		budget.Amount.String(),
		string(budget.Period),
		budget.StartDate,
		budget.EndDate,
		budget.AlertThreshold,
		budget.AlertEnabled,
		nullTime(budget.LastAlertSent),
		budget.CurrentSpent.String(),
		budget.LastResetDate,
		budget.CreatedAt,
		budget.UpdatedAt,
		budget.IsActive,
		budget.RolloverUnused,
		budget.AutoAdjust,
		string(tagsJSON),
		nullString(budget.Notes),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: budget %s", common.ErrDuplicateEntry, budget.ID)
		}
		return fmt.Errorf("failed to insert budget %s: %w", budget.ID, err)
	}
	return nil
}

// GetBudget retrieves a budget by full ID or unambiguous prefix.
func (s *SQLiteStorage) GetBudget(ctx context.Context, id string) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	budget, err := scanBudget(row)
	if err == nil {
		return budget, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query budget: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget prefix: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*model.Budget
	for rows.Next() {
		budget, scanErr := scanBudget(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", scanErr)
		}
		matches = append(matches, budget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: budget %s", common.ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrAmbiguousID, id)
	}
}

// GetBudgets returns all budgets, optionally only active ones, ordered by
// name.
func (s *SQLiteStorage) GetBudgets(ctx context.Context, activeOnly bool) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + budgetColumns + ` FROM budgets`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, *budget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}
	return budgets, nil
}

// UpdateBudget writes the budget's current state back to the store.
func (s *SQLiteStorage) UpdateBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	tagsJSON, err := json.Marshal(budget.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE budgets SET
			name = ?, category = ?, amount = ?, period = ?, start_date = ?, end_date = ?,
			alert_threshold = ?, alert_enabled = ?, last_alert_sent = ?, current_spent = ?,
			last_reset_date = ?, updated_at = ?, is_active = ?, rollover_unused = ?,
			auto_adjust = ?, tags = ?, notes = ?
		WHERE id = ?
	`,
		budget.Name,
		budget.Category,
		budget.Amount.String(),
		string(budget.Period),
		budget.StartDate,
		budget.EndDate,
		budget.AlertThreshold,
		budget.AlertEnabled,
		nullTime(budget.LastAlertSent),
		budget.CurrentSpent.String(),
		budget.LastResetDate,
		budget.UpdatedAt,
		budget.IsActive,
		budget.RolloverUnused,
		budget.AutoAdjust,
		string(tagsJSON),
		nullString(budget.Notes),
		budget.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget %s: %w", budget.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: budget %s", common.ErrNotFound, budget.ID)
	}
	return nil
}

// DeleteBudget removes a budget. Returns false when the ID does not exist.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete budget %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

func scanBudget(row rowScanner) (*model.Budget, error) {
	var budget model.Budget
	var amountStr, spentStr, period string
	var lastAlert sql.NullTime
	var tagsJSON, notes sql.NullString

	err := row.Scan(
		&budget.ID,
		&budget.Name,
		&budget.Category,
		&amountStr,
		&period,
		&budget.StartDate,
		&budget.EndDate,
		&budget.AlertThreshold,
		&budget.AlertEnabled,
		&lastAlert,
		&spentStr,
		&budget.LastResetDate,
		&budget.CreatedAt,
		&budget.UpdatedAt,
		&budget.IsActive,
		&budget.RolloverUnused,
		&budget.AutoAdjust,
		&tagsJSON,
		&notes,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amountStr, err)
	}
	spent, err := decimal.NewFromString(spentStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored spend %q: %w", spentStr, err)
	}

	budget.Amount = amount
	budget.CurrentSpent = spent
	budget.Period = model.Period(period)
	budget.Notes = notes.String
	if lastAlert.Valid {
		t := lastAlert.Time
		budget.LastAlertSent = &t
	}

	budget.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &budget.Tags); err != nil {
			return nil, fmt.Errorf("invalid stored tags %q: %w", tagsJSON.String, err)
		}
	}

	return &budget, nil
}
