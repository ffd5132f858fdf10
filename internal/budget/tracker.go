// Package budget coordinates budget lifecycle against the ledger: creation,
// spend recording, spend refresh from actual transactions, and period
// rollover.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/shopspring/decimal"
)

// Tracker manages budgets on top of the persistence layer.
type Tracker struct {
	storage service.Storage
	logger  *slog.Logger
}

// NewTracker creates a budget tracker.
func NewTracker(storage service.Storage, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{storage: storage, logger: logger}
}

// Create validates and persists a new budget.
func (t *Tracker) Create(ctx context.Context, cfg model.BudgetConfig) (*model.Budget, error) {
	budget, err := model.NewBudget(cfg)
	if err != nil {
		return nil, err
	}
	if err := t.storage.SaveBudget(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}
	t.logger.Info("budget created",
		"id", budget.ID,
		"name", budget.Name,
		"category", budget.Category,
		"amount", budget.Amount.String(),
		"period", string(budget.Period))
	return budget, nil
}

// Get retrieves a budget by ID or unambiguous prefix.
func (t *Tracker) Get(ctx context.Context, id string) (*model.Budget, error) {
	return t.storage.GetBudget(ctx, id)
}

// List returns budgets, optionally only active ones.
func (t *Tracker) List(ctx context.Context, activeOnly bool) ([]model.Budget, error) {
	return t.storage.GetBudgets(ctx, activeOnly)
}

// Update applies field changes to a budget resolved by ID or unambiguous
// prefix and persists the result.
func (t *Tracker) Update(ctx context.Context, id string, update model.BudgetUpdate) (*model.Budget, error) {
	budget, err := t.storage.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := budget.Apply(update); err != nil {
		return nil, err
	}
	if err := t.storage.UpdateBudget(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}
	t.logger.Info("budget updated", "id", budget.ID, "name", budget.Name)
	return budget, nil
}

// Delete removes a budget by ID or unambiguous prefix.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	budget, err := t.storage.GetBudget(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := t.storage.DeleteBudget(ctx, budget.ID)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: budget %s", common.ErrNotFound, id)
	}
	t.logger.Info("budget deleted", "id", budget.ID, "name", budget.Name)
	return nil
}

// RecordExpense adds a spend amount to the budget for the given category.
// Returns the updated budget, or common.ErrNotFound when no active budget
// covers the category.
func (t *Tracker) RecordExpense(ctx context.Context, category string, amount decimal.Decimal) (*model.Budget, error) {
	budget, err := t.findByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if err := budget.AddExpense(amount); err != nil {
		return nil, err
	}
	if err := t.storage.UpdateBudget(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}

	if budget.AlertEnabled && budget.AlertThresholdReached() && budget.LastAlertSent == nil {
		now := time.Now().UTC()
		budget.LastAlertSent = &now
		if err := t.storage.UpdateBudget(ctx, budget); err != nil {
			return nil, fmt.Errorf("failed to record alert: %w", err)
		}
		t.logger.Warn("budget alert threshold reached",
			"id", budget.ID,
			"category", budget.Category,
			"spent_pct", budget.SpentPercentage())
	}
	return budget, nil
}

// Status returns the derived snapshot for one budget as of now.
func (t *Tracker) Status(ctx context.Context, id string) (*model.BudgetStatus, error) {
	budget, err := t.storage.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}
	status := budget.Status(time.Now().UTC())
	return &status, nil
}

// StatusAll returns derived snapshots for every active budget as of now.
func (t *Tracker) StatusAll(ctx context.Context) ([]model.BudgetStatus, error) {
	budgets, err := t.storage.GetBudgets(ctx, true)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	statuses := make([]model.BudgetStatus, 0, len(budgets))
	for i := range budgets {
		statuses = append(statuses, budgets[i].Status(now))
	}
	return statuses, nil
}

// RefreshSpent recomputes a budget's current spend from the ledger's actual
// expense transactions in the budget's category over its current period.
// This reconciles drift after transaction edits or deletions.
func (t *Tracker) RefreshSpent(ctx context.Context, id string) (*model.Budget, error) {
	budget, err := t.storage.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}

	start := budget.StartDate
	end := budget.EndDate
	txns, err := t.storage.ListTransactions(ctx, service.TransactionFilter{
		Type:      model.TypeExpense,
		Category:  budget.Category,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	total := decimal.Zero
	for _, txn := range txns {
		total = total.Add(txn.Amount)
	}

	budget.CurrentSpent = total
	budget.UpdatedAt = time.Now().UTC()
	if err := t.storage.UpdateBudget(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}

	t.logger.Info("budget spend refreshed",
		"id", budget.ID,
		"category", budget.Category,
		"spent", total.String(),
		"transactions", len(txns))
	return budget, nil
}

// ProcessRollovers resets every active budget whose period has elapsed as of
// the given time, applying rollover where enabled. Returns the budgets that
// were reset.
func (t *Tracker) ProcessRollovers(ctx context.Context, asOf time.Time) ([]model.Budget, error) {
	budgets, err := t.storage.GetBudgets(ctx, true)
	if err != nil {
		return nil, err
	}

	var reset []model.Budget
	for i := range budgets {
		budget := &budgets[i]
		if !budget.ShouldReset(asOf) {
			continue
		}
		// A budget dormant for several periods catches up one reset at a
		// time so each elapsed period's rollover is applied.
		for budget.ShouldReset(asOf) {
			budget.ResetPeriod(budget.EndDate.AddDate(0, 0, 1))
		}
		if err := t.storage.UpdateBudget(ctx, budget); err != nil {
			return nil, fmt.Errorf("failed to update budget %s: %w", budget.ID, err)
		}
		t.logger.Info("budget period reset",
			"id", budget.ID,
			"name", budget.Name,
			"new_end", budget.EndDate.Format(time.DateOnly))
		reset = append(reset, *budget)
	}
	return reset, nil
}

func (t *Tracker) findByCategory(ctx context.Context, category string) (*model.Budget, error) {
	normalized := model.NormalizeCategory(category)
	budgets, err := t.storage.GetBudgets(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		if budgets[i].Category == normalized {
			return &budgets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no active budget for category %s", common.ErrNotFound, normalized)
}
