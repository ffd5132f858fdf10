// Package goal coordinates savings goal lifecycle: creation, contributions,
// milestone progress, and derived status.
package goal

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

// Tracker manages goals on top of the persistence layer.
type Tracker struct {
	storage service.Storage
	logger  *slog.Logger
}

// NewTracker creates a goal tracker.
func NewTracker(storage service.Storage, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{storage: storage, logger: logger}
}

// Create validates and persists a new goal.
func (t *Tracker) Create(ctx context.Context, cfg model.GoalConfig) (*model.Goal, error) {
	goal, err := model.NewGoal(cfg)
	if err != nil {
		return nil, err
	}
	if err := t.storage.SaveGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to save goal: %w", err)
	}
	t.logger.Info("goal created",
		"id", goal.ID,
		"name", goal.Name,
		"target", goal.TargetAmount.String(),
		"target_date", goal.TargetDate.Format(time.DateOnly))
	return goal, nil
}

// Get retrieves a goal by ID or unambiguous prefix.
func (t *Tracker) Get(ctx context.Context, id string) (*model.Goal, error) {
	return t.storage.GetGoal(ctx, id)
}

// List returns goals, optionally only active ones.
func (t *Tracker) List(ctx context.Context, activeOnly bool) ([]model.Goal, error) {
	return t.storage.GetGoals(ctx, activeOnly)
}

// Update applies field changes to a goal resolved by ID or unambiguous
// prefix and persists the result.
func (t *Tracker) Update(ctx context.Context, id string, update model.GoalUpdate) (*model.Goal, error) {
	goal, err := t.storage.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := goal.Apply(update); err != nil {
		return nil, err
	}
	if err := t.storage.UpdateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}
	t.logger.Info("goal updated", "id", goal.ID, "name", goal.Name)
	return goal, nil
}

// Delete removes a goal by ID or unambiguous prefix.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	goal, err := t.storage.GetGoal(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := t.storage.DeleteGoal(ctx, goal.ID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: goal %s", common.ErrNotFound, id)
	}
	t.logger.Info("goal deleted", "id", goal.ID, "name", goal.Name)
	return nil
}

// Contribute records a contribution toward a goal and returns the updated
// goal along with milestones achieved by this contribution.
func (t *Tracker) Contribute(ctx context.Context, id string, amount decimal.Decimal, description string, date time.Time) (*model.Goal, []model.Milestone, error) {
	goal, err := t.storage.GetGoal(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	before := len(goal.AchievedMilestones())
	if err := goal.AddContribution(amount, description, date); err != nil {
		return nil, nil, err
	}

	if err := t.storage.UpdateGoal(ctx, goal); err != nil {
		return nil, nil, fmt.Errorf("failed to update goal: %w", err)
	}

	achieved := goal.AchievedMilestones()
	newlyAchieved := achieved[before:]

	t.logger.Info("contribution recorded",
		"id", goal.ID,
		"amount", amount.String(),
		"current", goal.CurrentAmount.String(),
		"progress_pct", goal.ProgressPercentage())
	if goal.IsCompleted() {
		t.logger.Info("goal completed", "id", goal.ID, "name", goal.Name)
	}
	return goal, newlyAchieved, nil
}

// Progress returns the derived snapshot for one goal as of now.
func (t *Tracker) Progress(ctx context.Context, id string) (*model.GoalStatus, error) {
	goal, err := t.storage.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	status := goal.Status(time.Now().UTC())
	return &status, nil
}

// ProgressAll returns derived snapshots for every active goal as of now.
func (t *Tracker) ProgressAll(ctx context.Context) ([]model.GoalStatus, error) {
	goals, err := t.storage.GetGoals(ctx, true)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	statuses := make([]model.GoalStatus, 0, len(goals))
	for i := range goals {
		statuses = append(statuses, goals[i].Status(now))
	}
	return statuses, nil
}

// ProcessAutoContributions applies the scheduled contribution to every
// active goal with auto-contribute enabled whose frequency interval has
// elapsed since its last contribution. Returns the goals contributed to.
func (t *Tracker) ProcessAutoContributions(ctx context.Context, asOf time.Time) ([]model.Goal, error) {
	goals, err := t.storage.GetGoals(ctx, true)
	if err != nil {
		return nil, err
	}

	var contributed []model.Goal
	for i := range goals {
		goal := &goals[i]
		if !goal.AutoContribute || goal.IsCompleted() {
			continue
		}
		if !goal.AutoContributeAmount.IsPositive() || !goal.AutoContributeFrequency.Valid() {
			continue
		}
		if !autoContributionDue(goal, asOf) {
			continue
		}

		if err := goal.AddContribution(goal.AutoContributeAmount, "Automatic contribution", asOf); err != nil {
			return nil, err
		}
		if err := t.storage.UpdateGoal(ctx, goal); err != nil {
			return nil, fmt.Errorf("failed to update goal %s: %w", goal.ID, err)
		}
		t.logger.Info("auto contribution applied",
			"id", goal.ID,
			"amount", goal.AutoContributeAmount.String())
		contributed = append(contributed, *goal)
	}
	return contributed, nil
}

func autoContributionDue(goal *model.Goal, asOf time.Time) bool {
	last := goal.CreatedAt
	if n := len(goal.Contributions); n > 0 {
		last = goal.Contributions[n-1].Date
	}
	next := model.FrequencyNext(last, goal.AutoContributeFrequency)
	return !asOf.Before(next)
}
