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

const goalColumns = `id, name, description, target_amount, current_amount, target_date,
	category, goal_type, priority, auto_contribute, auto_contribute_amount,
	auto_contribute_frequency, created_at, updated_at, completed_at, is_active,
	tags, notes, linked_account`

// SaveGoal stores a new goal along with its milestones and contributions.
// Duplicate IDs are rejected with common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveGoal(ctx context.Context, goal *model.Goal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGoal(goal); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveGoalTx(ctx, tx, goal); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveGoalTx(ctx context.Context, q queryable, goal *model.Goal) error {
	tagsJSON, err := json.Marshal(goal.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		goal.ID,
		goal.Name,
		goal.Description,
		goal.TargetAmount.String(),
		goal.CurrentAmount.String(),
		goal.TargetDate,
		nullString(goal.Category),
		string(goal.GoalType),
		string(goal.Priority),
		goal.AutoContribute,
		goal.AutoContributeAmount.String(),
		nullString(string(goal.AutoContributeFrequency)),
		goal.CreatedAt,
		goal.UpdatedAt,
		nullTime(goal.CompletedAt),
		goal.IsActive,
		string(tagsJSON),
		nullString(goal.Notes),
		nullString(goal.LinkedAccount),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: goal %s", common.ErrDuplicateEntry, goal.ID)
		}
		return fmt.Errorf("failed to insert goal %s: %w", goal.ID, err)
	}

	return s.saveGoalChildrenTx(ctx, q, goal)
}

func (s *SQLiteStorage) saveGoalChildrenTx(ctx context.Context, q queryable, goal *model.Goal) error {
	for _, m := range goal.Milestones {
		_, err := q.ExecContext(ctx, `
			INSERT INTO goal_milestones (id, goal_id, name, amount, percentage, achieved, achieved_date, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			m.ID,
			goal.ID,
			m.Name,
			m.Amount.String(),
			m.Percentage,
			m.Achieved,
			nullTime(m.AchievedDate),
			nullString(m.Description),
		)
		if err != nil {
			return fmt.Errorf("failed to insert milestone %s: %w", m.ID, err)
		}
	}

	for i, c := range goal.Contributions {
		_, err := q.ExecContext(ctx, `
			INSERT INTO goal_contributions (id, goal_id, amount, description, date, timestamp, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			c.ID,
			goal.ID,
			c.Amount.String(),
			c.Description,
			c.Date,
			c.Timestamp,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert contribution %s: %w", c.ID, err)
		}
	}

	return nil
}

// GetGoal retrieves a goal by full ID or unambiguous prefix, including its
// milestones and contribution log.
func (s *SQLiteStorage) GetGoal(ctx context.Context, id string) (*model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	goal, err := scanGoal(row)
	if err == nil {
		return goal, s.loadGoalChildren(ctx, goal)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query goal: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal prefix: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*model.Goal
	for rows.Next() {
		goal, scanErr := scanGoal(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", scanErr)
		}
		matches = append(matches, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: goal %s", common.ErrNotFound, id)
	case 1:
		return matches[0], s.loadGoalChildren(ctx, matches[0])
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrAmbiguousID, id)
	}
}

// GetGoals returns all goals with their children, optionally only active
// ones, ordered by name.
func (s *SQLiteStorage) GetGoals(ctx context.Context, activeOnly bool) ([]model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + goalColumns + ` FROM goals`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var goals []model.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, *goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}

	for i := range goals {
		if err := s.loadGoalChildren(ctx, &goals[i]); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

// UpdateGoal writes the goal's current state back, replacing its milestones
// and contribution log.
func (s *SQLiteStorage) UpdateGoal(ctx context.Context, goal *model.Goal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGoal(goal); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tagsJSON, err := json.Marshal(goal.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE goals SET
			name = ?, description = ?, target_amount = ?, current_amount = ?,
			target_date = ?, category = ?, goal_type = ?, priority = ?,
			auto_contribute = ?, auto_contribute_amount = ?, auto_contribute_frequency = ?,
			updated_at = ?, completed_at = ?, is_active = ?, tags = ?, notes = ?,
			linked_account = ?
		WHERE id = ?
	`,
		goal.Name,
		goal.Description,
		goal.TargetAmount.String(),
		goal.CurrentAmount.String(),
		goal.TargetDate,
		nullString(goal.Category),
		string(goal.GoalType),
		string(goal.Priority),
		goal.AutoContribute,
		goal.AutoContributeAmount.String(),
		nullString(string(goal.AutoContributeFrequency)),
		goal.UpdatedAt,
		nullTime(goal.CompletedAt),
		goal.IsActive,
		string(tagsJSON),
		nullString(goal.Notes),
		nullString(goal.LinkedAccount),
		goal.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal %s: %w", goal.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: goal %s", common.ErrNotFound, goal.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM goal_milestones WHERE goal_id = ?`, goal.ID); err != nil {
		return fmt.Errorf("failed to clear milestones: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM goal_contributions WHERE goal_id = ?`, goal.ID); err != nil {
		return fmt.Errorf("failed to clear contributions: %w", err)
	}
	if err := s.saveGoalChildrenTx(ctx, tx, goal); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteGoal removes a goal and its children. Returns false when the ID
// does not exist.
func (s *SQLiteStorage) DeleteGoal(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete goal %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteStorage) loadGoalChildren(ctx context.Context, goal *model.Goal) error {
	goal.Milestones = []model.Milestone{}
	goal.Contributions = []model.Contribution{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, amount, percentage, achieved, achieved_date, description
		FROM goal_milestones WHERE goal_id = ? ORDER BY percentage
	`, goal.ID)
	if err != nil {
		return fmt.Errorf("failed to query milestones: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var m model.Milestone
		var amountStr string
		var achievedDate sql.NullTime
		var description sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &amountStr, &m.Percentage, &m.Achieved, &achievedDate, &description); err != nil {
			return fmt.Errorf("failed to scan milestone: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("invalid stored amount %q: %w", amountStr, err)
		}
		m.Amount = amount
		m.Description = description.String
		if achievedDate.Valid {
			t := achievedDate.Time
			m.AchievedDate = &t
		}
		goal.Milestones = append(goal.Milestones, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate milestones: %w", err)
	}

	contribRows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, description, date, timestamp
		FROM goal_contributions WHERE goal_id = ? ORDER BY position
	`, goal.ID)
	if err != nil {
		return fmt.Errorf("failed to query contributions: %w", err)
	}
	defer func() { _ = contribRows.Close() }()

	for contribRows.Next() {
		var c model.Contribution
		var amountStr string
		if err := contribRows.Scan(&c.ID, &amountStr, &c.Description, &c.Date, &c.Timestamp); err != nil {
			return fmt.Errorf("failed to scan contribution: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("invalid stored amount %q: %w", amountStr, err)
		}
		c.Amount = amount
		goal.Contributions = append(goal.Contributions, c)
	}
	if err := contribRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate contributions: %w", err)
	}

	return nil
}

func scanGoal(row rowScanner) (*model.Goal, error) {
	var goal model.Goal
	var targetStr, currentStr, autoAmountStr, goalType, priority string
	var category, autoFreq, tagsJSON, notes, linkedAccount sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&goal.ID,
		&goal.Name,
		&goal.Description,
		&targetStr,
		&currentStr,
		&goal.TargetDate,
		&category,
		&goalType,
		&priority,
		&goal.AutoContribute,
		&autoAmountStr,
		&autoFreq,
		&goal.CreatedAt,
		&goal.UpdatedAt,
		&completedAt,
		&goal.IsActive,
		&tagsJSON,
		&notes,
		&linkedAccount,
	)
	if err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", targetStr, err)
	}
	current, err := decimal.NewFromString(currentStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", currentStr, err)
	}
	autoAmount, err := decimal.NewFromString(autoAmountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", autoAmountStr, err)
	}

	goal.TargetAmount = target
	goal.CurrentAmount = current
	goal.AutoContributeAmount = autoAmount
	goal.GoalType = model.GoalType(goalType)
	goal.Priority = model.Priority(priority)
	goal.Category = category.String
	goal.AutoContributeFrequency = model.Frequency(autoFreq.String)
	goal.Notes = notes.String
	goal.LinkedAccount = linkedAccount.String
	if completedAt.Valid {
		t := completedAt.Time
		goal.CompletedAt = &t
	}

	goal.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &goal.Tags); err != nil {
			return nil, fmt.Errorf("invalid stored tags %q: %w", tagsJSON.String, err)
		}
	}

	return &goal, nil
}
