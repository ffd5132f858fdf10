package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					amount TEXT NOT NULL,
					category TEXT NOT NULL,
					description TEXT,
					transaction_type TEXT NOT NULL,
					date DATETIME NOT NULL,
					account TEXT NOT NULL DEFAULT 'default',
					tags TEXT,
					location TEXT,
					receipt_path TEXT,
					notes TEXT,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					is_recurring INTEGER NOT NULL DEFAULT 0,
					recurring_frequency TEXT,
					recurring_end_date DATETIME,
					parent_transaction_id TEXT,
					subcategory TEXT,
					merchant TEXT,
					payment_method TEXT,
					is_essential INTEGER NOT NULL DEFAULT 1,
					confidence_score REAL NOT NULL DEFAULT 1.0
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_category ON transactions(category)`,
				`CREATE INDEX idx_transactions_type ON transactions(transaction_type)`,

				`CREATE TABLE IF NOT EXISTS budgets (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					category TEXT NOT NULL,
					amount TEXT NOT NULL,
					period TEXT NOT NULL,
					start_date DATETIME NOT NULL,
					end_date DATETIME NOT NULL,
					alert_threshold REAL NOT NULL DEFAULT 80.0,
					alert_enabled INTEGER NOT NULL DEFAULT 1,
					last_alert_sent DATETIME,
					current_spent TEXT NOT NULL DEFAULT '0',
					last_reset_date DATETIME NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					is_active INTEGER NOT NULL DEFAULT 1,
					rollover_unused INTEGER NOT NULL DEFAULT 0,
					tags TEXT,
					notes TEXT
				)`,
				`CREATE INDEX idx_budgets_category ON budgets(category)`,

				`CREATE TABLE IF NOT EXISTS goals (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT,
					target_amount TEXT NOT NULL,
					current_amount TEXT NOT NULL DEFAULT '0',
					target_date DATETIME NOT NULL,
					category TEXT,
					goal_type TEXT NOT NULL DEFAULT 'savings',
					priority TEXT NOT NULL DEFAULT 'medium',
					auto_contribute INTEGER NOT NULL DEFAULT 0,
					auto_contribute_amount TEXT NOT NULL DEFAULT '0',
					auto_contribute_frequency TEXT,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					completed_at DATETIME,
					is_active INTEGER NOT NULL DEFAULT 1,
					tags TEXT,
					notes TEXT,
					linked_account TEXT
				)`,

				`CREATE TABLE IF NOT EXISTS goal_milestones (
					id TEXT PRIMARY KEY,
					goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					amount TEXT NOT NULL,
					percentage REAL NOT NULL,
					achieved INTEGER NOT NULL DEFAULT 0,
					achieved_date DATETIME,
					description TEXT
				)`,
				`CREATE INDEX idx_goal_milestones_goal ON goal_milestones(goal_id)`,

				`CREATE TABLE IF NOT EXISTS goal_contributions (
					id TEXT PRIMARY KEY,
					goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
					amount TEXT NOT NULL,
					description TEXT,
					date DATETIME NOT NULL,
					timestamp DATETIME NOT NULL,
					position INTEGER NOT NULL
				)`,
				`CREATE INDEX idx_goal_contributions_goal ON goal_contributions(goal_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add merchant and account indexes for search and filters",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_transactions_merchant ON transactions(merchant)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add auto_adjust flag to budgets",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE budgets ADD COLUMN auto_adjust INTEGER NOT NULL DEFAULT 0`)
			return err
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
