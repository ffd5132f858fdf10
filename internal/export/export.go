// Package export moves ledger data in and out of the database as CSV and
// JSON files, plus full JSON backups.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/shopspring/decimal"
)

// ProgressFunc is called once per record during bulk operations. A nil
// function is ignored.
type ProgressFunc func(current, total int)

// csvHeader is the column order for CSV export and the expected order on
// import.
var csvHeader = []string{"id", "date", "type", "amount", "category", "description"}

// Exporter reads and writes ledger data files.
type Exporter struct {
	storage service.Storage
}

// NewExporter creates an exporter.
func NewExporter(storage service.Storage) *Exporter {
	return &Exporter{storage: storage}
}

// ExportCSV writes all transactions matching the filter to a CSV file.
// Returns the number of rows written.
func (e *Exporter) ExportCSV(ctx context.Context, path string, filter service.TransactionFilter, progress ProgressFunc) (int, error) {
	txns, err := e.storage.ListTransactions(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	f, err := os.Create(path) //nolint:gosec // user-supplied export path
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	for i, txn := range txns {
		record := []string{
			txn.ID,
			txn.Date.Format(time.DateOnly),
			string(txn.Type),
			txn.Amount.StringFixed(2),
			txn.Category,
			txn.Description,
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		if progress != nil {
			progress(i+1, len(txns))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return len(txns), nil
}

// ImportCSV loads transactions from a CSV file inside a single write batch;
// a malformed row aborts the whole import. Returns the number of rows
// imported.
func (e *Exporter) ImportCSV(ctx context.Context, path string, progress ProgressFunc) (int, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied import path
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := checkCSVHeader(records[0]); err != nil {
		return 0, err
	}
	rows := records[1:]

	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, record := range rows {
		txn, err := transactionFromCSV(record)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := tx.SaveTransaction(ctx, txn); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+2, err)
		}
		if progress != nil {
			progress(i+1, len(rows))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return len(rows), nil
}

// snapshot is the JSON export and backup format: all entities, fully
// serialized.
type snapshot struct {
	ExportedAt   time.Time           `json:"exported_at"`
	Transactions []model.Transaction `json:"transactions"`
	Budgets      []model.Budget      `json:"budgets"`
	Goals        []model.Goal        `json:"goals"`
}

// ExportJSON writes all transactions, budgets, and goals to a JSON file.
// Returns the total number of entities written.
func (e *Exporter) ExportJSON(ctx context.Context, path string) (int, error) {
	snap, err := e.collect(ctx)
	if err != nil {
		return 0, err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return len(snap.Transactions) + len(snap.Budgets) + len(snap.Goals), nil
}

// ImportJSON loads a full snapshot inside a single write batch. Returns the
// total number of entities imported.
func (e *Exporter) ImportJSON(ctx context.Context, path string, progress ProgressFunc) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied import path
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	total := len(snap.Transactions) + len(snap.Budgets) + len(snap.Goals)
	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	done := 0
	step := func() {
		done++
		if progress != nil {
			progress(done, total)
		}
	}

	for i := range snap.Transactions {
		if err := tx.SaveTransaction(ctx, &snap.Transactions[i]); err != nil {
			return 0, fmt.Errorf("transaction %s: %w", snap.Transactions[i].ID, err)
		}
		step()
	}
	for i := range snap.Budgets {
		if err := tx.SaveBudget(ctx, &snap.Budgets[i]); err != nil {
			return 0, fmt.Errorf("budget %s: %w", snap.Budgets[i].ID, err)
		}
		step()
	}
	for i := range snap.Goals {
		if err := tx.SaveGoal(ctx, &snap.Goals[i]); err != nil {
			return 0, fmt.Errorf("goal %s: %w", snap.Goals[i].ID, err)
		}
		step()
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return total, nil
}

// Backup writes a timestamped JSON snapshot into the given directory and
// returns the backup file path.
func (e *Exporter) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("pocketwatch-backup-%s.json",
		time.Now().UTC().Format("20060102-150405")))
	if _, err := e.ExportJSON(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// collect reads every entity. The reads are idempotent, so they retry on
// transient failures such as a busy database file.
func (e *Exporter) collect(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{ExportedAt: time.Now().UTC()}
	err := common.WithRetry(ctx, func() error {
		txns, err := e.storage.ListTransactions(ctx, service.TransactionFilter{})
		if err != nil {
			return fmt.Errorf("failed to list transactions: %w", err)
		}
		budgets, err := e.storage.GetBudgets(ctx, false)
		if err != nil {
			return fmt.Errorf("failed to list budgets: %w", err)
		}
		goals, err := e.storage.GetGoals(ctx, false)
		if err != nil {
			return fmt.Errorf("failed to list goals: %w", err)
		}
		snap.Transactions = txns
		snap.Budgets = budgets
		snap.Goals = goals
		return nil
	}, common.RetryOptions{MaxAttempts: 3})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func checkCSVHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("unexpected csv header: got %d columns, want %d", len(header), len(csvHeader))
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return fmt.Errorf("unexpected csv header: column %d is %q, want %q", i+1, header[i], col)
		}
	}
	return nil
}

func transactionFromCSV(record []string) (*model.Transaction, error) {
	if len(record) != len(csvHeader) {
		return nil, fmt.Errorf("got %d columns, want %d", len(record), len(csvHeader))
	}

	date, err := time.Parse(time.DateOnly, record[1])
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", record[1], err)
	}
	amount, err := decimal.NewFromString(record[3])
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", record[3], err)
	}

	return model.NewTransaction(model.TransactionConfig{
		ID:          record[0],
		Date:        date,
		Type:        model.TransactionType(record[2]),
		Amount:      amount,
		Category:    record[4],
		Description: record[5],
	})
}
