package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, amount, category, description, transaction_type, date, account,
	tags, location, receipt_path, notes, created_at, updated_at,
	is_recurring, recurring_frequency, recurring_end_date, parent_transaction_id,
	subcategory, merchant, payment_method, is_essential, confidence_score`

// SaveTransaction stores a transaction. A transaction with an ID already in
// the ledger is rejected with common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return s.saveTransactionTx(ctx, s.db, txn)
}

func (s *SQLiteStorage) saveTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) error {
	tagsJSON, err := json.Marshal(txn.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.ID,
		txn.Amount.String(),
		txn.Category,
		txn.Description,
		string(txn.Type),
		txn.Date,
		txn.Account,
		string(tagsJSON),
		nullString(txn.Location),
		nullString(txn.ReceiptPath),
		nullString(txn.Notes),
		txn.CreatedAt,
		txn.UpdatedAt,
		txn.IsRecurring,
		nullString(string(txn.RecurringFrequency)),
		nullTime(txn.RecurringEndDate),
		nullString(txn.ParentTransactionID),
		nullString(txn.Subcategory),
		nullString(txn.Merchant),
		nullString(txn.PaymentMethod),
		txn.IsEssential,
		txn.ConfidenceScore,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, txn.ID)
		}
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

// GetTransaction retrieves a transaction by full ID, or by an unambiguous
// prefix. A prefix matching more than one record returns
// common.ErrAmbiguousID; no match returns common.ErrNotFound.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}

	// Fall back to prefix lookup (the CLI displays truncated 8-char IDs).
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction prefix: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		matches = append(matches, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrAmbiguousID, id)
	}
}

// sortColumns whitelists sortable fields. Amounts are stored as decimal
// text, so ordering casts to REAL purely for comparison.
var sortColumns = map[string]string{
	service.SortByDate:      "date",
	service.SortByAmount:    "CAST(amount AS REAL)",
	service.SortByCategory:  "category",
	service.SortByCreatedAt: "created_at",
}

// ListTransactions returns transactions matching the filter. All filters
// are combined with AND; the tag filter matches transactions carrying ANY
// of the requested tags.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}

	var where []string
	var args []any

	if filter.Type != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, model.NormalizeCategory(filter.Category))
	}
	if filter.Account != "" {
		where = append(where, "account = ?")
		args = append(args, filter.Account)
	}
	if filter.StartDate != nil {
		where = append(where, "date >= ?")
		args = append(args, model.DateOnly(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "date <= ?")
		args = append(args, model.DateOnly(*filter.EndDate))
	}
	if filter.MinAmount != nil {
		where = append(where, "CAST(amount AS REAL) >= ?")
		args = append(args, filter.MinAmount.InexactFloat64())
	}
	if filter.MaxAmount != nil {
		where = append(where, "CAST(amount AS REAL) <= ?")
		args = append(args, filter.MaxAmount.InexactFloat64())
	}
	if len(filter.Tags) > 0 {
		tagConds := make([]string, 0, len(filter.Tags))
		for _, tag := range filter.Tags {
			tagConds = append(tagConds, "tags LIKE ?")
			args = append(args, `%"`+tag+`"%`)
		}
		where = append(where, "("+strings.Join(tagConds, " OR ")+")")
	}
	if filter.Merchant != "" {
		where = append(where, "merchant = ?")
		args = append(args, filter.Merchant)
	}
	if filter.IsEssential != nil {
		where = append(where, "is_essential = ?")
		args = append(args, *filter.IsEssential)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	sortCol, ok := sortColumns[filter.SortBy]
	if !ok {
		sortCol = "date"
	}
	order := "DESC"
	if strings.EqualFold(filter.Order, service.OrderAsc) {
		order = "ASC"
	}
	query += " ORDER BY " + sortCol + " " + order
	if sortCol == "date" {
		// Stable recency ordering: ties on date break by most recently created.
		query += ", created_at DESC"
	}

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return s.queryTransactions(ctx, query, args...)
}

// SearchTransactions performs a case-insensitive substring match against
// description, category, notes, and merchant, most recent first.
func (s *SQLiteStorage) SearchTransactions(ctx context.Context, text string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(text, "text"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	term := "%" + text + "%"
	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE description LIKE ?
		   OR category LIKE ?
		   OR notes LIKE ?
		   OR merchant LIKE ?
		ORDER BY date DESC, created_at DESC
		LIMIT ?
	`, term, term, term, term, limit)
}

// UpdateTransaction applies a partial update. Returns false when the ID does
// not exist.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, id string, update model.TransactionUpdate) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	txn, err := s.GetTransaction(ctx, id)
	if err != nil {
		if common.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	if err := txn.Apply(update); err != nil {
		return false, err
	}

	tagsJSON, err := json.Marshal(txn.Tags)
	if err != nil {
		return false, fmt.Errorf("failed to marshal tags: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			amount = ?, category = ?, description = ?, transaction_type = ?,
			date = ?, account = ?, tags = ?, location = ?, notes = ?,
			subcategory = ?, merchant = ?, payment_method = ?, is_essential = ?,
			updated_at = ?
		WHERE id = ?
	`,
		txn.Amount.String(),
		txn.Category,
		txn.Description,
		string(txn.Type),
		txn.Date,
		txn.Account,
		string(tagsJSON),
		nullString(txn.Location),
		nullString(txn.Notes),
		nullString(txn.Subcategory),
		nullString(txn.Merchant),
		nullString(txn.PaymentMethod),
		txn.IsEssential,
		txn.UpdatedAt,
		txn.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteTransaction removes a transaction. Returns false when the ID does
// not exist.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amountStr string
	var txnType string
	var tagsJSON sql.NullString
	var location, receiptPath, notes sql.NullString
	var frequency, parentID, subcategory, merchant, paymentMethod sql.NullString
	var recurringEnd sql.NullTime

	err := row.Scan(
		&txn.ID,
		&amountStr,
		&txn.Category,
		&txn.Description,
		&txnType,
		&txn.Date,
		&txn.Account,
		&tagsJSON,
		&location,
		&receiptPath,
		&notes,
		&txn.CreatedAt,
		&txn.UpdatedAt,
		&txn.IsRecurring,
		&frequency,
		&recurringEnd,
		&parentID,
		&subcategory,
		&merchant,
		&paymentMethod,
		&txn.IsEssential,
		&txn.ConfidenceScore,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amountStr, err)
	}
	txn.Amount = amount
	txn.Type = model.TransactionType(txnType)

	txn.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &txn.Tags); err != nil {
			return nil, fmt.Errorf("invalid stored tags %q: %w", tagsJSON.String, err)
		}
	}

	txn.Location = location.String
	txn.ReceiptPath = receiptPath.String
	txn.Notes = notes.String
	txn.RecurringFrequency = model.Frequency(frequency.String)
	txn.ParentTransactionID = parentID.String
	txn.Subcategory = subcategory.String
	txn.Merchant = merchant.String
	txn.PaymentMethod = paymentMethod.String
	if recurringEnd.Valid {
		end := recurringEnd.Time
		txn.RecurringEndDate = &end
	}

	return &txn, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
