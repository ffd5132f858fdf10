// Package model defines the core domain entities for pocketwatch.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

// Transaction types.
const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether the transaction type is a recognized value.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Frequency describes how often a recurring transaction repeats.
type Frequency string

// Recurrence frequencies.
const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether the frequency is a recognized value.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// FrequencyNext advances a date by one recurrence interval. Unknown
// frequencies advance by a month.
func FrequencyNext(from time.Time, f Frequency) time.Time {
	from = DateOnly(from)
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Transaction represents a single income or expense record in the ledger.
// Amount is always non-negative; the sign is derived from Type at read time.
type Transaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Type        TransactionType `json:"transaction_type"`
	Date        time.Time       `json:"date"`
	Account     string          `json:"account"`
	Tags        []string        `json:"tags"`

	Location    string `json:"location,omitempty"`
	ReceiptPath string `json:"receipt_path,omitempty"`
	Notes       string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	IsRecurring         bool       `json:"is_recurring"`
	RecurringFrequency  Frequency  `json:"recurring_frequency,omitempty"`
	RecurringEndDate    *time.Time `json:"recurring_end_date,omitempty"`
	ParentTransactionID string     `json:"parent_transaction_id,omitempty"`

	Subcategory   string `json:"subcategory,omitempty"`
	Merchant      string `json:"merchant,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`

	IsEssential     bool    `json:"is_essential"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// TransactionConfig holds all inputs for constructing a Transaction.
// Zero-valued optional fields take their documented defaults; pointer fields
// exist where the zero value is a meaningful input.
type TransactionConfig struct {
	ID          string
	Amount      decimal.Decimal
	Category    string
	Description string
	Type        TransactionType
	Date        time.Time // defaults to today
	Account     string    // defaults to "default"
	Tags        []string

	Location    string
	ReceiptPath string
	Notes       string

	IsRecurring         bool
	RecurringFrequency  Frequency
	RecurringEndDate    *time.Time
	ParentTransactionID string

	Subcategory   string
	Merchant      string
	PaymentMethod string

	IsEssential     *bool    // defaults to true
	ConfidenceScore *float64 // defaults to 1.0, must be within [0, 1]

	CreatedAt time.Time // defaults to now; set when rehydrating persisted records
	UpdatedAt time.Time
}

// NewTransaction validates the config and builds a normalized Transaction.
// A negative amount is normalized to its absolute value and the category is
// title-cased; everything else that is invalid is rejected.
func NewTransaction(cfg TransactionConfig) (*Transaction, error) {
	if !cfg.Type.Valid() {
		return nil, common.NewValidationError("unknown transaction type %q", cfg.Type)
	}
	if cfg.IsRecurring && !cfg.RecurringFrequency.Valid() {
		return nil, common.NewValidationError("unknown recurring frequency %q", cfg.RecurringFrequency)
	}

	confidence := 1.0
	if cfg.ConfidenceScore != nil {
		confidence = *cfg.ConfidenceScore
	}
	if confidence < 0 || confidence > 1 {
		return nil, common.NewValidationError("confidence score %v outside [0, 1]", confidence)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	account := cfg.Account
	if account == "" {
		account = "default"
	}

	date := cfg.Date
	if date.IsZero() {
		date = Today()
	} else {
		date = DateOnly(date)
	}

	essential := true
	if cfg.IsEssential != nil {
		essential = *cfg.IsEssential
	}

	now := time.Now().UTC()
	createdAt := cfg.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := cfg.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	return &Transaction{
		ID:                  id,
		Amount:              cfg.Amount.Abs(),
		Category:            NormalizeCategory(cfg.Category),
		Description:         cfg.Description,
		Type:                cfg.Type,
		Date:                date,
		Account:             account,
		Tags:                dedupeTags(cfg.Tags),
		Location:            cfg.Location,
		ReceiptPath:         cfg.ReceiptPath,
		Notes:               cfg.Notes,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
		IsRecurring:         cfg.IsRecurring,
		RecurringFrequency:  cfg.RecurringFrequency,
		RecurringEndDate:    cfg.RecurringEndDate,
		ParentTransactionID: cfg.ParentTransactionID,
		Subcategory:         cfg.Subcategory,
		Merchant:            cfg.Merchant,
		PaymentMethod:       cfg.PaymentMethod,
		IsEssential:         essential,
		ConfidenceScore:     confidence,
	}, nil
}

// SignedAmount returns the amount with sign applied according to type:
// positive for income, negative for expense.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

// AddTag appends a tag if not already present.
func (t *Transaction) AddTag(tag string) {
	for _, existing := range t.Tags {
		if existing == tag {
			return
		}
	}
	t.Tags = append(t.Tags, tag)
	t.UpdatedAt = time.Now().UTC()
}

// RemoveTag removes a tag if present.
func (t *Transaction) RemoveTag(tag string) {
	for i, existing := range t.Tags {
		if existing == tag {
			t.Tags = append(t.Tags[:i], t.Tags[i+1:]...)
			t.UpdatedAt = time.Now().UTC()
			return
		}
	}
}

// TransactionUpdate carries partial field changes. Nil pointers leave the
// corresponding field untouched.
type TransactionUpdate struct {
	Amount        *decimal.Decimal
	Category      *string
	Description   *string
	Type          *TransactionType
	Date          *time.Time
	Account       *string
	Tags          *[]string
	Location      *string
	Notes         *string
	Subcategory   *string
	Merchant      *string
	PaymentMethod *string
	IsEssential   *bool
}

// Apply merges the update into the transaction, preserving CreatedAt and
// refreshing UpdatedAt. Amount and category go through the same
// normalization as construction.
func (t *Transaction) Apply(u TransactionUpdate) error {
	if u.Type != nil {
		if !u.Type.Valid() {
			return common.NewValidationError("unknown transaction type %q", *u.Type)
		}
		t.Type = *u.Type
	}
	if u.Amount != nil {
		t.Amount = u.Amount.Abs()
	}
	if u.Category != nil {
		t.Category = NormalizeCategory(*u.Category)
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Date != nil {
		t.Date = DateOnly(*u.Date)
	}
	if u.Account != nil {
		t.Account = *u.Account
	}
	if u.Tags != nil {
		t.Tags = dedupeTags(*u.Tags)
	}
	if u.Location != nil {
		t.Location = *u.Location
	}
	if u.Notes != nil {
		t.Notes = *u.Notes
	}
	if u.Subcategory != nil {
		t.Subcategory = *u.Subcategory
	}
	if u.Merchant != nil {
		t.Merchant = *u.Merchant
	}
	if u.PaymentMethod != nil {
		t.PaymentMethod = *u.PaymentMethod
	}
	if u.IsEssential != nil {
		t.IsEssential = *u.IsEssential
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *Transaction) String() string {
	sign := "-"
	if t.Type == TypeIncome {
		sign = "+"
	}
	return fmt.Sprintf("%s | %s$%s | %s | %s",
		t.Date.Format("2006-01-02"), sign, t.Amount.StringFixed(2), t.Category, t.Description)
}

// NormalizeCategory title-cases a category name so "food" and "Food"
// collapse to the same bucket.
func NormalizeCategory(category string) string {
	words := strings.Fields(strings.TrimSpace(category))
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in UTC.
func Today() time.Time {
	return DateOnly(time.Now().UTC())
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
