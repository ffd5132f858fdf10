// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/shopspring/decimal"
)

// Sort fields accepted by ListTransactions. Anything else falls back to
// SortByDate.
const (
	SortByDate      = "date"
	SortByAmount    = "amount"
	SortByCategory  = "category"
	SortByCreatedAt = "created_at"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// TransactionFilter defines filtering options for ledger queries. All set
// filters are combined with AND; within Tags, a transaction matches when it
// carries ANY of the requested tags.
type TransactionFilter struct {
	Type        model.TransactionType
	Category    string
	Account     string
	StartDate   *time.Time
	EndDate     *time.Time
	MinAmount   *decimal.Decimal
	MaxAmount   *decimal.Decimal
	Tags        []string
	Merchant    string
	IsEssential *bool

	SortBy string
	Order  string
	Limit  int
	Offset int
}

// SummaryStats aggregates the ledger over a date range.
type SummaryStats struct {
	TotalIncome    decimal.Decimal
	TotalExpenses  decimal.Decimal
	IncomeCount    int
	ExpenseCount   int
	TotalCount     int
	AverageIncome  decimal.Decimal
	AverageExpense decimal.Decimal
	MinIncome      decimal.Decimal
	MaxIncome      decimal.Decimal
	MinExpense     decimal.Decimal
	MaxExpense     decimal.Decimal
	NetBalance     decimal.Decimal
	SavingsRate    float64 // zero when there is no income
}

// CategoryTotal is one row of a category breakdown, ordered by total
// descending.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// MonthlyTrend aggregates one calendar month of ledger activity.
type MonthlyTrend struct {
	Month        string // YYYY-MM
	Income       decimal.Decimal
	Expenses     decimal.Decimal
	NetBalance   decimal.Decimal
	IncomeCount  int
	ExpenseCount int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Ledger operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	SearchTransactions(ctx context.Context, text string, limit int) ([]model.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, update model.TransactionUpdate) (bool, error)
	DeleteTransaction(ctx context.Context, id string) (bool, error)

	// Ledger aggregation
	SummaryStats(ctx context.Context, start, end *time.Time, account string) (*SummaryStats, error)
	CategoryBreakdown(ctx context.Context, txnType model.TransactionType, start, end *time.Time) ([]CategoryTotal, error)
	MonthlyTrends(ctx context.Context, months int) ([]MonthlyTrend, error)

	// Budget operations
	SaveBudget(ctx context.Context, budget *model.Budget) error
	GetBudget(ctx context.Context, id string) (*model.Budget, error)
	GetBudgets(ctx context.Context, activeOnly bool) ([]model.Budget, error)
	UpdateBudget(ctx context.Context, budget *model.Budget) error
	DeleteBudget(ctx context.Context, id string) (bool, error)

	// Goal operations
	SaveGoal(ctx context.Context, goal *model.Goal) error
	GetGoal(ctx context.Context, id string) (*model.Goal, error)
	GetGoals(ctx context.Context, activeOnly bool) ([]model.Goal, error)
	UpdateGoal(ctx context.Context, goal *model.Goal) error
	DeleteGoal(ctx context.Context, id string) (bool, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction is a write batch: bulk imports use it so a partial file never
// leaves half its records behind.
type Transaction interface {
	Commit() error
	Rollback() error
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	SaveBudget(ctx context.Context, budget *model.Budget) error
	SaveGoal(ctx context.Context, goal *model.Goal) error
}
