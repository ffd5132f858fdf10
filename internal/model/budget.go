package model

import (
	"fmt"
	"time"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Period is a budget's recurring cycle between resets.
type Period string

// Budget periods.
const (
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// Valid reports whether the period is a recognized value.
func (p Period) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// PeriodEnd advances a start date by exactly one period. Monthly and yearly
// use calendar arithmetic; weekly is a fixed 7 days and quarterly a fixed
// 90 days, keeping the reset dates users already see.
func PeriodEnd(start time.Time, period Period) time.Time {
	start = DateOnly(start)
	switch period {
	case PeriodWeekly:
		return start.AddDate(0, 0, 7)
	case PeriodMonthly:
		return start.AddDate(0, 1, 0)
	case PeriodQuarterly:
		return start.AddDate(0, 0, 90)
	case PeriodYearly:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// Budget tracks spending against a per-category cap over a recurring period.
type Budget struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Period    Period          `json:"period"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`

	AlertThreshold float64    `json:"alert_threshold"`
	AlertEnabled   bool       `json:"alert_enabled"`
	LastAlertSent  *time.Time `json:"last_alert_sent,omitempty"`

	CurrentSpent  decimal.Decimal `json:"current_spent"`
	LastResetDate time.Time       `json:"last_reset_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`

	RolloverUnused bool     `json:"rollover_unused"`
	AutoAdjust     bool     `json:"auto_adjust"`
	Tags           []string `json:"tags"`
	Notes          string   `json:"notes,omitempty"`
}

// BudgetConfig holds all inputs for constructing a Budget.
type BudgetConfig struct {
	ID             string
	Name           string
	Category       string
	Amount         decimal.Decimal
	Period         Period    // defaults to monthly
	StartDate      time.Time // defaults to today
	EndDate        time.Time // derived from StartDate + Period when zero
	AlertThreshold float64   // percentage, defaults to 80
	AlertEnabled   *bool     // defaults to true
	RolloverUnused bool
	AutoAdjust     bool
	Tags           []string
	Notes          string

	CurrentSpent  decimal.Decimal
	LastResetDate time.Time
	LastAlertSent *time.Time
	IsActive      *bool // defaults to true
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewBudget validates the config and builds a Budget with its end date
// derived from the period when not supplied.
func NewBudget(cfg BudgetConfig) (*Budget, error) {
	if !cfg.Amount.IsPositive() {
		return nil, common.NewValidationError("budget amount must be positive, got %s", cfg.Amount)
	}
	period := cfg.Period
	if period == "" {
		period = PeriodMonthly
	}
	if !period.Valid() {
		return nil, common.NewValidationError("unknown budget period %q", period)
	}
	if cfg.AlertThreshold < 0 || cfg.AlertThreshold > 100 {
		return nil, common.NewValidationError("alert threshold %v outside [0, 100]", cfg.AlertThreshold)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	start := cfg.StartDate
	if start.IsZero() {
		start = Today()
	} else {
		start = DateOnly(start)
	}

	end := cfg.EndDate
	if end.IsZero() {
		end = PeriodEnd(start, period)
	} else {
		end = DateOnly(end)
	}

	threshold := cfg.AlertThreshold
	if threshold == 0 {
		threshold = 80.0
	}

	alertEnabled := true
	if cfg.AlertEnabled != nil {
		alertEnabled = *cfg.AlertEnabled
	}
	active := true
	if cfg.IsActive != nil {
		active = *cfg.IsActive
	}

	lastReset := cfg.LastResetDate
	if lastReset.IsZero() {
		lastReset = start
	} else {
		lastReset = DateOnly(lastReset)
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

	return &Budget{
		ID:             id,
		Name:           cfg.Name,
		Category:       NormalizeCategory(cfg.Category),
		Amount:         cfg.Amount,
		Period:         period,
		StartDate:      start,
		EndDate:        end,
		AlertThreshold: threshold,
		AlertEnabled:   alertEnabled,
		LastAlertSent:  cfg.LastAlertSent,
		CurrentSpent:   cfg.CurrentSpent,
		LastResetDate:  lastReset,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
		IsActive:       active,
		RolloverUnused: cfg.RolloverUnused,
		AutoAdjust:     cfg.AutoAdjust,
		Tags:           dedupeTags(cfg.Tags),
		Notes:          cfg.Notes,
	}, nil
}

// BudgetUpdate carries optional field changes for a budget; nil fields are
// left untouched.
type BudgetUpdate struct {
	Name           *string
	Category       *string
	Amount         *decimal.Decimal
	AlertThreshold *float64
	AlertEnabled   *bool
	RolloverUnused *bool
	IsActive       *bool
	Notes          *string
}

// Apply merges the update into the budget, preserving CreatedAt and
// refreshing UpdatedAt. The period and its derived dates are fixed at
// creation; a different cadence means a new budget.
func (b *Budget) Apply(u BudgetUpdate) error {
	if u.Amount != nil {
		if !u.Amount.IsPositive() {
			return common.NewValidationError("budget amount must be positive, got %s", u.Amount)
		}
		b.Amount = *u.Amount
	}
	if u.AlertThreshold != nil {
		if *u.AlertThreshold < 0 || *u.AlertThreshold > 100 {
			return common.NewValidationError("alert threshold %v outside [0, 100]", *u.AlertThreshold)
		}
		b.AlertThreshold = *u.AlertThreshold
	}
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Category != nil {
		b.Category = NormalizeCategory(*u.Category)
	}
	if u.AlertEnabled != nil {
		b.AlertEnabled = *u.AlertEnabled
	}
	if u.RolloverUnused != nil {
		b.RolloverUnused = *u.RolloverUnused
	}
	if u.IsActive != nil {
		b.IsActive = *u.IsActive
	}
	if u.Notes != nil {
		b.Notes = *u.Notes
	}
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// RemainingAmount returns the unspent portion of the cap. Negative when over
// budget.
func (b *Budget) RemainingAmount() decimal.Decimal {
	return b.Amount.Sub(b.CurrentSpent)
}

// SpentPercentage returns how much of the cap has been consumed, as a
// percentage. Zero when the cap is zero.
func (b *Budget) SpentPercentage() float64 {
	if b.Amount.IsZero() {
		return 0.0
	}
	pct, _ := b.CurrentSpent.Div(b.Amount).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// IsOverBudget reports whether spending has exceeded the cap.
func (b *Budget) IsOverBudget() bool {
	return b.CurrentSpent.GreaterThan(b.Amount)
}

// AlertThresholdReached reports whether the spent percentage has reached the
// alert threshold.
func (b *Budget) AlertThresholdReached() bool {
	return b.SpentPercentage() >= b.AlertThreshold
}

// DaysRemaining returns whole calendar days left in the period as of the
// given time, clamped to zero.
func (b *Budget) DaysRemaining(asOf time.Time) int {
	days := int(b.EndDate.Sub(DateOnly(asOf)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DailyBudgetRemaining spreads the remaining amount over the remaining days.
// Zero when no days remain.
func (b *Budget) DailyBudgetRemaining(asOf time.Time) decimal.Decimal {
	days := b.DaysRemaining(asOf)
	if days == 0 {
		return decimal.Zero
	}
	return b.RemainingAmount().Div(decimal.NewFromInt(int64(days)))
}

// AddExpense increments the period's spend. The amount must be positive.
func (b *Budget) AddExpense(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return common.NewValidationError("expense amount must be positive, got %s", amount)
	}
	b.CurrentSpent = b.CurrentSpent.Add(amount)
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// ShouldReset reports whether asOf is strictly past the period's end date.
// Callers must check this before ResetPeriod; resetting twice within one
// period double-applies rollover.
func (b *Budget) ShouldReset(asOf time.Time) bool {
	return asOf.After(b.EndDate)
}

// ResetPeriod starts a new period as of the given date: zeroes the spend,
// optionally rolls unused cap into the new amount, re-derives the end date
// and clears the alert marker.
func (b *Budget) ResetPeriod(asOf time.Time) {
	if b.RolloverUnused && b.RemainingAmount().IsPositive() {
		b.Amount = b.Amount.Add(b.RemainingAmount())
	}

	b.CurrentSpent = decimal.Zero
	b.LastResetDate = DateOnly(asOf)
	b.StartDate = b.LastResetDate
	b.EndDate = PeriodEnd(b.StartDate, b.Period)
	b.LastAlertSent = nil
	b.UpdatedAt = time.Now().UTC()
}

// Budget status text values, in priority order.
const (
	BudgetStatusOver    = "OVER BUDGET"
	BudgetStatusWarning = "WARNING"
	BudgetStatusOnTrack = "ON TRACK"
	BudgetStatusGood    = "GOOD"
)

// StatusText derives the headline status: over budget beats the alert
// threshold, which beats the halfway mark.
func (b *Budget) StatusText() string {
	switch {
	case b.IsOverBudget():
		return BudgetStatusOver
	case b.AlertThresholdReached():
		return BudgetStatusWarning
	case b.SpentPercentage() > 50:
		return BudgetStatusOnTrack
	default:
		return BudgetStatusGood
	}
}

// BudgetStatus is a point-in-time snapshot of a budget's derived state.
type BudgetStatus struct {
	Name                  string          `json:"name"`
	Category              string          `json:"category"`
	Amount                decimal.Decimal `json:"amount"`
	Spent                 decimal.Decimal `json:"spent"`
	Remaining             decimal.Decimal `json:"remaining"`
	PercentageSpent       float64         `json:"percentage_spent"`
	IsOverBudget          bool            `json:"is_over_budget"`
	DaysRemaining         int             `json:"days_remaining"`
	DailyBudgetRemaining  decimal.Decimal `json:"daily_budget_remaining"`
	AlertThresholdReached bool            `json:"alert_threshold_reached"`
	StatusText            string          `json:"status"`
}

// Status computes the full derived snapshot as of the given time. It is a
// pure function of the budget's persisted fields.
func (b *Budget) Status(asOf time.Time) BudgetStatus {
	return BudgetStatus{
		Name:                  b.Name,
		Category:              b.Category,
		Amount:                b.Amount,
		Spent:                 b.CurrentSpent,
		Remaining:             b.RemainingAmount(),
		PercentageSpent:       b.SpentPercentage(),
		IsOverBudget:          b.IsOverBudget(),
		DaysRemaining:         b.DaysRemaining(asOf),
		DailyBudgetRemaining:  b.DailyBudgetRemaining(asOf),
		AlertThresholdReached: b.AlertThresholdReached(),
		StatusText:            b.StatusText(),
	}
}

func (b *Budget) String() string {
	return fmt.Sprintf("%s (%s): $%s/%s (%.1f%%)",
		b.Name, b.Category, b.CurrentSpent.StringFixed(2), b.Amount.StringFixed(2), b.SpentPercentage())
}
