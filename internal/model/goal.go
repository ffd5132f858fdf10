package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoalType categorizes what a savings goal is for.
type GoalType string

// Goal types.
const (
	GoalSavings    GoalType = "savings"
	GoalDebtPayoff GoalType = "debt_payoff"
	GoalInvestment GoalType = "investment"
	GoalPurchase   GoalType = "purchase"
)

// Valid reports whether the goal type is a recognized value.
func (g GoalType) Valid() bool {
	switch g {
	case GoalSavings, GoalDebtPayoff, GoalInvestment, GoalPurchase:
		return true
	}
	return false
}

// Priority ranks how urgent a goal is.
type Priority string

// Goal priorities.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether the priority is a recognized value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Milestone is a fixed percentage checkpoint of a goal's target amount.
// Once achieved it never flips back.
type Milestone struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	Percentage   float64         `json:"percentage"`
	Achieved     bool            `json:"achieved"`
	AchievedDate *time.Time      `json:"achieved_date,omitempty"`
	Description  string          `json:"description,omitempty"`
}

// Contribution is one entry in a goal's append-only contribution log.
type Contribution struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Goal tracks progress toward a savings target via explicit contributions.
type Goal struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	TargetDate    time.Time       `json:"target_date"`
	Category      string          `json:"category,omitempty"`

	GoalType GoalType `json:"goal_type"`
	Priority Priority `json:"priority"`

	Milestones    []Milestone    `json:"milestones"`
	Contributions []Contribution `json:"contributions"`

	AutoContribute          bool            `json:"auto_contribute"`
	AutoContributeAmount    decimal.Decimal `json:"auto_contribute_amount"`
	AutoContributeFrequency Frequency       `json:"auto_contribute_frequency,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	IsActive    bool       `json:"is_active"`

	Tags          []string `json:"tags"`
	Notes         string   `json:"notes,omitempty"`
	LinkedAccount string   `json:"linked_account,omitempty"`
}

// GoalConfig holds all inputs for constructing a Goal.
type GoalConfig struct {
	ID           string
	Name         string
	Description  string
	TargetAmount decimal.Decimal
	TargetDate   time.Time
	Category     string
	GoalType     GoalType // defaults to savings
	Priority     Priority // defaults to medium

	Milestones    []Milestone // auto-generated at 25/50/75/100% when empty
	Contributions []Contribution

	AutoContribute          bool
	AutoContributeAmount    decimal.Decimal
	AutoContributeFrequency Frequency

	CurrentAmount decimal.Decimal
	CompletedAt   *time.Time
	IsActive      *bool // defaults to true
	Tags          []string
	Notes         string
	LinkedAccount string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGoal validates the config and builds a Goal. Four default milestones at
// 25/50/75/100% of the target are generated unless milestones are supplied.
func NewGoal(cfg GoalConfig) (*Goal, error) {
	if !cfg.TargetAmount.IsPositive() {
		return nil, common.NewValidationError("goal target amount must be positive, got %s", cfg.TargetAmount)
	}
	if cfg.TargetDate.IsZero() {
		return nil, common.NewValidationError("goal target date is required")
	}

	goalType := cfg.GoalType
	if goalType == "" {
		goalType = GoalSavings
	}
	if !goalType.Valid() {
		return nil, common.NewValidationError("unknown goal type %q", goalType)
	}

	priority := cfg.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, common.NewValidationError("unknown goal priority %q", priority)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	milestones := cfg.Milestones
	if len(milestones) == 0 {
		milestones = defaultMilestones(cfg.TargetAmount)
	}

	active := true
	if cfg.IsActive != nil {
		active = *cfg.IsActive
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

	contributions := cfg.Contributions
	if contributions == nil {
		contributions = []Contribution{}
	}

	return &Goal{
		ID:                      id,
		Name:                    cfg.Name,
		Description:             cfg.Description,
		TargetAmount:            cfg.TargetAmount,
		CurrentAmount:           cfg.CurrentAmount,
		TargetDate:              DateOnly(cfg.TargetDate),
		Category:                cfg.Category,
		GoalType:                goalType,
		Priority:                priority,
		Milestones:              milestones,
		Contributions:           contributions,
		AutoContribute:          cfg.AutoContribute,
		AutoContributeAmount:    cfg.AutoContributeAmount,
		AutoContributeFrequency: cfg.AutoContributeFrequency,
		CreatedAt:               createdAt,
		UpdatedAt:               updatedAt,
		CompletedAt:             cfg.CompletedAt,
		IsActive:                active,
		Tags:                    dedupeTags(cfg.Tags),
		Notes:                   cfg.Notes,
		LinkedAccount:           cfg.LinkedAccount,
	}, nil
}

// GoalUpdate carries optional field changes for a goal; nil fields are left
// untouched. The target amount is fixed at creation because milestone
// thresholds are derived from it.
type GoalUpdate struct {
	Name        *string
	Description *string
	TargetDate  *time.Time
	Category    *string
	Priority    *Priority
	IsActive    *bool
	Notes       *string
}

// Apply merges the update into the goal, preserving CreatedAt and refreshing
// UpdatedAt.
func (g *Goal) Apply(u GoalUpdate) error {
	if u.Priority != nil {
		if !u.Priority.Valid() {
			return common.NewValidationError("unknown goal priority %q", *u.Priority)
		}
		g.Priority = *u.Priority
	}
	if u.TargetDate != nil {
		if u.TargetDate.IsZero() {
			return common.NewValidationError("goal target date is required")
		}
		g.TargetDate = DateOnly(*u.TargetDate)
	}
	if u.Name != nil {
		g.Name = *u.Name
	}
	if u.Description != nil {
		g.Description = *u.Description
	}
	if u.Category != nil {
		g.Category = *u.Category
	}
	if u.IsActive != nil {
		g.IsActive = *u.IsActive
	}
	if u.Notes != nil {
		g.Notes = *u.Notes
	}
	g.UpdatedAt = time.Now().UTC()
	return nil
}

func defaultMilestones(target decimal.Decimal) []Milestone {
	percentages := []int64{25, 50, 75, 100}
	milestones := make([]Milestone, 0, len(percentages))
	for _, pct := range percentages {
		amount := target.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100))
		milestones = append(milestones, Milestone{
			ID:          uuid.NewString(),
			Name:        fmt.Sprintf("%d%% Complete", pct),
			Amount:      amount,
			Percentage:  float64(pct),
			Achieved:    false,
			Description: fmt.Sprintf("Reach %d%% of your goal ($%s)", pct, amount.StringFixed(2)),
		})
	}
	return milestones
}

// RemainingAmount returns how much is still needed, clamped to zero.
func (g *Goal) RemainingAmount() decimal.Decimal {
	remaining := g.TargetAmount.Sub(g.CurrentAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ProgressPercentage returns progress toward the target, clamped to [0, 100].
func (g *Goal) ProgressPercentage() float64 {
	if g.TargetAmount.IsZero() {
		return 0.0
	}
	pct, _ := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
	if pct > 100 {
		return 100.0
	}
	if pct < 0 {
		return 0.0
	}
	return pct
}

// IsCompleted reports whether the target has been reached.
func (g *Goal) IsCompleted() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// DaysRemaining returns whole calendar days until the target date, clamped
// to zero.
func (g *Goal) DaysRemaining(asOf time.Time) int {
	days := int(g.TargetDate.Sub(DateOnly(asOf)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DailySavingsNeeded spreads the remaining amount over the remaining days.
// Zero when no days remain.
func (g *Goal) DailySavingsNeeded(asOf time.Time) decimal.Decimal {
	days := g.DaysRemaining(asOf)
	if days == 0 {
		return decimal.Zero
	}
	return g.RemainingAmount().Div(decimal.NewFromInt(int64(days)))
}

// IsOnTrack compares actual progress against expected linear progress
// between creation and the target date, with a 10% tolerance band. Goals
// without a usable schedule are always on track.
func (g *Goal) IsOnTrack(asOf time.Time) bool {
	if g.TargetDate.IsZero() {
		return true
	}

	totalDays := g.TargetDate.Sub(DateOnly(g.CreatedAt)).Hours() / 24
	if totalDays <= 0 {
		return true
	}
	elapsedDays := DateOnly(asOf).Sub(DateOnly(g.CreatedAt)).Hours() / 24

	expected := elapsedDays / totalDays * 100
	return g.ProgressPercentage() >= expected*0.9
}

// AddContribution appends to the contribution log, advances the current
// amount, sweeps milestones, and stamps completion the first time the
// target is reached. Amounts must be strictly positive; corrections are a
// storage-level edit, not a negative contribution.
func (g *Goal) AddContribution(amount decimal.Decimal, description string, date time.Time) error {
	if !amount.IsPositive() {
		return common.NewValidationError("contribution amount must be positive, got %s", amount)
	}

	now := time.Now().UTC()
	if date.IsZero() {
		date = DateOnly(now)
	} else {
		date = DateOnly(date)
	}
	if description == "" {
		description = fmt.Sprintf("Contribution of $%s", amount.StringFixed(2))
	}

	g.Contributions = append(g.Contributions, Contribution{
		ID:          uuid.NewString(),
		Amount:      amount,
		Description: description,
		Date:        date,
		Timestamp:   now,
	})
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	g.UpdatedAt = now

	g.sweepMilestones(now)

	if g.IsCompleted() && g.CompletedAt == nil {
		completed := now
		g.CompletedAt = &completed
	}

	return nil
}

// sweepMilestones marks newly crossed thresholds achieved, in ascending
// percentage order. Achieved milestones are never un-achieved.
func (g *Goal) sweepMilestones(now time.Time) {
	sort.SliceStable(g.Milestones, func(i, j int) bool {
		return g.Milestones[i].Percentage < g.Milestones[j].Percentage
	})
	for i := range g.Milestones {
		m := &g.Milestones[i]
		if !m.Achieved && g.CurrentAmount.GreaterThanOrEqual(m.Amount) {
			m.Achieved = true
			achievedDate := DateOnly(now)
			m.AchievedDate = &achievedDate
		}
	}
}

// NextMilestone returns the lowest-percentage unachieved milestone, or nil
// when all are achieved.
func (g *Goal) NextMilestone() *Milestone {
	var next *Milestone
	for i := range g.Milestones {
		m := &g.Milestones[i]
		if m.Achieved {
			continue
		}
		if next == nil || m.Percentage < next.Percentage {
			next = m
		}
	}
	return next
}

// AchievedMilestones returns all achieved milestones.
func (g *Goal) AchievedMilestones() []Milestone {
	achieved := make([]Milestone, 0, len(g.Milestones))
	for _, m := range g.Milestones {
		if m.Achieved {
			achieved = append(achieved, m)
		}
	}
	return achieved
}

// ProjectedCompletion estimates when the goal will be reached from the
// recent contribution rate. It needs at least two contributions; the rate
// comes from up to the last ten. Returns ok=false when no projection is
// possible.
func (g *Goal) ProjectedCompletion(asOf time.Time) (time.Time, bool) {
	if len(g.Contributions) < 2 {
		return time.Time{}, false
	}

	recent := g.Contributions
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	total := decimal.Zero
	earliest := recent[0].Timestamp
	latest := recent[0].Timestamp
	for _, c := range recent {
		total = total.Add(c.Amount)
		if c.Timestamp.Before(earliest) {
			earliest = c.Timestamp
		}
		if c.Timestamp.After(latest) {
			latest = c.Timestamp
		}
	}

	spanDays := int64(latest.Sub(earliest).Hours() / 24)
	if spanDays < 1 {
		spanDays = 1
	}

	dailyRate := total.Div(decimal.NewFromInt(spanDays))
	if !dailyRate.IsPositive() {
		return time.Time{}, false
	}

	daysNeeded, _ := g.RemainingAmount().Div(dailyRate).Float64()
	projected := asOf.Add(time.Duration(daysNeeded * 24 * float64(time.Hour)))
	return DateOnly(projected), true
}

// Goal status text values.
const (
	GoalStatusCompleted      = "COMPLETED"
	GoalStatusBehindSchedule = "BEHIND SCHEDULE"
	GoalStatusAlmostThere    = "ALMOST THERE"
	GoalStatusGoodProgress   = "GOOD PROGRESS"
	GoalStatusGettingStarted = "GETTING STARTED"
	GoalStatusJustStarted    = "JUST STARTED"
)

// StatusText derives the headline status as of the given time.
func (g *Goal) StatusText(asOf time.Time) string {
	switch {
	case g.IsCompleted():
		return GoalStatusCompleted
	case !g.IsOnTrack(asOf):
		return GoalStatusBehindSchedule
	case g.ProgressPercentage() > 75:
		return GoalStatusAlmostThere
	case g.ProgressPercentage() > 50:
		return GoalStatusGoodProgress
	case g.ProgressPercentage() > 25:
		return GoalStatusGettingStarted
	default:
		return GoalStatusJustStarted
	}
}

// GoalStatus is a point-in-time snapshot of a goal's derived state.
type GoalStatus struct {
	Name                string          `json:"name"`
	TargetAmount        decimal.Decimal `json:"target_amount"`
	CurrentAmount       decimal.Decimal `json:"current_amount"`
	RemainingAmount     decimal.Decimal `json:"remaining_amount"`
	ProgressPercentage  float64         `json:"progress_percentage"`
	IsCompleted         bool            `json:"is_completed"`
	IsOnTrack           bool            `json:"is_on_track"`
	DaysRemaining       int             `json:"days_remaining"`
	DailySavingsNeeded  decimal.Decimal `json:"daily_savings_needed"`
	NextMilestone       *Milestone      `json:"next_milestone,omitempty"`
	AchievedMilestones  int             `json:"achieved_milestones_count"`
	TotalMilestones     int             `json:"total_milestones"`
	ProjectedCompletion *time.Time      `json:"projected_completion,omitempty"`
	StatusText          string          `json:"status"`
}

// Status computes the full derived snapshot as of the given time. It is a
// pure function of the goal's persisted fields.
func (g *Goal) Status(asOf time.Time) GoalStatus {
	status := GoalStatus{
		Name:               g.Name,
		TargetAmount:       g.TargetAmount,
		CurrentAmount:      g.CurrentAmount,
		RemainingAmount:    g.RemainingAmount(),
		ProgressPercentage: g.ProgressPercentage(),
		IsCompleted:        g.IsCompleted(),
		IsOnTrack:          g.IsOnTrack(asOf),
		DaysRemaining:      g.DaysRemaining(asOf),
		DailySavingsNeeded: g.DailySavingsNeeded(asOf),
		NextMilestone:      g.NextMilestone(),
		AchievedMilestones: len(g.AchievedMilestones()),
		TotalMilestones:    len(g.Milestones),
		StatusText:         g.StatusText(asOf),
	}
	if projected, ok := g.ProjectedCompletion(asOf); ok {
		status.ProjectedCompletion = &projected
	}
	return status
}

func (g *Goal) String() string {
	return fmt.Sprintf("%s: $%s/$%s (%.1f%%)",
		g.Name, g.CurrentAmount.StringFixed(2), g.TargetAmount.StringFixed(2), g.ProgressPercentage())
}
