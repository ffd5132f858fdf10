package goal

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTracker(t *testing.T) (*Tracker, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewTracker(db.Storage, nil), db
}

func createGoal(t *testing.T, tracker *Tracker, target string) *model.Goal {
	t.Helper()
	g, err := tracker.Create(context.Background(), model.GoalConfig{
		Name:         "Emergency Fund",
		TargetAmount: testutil.Amount(t, target),
		TargetDate:   model.Today().AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	return g
}

func TestTrackerCreate(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	g := createGoal(t, tracker, "1000")
	assert.Len(t, g.Milestones, 4)

	got, err := tracker.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Emergency Fund", got.Name)

	_, err = tracker.Create(ctx, model.GoalConfig{
		Name:         "Bad",
		TargetAmount: testutil.Amount(t, "0"),
		TargetDate:   model.Today(),
	})
	require.Error(t, err)
}

func TestTrackerUpdate(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	g := createGoal(t, tracker, "1000")

	name := "Rainy Day Fund"
	priority := model.PriorityHigh
	targetDate := model.Today().AddDate(2, 0, 0)
	updated, err := tracker.Update(ctx, g.ID, model.GoalUpdate{
		Name:       &name,
		Priority:   &priority,
		TargetDate: &targetDate,
	})
	require.NoError(t, err)
	assert.Equal(t, "Rainy Day Fund", updated.Name)
	assert.Equal(t, model.PriorityHigh, updated.Priority)

	got, err := tracker.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rainy Day Fund", got.Name)
	assert.True(t, got.TargetDate.Equal(targetDate))

	t.Run("rejects unknown priority", func(t *testing.T) {
		bad := model.Priority("urgent")
		_, err := tracker.Update(ctx, g.ID, model.GoalUpdate{Priority: &bad})
		require.Error(t, err)
		assert.True(t, common.IsValidation(err))
	})
}

func TestContribute(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	g := createGoal(t, tracker, "1000")

	updated, achieved, err := tracker.Contribute(ctx, g.ID, testutil.Amount(t, "300"), "bonus", time.Time{})
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(testutil.Amount(t, "300")))
	require.Len(t, achieved, 1, "the 25%% milestone is newly achieved")
	assert.InDelta(t, 25.0, achieved[0].Percentage, 0.0001)

	// A second contribution only reports milestones crossed by it.
	updated, achieved, err = tracker.Contribute(ctx, g.ID, testutil.Amount(t, "500"), "", time.Time{})
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(testutil.Amount(t, "800")))
	require.Len(t, achieved, 2)
	assert.InDelta(t, 50.0, achieved[0].Percentage, 0.0001)
	assert.InDelta(t, 75.0, achieved[1].Percentage, 0.0001)

	got, err := tracker.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, got.Contributions, 2, "contribution log persisted")

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, _, err := tracker.Contribute(ctx, g.ID, testutil.Amount(t, "-50"), "", time.Time{})
		require.Error(t, err)
		assert.True(t, common.IsValidation(err))
	})
}

func TestContributeCompletesGoal(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	g := createGoal(t, tracker, "500")
	updated, achieved, err := tracker.Contribute(ctx, g.ID, testutil.Amount(t, "500"), "", time.Time{})
	require.NoError(t, err)

	assert.True(t, updated.IsCompleted())
	assert.NotNil(t, updated.CompletedAt)
	assert.Len(t, achieved, 4)

	got, err := tracker.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.CompletedAt, "completion stamp persisted")
}

func TestProgress(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	g := createGoal(t, tracker, "1000")
	_, _, err := tracker.Contribute(ctx, g.ID, testutil.Amount(t, "600"), "", time.Time{})
	require.NoError(t, err)

	status, err := tracker.Progress(ctx, g.ID)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, status.ProgressPercentage, 0.0001)
	assert.Equal(t, 2, status.AchievedMilestones)
	require.NotNil(t, status.NextMilestone)
	assert.InDelta(t, 75.0, status.NextMilestone.Percentage, 0.0001)

	statuses, err := tracker.ProgressAll(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 1)
}

func TestProcessAutoContributions(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	created := model.Today().AddDate(0, -2, 0)
	due, err := tracker.Create(ctx, model.GoalConfig{
		Name:                    "Auto",
		TargetAmount:            testutil.Amount(t, "10000"),
		TargetDate:              model.Today().AddDate(2, 0, 0),
		AutoContribute:          true,
		AutoContributeAmount:    testutil.Amount(t, "100"),
		AutoContributeFrequency: model.FrequencyMonthly,
		CreatedAt:               created,
	})
	require.NoError(t, err)

	_, err = tracker.Create(ctx, model.GoalConfig{
		Name:         "Manual",
		TargetAmount: testutil.Amount(t, "1000"),
		TargetDate:   model.Today().AddDate(1, 0, 0),
	})
	require.NoError(t, err)

	contributed, err := tracker.ProcessAutoContributions(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, contributed, 1, "only the auto goal with an elapsed interval contributes")
	assert.Equal(t, due.ID, contributed[0].ID)
	assert.True(t, contributed[0].CurrentAmount.Equal(testutil.Amount(t, "100")))

	// Running again immediately is a no-op; the interval has not elapsed.
	contributed, err = tracker.ProcessAutoContributions(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, contributed)
}

func TestTrackerDelete(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	g := createGoal(t, tracker, "100")
	require.NoError(t, tracker.Delete(ctx, g.ID))
	_, err := tracker.Get(ctx, g.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
