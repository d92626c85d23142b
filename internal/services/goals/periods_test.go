package goals

import (
	"testing"

	"github.com/primabonus/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yearGoal() *models.UserContractGoal {
	return &models.UserContractGoal{
		PeriodFrom:      models.Date(2025, 1, 1),
		PeriodTo:        models.Date(2025, 12, 31),
		GoalValue:       decimal.NewFromInt(100000),
		GoalBase:        decimal.NewFromInt(40000),
		BonusPercentage: 0.05,
		MilestoneMonths: 3,
	}
}

func TestBuildPeriodsQuarterlyCadence(t *testing.T) {
	periods := BuildPeriods(yearGoal())
	require.Len(t, periods, 4)

	assert.Equal(t, models.Date(2025, 1, 1), periods[0].Start)
	assert.Equal(t, models.Date(2025, 3, 31), periods[0].End)
	assert.Equal(t, models.Date(2025, 4, 1), periods[1].Start)
	assert.Equal(t, models.Date(2025, 6, 30), periods[1].End)
	assert.Equal(t, models.Date(2025, 10, 1), periods[3].Start)
	assert.Equal(t, models.Date(2025, 12, 31), periods[3].End)

	for i, p := range periods {
		assert.Equal(t, i == len(periods)-1, p.Final, "period %d", i)
	}
}

func TestBuildPeriodsUnevenTail(t *testing.T) {
	goal := yearGoal()
	goal.PeriodTo = models.Date(2025, 5, 15)

	periods := BuildPeriods(goal)
	require.Len(t, periods, 2)
	assert.Equal(t, models.Date(2025, 3, 31), periods[0].End)
	assert.False(t, periods[0].Final)
	assert.Equal(t, models.Date(2025, 4, 1), periods[1].Start)
	assert.Equal(t, models.Date(2025, 5, 15), periods[1].End)
	assert.True(t, periods[1].Final)
}

func TestBuildPeriodsZeroCadence(t *testing.T) {
	goal := yearGoal()
	goal.MilestoneMonths = 0

	periods := BuildPeriods(goal)
	require.Len(t, periods, 1)
	assert.Equal(t, goal.PeriodFrom, periods[0].Start)
	assert.Equal(t, goal.PeriodTo, periods[0].End)
	assert.True(t, periods[0].Final)
}

func TestPeriodTargetsProrateLinearly(t *testing.T) {
	goal := yearGoal()
	periods := BuildPeriods(goal)

	// Q1 is 90 of 365 days
	targets := PeriodTargets(goal, periods[0])
	assert.True(t, targets.GoalValue.Equal(decimal.NewFromInt(24657)),
		"got %s", targets.GoalValue)
	assert.True(t, targets.GoalBase.Equal(decimal.NewFromInt(9863)),
		"got %s", targets.GoalBase)

	// The whole span prorates to the full figures
	full := Period{Start: goal.PeriodFrom, End: goal.PeriodTo, Final: true}
	targets = PeriodTargets(goal, full)
	assert.True(t, targets.GoalValue.Equal(goal.GoalValue))
	assert.True(t, targets.GoalBase.Equal(goal.GoalBase))
}

func TestLifetimeCapScalesWithSpan(t *testing.T) {
	svc := &GoalService{monthlyCapPoints: 1667}

	// 365 days is just under 12 average months
	assert.Equal(t, 19988, svc.LifetimeCap(yearGoal()))

	short := yearGoal()
	short.PeriodTo = models.Date(2025, 1, 31)
	assert.Equal(t, 1697, svc.LifetimeCap(short))
}
