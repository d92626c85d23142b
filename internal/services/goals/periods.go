package goals

import (
	"time"

	"github.com/primabonus/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Period is one evaluation window of a goal. Exactly one period of a
// goal is final: the one ending on the goal's last day.
type Period struct {
	Start time.Time
	End   time.Time
	Final bool
}

// BuildPeriods decomposes a goal span into its ordered evaluation
// periods by milestone cadence. A cadence of zero months means a single
// final period covering the whole span.
func BuildPeriods(goal *models.UserContractGoal) []Period {
	from := models.DateOf(goal.PeriodFrom)
	to := models.DateOf(goal.PeriodTo)
	if !from.Before(to) {
		return []Period{{Start: from, End: to, Final: true}}
	}
	if goal.MilestoneMonths <= 0 {
		return []Period{{Start: from, End: to, Final: true}}
	}

	var periods []Period
	start := from
	for {
		next := start.AddDate(0, goal.MilestoneMonths, 0)
		end := next.AddDate(0, 0, -1)
		if !end.Before(to) {
			periods = append(periods, Period{Start: start, End: to, Final: true})
			return periods
		}
		periods = append(periods, Period{Start: start, End: end})
		start = next
	}
}

// Targets is the prorated goal figures for one period
type Targets struct {
	GoalValue decimal.Decimal
	GoalBase  decimal.Decimal
}

// PeriodTargets prorates the goal's value and baseline linearly by the
// period's share of the goal span in days, floored to whole units.
func PeriodTargets(goal *models.UserContractGoal, p Period) Targets {
	goalDays := daysInclusive(goal.PeriodFrom, goal.PeriodTo)
	periodDays := daysInclusive(p.Start, p.End)

	share := decimal.NewFromInt(periodDays).Div(decimal.NewFromInt(goalDays))
	return Targets{
		GoalValue: goal.GoalValue.Mul(share).Floor(),
		GoalBase:  goal.GoalBase.Mul(share).Floor(),
	}
}

// daysInclusive counts calendar days in [from, to], both ends included
func daysInclusive(from, to time.Time) int64 {
	return int64(models.DateOf(to).Sub(models.DateOf(from)).Hours()/24) + 1
}
