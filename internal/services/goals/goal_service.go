package goals

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"github.com/primabonus/backend/internal/services/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrPeriodEvaluated is returned when a goal period already has an
// evaluation; periods are evaluated exactly once.
var ErrPeriodEvaluated = errors.New("goal period already evaluated")

// avgDaysPerMonth converts a goal's day span into months for the
// lifetime points cap.
const avgDaysPerMonth = 30.44

// GoalService evaluates contract goals: it decomposes each goal into
// milestone periods, measures net turnover against prorated targets and
// awards extra points under the goal's lifetime cap.
type GoalService struct {
	db               *gorm.DB
	ledger           *ledger.LedgerService
	monthlyCapPoints int
}

// NewGoalService creates a new goal service. monthlyCapPoints anchors
// the lifetime cap per month of goal length (1667 gives 20,000 points
// for a 12-month goal).
func NewGoalService(db *gorm.DB, monthlyCapPoints int) *GoalService {
	return &GoalService{
		db:               db,
		ledger:           ledger.NewLedgerService(db),
		monthlyCapPoints: monthlyCapPoints,
	}
}

// LifetimeCap is the not-to-exceed total of bonus points one goal may
// ever award across all its evaluations.
func (s *GoalService) LifetimeCap(goal *models.UserContractGoal) int {
	days := daysInclusive(goal.PeriodFrom, goal.PeriodTo)
	return int(math.Floor(float64(days) / avgDaysPerMonth * float64(s.monthlyCapPoints)))
}

// SweepResult summarizes one evaluation run
type SweepResult struct {
	Evaluated int
	Skipped   int
	Awarded   int
}

// EvaluateDueGoals evaluates every eligible, not-yet-evaluated period of
// every goal as of today. Already-evaluated periods are reported as
// skipped, never retried.
func (s *GoalService) EvaluateDueGoals(today time.Time) (*SweepResult, error) {
	var goals []models.UserContractGoal
	if err := s.db.Preload("Brands").Preload("Contract").
		Where("period_from <= ?", models.DateOf(today)).
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("error loading goals: %w", err)
	}

	total := &SweepResult{}
	for i := range goals {
		res, err := s.EvaluateGoal(&goals[i], today)
		if err != nil {
			log.Printf("Error evaluating goal %s: %v", goals[i].ID, err)
			continue
		}
		total.Evaluated += res.Evaluated
		total.Skipped += res.Skipped
		total.Awarded += res.Awarded
	}
	return total, nil
}

// EvaluateGoal evaluates all of one goal's periods that have ended
// before today and have no evaluation yet. Each period is one DB
// transaction: the evaluation row, the award clip and the resulting
// ledger entry commit together.
func (s *GoalService) EvaluateGoal(goal *models.UserContractGoal, today time.Time) (*SweepResult, error) {
	if len(goal.Brands) == 0 {
		if err := s.db.Preload("Brands").Preload("Contract").First(goal, "id = ?", goal.ID).Error; err != nil {
			return nil, fmt.Errorf("error loading goal: %w", err)
		}
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", goal.Contract.UserID).Error; err != nil {
		return nil, fmt.Errorf("error loading goal user: %w", err)
	}

	day := models.DateOf(today)
	result := &SweepResult{}

	for _, period := range BuildPeriods(goal) {
		if !period.End.Before(day) {
			continue // future periods are not eligible
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			awarded, err := s.evaluatePeriod(tx, goal, &user, period, day)
			if err != nil {
				return err
			}
			result.Evaluated++
			result.Awarded += awarded
			return nil
		})
		if errors.Is(err, ErrPeriodEvaluated) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

func (s *GoalService) evaluatePeriod(tx *gorm.DB, goal *models.UserContractGoal, user *models.User, period Period, today time.Time) (int, error) {
	var existing int64
	err := tx.Model(&models.GoalEvaluation{}).
		Where("goal_id = ? AND period_start = ? AND period_end = ?",
			goal.ID, period.Start, period.End).
		Count(&existing).Error
	if err != nil {
		return 0, fmt.Errorf("checking existing evaluation: %w", err)
	}
	if existing > 0 {
		return 0, ErrPeriodEvaluated
	}

	targets := PeriodTargets(goal, period)

	end := period.End
	if end.After(today) {
		end = today
	}
	actual, err := s.netTurnover(tx, user.UserNumber, goal, period.Start, end)
	if err != nil {
		return 0, err
	}

	priorAwards, err := s.awardedSoFar(tx, goal.ID)
	if err != nil {
		return 0, err
	}
	capRemaining := s.LifetimeCap(goal) - priorAwards
	if capRemaining < 0 {
		capRemaining = 0
	}

	kind := models.EvaluationMilestone
	achieved := actual.GreaterThanOrEqual(targets.GoalValue)
	points := 0

	switch {
	case !period.Final:
		if achieved {
			points = floorPoints(targets.GoalValue.Sub(targets.GoalBase), goal.BonusPercentage)
		}

	case !goal.RecoveryEnabled:
		kind = models.EvaluationFinal
		if achieved {
			points = floorPoints(actual.Sub(targets.GoalBase), goal.BonusPercentage)
		}

	default:
		kind = models.EvaluationFinal
		periodPoints := 0
		if achieved {
			periodPoints = floorPoints(actual.Sub(targets.GoalBase), goal.BonusPercentage)
		}

		recoveryPoints, fullAchieved, err := s.recoveryPoints(tx, user.UserNumber, goal, priorAwards)
		if err != nil {
			return 0, err
		}
		if fullAchieved && recoveryPoints > periodPoints {
			kind = models.EvaluationRecovery
			points = recoveryPoints
			achieved = true
		} else {
			points = periodPoints
		}
	}

	if points < 0 {
		points = 0
	}
	if points > capRemaining {
		points = capRemaining
	}

	evaluation := models.GoalEvaluation{
		GoalID:         goal.ID,
		PeriodStart:    period.Start,
		PeriodEnd:      period.End,
		Kind:           kind,
		ActualTurnover: actual,
		TargetTurnover: targets.GoalValue,
		BaseTurnover:   targets.GoalBase,
		Achieved:       achieved,
		AwardedPoints:  points,
	}

	if points > 0 {
		transaction, err := s.ledger.CreateWithTx(tx, ledger.CreateParams{
			UserID:      user.ID,
			Value:       points,
			Date:        period.End,
			Description: fmt.Sprintf("Extra goal bonus %s - %s", period.Start.Format("2006-01-02"), period.End.Format("2006-01-02")),
			Type:        models.TransactionExtraPoints,
			Status:      models.StatusConfirmed,
		})
		if err != nil {
			return 0, err
		}
		evaluation.TransactionID = &transaction.ID
	}

	if err := tx.Create(&evaluation).Error; err != nil {
		return 0, fmt.Errorf("creating goal evaluation: %w", err)
	}

	log.Printf("Evaluated goal %s period %s..%s: kind=%s achieved=%v points=%d",
		goal.ID, period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"), kind, achieved, points)
	return points, nil
}

// recoveryPoints computes the year-end catch-up award: if the full goal
// span met the full goal value, the whole-span bonus minus everything
// already paid out in milestones. Clients who hit every milestone get
// nothing extra; clients who caught up late get the difference.
func (s *GoalService) recoveryPoints(tx *gorm.DB, userNumber string, goal *models.UserContractGoal, priorAwards int) (int, bool, error) {
	fullActual, err := s.netTurnover(tx, userNumber, goal, goal.PeriodFrom, goal.PeriodTo)
	if err != nil {
		return 0, false, err
	}
	if fullActual.LessThan(goal.GoalValue) {
		return 0, false, nil
	}

	totalPoints := floorPoints(fullActual.Sub(goal.GoalBase), goal.BonusPercentage)
	if lifetimeCap := s.LifetimeCap(goal); totalPoints > lifetimeCap {
		totalPoints = lifetimeCap
	}

	recovery := totalPoints - priorAwards
	if recovery < 0 {
		recovery = 0
	}
	return recovery, true, nil
}

// netTurnover is actual business done in the goal's brands over a date
// range: invoice turnover minus credit-note turnover.
func (s *GoalService) netTurnover(tx *gorm.DB, userNumber string, goal *models.UserContractGoal, from, to time.Time) (decimal.Decimal, error) {
	brandIDs := make([]uuid.UUID, 0, len(goal.Brands))
	for _, b := range goal.Brands {
		brandIDs = append(brandIDs, b.ID)
	}
	if len(brandIDs) == 0 {
		return decimal.Zero, nil
	}

	invoiced, err := s.turnoverSum(tx, userNumber, brandIDs, models.InvoiceTypeInvoice, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	credited, err := s.turnoverSum(tx, userNumber, brandIDs, models.InvoiceTypeCreditNote, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return invoiced.Sub(credited), nil
}

func (s *GoalService) turnoverSum(tx *gorm.DB, userNumber string, brandIDs []uuid.UUID, invoiceType models.InvoiceType, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.Model(&models.InvoiceBrandTurnover{}).
		Joins("JOIN invoices ON invoices.id = invoice_brand_turnovers.invoice_id").
		Where("invoices.client_number = ?", userNumber).
		Where("invoices.invoice_type = ?", invoiceType).
		Where("invoices.invoice_date >= ? AND invoices.invoice_date <= ?",
			models.DateOf(from), models.DateOf(to)).
		Where("invoice_brand_turnovers.brand_id IN ?", brandIDs).
		Select("SUM(invoice_brand_turnovers.amount)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing turnover: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// awardedSoFar sums points already awarded by this goal's evaluations
func (s *GoalService) awardedSoFar(tx *gorm.DB, goalID uuid.UUID) (int, error) {
	var total int64
	err := tx.Model(&models.GoalEvaluation{}).
		Where("goal_id = ?", goalID).
		Select("COALESCE(SUM(awarded_points), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("summing prior awards: %w", err)
	}
	return int(total), nil
}

// floorPoints applies the bonus percentage to a turnover figure and
// truncates to whole points.
func floorPoints(turnover decimal.Decimal, percentage float64) int {
	if turnover.IsNegative() {
		return 0
	}
	return int(turnover.Mul(decimal.NewFromFloat(percentage)).IntPart())
}
