package goals

import (
	"fmt"
	"testing"
	"time"

	"github.com/primabonus/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{}, &models.Brand{},
		&models.UserContract{}, &models.UserContractGoal{}, &models.GoalEvaluation{},
		&models.FileUpload{}, &models.Invoice{}, &models.InvoiceBrandTurnover{},
		&models.PointsTransaction{},
	)
	require.NoError(t, err)

	return db
}

type goalFixture struct {
	db     *gorm.DB
	user   models.User
	brand  models.Brand
	goal   models.UserContractGoal
	upload models.FileUpload
	seq    int
}

func setupGoal(t *testing.T, db *gorm.DB, mutate func(*models.UserContractGoal)) *goalFixture {
	user := models.User{Username: "client1", Email: "c1@example.com", UserNumber: "10001"}
	require.NoError(t, db.Create(&user).Error)

	brand := models.Brand{Name: "Aurora", Prefix: "AU"}
	require.NoError(t, db.Create(&brand).Error)

	contract := models.UserContract{
		UserID:   user.ID,
		DateFrom: models.Date(2025, 1, 1),
		DateTo:   models.Date(2025, 12, 31),
		IsActive: true,
	}
	require.NoError(t, db.Create(&contract).Error)

	goal := models.UserContractGoal{
		ContractID:      contract.ID,
		PeriodFrom:      models.Date(2025, 1, 1),
		PeriodTo:        models.Date(2025, 12, 31),
		GoalValue:       decimal.NewFromInt(100000),
		GoalBase:        decimal.Zero,
		BonusPercentage: 0.05,
		MilestoneMonths: 3,
		Brands:          []models.Brand{brand},
	}
	if mutate != nil {
		mutate(&goal)
	}
	require.NoError(t, db.Create(&goal).Error)

	upload := models.FileUpload{FileName: "invoices.csv", Status: models.UploadCompleted}
	require.NoError(t, db.Create(&upload).Error)

	return &goalFixture{db: db, user: user, brand: brand, goal: goal, upload: upload}
}

func (f *goalFixture) seedTurnover(t *testing.T, date time.Time, amount int64) {
	f.seq++
	invoice := models.Invoice{
		InvoiceNumber: fmt.Sprintf("F%04d", f.seq),
		InvoiceType:   models.InvoiceTypeInvoice,
		ClientNumber:  f.user.UserNumber,
		InvoiceDate:   date,
		TotalAmount:   decimal.NewFromInt(amount),
		FileUploadID:  f.upload.ID,
	}
	require.NoError(t, f.db.Create(&invoice).Error)

	turnover := models.InvoiceBrandTurnover{
		InvoiceID: invoice.ID,
		BrandID:   f.brand.ID,
		Amount:    decimal.NewFromInt(amount),
	}
	require.NoError(t, f.db.Create(&turnover).Error)
}

func (f *goalFixture) reload(t *testing.T) *models.UserContractGoal {
	var goal models.UserContractGoal
	require.NoError(t, f.db.Preload("Brands").Preload("Contract").
		First(&goal, "id = ?", f.goal.ID).Error)
	return &goal
}

func TestEvaluateGoalMilestoneAward(t *testing.T) {
	db := setupTestDB(t)
	f := setupGoal(t, db, nil)
	svc := NewGoalService(db, 1667)

	// Q1 target is 24657; 30000 clears it
	f.seedTurnover(t, models.Date(2025, 2, 15), 30000)

	result, err := svc.EvaluateGoal(f.reload(t), models.Date(2025, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Evaluated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1232, result.Awarded)

	var evaluation models.GoalEvaluation
	require.NoError(t, db.First(&evaluation, "goal_id = ?", f.goal.ID).Error)
	assert.Equal(t, models.EvaluationMilestone, evaluation.Kind)
	assert.True(t, evaluation.Achieved)
	assert.Equal(t, 1232, evaluation.AwardedPoints)
	require.NotNil(t, evaluation.TransactionID)

	var tx models.PointsTransaction
	require.NoError(t, db.First(&tx, "id = ?", evaluation.TransactionID).Error)
	assert.Equal(t, 1232, tx.Value)
	assert.Equal(t, models.TransactionExtraPoints, tx.Type)
	assert.Equal(t, models.StatusConfirmed, tx.Status)
	assert.Equal(t, f.user.ID, tx.UserID)
}

func TestEvaluateGoalPeriodOnlyOnce(t *testing.T) {
	db := setupTestDB(t)
	f := setupGoal(t, db, nil)
	svc := NewGoalService(db, 1667)

	f.seedTurnover(t, models.Date(2025, 2, 15), 30000)

	_, err := svc.EvaluateGoal(f.reload(t), models.Date(2025, 4, 2))
	require.NoError(t, err)

	result, err := svc.EvaluateGoal(f.reload(t), models.Date(2025, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Evaluated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Awarded)

	var txCount int64
	require.NoError(t, db.Model(&models.PointsTransaction{}).Count(&txCount).Error)
	assert.EqualValues(t, 1, txCount)
}

func TestEvaluateGoalMissedMilestone(t *testing.T) {
	db := setupTestDB(t)
	f := setupGoal(t, db, nil)
	svc := NewGoalService(db, 1667)

	f.seedTurnover(t, models.Date(2025, 2, 15), 5000)

	result, err := svc.EvaluateGoal(f.reload(t), models.Date(2025, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Evaluated)
	assert.Equal(t, 0, result.Awarded)

	var evaluation models.GoalEvaluation
	require.NoError(t, db.First(&evaluation, "goal_id = ?", f.goal.ID).Error)
	assert.False(t, evaluation.Achieved)
	assert.Equal(t, 0, evaluation.AwardedPoints)
	assert.Nil(t, evaluation.TransactionID)

	var txCount int64
	require.NoError(t, db.Model(&models.PointsTransaction{}).Count(&txCount).Error)
	assert.EqualValues(t, 0, txCount)
}

func TestEvaluateGoalSkipsFuturePeriods(t *testing.T) {
	db := setupTestDB(t)
	f := setupGoal(t, db, nil)
	svc := NewGoalService(db, 1667)

	result, err := svc.EvaluateGoal(f.reload(t), models.Date(2025, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Evaluated)
	assert.Equal(t, 0, result.Skipped)
}

func TestEvaluateGoalRecoveryCatchesUp(t *testing.T) {
	db := setupTestDB(t)
	f := setupGoal(t, db, func(goal *models.UserContractGoal) {
		goal.PeriodTo = models.Date(2025, 6, 30)
		goal.GoalValue = decimal.NewFromInt(10000)
		goal.BonusPercentage = 0.10
		goal.RecoveryEnabled = true
	})
	svc := NewGoalService(db, 1667)

	// Q1 misses its 4972 target, then the client catches up in Q2
	f.seedTurnover(t, models.Date(2025, 2, 15), 2000)
	f.seedTurnover(t, models.Date(2025, 5, 10), 9000)

	result, err := svc.EvaluateGoal(f.reload(t), models.Date(2025, 7, 5))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 1100, result.Awarded)

	var evaluations []models.GoalEvaluation
	require.NoError(t, db.Order("period_start ASC").Find(&evaluations, "goal_id = ?", f.goal.ID).Error)
	require.Len(t, evaluations, 2)

	assert.Equal(t, models.EvaluationMilestone, evaluations[0].Kind)
	assert.False(t, evaluations[0].Achieved)
	assert.Equal(t, 0, evaluations[0].AwardedPoints)

	// Full-span turnover of 11000 beats the goal, so the final period
	// pays the whole-span bonus instead of its own 900.
	assert.Equal(t, models.EvaluationRecovery, evaluations[1].Kind)
	assert.True(t, evaluations[1].Achieved)
	assert.Equal(t, 1100, evaluations[1].AwardedPoints)
}

func TestEvaluateGoalZeroCadencePersistsAsSingleFinalPeriod(t *testing.T) {
	db := setupTestDB(t)
	f := setupGoal(t, db, func(goal *models.UserContractGoal) {
		goal.MilestoneMonths = 0
	})
	svc := NewGoalService(db, 1667)

	// The cadence of 0 must survive the insert: a year-long goal
	// evaluated after its end is one FINAL period, not four quarters.
	goal := f.reload(t)
	require.Equal(t, 0, goal.MilestoneMonths)

	f.seedTurnover(t, models.Date(2025, 6, 15), 120000)

	result, err := svc.EvaluateGoal(goal, models.Date(2026, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Evaluated)

	var evaluations []models.GoalEvaluation
	require.NoError(t, db.Find(&evaluations, "goal_id = ?", f.goal.ID).Error)
	require.Len(t, evaluations, 1)
	assert.Equal(t, models.EvaluationFinal, evaluations[0].Kind)
	assert.True(t, evaluations[0].PeriodStart.Equal(models.Date(2025, 1, 1)))
	assert.True(t, evaluations[0].PeriodEnd.Equal(models.Date(2025, 12, 31)))
}

func TestEvaluateGoalLifetimeCapClipsAward(t *testing.T) {
	db := setupTestDB(t)
	f := setupGoal(t, db, func(goal *models.UserContractGoal) {
		goal.PeriodTo = models.Date(2025, 1, 31)
		goal.GoalValue = decimal.NewFromInt(1000)
		goal.BonusPercentage = 1.0
		goal.MilestoneMonths = 0
	})
	svc := NewGoalService(db, 1667)

	f.seedTurnover(t, models.Date(2025, 1, 15), 5000)

	result, err := svc.EvaluateGoal(f.reload(t), models.Date(2025, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Evaluated)

	// 5000 raw points, clipped to the 31-day cap of 1697
	assert.Equal(t, 1697, result.Awarded)

	var evaluation models.GoalEvaluation
	require.NoError(t, db.First(&evaluation, "goal_id = ?", f.goal.ID).Error)
	assert.Equal(t, models.EvaluationFinal, evaluation.Kind)
	assert.Equal(t, 1697, evaluation.AwardedPoints)
}

func TestEvaluateDueGoalsSweepsAllGoals(t *testing.T) {
	db := setupTestDB(t)
	f := setupGoal(t, db, nil)
	svc := NewGoalService(db, 1667)

	f.seedTurnover(t, models.Date(2025, 2, 15), 30000)

	result, err := svc.EvaluateDueGoals(models.Date(2025, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Evaluated)
	assert.Equal(t, 1232, result.Awarded)

	// A second sweep is a no-op
	result, err = svc.EvaluateDueGoals(models.Date(2025, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Evaluated)
	assert.Equal(t, 1, result.Skipped)
}
