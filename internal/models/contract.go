package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserContract is a user's agreement for a date range. At most one active
// contract should apply per user per date; the resolver breaks ties by
// the most recent DateFrom.
type UserContract struct {
	Base
	UserID   uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"-"`
	DateFrom time.Time `gorm:"type:date;not null" json:"date_from"`
	DateTo   time.Time `gorm:"type:date;not null" json:"date_to"`
	IsActive bool      `gorm:"index" json:"is_active"`

	BrandBonuses []BrandBonus       `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"brand_bonuses,omitempty"`
	Goals        []UserContractGoal `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"-"`
}

// UserContractGoal is an optional extra goal layered on a contract:
// reach GoalValue of net turnover in the goal brands over the goal period
// and earn BonusPercentage of the turnover above GoalBase as extra
// points, evaluated at MilestoneMonths cadence.
type UserContractGoal struct {
	Base
	ContractID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"contract_id"`
	Contract        UserContract    `gorm:"foreignKey:ContractID" json:"-"`
	PeriodFrom      time.Time       `gorm:"type:date;not null" json:"period_from"`
	PeriodTo        time.Time       `gorm:"type:date;not null" json:"period_to"`
	GoalValue       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"goal_value"`
	GoalBase        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"goal_base"`
	BonusPercentage float64         `gorm:"not null" json:"bonus_percentage"`
	MilestoneMonths int             `json:"milestone_months"`
	RecoveryEnabled bool            `gorm:"default:false" json:"recovery_enabled"`

	Brands      []Brand          `gorm:"many2many:goal_brands" json:"brands,omitempty"`
	Evaluations []GoalEvaluation `gorm:"foreignKey:GoalID;constraint:OnDelete:CASCADE" json:"-"`
}

// EvaluationKind classifies how a goal period was evaluated
type EvaluationKind string

const (
	EvaluationMilestone EvaluationKind = "MILESTONE"
	EvaluationFinal     EvaluationKind = "FINAL"
	EvaluationRecovery  EvaluationKind = "RECOVERY"
)

// GoalEvaluation is the immutable record of one evaluated goal period.
// The (goal, period_start, period_end) triple is unique; a second
// evaluation of the same period is rejected.
type GoalEvaluation struct {
	Base
	GoalID         uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_goal_period,priority:1" json:"goal_id"`
	Goal           UserContractGoal   `gorm:"foreignKey:GoalID" json:"-"`
	PeriodStart    time.Time          `gorm:"type:date;not null;uniqueIndex:idx_goal_period,priority:2" json:"period_start"`
	PeriodEnd      time.Time          `gorm:"type:date;not null;uniqueIndex:idx_goal_period,priority:3" json:"period_end"`
	Kind           EvaluationKind     `gorm:"type:varchar(20);not null" json:"kind"`
	ActualTurnover decimal.Decimal    `gorm:"type:decimal(14,2);not null" json:"actual_turnover"`
	TargetTurnover decimal.Decimal    `gorm:"type:decimal(14,2);not null" json:"target_turnover"`
	BaseTurnover   decimal.Decimal    `gorm:"type:decimal(14,2);not null" json:"base_turnover"`
	Achieved       bool               `gorm:"not null" json:"achieved"`
	AwardedPoints  int                `gorm:"not null" json:"awarded_points"`
	TransactionID  *uuid.UUID         `gorm:"type:uuid" json:"transaction_id,omitempty"`
	Transaction    *PointsTransaction `gorm:"foreignKey:TransactionID" json:"-"`
}
