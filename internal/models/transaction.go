package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies ledger entries
type TransactionType string

const (
	TransactionStandardPoints   TransactionType = "STANDARD_POINTS"
	TransactionRewardClaim      TransactionType = "REWARD_CLAIM"
	TransactionCreditNoteAdjust TransactionType = "CREDIT_NOTE_ADJUST"
	TransactionExtraPoints      TransactionType = "EXTRA_POINTS"
	TransactionAdjustment       TransactionType = "ADJUSTMENT"
)

// TransactionStatus is the lifecycle state of a ledger entry. Only
// CONFIRMED entries count toward a balance.
type TransactionStatus string

const (
	StatusNoContract TransactionStatus = "NO_CONTRACT"
	StatusPending    TransactionStatus = "PENDING"
	StatusConfirmed  TransactionStatus = "CONFIRMED"
	StatusCancelled  TransactionStatus = "CANCELLED"
)

// PointsTransaction is the append-only ledger entry. Value is signed
// whole points; a user's balance is the sum of Value over their CONFIRMED
// rows and is never cached anywhere else.
type PointsTransaction struct {
	Base
	UserID          uuid.UUID         `gorm:"type:uuid;index;not null" json:"user_id"`
	User            User              `gorm:"foreignKey:UserID" json:"-"`
	Value           int               `gorm:"not null" json:"value"`
	Date            time.Time         `gorm:"type:date;not null;index" json:"date"`
	Description     string            `gorm:"type:varchar(100)" json:"description"`
	Type            TransactionType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Status          TransactionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	BrandID         *uuid.UUID        `gorm:"type:uuid;index" json:"brand_id,omitempty"`
	Brand           *Brand            `gorm:"foreignKey:BrandID" json:"-"`
	RewardRequestID *uuid.UUID        `gorm:"type:uuid;index" json:"reward_request_id,omitempty"`
	FileUploadID    *uuid.UUID        `gorm:"type:uuid;index" json:"file_upload_id,omitempty"`
}
