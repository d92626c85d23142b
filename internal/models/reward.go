package models

import (
	"time"

	"github.com/google/uuid"
)

// RewardAvailability describes how a reward can currently be ordered
type RewardAvailability string

const (
	RewardAvailable          RewardAvailability = "AVAILABLE"
	RewardAvailableLastUnits RewardAvailability = "AVAILABLE_LAST_UNITS"
	RewardOnDemand           RewardAvailability = "ON_DEMAND"
	RewardUnavailable        RewardAvailability = "UNAVAILABLE"
)

// Reward is a catalogue item clients redeem points for. Code is the ERP
// article code used in fulfilment exports.
type Reward struct {
	Base
	Code         string             `gorm:"type:varchar(30);uniqueIndex;not null" json:"code"`
	Name         string             `gorm:"type:varchar(100);not null" json:"name"`
	Description  string             `gorm:"type:text" json:"description"`
	PointCost    int                `gorm:"not null" json:"point_cost"`
	BrandID      *uuid.UUID         `gorm:"type:uuid;index" json:"brand_id,omitempty"`
	Brand        *Brand             `gorm:"foreignKey:BrandID" json:"-"`
	Availability RewardAvailability `gorm:"type:varchar(20);default:'ON_DEMAND'" json:"availability"`
	InShowcase   bool               `gorm:"default:false" json:"in_showcase"`
	IsActive     bool               `json:"is_active"`
}

// RequestStatus is the reward request state machine:
// DRAFT -> PENDING -> ACCEPTED | REJECTED -> FINISHED, with CANCELLED
// reachable from any state.
type RequestStatus string

const (
	RequestDraft     RequestStatus = "DRAFT"
	RequestPending   RequestStatus = "PENDING"
	RequestAccepted  RequestStatus = "ACCEPTED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestFinished  RequestStatus = "FINISHED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// RewardRequest is a basket of reward selections. TotalPoints is always
// recomputed from the items on every persist; it is never set directly.
type RewardRequest struct {
	Base
	UserID      uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	User        User          `gorm:"foreignKey:UserID" json:"-"`
	Status      RequestStatus `gorm:"type:varchar(20);default:'DRAFT';index" json:"status"`
	TotalPoints int           `gorm:"not null;default:0" json:"total_points"`
	Note        string        `gorm:"type:text" json:"note"`
	Description string        `gorm:"type:text" json:"description"`
	RequestedAt *time.Time    `json:"requested_at,omitempty"`

	Items []RewardRequestItem `gorm:"foreignKey:RewardRequestID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// RewardRequestItem is one line of a basket. PointCost is snapshotted
// from the reward's price when the line is saved, so later price changes
// never rewrite historical requests.
type RewardRequestItem struct {
	Base
	RewardRequestID uuid.UUID     `gorm:"type:uuid;index;not null" json:"reward_request_id"`
	RewardRequest   RewardRequest `gorm:"foreignKey:RewardRequestID" json:"-"`
	RewardID        uuid.UUID     `gorm:"type:uuid;index;not null" json:"reward_id"`
	Reward          Reward        `gorm:"foreignKey:RewardID" json:"-"`
	Quantity        int           `gorm:"not null" json:"quantity"`
	PointCost       int           `gorm:"not null" json:"point_cost"`
}
