package models

import "github.com/google/uuid"

// Brand is a product brand sold through the ERP. Prefix is the item-code
// prefix that assigns an invoice line to the brand; prefixes are expected
// to be prefix-free and matching is case-sensitive.
type Brand struct {
	Base
	Name   string `gorm:"type:varchar(50);not null" json:"name"`
	Prefix string `gorm:"type:varchar(10);not null;uniqueIndex" json:"prefix"`
}

// BrandBonus is one (brand, points ratio) entry on a contract: points
// awarded per unit of turnover in that brand.
type BrandBonus struct {
	Base
	Name        string       `gorm:"type:varchar(100)" json:"name"`
	ContractID  uuid.UUID    `gorm:"type:uuid;index;not null" json:"contract_id"`
	Contract    UserContract `gorm:"foreignKey:ContractID" json:"-"`
	BrandID     uuid.UUID    `gorm:"type:uuid;index;not null" json:"brand_id"`
	Brand       Brand        `gorm:"foreignKey:BrandID" json:"-"`
	PointsRatio float64      `gorm:"not null" json:"points_ratio"`
}
