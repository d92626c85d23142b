package contract

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"gorm.io/gorm"
)

// ContractService resolves which contract, and which brand bonuses,
// apply to a user on a given date.
type ContractService struct {
	db *gorm.DB
}

// NewContractService creates a new contract service
func NewContractService(db *gorm.DB) *ContractService {
	return &ContractService{db: db}
}

// Resolve returns the user's active contract covering date, bounds
// inclusive, or nil when there is none. The data model does not forbid
// overlapping active windows, so when several match the one with the
// latest DateFrom wins; the ordering makes the pick deterministic.
func (s *ContractService) Resolve(userID uuid.UUID, date time.Time) (*models.UserContract, error) {
	return s.ResolveTx(s.db, userID, date)
}

// ResolveTx is Resolve inside an existing DB transaction
func (s *ContractService) ResolveTx(tx *gorm.DB, userID uuid.UUID, date time.Time) (*models.UserContract, error) {
	day := models.DateOf(date)

	var contract models.UserContract
	err := tx.Preload("BrandBonuses").
		Where("user_id = ? AND is_active = ? AND date_from <= ? AND date_to >= ?",
			userID, true, day, day).
		Order("date_from DESC").
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // no contract is a miss, not an error
		}
		return nil, fmt.Errorf("error resolving contract: %w", err)
	}

	return &contract, nil
}

// BrandBonusFor returns the contract's bonus entry for a brand, or nil
// when the contract carries none: no bonus means no points for the brand.
func BrandBonusFor(contract *models.UserContract, brandID uuid.UUID) *models.BrandBonus {
	for i := range contract.BrandBonuses {
		if contract.BrandBonuses[i].BrandID == brandID {
			return &contract.BrandBonuses[i]
		}
	}
	return nil
}

// ActiveContract returns the user's currently active contract regardless
// of date coverage, for reporting surfaces.
func (s *ContractService) ActiveContract(userID uuid.UUID) (*models.UserContract, error) {
	var contract models.UserContract
	err := s.db.Preload("BrandBonuses").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("date_from DESC").
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding active contract: %w", err)
	}
	return &contract, nil
}
