package reward

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"github.com/primabonus/backend/internal/services/ledger"
	"gorm.io/gorm"
)

var (
	// ErrBalanceExceeded rejects a submission whose basket total is
	// larger than the user's confirmed balance.
	ErrBalanceExceeded = errors.New("basket total exceeds confirmed balance")

	// ErrInvalidState rejects an operation the request's status does not
	// allow.
	ErrInvalidState = errors.New("reward request is not in a valid state for this operation")
)

// ComputeTotal is the one place a request's point total is defined:
// the sum over its items of quantity times the snapshotted point cost.
func ComputeTotal(items []models.RewardRequestItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity * item.PointCost
	}
	return total
}

// RewardService runs the redemption workflow: draft baskets, atomic
// submission with the blocking ledger entry, manager decisions that keep
// the claim transaction in sync, and the export-time finish.
type RewardService struct {
	db     *gorm.DB
	ledger *ledger.LedgerService
}

// NewRewardService creates a new reward service
func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{
		db:     db,
		ledger: ledger.NewLedgerService(db),
	}
}

// ItemSelection is one basket line as chosen by the client or manager
type ItemSelection struct {
	RewardID uuid.UUID
	Quantity int
}

// GetOrCreateDraft returns the user's open draft basket, creating one if
// none exists.
func (s *RewardService) GetOrCreateDraft(userID uuid.UUID) (*models.RewardRequest, error) {
	var request models.RewardRequest
	err := s.db.Preload("Items").
		Where("user_id = ? AND status = ?", userID, models.RequestDraft).
		First(&request).Error
	if err == nil {
		return &request, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error finding draft request: %w", err)
	}

	request = models.RewardRequest{UserID: userID, Status: models.RequestDraft}
	if err := s.db.Create(&request).Error; err != nil {
		return nil, fmt.Errorf("error creating draft request: %w", err)
	}
	return &request, nil
}

// SaveItems replaces a request's basket lines. Each line snapshots the
// reward's current point cost so later price changes cannot rewrite the
// request, and the total is recomputed from the lines before persisting.
func (s *RewardService) SaveItems(requestID uuid.UUID, selections []ItemSelection) (*models.RewardRequest, error) {
	var request models.RewardRequest
	if err := s.db.First(&request, "id = ?", requestID).Error; err != nil {
		return nil, fmt.Errorf("error loading reward request: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		items, err := s.replaceItems(tx, &request, selections)
		if err != nil {
			return err
		}
		request.TotalPoints = ComputeTotal(items)
		return tx.Save(&request).Error
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *RewardService) replaceItems(tx *gorm.DB, request *models.RewardRequest, selections []ItemSelection) ([]models.RewardRequestItem, error) {
	if err := tx.Where("reward_request_id = ?", request.ID).
		Delete(&models.RewardRequestItem{}).Error; err != nil {
		return nil, fmt.Errorf("error clearing basket items: %w", err)
	}

	var items []models.RewardRequestItem
	for _, sel := range selections {
		if sel.Quantity <= 0 {
			continue
		}
		var rw models.Reward
		if err := tx.Where("id = ? AND is_active = ?", sel.RewardID, true).First(&rw).Error; err != nil {
			return nil, fmt.Errorf("error loading reward %s: %w", sel.RewardID, err)
		}
		item := models.RewardRequestItem{
			RewardRequestID: request.ID,
			RewardID:        rw.ID,
			Quantity:        sel.Quantity,
			PointCost:       rw.PointCost,
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("error creating basket item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Submit moves a draft basket to PENDING and atomically creates the
// CONFIRMED REWARD_CLAIM transaction of minus the basket total, blocking
// the points immediately. Without the manager override the basket total
// must not exceed the user's confirmed balance; on rejection nothing is
// mutated.
func (s *RewardService) Submit(requestID uuid.UUID, override bool) (*models.RewardRequest, error) {
	var request models.RewardRequest

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&request, "id = ?", requestID).Error; err != nil {
			return fmt.Errorf("error loading reward request: %w", err)
		}
		if request.Status != models.RequestDraft {
			return ErrInvalidState
		}

		request.TotalPoints = ComputeTotal(request.Items)

		if !override {
			balance, err := s.ledger.ConfirmedBalanceTx(tx, request.UserID)
			if err != nil {
				return err
			}
			if request.TotalPoints > balance {
				return ErrBalanceExceeded
			}
		}

		requestID := request.ID
		_, err := s.ledger.CreateWithTx(tx, ledger.CreateParams{
			UserID:          request.UserID,
			Value:           -request.TotalPoints,
			Date:            time.Now(),
			Description:     fmt.Sprintf("Reward claim %s", request.ID),
			Type:            models.TransactionRewardClaim,
			Status:          models.StatusConfirmed,
			RewardRequestID: &requestID,
		})
		if err != nil {
			return err
		}

		now := time.Now()
		request.Status = models.RequestPending
		request.RequestedAt = &now
		return tx.Save(&request).Error
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ManagerUpdate applies a manager's edit to a submitted request: new
// basket lines, note, message and status. The linked claim transaction
// follows the status: REJECTED/CANCELLED cancels it (unblocking the
// points), returning to an active status re-confirms it, and a confirmed
// claim is always forced to minus the current basket total.
func (s *RewardService) ManagerUpdate(requestID uuid.UUID, newStatus models.RequestStatus, selections []ItemSelection, note, message string) (*models.RewardRequest, error) {
	var request models.RewardRequest

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			return fmt.Errorf("error loading reward request: %w", err)
		}
		oldStatus := request.Status

		items, err := s.replaceItems(tx, &request, selections)
		if err != nil {
			return err
		}

		request.TotalPoints = ComputeTotal(items)
		request.Note = note
		request.Description = message
		request.Status = newStatus
		if err := tx.Save(&request).Error; err != nil {
			return fmt.Errorf("error saving reward request: %w", err)
		}

		return s.syncClaimTransaction(tx, &request, oldStatus, newStatus)
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *RewardService) syncClaimTransaction(tx *gorm.DB, request *models.RewardRequest, oldStatus, newStatus models.RequestStatus) error {
	var claim models.PointsTransaction
	err := tx.Where("reward_request_id = ? AND type = ?",
		request.ID, models.TransactionRewardClaim).
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("No claim transaction found for reward request %s", request.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("error loading claim transaction: %w", err)
	}

	inactive := func(st models.RequestStatus) bool {
		return st == models.RequestRejected || st == models.RequestCancelled
	}

	if inactive(newStatus) {
		claim.Status = models.StatusCancelled
	} else if inactive(oldStatus) && !inactive(newStatus) {
		claim.Status = models.StatusConfirmed
	}

	if claim.Status == models.StatusConfirmed {
		claim.Value = -request.TotalPoints
	}

	return tx.Save(&claim).Error
}

// Finish flips an ACCEPTED request to FINISHED once its fulfilment
// export has been generated.
func (s *RewardService) Finish(requestID uuid.UUID) (*models.RewardRequest, error) {
	var request models.RewardRequest
	if err := s.db.First(&request, "id = ?", requestID).Error; err != nil {
		return nil, fmt.Errorf("error loading reward request: %w", err)
	}
	if request.Status != models.RequestAccepted {
		return nil, ErrInvalidState
	}

	request.Status = models.RequestFinished
	if err := s.db.Save(&request).Error; err != nil {
		return nil, fmt.Errorf("error finishing reward request: %w", err)
	}
	return &request, nil
}

// Requests lists reward requests, optionally filtered by status, newest
// first, for the manager list view.
func (s *RewardService) Requests(status models.RequestStatus, page, pageSize int) ([]models.RewardRequest, int64, error) {
	query := s.db.Model(&models.RewardRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting reward requests: %w", err)
	}

	var requests []models.RewardRequest
	offset := (page - 1) * pageSize
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&requests).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error listing reward requests: %w", err)
	}
	return requests, total, nil
}
