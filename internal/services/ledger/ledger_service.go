package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a transaction does not exist
var ErrNotFound = errors.New("transaction not found")

// LedgerService owns the points ledger: creating transactions, moving
// them through their status lifecycle and deriving balances. Balances
// are always computed as an aggregation over CONFIRMED rows; there is no
// cached counter to drift.
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new ledger service
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// CreateParams describes one new ledger entry
type CreateParams struct {
	UserID          uuid.UUID
	Value           int
	Date            time.Time
	Description     string
	Type            models.TransactionType
	Status          models.TransactionStatus
	BrandID         *uuid.UUID
	RewardRequestID *uuid.UUID
	FileUploadID    *uuid.UUID
}

// Create appends a transaction to the ledger
func (s *LedgerService) Create(p CreateParams) (*models.PointsTransaction, error) {
	return s.CreateWithTx(s.db, p)
}

// CreateWithTx appends a transaction using an existing DB transaction so
// callers can keep the entry atomic with their own writes.
func (s *LedgerService) CreateWithTx(tx *gorm.DB, p CreateParams) (*models.PointsTransaction, error) {
	transaction := models.PointsTransaction{
		UserID:          p.UserID,
		Value:           p.Value,
		Date:            models.DateOf(p.Date),
		Description:     p.Description,
		Type:            p.Type,
		Status:          p.Status,
		BrandID:         p.BrandID,
		RewardRequestID: p.RewardRequestID,
		FileUploadID:    p.FileUploadID,
	}

	if err := tx.Create(&transaction).Error; err != nil {
		return nil, fmt.Errorf("error creating points transaction: %w", err)
	}

	return &transaction, nil
}

// ConfirmedBalance returns the user's spendable balance: the sum of
// values over CONFIRMED transactions, zero when there are none. PENDING
// and CANCELLED entries never contribute.
func (s *LedgerService) ConfirmedBalance(userID uuid.UUID) (int, error) {
	return s.balanceWith(s.db, userID, models.StatusConfirmed)
}

// ConfirmedBalanceTx is ConfirmedBalance inside an existing transaction,
// used where the balance read must share a snapshot with a write.
func (s *LedgerService) ConfirmedBalanceTx(tx *gorm.DB, userID uuid.UUID) (int, error) {
	return s.balanceWith(tx, userID, models.StatusConfirmed)
}

// PendingTotal returns the sum of PENDING transaction values for a user
func (s *LedgerService) PendingTotal(userID uuid.UUID) (int, error) {
	return s.balanceWith(s.db, userID, models.StatusPending)
}

func (s *LedgerService) balanceWith(tx *gorm.DB, userID uuid.UUID, status models.TransactionStatus) (int, error) {
	var total int64
	err := tx.Model(&models.PointsTransaction{}).
		Where("user_id = ? AND status = ?", userID, status).
		Select("COALESCE(SUM(value), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("error computing balance: %w", err)
	}
	return int(total), nil
}

// SetStatus moves a transaction to a new lifecycle status
func (s *LedgerService) SetStatus(transactionID uuid.UUID, status models.TransactionStatus) error {
	result := s.db.Model(&models.PointsTransaction{}).
		Where("id = ?", transactionID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("error updating transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Transactions lists a user's transactions, newest first
func (s *LedgerService) Transactions(userID uuid.UUID, page, pageSize int) ([]models.PointsTransaction, int64, error) {
	var transactions []models.PointsTransaction
	var total int64

	if err := s.db.Model(&models.PointsTransaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting transactions: %w", err)
	}

	offset := (page - 1) * pageSize
	err := s.db.Where("user_id = ?", userID).
		Order("date DESC, created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error finding transactions: %w", err)
	}

	return transactions, total, nil
}
