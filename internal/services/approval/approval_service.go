package approval

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"gorm.io/gorm"
)

// ApprovalService promotes pending standard points to confirmed once a
// month's invoices have settled, and queues the notification emails.
type ApprovalService struct {
	db        *gorm.DB
	lagMonths int
}

// NewApprovalService creates a new approval service
func NewApprovalService(db *gorm.DB, lagMonths int) *ApprovalService {
	return &ApprovalService{
		db:        db,
		lagMonths: lagMonths,
	}
}

// Result summarizes one approval run
type Result struct {
	Month         time.Time
	Confirmed     int64
	UsersNotified int
}

// DueMonth is the most recent month whose settlement lag has elapsed,
// relative to now.
func (s *ApprovalService) DueMonth(now time.Time) time.Time {
	shifted := now.AddDate(0, -s.lagMonths, 0)
	return time.Date(shifted.Year(), shifted.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ApproveMonth confirms every pending standard-points transaction dated
// in the given month and queues one email per affected user. The update
// and the notifications commit together.
func (s *ApprovalService) ApproveMonth(month time.Time) (*Result, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	result := &Result{Month: from}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var userIDs []uuid.UUID
		err := tx.Model(&models.PointsTransaction{}).
			Distinct("user_id").
			Where("type = ? AND status = ? AND date >= ? AND date < ?",
				models.TransactionStandardPoints, models.StatusPending, from, to).
			Pluck("user_id", &userIDs).Error
		if err != nil {
			return fmt.Errorf("error finding users with pending points: %w", err)
		}

		update := tx.Model(&models.PointsTransaction{}).
			Where("type = ? AND status = ? AND date >= ? AND date < ?",
				models.TransactionStandardPoints, models.StatusPending, from, to).
			Update("status", models.StatusConfirmed)
		if update.Error != nil {
			return fmt.Errorf("error confirming pending points: %w", update.Error)
		}
		result.Confirmed = update.RowsAffected

		for _, userID := range userIDs {
			notification := models.EmailNotification{
				UserID:  userID,
				Subject: "Your bonus points have been confirmed!",
				Message: fmt.Sprintf("Your bonus points for %s have been confirmed and added to your balance.", from.Format("January 2006")),
				Status:  models.NotificationPending,
			}
			if err := tx.Create(&notification).Error; err != nil {
				return fmt.Errorf("error queueing notification: %w", err)
			}
		}
		result.UsersNotified = len(userIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveDue runs the approval for the month the settlement lag has just
// cleared.
func (s *ApprovalService) ApproveDue(now time.Time) (*Result, error) {
	return s.ApproveMonth(s.DueMonth(now))
}
