package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/primabonus/backend/internal/models"
	"github.com/primabonus/backend/internal/services/ledger"
	"github.com/primabonus/backend/internal/services/reward"
	"gorm.io/gorm"
)

// ExportService produces the fulfilment and notification files managers
// hand off to external systems.
type ExportService struct {
	db        *gorm.DB
	ledger    *ledger.LedgerService
	rewards   *reward.RewardService
	smsPrefix string
}

// NewExportService creates a new export service
func NewExportService(db *gorm.DB, smsPrefix string) *ExportService {
	return &ExportService{
		db:        db,
		ledger:    ledger.NewLedgerService(db),
		rewards:   reward.NewRewardService(db),
		smsPrefix: smsPrefix,
	}
}

// TelemarketingFileName builds a filesystem-safe name for a request's
// fulfilment export from the client's username.
func (s *ExportService) TelemarketingFileName(requestID uuid.UUID) (string, error) {
	var request models.RewardRequest
	if err := s.db.Preload("User").First(&request, "id = ?", requestID).Error; err != nil {
		return "", fmt.Errorf("error loading reward request: %w", err)
	}
	stamp := time.Now().Format("20060102")
	return fmt.Sprintf("reward-request-%s-%s.csv", slug.Make(request.User.Username), stamp), nil
}

// WriteTelemarketingCSV writes the fulfilment file for an accepted
// request, one row per basket line, and flips the request to FINISHED.
// Requests in any other status are refused.
func (s *ExportService) WriteTelemarketingCSV(w io.Writer, requestID uuid.UUID) error {
	var request models.RewardRequest
	err := s.db.Preload("Items.Reward").Preload("User").
		Where("id = ? AND status = ?", requestID, models.RequestAccepted).
		First(&request).Error
	if err != nil {
		return fmt.Errorf("error loading accepted reward request: %w", err)
	}

	writer := csv.NewWriter(w)
	header := []string{
		"Client Number", "Client Name", "Reward Code", "Reward Name",
		"Quantity", "Point Cost", "Total Point Value",
		"Request ID", "Request Date", "Notes",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("error writing export header: %w", err)
	}

	requestDate := ""
	if request.RequestedAt != nil {
		requestDate = request.RequestedAt.Format("2006-01-02")
	}
	for _, item := range request.Items {
		row := []string{
			request.User.UserNumber,
			request.User.Username,
			item.Reward.Code,
			item.Reward.Name,
			strconv.Itoa(item.Quantity),
			strconv.Itoa(item.PointCost),
			strconv.Itoa(item.Quantity * item.PointCost),
			request.ID.String(),
			requestDate,
			request.Description,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("error writing export row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("error flushing export: %w", err)
	}

	if _, err := s.rewards.Finish(request.ID); err != nil {
		return err
	}
	return nil
}

// NormalizePhone returns the number in international form, prepending
// the configured country prefix to bare local numbers.
func (s *ExportService) NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	bare := strings.TrimPrefix(s.smsPrefix, "+")
	if strings.HasPrefix(phone, bare) {
		return "+" + phone
	}
	return s.smsPrefix + phone
}

// WriteSMSBalanceCSV writes the semicolon-delimited gateway file of one
// balance SMS per active client with a phone number, skipping clients
// below minPoints. Returns the number of messages written.
func (s *ExportService) WriteSMSBalanceCSV(w io.Writer, minPoints int, messageFormat string) (int, error) {
	var users []models.User
	err := s.db.Where("is_active = ? AND phone <> ''", true).
		Order("user_number ASC").
		Find(&users).Error
	if err != nil {
		return 0, fmt.Errorf("error loading active users: %w", err)
	}

	writer := csv.NewWriter(w)
	writer.Comma = ';'

	total := 0
	for _, user := range users {
		balance, err := s.ledger.ConfirmedBalance(user.ID)
		if err != nil {
			return total, err
		}
		if balance < minPoints {
			continue
		}
		row := []string{
			s.NormalizePhone(user.Phone),
			fmt.Sprintf(messageFormat, balance),
		}
		if err := writer.Write(row); err != nil {
			return total, fmt.Errorf("error writing SMS row: %w", err)
		}
		total++
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return total, fmt.Errorf("error flushing SMS export: %w", err)
	}
	return total, nil
}
