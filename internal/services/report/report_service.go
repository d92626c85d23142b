package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportService builds the manager dashboard and the per-client
// turnover breakdowns.
type ReportService struct {
	db *gorm.DB
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// DashboardStats is the manager landing-page summary
type DashboardStats struct {
	ActiveClients    int64               `json:"active_clients"`
	PendingPoints    int                 `json:"pending_points"`
	ConfirmedPoints  int                 `json:"confirmed_points"`
	PendingRequests  int64               `json:"pending_requests"`
	AcceptedRequests int64               `json:"accepted_requests"`
	RecentUploads    []models.FileUpload `json:"recent_uploads"`
	TopClients       []ClientPoints      `json:"top_clients"`
}

// ClientPoints is one row of the top-clients board
type ClientPoints struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	UserNumber string    `json:"user_number"`
	Points     int       `json:"points"`
}

// Dashboard aggregates program-wide state for the manager landing page
func (s *ReportService) Dashboard() (*DashboardStats, error) {
	stats := &DashboardStats{}

	err := s.db.Model(&models.User{}).
		Where("user_type = ? AND is_active = ?", models.UserTypeClient, true).
		Count(&stats.ActiveClients).Error
	if err != nil {
		return nil, fmt.Errorf("error counting active clients: %w", err)
	}

	if err := s.pointsTotal(models.StatusPending, &stats.PendingPoints); err != nil {
		return nil, err
	}
	if err := s.pointsTotal(models.StatusConfirmed, &stats.ConfirmedPoints); err != nil {
		return nil, err
	}

	err = s.db.Model(&models.RewardRequest{}).
		Where("status = ?", models.RequestPending).
		Count(&stats.PendingRequests).Error
	if err != nil {
		return nil, fmt.Errorf("error counting pending requests: %w", err)
	}
	err = s.db.Model(&models.RewardRequest{}).
		Where("status = ?", models.RequestAccepted).
		Count(&stats.AcceptedRequests).Error
	if err != nil {
		return nil, fmt.Errorf("error counting accepted requests: %w", err)
	}

	err = s.db.Order("created_at DESC").Limit(5).Find(&stats.RecentUploads).Error
	if err != nil {
		return nil, fmt.Errorf("error loading recent uploads: %w", err)
	}

	err = s.db.Model(&models.PointsTransaction{}).
		Select("users.id AS user_id, users.username, users.user_number, COALESCE(SUM(points_transactions.value), 0) AS points").
		Joins("JOIN users ON users.id = points_transactions.user_id").
		Where("points_transactions.status = ?", models.StatusConfirmed).
		Group("users.id, users.username, users.user_number").
		Order("points DESC").
		Limit(10).
		Scan(&stats.TopClients).Error
	if err != nil {
		return nil, fmt.Errorf("error loading top clients: %w", err)
	}

	return stats, nil
}

func (s *ReportService) pointsTotal(status models.TransactionStatus, out *int) error {
	err := s.db.Model(&models.PointsTransaction{}).
		Select("COALESCE(SUM(value), 0)").
		Where("status = ?", status).
		Scan(out).Error
	if err != nil {
		return fmt.Errorf("error summing %s points: %w", status, err)
	}
	return nil
}

// BrandTurnover is one brand line of a client's turnover report. Net is
// invoiced turnover minus credit notes over the reporting window.
type BrandTurnover struct {
	BrandID   uuid.UUID       `json:"brand_id"`
	BrandName string          `json:"brand_name"`
	Invoiced  decimal.Decimal `json:"invoiced"`
	Credited  decimal.Decimal `json:"credited"`
	Net       decimal.Decimal `json:"net"`
}

// ClientTurnover reports a client's per-brand net turnover inside the
// given window.
func (s *ReportService) ClientTurnover(userID uuid.UUID, from, to time.Time) ([]BrandTurnover, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("error loading client: %w", err)
	}

	rows := []BrandTurnover{}
	var brands []models.Brand
	if err := s.db.Order("name ASC").Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("error loading brands: %w", err)
	}

	for _, brand := range brands {
		invoiced, err := s.brandSum(user.UserNumber, brand.ID, models.InvoiceTypeInvoice, from, to)
		if err != nil {
			return nil, err
		}
		credited, err := s.brandSum(user.UserNumber, brand.ID, models.InvoiceTypeCreditNote, from, to)
		if err != nil {
			return nil, err
		}
		if invoiced.IsZero() && credited.IsZero() {
			continue
		}
		rows = append(rows, BrandTurnover{
			BrandID:   brand.ID,
			BrandName: brand.Name,
			Invoiced:  invoiced,
			Credited:  credited,
			Net:       invoiced.Sub(credited),
		})
	}
	return rows, nil
}

func (s *ReportService) brandSum(userNumber string, brandID uuid.UUID, invoiceType models.InvoiceType, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := s.db.Model(&models.InvoiceBrandTurnover{}).
		Select("SUM(invoice_brand_turnovers.amount)").
		Joins("JOIN invoices ON invoices.id = invoice_brand_turnovers.invoice_id").
		Where("invoices.client_number = ? AND invoices.invoice_type = ?", userNumber, invoiceType).
		Where("invoices.invoice_date >= ? AND invoices.invoice_date <= ?", from, to).
		Where("invoice_brand_turnovers.brand_id = ?", brandID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("error summing brand turnover: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
