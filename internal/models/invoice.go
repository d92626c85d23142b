package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceType distinguishes invoices from credit notes
type InvoiceType string

const (
	InvoiceTypeInvoice    InvoiceType = "INVOICE"
	InvoiceTypeCreditNote InvoiceType = "CREDIT_NOTE"
)

// Invoice is one imported invoice or credit-note header. The
// (invoice_number, invoice_type) pair is unique and ingestion upserts by
// it, so re-running the same file never duplicates documents. Turnover is
// kept even for clients not enrolled in the program.
type Invoice struct {
	Base
	InvoiceNumber string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_invoice_number_type,priority:1" json:"invoice_number"`
	InvoiceType   InvoiceType     `gorm:"type:varchar(20);not null;uniqueIndex:idx_invoice_number_type,priority:2" json:"invoice_type"`
	ClientNumber  string          `gorm:"type:varchar(20);index;not null" json:"client_number"`
	InvoiceDate   time.Time       `gorm:"type:date;not null;index" json:"invoice_date"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	FileUploadID  uuid.UUID       `gorm:"type:uuid;index" json:"file_upload_id"`
	FileUpload    FileUpload      `gorm:"foreignKey:FileUploadID" json:"-"`

	BrandTurnovers []InvoiceBrandTurnover `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"brand_turnovers,omitempty"`
}

// InvoiceBrandTurnover is the aggregated amount of one brand on one
// invoice. At most one row per (invoice, brand); re-ingestion updates the
// amount in place.
type InvoiceBrandTurnover struct {
	Base
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_brand,priority:1" json:"invoice_id"`
	Invoice   Invoice         `gorm:"foreignKey:InvoiceID" json:"-"`
	BrandID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_brand,priority:2" json:"brand_id"`
	Brand     Brand           `gorm:"foreignKey:BrandID" json:"-"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
}
