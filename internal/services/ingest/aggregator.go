package ingest

import (
	"fmt"
	"log"
	"strings"

	"github.com/primabonus/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// aggregateInvoices is the first ingestion pass: group rows by document
// number, upsert the Invoice header and its per-brand turnover rows.
// Every document in the file is recorded, enrolled client or not, so
// turnover history survives for later enrollment. Per-invoice failures
// are collected; the pass never aborts for one bad document.
func aggregateInvoices(tx *gorm.DB, rows []Row, upload *models.FileUpload, filetype models.InvoiceType) (int, []string) {
	var brands []models.Brand
	if err := tx.Find(&brands).Error; err != nil {
		return 0, []string{fmt.Sprintf("error loading brands: %v", err)}
	}

	// Preserve first-seen document order
	byDoc := make(map[string][]Row)
	var order []string
	for _, r := range rows {
		if _, seen := byDoc[r.DocumentNumber]; !seen {
			order = append(order, r.DocumentNumber)
		}
		byDoc[r.DocumentNumber] = append(byDoc[r.DocumentNumber], r)
	}
	log.Printf("Found %d unique documents in file", len(order))

	successful := 0
	var errs []string

	for _, docNumber := range order {
		docRows := byDoc[docNumber]
		if err := upsertInvoice(tx, docNumber, docRows, brands, upload, filetype); err != nil {
			msg := fmt.Sprintf("error processing document %s: %v", docNumber, err)
			log.Print(msg)
			errs = append(errs, msg)
			continue
		}
		successful++
	}

	return successful, errs
}

func upsertInvoice(tx *gorm.DB, docNumber string, docRows []Row, brands []models.Brand, upload *models.FileUpload, filetype models.InvoiceType) error {
	// Client and date come from the first row; they are constant within
	// one document in a well-formed export.
	total := decimal.Zero
	for _, r := range docRows {
		total = total.Add(r.Amount)
	}

	invoice := models.Invoice{
		InvoiceNumber: docNumber,
		InvoiceType:   filetype,
		ClientNumber:  docRows[0].ClientNumber,
		InvoiceDate:   docRows[0].Date,
		TotalAmount:   total,
		FileUploadID:  upload.ID,
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "invoice_number"}, {Name: "invoice_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"client_number", "invoice_date", "total_amount", "file_upload_id", "updated_at",
		}),
	}).Create(&invoice).Error
	if err != nil {
		return fmt.Errorf("upserting invoice: %w", err)
	}

	// The upsert path may not populate ID on conflict; reload by key.
	if err := tx.Where("invoice_number = ? AND invoice_type = ?", docNumber, filetype).
		First(&invoice).Error; err != nil {
		return fmt.Errorf("reloading invoice: %w", err)
	}

	return upsertBrandTurnovers(tx, &invoice, docRows, brands)
}

// upsertBrandTurnovers sums each brand's share of one document and
// writes the (invoice, brand) turnover rows. Brands with zero net
// contribution produce no row; existing rows are updated in place.
func upsertBrandTurnovers(tx *gorm.DB, invoice *models.Invoice, docRows []Row, brands []models.Brand) error {
	created := 0
	for _, brand := range brands {
		sum := decimal.Zero
		matched := false
		for _, r := range docRows {
			if strings.HasPrefix(r.ItemCode, brand.Prefix) {
				sum = sum.Add(r.Amount)
				matched = true
			}
		}
		if !matched || sum.IsZero() {
			continue
		}

		turnover := models.InvoiceBrandTurnover{
			InvoiceID: invoice.ID,
			BrandID:   brand.ID,
			Amount:    sum,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invoice_id"}, {Name: "brand_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
		}).Create(&turnover).Error
		if err != nil {
			return fmt.Errorf("upserting turnover for brand %s: %w", brand.Name, err)
		}
		created++
	}

	log.Printf("Wrote %d brand turnover records for document %s", created, invoice.InvoiceNumber)
	return nil
}
