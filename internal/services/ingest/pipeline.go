package ingest

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"github.com/primabonus/backend/internal/services/contract"
	"github.com/primabonus/backend/internal/services/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pipeline runs the two-pass invoice ingestion: pass one aggregates the
// file into Invoice and InvoiceBrandTurnover rows, pass two derives
// points transactions for enrolled clients. Each pass commits as one DB
// transaction so balance reads never observe a half-applied file.
type Pipeline struct {
	db        *gorm.DB
	ledger    *ledger.LedgerService
	contracts *contract.ContractService
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(db *gorm.DB) *Pipeline {
	return &Pipeline{
		db:        db,
		ledger:    ledger.NewLedgerService(db),
		contracts: contract.NewContractService(db),
	}
}

// Result summarizes one processed upload
type Result struct {
	Filetype      models.InvoiceType
	ProcessedRows int
	DroppedRows   int
	PointsCreated int
	InvoiceErrors []string
}

// ProcessUpload processes one uploaded record set end to end, moving the
// FileUpload through PROCESSING to COMPLETED or FAILED. Structural
// failures (schema, no valid rows) abort the run and mark the upload
// FAILED; per-invoice errors are attached to the upload and do not stop
// the batch. Re-running the same file is safe: documents upsert by
// number and the duplicate-transaction guard skips already-awarded
// points.
func (p *Pipeline) ProcessUpload(uploadID uuid.UUID, rs RecordSet) (*Result, error) {
	var upload models.FileUpload
	if err := p.db.First(&upload, "id = ?", uploadID).Error; err != nil {
		return nil, fmt.Errorf("error loading upload: %w", err)
	}
	log.Printf("Starting to process upload %s", uploadID)

	p.markProcessing(&upload)

	result, err := p.run(&upload, rs)
	if err != nil {
		p.markFailed(&upload, err)
		return nil, err
	}

	p.markCompleted(&upload, result)
	log.Printf("Processing completed. Documents: %d, points transactions: %d",
		result.ProcessedRows, result.PointsCreated)
	return result, nil
}

func (p *Pipeline) run(upload *models.FileUpload, rs RecordSet) (*Result, error) {
	filetype, err := ValidateColumns(rs)
	if err != nil {
		return nil, err
	}

	rows, dropped, err := ParseRows(rs, filetype)
	if err != nil {
		return nil, err
	}

	result := &Result{Filetype: filetype, DroppedRows: dropped}

	// Pass 1: invoices and brand turnovers, whole pass in one transaction.
	err = p.db.Transaction(func(tx *gorm.DB) error {
		successful, errs := aggregateInvoices(tx, rows, upload, filetype)
		result.ProcessedRows = successful
		result.InvoiceErrors = append(result.InvoiceErrors, errs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("first pass failed: %w", err)
	}

	// Pass 2: points from the invoices of this upload, again atomic.
	err = p.db.Transaction(func(tx *gorm.DB) error {
		created, errs := p.derivePoints(tx, upload, filetype)
		result.PointsCreated = created
		result.InvoiceErrors = append(result.InvoiceErrors, errs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("second pass failed: %w", err)
	}

	return result, nil
}

// derivePoints walks the invoices of one upload and creates points
// transactions for enrolled clients with an active contract. Missing
// users, contracts or brand bonuses are lookups misses, not errors.
func (p *Pipeline) derivePoints(tx *gorm.DB, upload *models.FileUpload, filetype models.InvoiceType) (int, []string) {
	var invoices []models.Invoice
	if err := tx.Preload("BrandTurnovers").
		Where("file_upload_id = ?", upload.ID).
		Find(&invoices).Error; err != nil {
		return 0, []string{fmt.Sprintf("error loading invoices: %v", err)}
	}
	log.Printf("Processing points for %d invoices", len(invoices))

	created := 0
	var errs []string

	for _, invoice := range invoices {
		n, err := p.pointsForInvoice(tx, &invoice, filetype)
		if err != nil {
			msg := fmt.Sprintf("error processing points for invoice %s: %v", invoice.InvoiceNumber, err)
			log.Print(msg)
			errs = append(errs, msg)
			continue
		}
		created += n
	}

	return created, errs
}

func (p *Pipeline) pointsForInvoice(tx *gorm.DB, invoice *models.Invoice, filetype models.InvoiceType) (int, error) {
	var user models.User
	err := tx.Where("user_number = ?", invoice.ClientNumber).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		log.Printf("No user for client number %s - skipping points", invoice.ClientNumber)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up user: %w", err)
	}

	activeContract, err := p.contracts.ResolveTx(tx, user.ID, invoice.InvoiceDate)
	if err != nil {
		return 0, err
	}
	if activeContract == nil {
		log.Printf("No active contract for user %s on %s", user.UserNumber, invoice.InvoiceDate.Format("2006-01-02"))
		return 0, nil
	}
	if len(activeContract.BrandBonuses) == 0 {
		log.Printf("No brand bonuses for user %s - skipping", user.UserNumber)
		return 0, nil
	}

	created := 0
	for _, turnover := range invoice.BrandTurnovers {
		n, err := p.pointsForTurnover(tx, &user, invoice, &turnover, activeContract, filetype)
		if err != nil {
			return created, err
		}
		created += n
	}
	return created, nil
}

func (p *Pipeline) pointsForTurnover(tx *gorm.DB, user *models.User, invoice *models.Invoice, turnover *models.InvoiceBrandTurnover, activeContract *models.UserContract, filetype models.InvoiceType) (int, error) {
	bonus := contract.BrandBonusFor(activeContract, turnover.BrandID)
	if bonus == nil {
		return 0, nil
	}

	// Whole points, truncated toward zero, like the displayed balances.
	points := int(turnover.Amount.Mul(decimal.NewFromFloat(bonus.PointsRatio)).IntPart())
	if points == 0 {
		return 0, nil
	}

	var txType models.TransactionType
	var status models.TransactionStatus
	if filetype == models.InvoiceTypeCreditNote {
		// Credit notes settle instantly: the negative adjustment must
		// reduce the displayed balance right away.
		points = -points
		txType = models.TransactionCreditNoteAdjust
		status = models.StatusConfirmed
	} else {
		txType = models.TransactionStandardPoints
		status = models.StatusPending
	}

	exists, err := p.transactionExists(tx, user.ID, invoice, turnover.BrandID, txType)
	if err != nil {
		return 0, err
	}
	if exists {
		log.Printf("Skipping duplicate transaction for invoice %s, brand %s", invoice.InvoiceNumber, turnover.BrandID)
		return 0, nil
	}

	label := "Invoice"
	if invoice.InvoiceType == models.InvoiceTypeCreditNote {
		label = "Credit Note"
	}

	brandID := turnover.BrandID
	uploadID := invoice.FileUploadID
	_, err = p.ledger.CreateWithTx(tx, ledger.CreateParams{
		UserID:       user.ID,
		Value:        points,
		Date:         invoice.InvoiceDate,
		Description:  fmt.Sprintf("%s %s", label, invoice.InvoiceNumber),
		Type:         txType,
		Status:       status,
		BrandID:      &brandID,
		FileUploadID: &uploadID,
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

// transactionExists is the duplicate guard: an entry for the same user,
// date, brand and type whose description ends with the document number
// means the file was already awarded. The suffix anchor keeps "Invoice
// 1001" from masking a later document 100.
func (p *Pipeline) transactionExists(tx *gorm.DB, userID uuid.UUID, invoice *models.Invoice, brandID uuid.UUID, txType models.TransactionType) (bool, error) {
	var count int64
	err := tx.Model(&models.PointsTransaction{}).
		Where("user_id = ? AND date = ? AND brand_id = ? AND type = ?",
			userID, invoice.InvoiceDate, brandID, txType).
		Where("description LIKE ?", "% "+invoice.InvoiceNumber).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking existing transactions: %w", err)
	}
	return count > 0, nil
}

func (p *Pipeline) markProcessing(upload *models.FileUpload) {
	upload.Status = models.UploadProcessing
	p.db.Save(upload)
}

func (p *Pipeline) markCompleted(upload *models.FileUpload, result *Result) {
	now := time.Now()
	upload.Status = models.UploadCompleted
	upload.ProcessedRows = result.ProcessedRows
	upload.ProcessedAt = &now
	if len(result.InvoiceErrors) > 0 {
		upload.ErrorMessage = strings.Join(result.InvoiceErrors, "\n")
	}
	p.db.Save(upload)
}

func (p *Pipeline) markFailed(upload *models.FileUpload, failure error) {
	log.Printf("Fatal error processing upload %s: %v", upload.ID, failure)
	now := time.Now()
	upload.Status = models.UploadFailed
	upload.ErrorMessage = fmt.Sprintf("Fatal error processing upload: %v", failure)
	upload.ProcessedAt = &now
	p.db.Save(upload)
}
