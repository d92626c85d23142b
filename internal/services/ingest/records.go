package ingest

import (
	"fmt"
	"log"
	"time"

	"github.com/primabonus/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Column names of the ERP export. Exactly one of the two marker columns
// (ColInvoice, ColCreditNote) must be present; it both identifies the
// filetype and carries the document number.
const (
	ColClient     = "ZC"
	ColAmount     = "Cena"
	ColItemCode   = "Kod"
	ColDate       = "Datum"
	ColInvoice    = "Faktura"
	ColCreditNote = "Dobropis"
)

// dateLayout is the DD.MM.YYYY format the ERP emits
const dateLayout = "02.01.2006"

// SchemaError marks a structurally broken batch: missing required
// columns or an ambiguous filetype marker. It is fatal for the whole
// upload.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s", e.Reason)
}

// RecordSet is the parsed tabular input handed to the pipeline by the
// upload collaborator. Parsing mechanics (CSV/XLSX) are not our concern;
// we only validate the shape.
type RecordSet struct {
	Columns []string
	Rows    []map[string]string
}

// Row is one validated line of the batch
type Row struct {
	ClientNumber   string
	ItemCode       string
	DocumentNumber string
	Amount         decimal.Decimal
	Date           time.Time
}

// ValidateColumns checks the record set shape and returns the filetype.
// Zero or both marker columns, or any missing required column, is a
// SchemaError.
func ValidateColumns(rs RecordSet) (models.InvoiceType, error) {
	present := make(map[string]bool, len(rs.Columns))
	for _, c := range rs.Columns {
		present[c] = true
	}

	markers := 0
	filetype := models.InvoiceTypeInvoice
	if present[ColInvoice] {
		markers++
	}
	if present[ColCreditNote] {
		markers++
		filetype = models.InvoiceTypeCreditNote
	}
	if markers != 1 {
		return "", &SchemaError{Reason: fmt.Sprintf(
			"need exactly one of columns %q or %q, got %d", ColInvoice, ColCreditNote, markers)}
	}

	var missing []string
	for _, c := range []string{ColClient, ColAmount, ColItemCode, ColDate} {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return "", &SchemaError{Reason: fmt.Sprintf("missing required columns: %v", missing)}
	}

	return filetype, nil
}

// ParseRows converts raw cells into typed rows. Rows with unparseable
// dates or amounts are dropped with a warning; the batch only fails when
// no valid rows remain.
func ParseRows(rs RecordSet, filetype models.InvoiceType) ([]Row, int, error) {
	docCol := ColInvoice
	if filetype == models.InvoiceTypeCreditNote {
		docCol = ColCreditNote
	}

	rows := make([]Row, 0, len(rs.Rows))
	dropped := 0

	for i, raw := range rs.Rows {
		date, err := time.Parse(dateLayout, raw[ColDate])
		if err != nil {
			log.Printf("Dropping row %d: invalid date %q", i, raw[ColDate])
			dropped++
			continue
		}

		amount, err := decimal.NewFromString(raw[ColAmount])
		if err != nil {
			log.Printf("Dropping row %d: invalid amount %q", i, raw[ColAmount])
			dropped++
			continue
		}

		rows = append(rows, Row{
			ClientNumber:   raw[ColClient],
			ItemCode:       raw[ColItemCode],
			DocumentNumber: raw[docCol],
			Amount:         amount,
			Date:           models.DateOf(date),
		})
	}

	if len(rows) == 0 {
		return nil, dropped, &SchemaError{Reason: "no valid rows in batch"}
	}
	if dropped > 0 {
		log.Printf("Dropped %d rows with invalid cells, %d remain", dropped, len(rows))
	}

	return rows, dropped, nil
}
