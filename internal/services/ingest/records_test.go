package ingest

import (
	"strings"
	"testing"

	"github.com/primabonus/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceColumns() []string {
	return []string{ColClient, ColAmount, ColItemCode, ColDate, ColInvoice}
}

func TestValidateColumnsInvoiceFile(t *testing.T) {
	filetype, err := ValidateColumns(RecordSet{Columns: invoiceColumns()})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceTypeInvoice, filetype)
}

func TestValidateColumnsCreditNoteFile(t *testing.T) {
	rs := RecordSet{Columns: []string{ColClient, ColAmount, ColItemCode, ColDate, ColCreditNote}}
	filetype, err := ValidateColumns(rs)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceTypeCreditNote, filetype)
}

func TestValidateColumnsBothMarkers(t *testing.T) {
	rs := RecordSet{Columns: []string{ColClient, ColAmount, ColItemCode, ColDate, ColInvoice, ColCreditNote}}
	_, err := ValidateColumns(rs)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestValidateColumnsNoMarker(t *testing.T) {
	rs := RecordSet{Columns: []string{ColClient, ColAmount, ColItemCode, ColDate}}
	_, err := ValidateColumns(rs)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestValidateColumnsMissingRequired(t *testing.T) {
	rs := RecordSet{Columns: []string{ColClient, ColItemCode, ColInvoice}}
	_, err := ValidateColumns(rs)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Reason, ColAmount)
	assert.Contains(t, schemaErr.Reason, ColDate)
}

func TestParseRowsTypedValues(t *testing.T) {
	rs := RecordSet{
		Columns: invoiceColumns(),
		Rows: []map[string]string{
			{ColClient: "10001", ColAmount: "1250.50", ColItemCode: "AB123", ColDate: "15.03.2025", ColInvoice: "F2025001"},
		},
	}

	rows, dropped, err := ParseRows(rs, models.InvoiceTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	require.Len(t, rows, 1)

	assert.Equal(t, "10001", rows[0].ClientNumber)
	assert.Equal(t, "AB123", rows[0].ItemCode)
	assert.Equal(t, "F2025001", rows[0].DocumentNumber)
	assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("1250.50")))
	assert.Equal(t, models.Date(2025, 3, 15), rows[0].Date)
}

func TestParseRowsDropsBadCells(t *testing.T) {
	rs := RecordSet{
		Columns: invoiceColumns(),
		Rows: []map[string]string{
			{ColClient: "10001", ColAmount: "100", ColItemCode: "AB1", ColDate: "15.03.2025", ColInvoice: "F1"},
			{ColClient: "10001", ColAmount: "not-a-number", ColItemCode: "AB2", ColDate: "15.03.2025", ColInvoice: "F1"},
			{ColClient: "10001", ColAmount: "200", ColItemCode: "AB3", ColDate: "2025-03-15", ColInvoice: "F1"},
		},
	}

	rows, dropped, err := ParseRows(rs, models.InvoiceTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	assert.Len(t, rows, 1)
}

func TestParseRowsAllInvalidFailsBatch(t *testing.T) {
	rs := RecordSet{
		Columns: invoiceColumns(),
		Rows: []map[string]string{
			{ColClient: "10001", ColAmount: "bad", ColItemCode: "AB1", ColDate: "15.03.2025", ColInvoice: "F1"},
		},
	}

	_, _, err := ParseRows(rs, models.InvoiceTypeInvoice)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestReadCSVSniffsDelimiter(t *testing.T) {
	semicolon := "ZC;Cena;Kod;Datum;Faktura\n10001;100;AB1;15.03.2025;F1\n"
	rs, err := ReadCSV(strings.NewReader(semicolon))
	require.NoError(t, err)
	assert.Equal(t, invoiceColumns(), rs.Columns)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, "10001", rs.Rows[0][ColClient])

	comma := "ZC,Cena,Kod,Datum,Faktura\n10001,100,AB1,15.03.2025,F1\n"
	rs, err = ReadCSV(strings.NewReader(comma))
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, "F1", rs.Rows[0][ColInvoice])
}

func TestReadCSVEmptyFile(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}
