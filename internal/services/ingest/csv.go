package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV parses an uploaded ERP export into a RecordSet. The first line
// is the header; the delimiter is sniffed from it since the ERP emits
// both comma- and semicolon-separated files.
func ReadCSV(r io.Reader) (RecordSet, error) {
	buffered := bufio.NewReader(r)

	header, err := buffered.Peek(1024)
	if err != nil && err != io.EOF {
		return RecordSet{}, fmt.Errorf("error reading upload: %w", err)
	}
	firstLine := string(header)
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}

	reader := csv.NewReader(buffered)
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		reader.Comma = ';'
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return RecordSet{}, fmt.Errorf("error parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return RecordSet{}, &SchemaError{Reason: "empty file"}
	}

	columns := make([]string, len(records[0]))
	for i, c := range records[0] {
		columns[i] = strings.TrimSpace(c)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(columns))
		for i, cell := range record {
			if i < len(columns) {
				row[columns[i]] = strings.TrimSpace(cell)
			}
		}
		rows = append(rows, row)
	}

	return RecordSet{Columns: columns, Rows: rows}, nil
}
