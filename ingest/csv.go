package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/prodmatch/core"
)

// Expected CSV header columns. Matching is case-insensitive.
const (
	columnCustomerQuery = "customer query"
	columnOrderCode     = "order code"
	columnDescription   = "description"
)

// repairText fixes mojibake left by exports that went through a wrong
// encoding: the Unicode replacement character (and its UTF-8-as-Latin-1
// reading) stands in for the dash of ranges like "630-800A".
func repairText(text string) string {
	text = strings.ReplaceAll(text, "�", "-")
	text = strings.ReplaceAll(text, "ï¿½", "-")
	return strings.TrimSpace(text)
}

// ParseTrainingCSV reads training examples from CSV data with a
// "Customer Query, Order Code, Description" header. Blank rows are skipped
// silently; all fields are repaired and trimmed.
func ParseTrainingCSV(r io.Reader) ([]*core.TrainingExample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	queryCol := findColumn(header, columnCustomerQuery)
	codeCol := findColumn(header, columnOrderCode)
	descCol := findColumn(header, columnDescription)
	if queryCol < 0 || codeCol < 0 || descCol < 0 {
		return nil, fmt.Errorf("%w: need %q, %q and %q", ErrMissingColumns,
			columnCustomerQuery, columnOrderCode, columnDescription)
	}

	var examples []*core.TrainingExample
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		query := repairText(field(record, queryCol))
		code := repairText(field(record, codeCol))
		description := repairText(field(record, descCol))
		if query == "" || code == "" || description == "" {
			continue
		}

		examples = append(examples, &core.TrainingExample{
			CustomerQuery: query,
			OrderCode:     code,
			Description:   description,
		})
	}

	return examples, nil
}

// ParseCatalogCSV reads catalog entries from CSV data with an
// "Order Code, Description" header.
func ParseCatalogCSV(r io.Reader) ([]core.CatalogEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	codeCol := findColumn(header, columnOrderCode)
	descCol := findColumn(header, columnDescription)
	if codeCol < 0 || descCol < 0 {
		return nil, fmt.Errorf("%w: need %q and %q", ErrMissingColumns,
			columnOrderCode, columnDescription)
	}

	var entries []core.CatalogEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		code := repairText(field(record, codeCol))
		description := repairText(field(record, descCol))
		if code == "" || description == "" {
			continue
		}

		entries = append(entries, core.CatalogEntry{
			OrderCode:   code,
			Description: description,
		})
	}

	return entries, nil
}

func findColumn(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}

func field(record []string, col int) string {
	if col >= len(record) {
		return ""
	}
	return record[col]
}
