package ingest

import (
	"fmt"
	"strings"
)

// sniffDepth bounds how many leading rows are inspected for type signatures.
const sniffDepth = 10

// Classify checks whether the raw rows match the expected ledger template and
// locates the header row. It is a pure inspection: no side effects.
//
// Sales files are recognised by "qty pc", "dp value", or "tp value" columns;
// stock files by "product sku" together with "site name" or "batch name".
// A file carrying the opposite template's signature, or none at all, is
// rejected with ErrWrongTemplate.
func Classify(rows [][]string, typ RecordType) (int, error) {
	head := sniffContent(rows)

	salesSignature := strings.Contains(head, "qty pc") ||
		strings.Contains(head, "dp value") ||
		strings.Contains(head, "tp value")
	stockMarkers := strings.Contains(head, "site name") ||
		strings.Contains(head, "batch name") ||
		strings.Contains(head, "retailer price")
	stockSignature := strings.Contains(head, "product sku") &&
		(strings.Contains(head, "site name") || strings.Contains(head, "batch name"))

	switch typ {
	case TypeSales:
		if stockMarkers {
			return 0, fmt.Errorf("%w: expected the Sales Register template but the file matches the Stock Ledger template", ErrWrongTemplate)
		}
		if !salesSignature {
			return 0, fmt.Errorf("%w: expected the Sales Register template but none of its columns were found", ErrWrongTemplate)
		}
	case TypeStock:
		if salesSignature {
			return 0, fmt.Errorf("%w: expected the Stock Ledger template but the file matches the Sales Register template", ErrWrongTemplate)
		}
		if !stockSignature {
			return 0, fmt.Errorf("%w: expected the Stock Ledger template but none of its columns were found", ErrWrongTemplate)
		}
	default:
		return 0, fmt.Errorf("ingest: unknown record type %q", typ)
	}

	return headerRow(rows, typ), nil
}

// sniffContent serializes the first rows, lower-cased, for keyword matching.
func sniffContent(rows [][]string) string {
	depth := len(rows)
	if depth > sniffDepth {
		depth = sniffDepth
	}
	var b strings.Builder
	for _, row := range rows[:depth] {
		for _, cell := range row {
			b.WriteString(strings.ToLower(cell))
			b.WriteByte('|')
		}
	}
	return b.String()
}

// headerRow finds the first row that carries a recognisable header cell,
// defaulting to row 0 when none is found.
func headerRow(rows [][]string, typ RecordType) int {
	markers := []string{"product sku", "product name"}
	if typ == TypeSales {
		markers = append(markers, "qty pc")
	}
	for i, row := range rows {
		for _, cell := range row {
			lower := strings.ToLower(cell)
			for _, marker := range markers {
				if strings.Contains(lower, marker) {
					return i
				}
			}
		}
	}
	return 0
}
