package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySalesAcceptsSalesTemplate(t *testing.T) {
	rows := [][]string{
		{"Monthly Sales Register"},
		{"Date", "DB Code", "Product SKU", "Product Name", "QTY PC", "DP Value", "TP Value"},
		{"2024-05-10", "DB-1", "SKU-1", "Widget", "5", "100", "110"},
	}
	headerIdx, err := Classify(rows, TypeSales)
	require.NoError(t, err)
	assert.Equal(t, 1, headerIdx)
}

func TestClassifySalesRejectsStockTemplate(t *testing.T) {
	rows := [][]string{
		{"Stock Date", "Site Name", "Product SKU", "Batch Name", "Qty"},
		{"2024-05-10", "Depot A", "SKU-1", "B-1", "5"},
	}
	_, err := Classify(rows, TypeSales)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongTemplate)
}

func TestClassifySalesRejectsUnknownColumns(t *testing.T) {
	rows := [][]string{
		{"Invoice", "Customer", "Total"},
		{"INV-1", "Acme", "42"},
	}
	_, err := Classify(rows, TypeSales)
	assert.ErrorIs(t, err, ErrWrongTemplate)
}

func TestClassifyStockAcceptsStockTemplate(t *testing.T) {
	rows := [][]string{
		{"Stock Date", "Site Name", "Product SKU", "Product Name", "Batch Name", "Qty"},
		{"2024-05-10", "Depot A", "SKU-1", "Widget", "B-1", "5"},
	}
	headerIdx, err := Classify(rows, TypeStock)
	require.NoError(t, err)
	assert.Equal(t, 0, headerIdx)
}

func TestClassifyStockRejectsSalesTemplate(t *testing.T) {
	rows := [][]string{
		{"Date", "Product SKU", "Product Name", "QTY PC", "DP Value"},
		{"2024-05-10", "SKU-1", "Widget", "5", "100"},
	}
	_, err := Classify(rows, TypeStock)
	assert.ErrorIs(t, err, ErrWrongTemplate)
}

func TestClassifySalesMarkersBeyondSniffDepthIgnored(t *testing.T) {
	rows := make([][]string, 0, 12)
	for i := 0; i < 11; i++ {
		rows = append(rows, []string{"preamble"})
	}
	// The only sales columns sit past the sniff window, so the file looks
	// like no known template.
	rows = append(rows, []string{"Date", "Product SKU", "QTY PC"})
	_, err := Classify(rows, TypeSales)
	assert.ErrorIs(t, err, ErrWrongTemplate)
}

func TestHeaderRowDefaultsToFirstRow(t *testing.T) {
	rows := [][]string{
		{"DP Value", "TP Value"},
		{"100", "110"},
	}
	headerIdx, err := Classify(rows, TypeSales)
	require.NoError(t, err)
	assert.Equal(t, 0, headerIdx)
}
