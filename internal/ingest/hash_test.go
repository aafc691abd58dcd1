package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSalesHashDeterministic(t *testing.T) {
	rec := SalesRecord{
		Date:        time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		DBCode:      "DB-7",
		ProductCode: "SKU-9",
		EmpID:       "E-12",
		QtyPc:       3,
		DPValue:     1250.5,
	}
	assert.Equal(t, SalesHash(rec), SalesHash(rec))
	assert.Len(t, SalesHash(rec), 32)

	// Fields outside the identity subset do not change the hash.
	other := rec
	other.ProductName = "Widget"
	other.Division = "North"
	assert.Equal(t, SalesHash(rec), SalesHash(other))

	changed := rec
	changed.QtyPc = 4
	assert.NotEqual(t, SalesHash(rec), SalesHash(changed))
}

func TestStockHashDeterministic(t *testing.T) {
	rec := StockRecord{
		StockDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		ProductCode: "SKU-1",
		BatchName:   "B-1",
		SiteName:    "Depot A",
		Qty:         4,
		Division:    "North",
	}
	assert.Equal(t, StockHash(rec), StockHash(rec))

	changed := rec
	changed.BatchName = "B-2"
	assert.NotEqual(t, StockHash(rec), StockHash(changed))
}
