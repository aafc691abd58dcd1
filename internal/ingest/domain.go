// Package ingest implements the bulk ledger ingestion pipeline: workbook
// parsing, template classification, row normalization, content hashing, and
// chunked persistence with progress tracking.
package ingest

import (
	"errors"
	"time"
)

// RecordType selects which ledger template a file must match.
type RecordType string

// Supported ledger templates.
const (
	TypeSales RecordType = "SALES"
	TypeStock RecordType = "STOCK"
)

// Errors surfaced synchronously at upload time, before any job exists.
var (
	ErrWrongTemplate = errors.New("invalid template")
	ErrEmptyFile     = errors.New("no data found in workbook")
)

// SalesRecord is one normalized row of the sales register.
type SalesRecord struct {
	Date         time.Time
	Division     string
	Depot        string
	Seller       string
	DBCode       string
	DBName       string
	ProdLine     string
	Category     string
	Brand        string
	ProductCode  string
	ProductName  string
	EmpID        string
	EmployeeName string
	QtyPc        int
	QtyLtrKg     float64
	DPValue      float64
	TPValue      float64
	Hash         string
	ImportedBy   string
}

// StockRecord is one normalized row of the stock ledger.
type StockRecord struct {
	Division       string
	SiteName       string
	DistCode       string
	Source         string
	PartyName      string
	Group          string
	Category       string
	Brand          string
	ProductCode    string
	ProductName    string
	BatchName      string
	Qty            int
	RetailerPrice  float64
	DealerPrice    float64
	LtrKg          float64
	RetailerAmount float64
	DealerAmount   float64
	StockDate      time.Time
	Hash           string
	ImportedBy     string
}
