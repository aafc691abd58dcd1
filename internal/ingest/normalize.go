package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// excelEpochOffset is the number of days between the spreadsheet serial epoch
// (1899-12-30) and the Unix epoch.
const excelEpochOffset = 25569

// Alias tables: each canonical field accepts an ordered list of header
// spellings; the first alias present in the sheet wins. Matching is
// case-insensitive and whitespace-trimmed, exact against the alias.
var (
	salesAliases = map[string][]string{
		"date":         {"Date", "Sales Date", "SalesDate"},
		"division":     {"Division"},
		"depot":        {"Depot"},
		"seller":       {"Seller"},
		"dbCode":       {"DB Code", "DBCode"},
		"dbName":       {"DB Name", "DBName"},
		"prodLine":     {"Prod. Line", "ProdLine"},
		"category":     {"Category"},
		"brand":        {"Brand"},
		"productCode":  {"Product SKU", "ProductCode", "SKU"},
		"productName":  {"Product Name", "ProductName"},
		"empId":        {"Emp. ID", "EmpID"},
		"employeeName": {"Employee Name", "EmployeeName"},
		"qtyPc":        {"QTY PC", "Quantity", "Qty"},
		"qtyLtrKg":     {"QTY LTR/KG"},
		"dpValue":      {"DP Value", "Amount", "Value"},
		"tpValue":      {"TP Value"},
	}

	stockAliases = map[string][]string{
		"stockDate":      {"Stock Date", "StockDate", "Date"},
		"division":       {"Division"},
		"siteName":       {"Site Name", "SiteName"},
		"distCode":       {"Dist. Code", "DistCode"},
		"source":         {"Source"},
		"partyName":      {"Party Name", "PartyName"},
		"group":          {"Group"},
		"category":       {"Category"},
		"brand":          {"Brand"},
		"productCode":    {"Product SKU", "ProductCode", "SKU"},
		"productName":    {"Product Name", "ProductName"},
		"batchName":      {"Batch Name", "BatchName"},
		"qty":            {"Qty", "Quantity"},
		"retailerPrice":  {"Retailer Price"},
		"dealerPrice":    {"Dealer Price"},
		"ltrKg":          {"LTR/KG"},
		"retailerAmount": {"Retailer Amount"},
		"dealerAmount":   {"Dealer Amount"},
	}
)

// headerIndex maps lower-cased trimmed header names to their column position.
// The first occurrence of a duplicated header wins.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(cell))
		if key == "" {
			continue
		}
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

// lookup resolves a canonical field against the row using its alias list.
func lookup(row []string, idx map[string]int, aliases map[string][]string, field string) string {
	for _, alias := range aliases[field] {
		col, ok := idx[strings.ToLower(strings.TrimSpace(alias))]
		if !ok {
			continue
		}
		if col < len(row) {
			return row[col]
		}
		return ""
	}
	return ""
}

// CleanNum coerces an arbitrary cell into a number: empty cells become 0,
// every character except digits, '.', and '-' is stripped before parsing,
// unparseable values become 0, and the result is rounded half-up to 4
// decimal places.
func CleanNum(val string) float64 {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	var b strings.Builder
	for _, r := range val {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	num, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0
	}
	return roundHalfUp4(num)
}

// roundHalfUp4 rounds half-up at 4 decimals, matching Math.round semantics.
func roundHalfUp4(v float64) float64 {
	return math.Floor(v*10000+0.5) / 10000
}

// roundInt rounds a cleaned quantity to the nearest whole unit.
func roundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}

// dateLayouts are the calendar string formats accepted for date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
	time.RFC3339,
}

// coerceDate converts a cell into a timestamp. Numeric cells are treated as
// spreadsheet serial dates; strings are parsed as calendar dates; missing or
// unparseable cells fall back to the processing time.
func coerceDate(val string, now time.Time) time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return now
	}
	if serial, err := strconv.ParseFloat(val, 64); err == nil {
		secs := (serial - excelEpochOffset) * 86400
		return time.Unix(int64(secs), 0).UTC()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t.UTC()
		}
	}
	return now
}

// NormalizeSales maps a raw sales row onto the canonical record shape.
// The caller filters records whose ProductCode or ProductName is empty.
func NormalizeSales(row []string, idx map[string]int, actor string, now time.Time) SalesRecord {
	get := func(field string) string { return lookup(row, idx, salesAliases, field) }
	return SalesRecord{
		Date:         coerceDate(get("date"), now),
		Division:     strings.TrimSpace(get("division")),
		Depot:        strings.TrimSpace(get("depot")),
		Seller:       strings.TrimSpace(get("seller")),
		DBCode:       strings.TrimSpace(get("dbCode")),
		DBName:       strings.TrimSpace(get("dbName")),
		ProdLine:     strings.TrimSpace(get("prodLine")),
		Category:     strings.TrimSpace(get("category")),
		Brand:        strings.TrimSpace(get("brand")),
		ProductCode:  strings.TrimSpace(get("productCode")),
		ProductName:  strings.TrimSpace(get("productName")),
		EmpID:        strings.TrimSpace(get("empId")),
		EmployeeName: strings.TrimSpace(get("employeeName")),
		QtyPc:        roundInt(CleanNum(get("qtyPc"))),
		QtyLtrKg:     CleanNum(get("qtyLtrKg")),
		DPValue:      CleanNum(get("dpValue")),
		TPValue:      CleanNum(get("tpValue")),
		ImportedBy:   actor,
	}
}

// NormalizeStock maps a raw stock row onto the canonical record shape,
// deriving unit prices from amounts when the price column is empty.
func NormalizeStock(row []string, idx map[string]int, actor string, now time.Time) StockRecord {
	get := func(field string) string { return lookup(row, idx, stockAliases, field) }
	rec := StockRecord{
		Division:       strings.TrimSpace(get("division")),
		SiteName:       strings.TrimSpace(get("siteName")),
		DistCode:       strings.TrimSpace(get("distCode")),
		Source:         strings.TrimSpace(get("source")),
		PartyName:      strings.TrimSpace(get("partyName")),
		Group:          strings.TrimSpace(get("group")),
		Category:       strings.TrimSpace(get("category")),
		Brand:          strings.TrimSpace(get("brand")),
		ProductCode:    strings.TrimSpace(get("productCode")),
		ProductName:    strings.TrimSpace(get("productName")),
		BatchName:      strings.TrimSpace(get("batchName")),
		Qty:            roundInt(CleanNum(get("qty"))),
		RetailerPrice:  CleanNum(get("retailerPrice")),
		DealerPrice:    CleanNum(get("dealerPrice")),
		LtrKg:          CleanNum(get("ltrKg")),
		RetailerAmount: CleanNum(get("retailerAmount")),
		DealerAmount:   CleanNum(get("dealerAmount")),
		StockDate:      coerceDate(get("stockDate"), now),
		ImportedBy:     actor,
	}
	if rec.DealerPrice == 0 && rec.DealerAmount > 0 && rec.Qty > 0 {
		rec.DealerPrice = rec.DealerAmount / float64(rec.Qty)
	}
	if rec.RetailerPrice == 0 && rec.RetailerAmount > 0 && rec.Qty > 0 {
		rec.RetailerPrice = rec.RetailerAmount / float64(rec.Qty)
	}
	return rec
}
