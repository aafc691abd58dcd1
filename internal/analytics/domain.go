package analytics

import "time"

// SalesOptions lists the distinct filter values available over the sales
// register, used to populate dashboard dropdowns.
type SalesOptions struct {
	Divisions  []string `json:"divisions"`
	Depots     []string `json:"depots"`
	ProdLines  []string `json:"prodLines"`
	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
	Sellers    []string `json:"sellers"`
	Employees  []string `json:"employees"`
	DBNames    []string `json:"dbNames"`
}

// StockOptions lists the distinct filter values available over the stock
// ledger.
type StockOptions struct {
	Divisions  []string `json:"divisions"`
	SiteNames  []string `json:"siteNames"`
	Groups     []string `json:"groups"`
	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
	Sources    []string `json:"sources"`
	PartyNames []string `json:"partyNames"`
}

// SalesSummaryQuery groups sales records by the requested dimensions after
// applying the filters. Dimension names are whitelisted before touching SQL.
type SalesSummaryQuery struct {
	Dimensions []string            `validate:"required,min=1,dive,oneof=division depot prodLine category brand seller employeeName dbName productName"`
	Filters    map[string][]string `validate:"dive,keys,oneof=division depot prodLine category brand seller employeeName dbName productName,endkeys"`
	StartDate  *time.Time
	EndDate    *time.Time
}

// StockSummaryQuery groups stock records by the requested dimensions.
type StockSummaryQuery struct {
	Dimensions []string            `validate:"required,min=1,dive,oneof=division siteName group category brand source partyName productName"`
	Filters    map[string][]string `validate:"dive,keys,oneof=division siteName group category brand source partyName productName,endkeys"`
	StartDate  *time.Time
	EndDate    *time.Time
}

// SalesSummaryRow is one grouped aggregate over the sales register.
type SalesSummaryRow struct {
	Keys     map[string]string `json:"keys"`
	QtyPc    int64             `json:"qtyPc"`
	QtyLtrKg float64           `json:"qtyLtrKg"`
	DPValue  float64           `json:"dpValue"`
	TPValue  float64           `json:"tpValue"`
	Records  int64             `json:"records"`
}

// StockSummaryRow is one grouped aggregate over the stock ledger.
type StockSummaryRow struct {
	Keys           map[string]string `json:"keys"`
	Qty            int64             `json:"qty"`
	LtrKg          float64           `json:"ltrKg"`
	RetailerAmount float64           `json:"retailerAmount"`
	DealerAmount   float64           `json:"dealerAmount"`
	Records        int64             `json:"records"`
}
