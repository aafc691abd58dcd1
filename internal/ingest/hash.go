package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Record hashes are dedup keys, not security primitives. The digest covers a
// fixed field subset serialized in a fixed order so that identical rows hash
// identically on every machine.

// SalesHash computes the content hash of a sales record.
func SalesHash(r SalesRecord) string {
	payload := fmt.Sprintf(`{"date":%q,"dbCode":%q,"productCode":%q,"empId":%q,"qtyPc":%d,"dpValue":%s}`,
		r.Date.UTC().Format(time.RFC3339),
		r.DBCode, r.ProductCode, r.EmpID, r.QtyPc, formatDecimal(r.DPValue))
	return digest(payload)
}

// StockHash computes the content hash of a stock record.
func StockHash(r StockRecord) string {
	payload := fmt.Sprintf(`{"stockDate":%q,"productCode":%q,"batchName":%q,"siteName":%q,"qty":%d,"division":%q}`,
		r.StockDate.UTC().Format(time.RFC3339),
		r.ProductCode, r.BatchName, r.SiteName, r.Qty, r.Division)
	return digest(payload)
}

func digest(payload string) string {
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
