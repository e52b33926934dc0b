package domain

// BillLine is one caller-submitted line of a bill. UnitAmount is the
// unit price to charge; when zero the product's current price applies.
type BillLine struct {
	Serial     int64   `json:"serial"`
	Quantity   int64   `json:"quantity"`
	UnitAmount float64 `json:"unit_amount"`
}

// LowStockWarning flags a product whose remaining quantity dropped
// below the low-stock threshold after a sale, without running out.
type LowStockWarning struct {
	ProductSerial     int64  `json:"product_serial"`
	ProductName       string `json:"product_name"`
	RemainingQuantity int64  `json:"remaining_quantity"`
}

// BillResult is the outcome of a successfully committed bill.
type BillResult struct {
	Warnings []LowStockWarning `json:"warnings"`
}
