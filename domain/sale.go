package domain

// Sale is one completed line of a bill. Rows are append-only: once
// written they are never updated or deleted, and the product name is a
// snapshot taken at sale time.
type Sale struct {
	ID            int64   `db:"id" json:"id"`
	SaleDate      Date    `db:"sale_date" json:"sale_date"`
	ProductSerial int64   `db:"product_serial" json:"product_serial"`
	ProductName   string  `db:"product_name" json:"product_name"`
	Quantity      int64   `db:"quantity" json:"quantity"`
	Amount        float64 `db:"amount" json:"amount"`
}

// TodaySummary aggregates the sales recorded on a single date.
type TodaySummary struct {
	SalesCount int64   `db:"cnt" json:"sales_count"`
	Revenue    float64 `db:"revenue" json:"revenue"`
}

// TopSeller is a product name with its all-time quantity sold.
type TopSeller struct {
	ProductName  string `db:"product_name" json:"product_name"`
	QuantitySold int64  `db:"qty_sold" json:"quantity_sold"`
}
