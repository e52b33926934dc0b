package domain

type Product struct {
	Serial       int64   `db:"serial" json:"serial"`
	Name         string  `db:"name" json:"name"`
	Salt         string  `db:"salt" json:"salt"`
	Company      string  `db:"company" json:"company"`
	Distributor  string  `db:"distributor" json:"distributor"`
	Batch        string  `db:"batch" json:"batch"`
	PurchaseDate Date    `db:"purchase_date" json:"purchase_date"`
	MfgDate      Date    `db:"mfg_date" json:"mfg_date"`
	ExpDate      Date    `db:"exp_date" json:"exp_date"`
	Price        float64 `db:"price" json:"price"`
	Quantity     int64   `db:"quantity" json:"quantity"`
}
