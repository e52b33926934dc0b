package store

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/database"
	"pharmadesk/m/internal/migrations"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return db
}

func testProduct(serial int64, name string, price float64, quantity int64) *domain.Product {
	return &domain.Product{
		Serial:       serial,
		Name:         name,
		Salt:         "Paracetamol",
		Company:      "Acme Pharma",
		Distributor:  "MedSupply Co",
		Batch:        "B-100",
		PurchaseDate: domain.NewDate(2024, time.January, 10),
		MfgDate:      domain.NewDate(2023, time.December, 1),
		ExpDate:      domain.NewDate(2026, time.December, 1),
		Price:        price,
		Quantity:     quantity,
	}
}

func mustAddProduct(t *testing.T, db *sqlx.DB, p *domain.Product) {
	t.Helper()
	catalog := NewProductCatalog(db, zerolog.Nop())
	require.NoError(t, catalog.Add(context.Background(), p))
}

func productQuantity(t *testing.T, db *sqlx.DB, serial int64) int64 {
	t.Helper()
	var quantity int64
	require.NoError(t, db.Get(&quantity, `SELECT quantity FROM products WHERE serial = ?`, serial))
	return quantity
}

func salesCount(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM sales`))
	return count
}

func ledgerTotal(t *testing.T, db *sqlx.DB) float64 {
	t.Helper()
	var total float64
	require.NoError(t, db.Get(&total, `SELECT COALESCE(SUM(amount), 0) FROM sales`))
	return total
}
