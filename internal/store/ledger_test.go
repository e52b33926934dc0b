package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/m/domain"
)

func recordSingleLine(t *testing.T, engine *BillingEngine, date domain.Date, serial, quantity int64, unit float64) {
	t.Helper()
	_, err := engine.RecordBill(context.Background(), date, []domain.BillLine{
		{Serial: serial, Quantity: quantity, UnitAmount: unit},
	})
	require.NoError(t, err)
}

func TestSalesLedger_GetAllOrdering(t *testing.T) {
	engine, ledger, env := setupBilling(t)
	ctx := context.Background()
	mustAddProduct(t, env.db, testProduct(1000, "A", 10.0, 100))

	older := domain.NewDate(2026, time.January, 5)
	newer := domain.NewDate(2026, time.February, 5)
	recordSingleLine(t, engine, older, 1000, 1, 10)
	recordSingleLine(t, engine, newer, 1000, 2, 10)
	recordSingleLine(t, engine, older, 1000, 3, 10)

	sales, err := ledger.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 3)

	// Newest date first; within a date, latest insertion first.
	assert.True(t, newer.Equal(sales[0].SaleDate))
	assert.True(t, older.Equal(sales[1].SaleDate))
	assert.True(t, older.Equal(sales[2].SaleDate))
	assert.Greater(t, sales[1].ID, sales[2].ID)
}

func TestSalesLedger_TodaySummary(t *testing.T) {
	engine, ledger, env := setupBilling(t)
	ctx := context.Background()
	mustAddProduct(t, env.db, testProduct(1000, "A", 10.0, 100))

	today := domain.NewDate(2026, time.May, 20)
	other := domain.NewDate(2026, time.May, 21)
	recordSingleLine(t, engine, today, 1000, 2, 10)
	recordSingleLine(t, engine, today, 1000, 1, 10)
	recordSingleLine(t, engine, other, 1000, 5, 10)

	summary, err := ledger.TodaySummary(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.SalesCount)
	assert.Equal(t, 30.0, summary.Revenue)

	empty, err := ledger.TodaySummary(ctx, domain.NewDate(2026, time.May, 22))
	require.NoError(t, err)
	assert.Zero(t, empty.SalesCount)
	assert.Zero(t, empty.Revenue)
}

func TestSalesLedger_TopSellingOrderingAndTiebreak(t *testing.T) {
	engine, ledger, env := setupBilling(t)
	ctx := context.Background()
	mustAddProduct(t, env.db, testProduct(1000, "Zinc Tabs", 5.0, 100))
	mustAddProduct(t, env.db, testProduct(1001, "Aspirin", 5.0, 100))
	mustAddProduct(t, env.db, testProduct(1002, "Cough Syrup", 5.0, 100))

	date := domain.NewDate(2026, time.April, 1)
	recordSingleLine(t, engine, date, 1000, 4, 5)  // Zinc Tabs: 4
	recordSingleLine(t, engine, date, 1001, 4, 5)  // Aspirin: 4
	recordSingleLine(t, engine, date, 1002, 10, 5) // Cough Syrup: 10

	sellers, err := ledger.TopSelling(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sellers, 3)
	assert.Equal(t, "Cough Syrup", sellers[0].ProductName)
	assert.Equal(t, int64(10), sellers[0].QuantitySold)
	// Tie on quantity breaks by name for determinism.
	assert.Equal(t, "Aspirin", sellers[1].ProductName)
	assert.Equal(t, "Zinc Tabs", sellers[2].ProductName)

	limited, err := ledger.TopSelling(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSalesLedger_MonthlyTotalsMatchLedger(t *testing.T) {
	engine, ledger, env := setupBilling(t)
	ctx := context.Background()
	mustAddProduct(t, env.db, testProduct(1000, "A", 10.0, 1000))

	// Same calendar month across different years lands in one bucket.
	recordSingleLine(t, engine, domain.NewDate(2025, time.March, 3), 1000, 2, 10)
	recordSingleLine(t, engine, domain.NewDate(2026, time.March, 9), 1000, 3, 10)
	recordSingleLine(t, engine, domain.NewDate(2026, time.December, 25), 1000, 1, 10)

	totals, err := ledger.MonthlyTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, MonthsPerYear)

	assert.Equal(t, 50.0, totals[2])
	assert.Equal(t, 10.0, totals[11])

	var sum float64
	for _, total := range totals {
		sum += total
	}
	assert.Equal(t, ledgerTotal(t, env.db), sum)
}

func TestSalesLedger_MonthlyTotalsAllZeroOnFreshDatabase(t *testing.T) {
	db := newTestDB(t)
	ledger := NewSalesLedger(db, zerolog.Nop())

	totals, err := ledger.MonthlyTotals(context.Background())
	require.NoError(t, err)
	for month, total := range totals {
		assert.Zerof(t, total, "month %d", month)
	}
}
