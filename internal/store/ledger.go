package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"pharmadesk/m/domain"
)

// MonthsPerYear sizes the monthly revenue buckets.
const MonthsPerYear = 12

// SalesLedger is the append-only record of completed sale lines, plus
// the 12-bucket monthly revenue totals kept consistent with it. Rows
// are only ever written through a bill transaction; there are no
// update or delete paths.
type SalesLedger struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewSalesLedger creates a SalesLedger on the given handle.
func NewSalesLedger(db *sqlx.DB, logger zerolog.Logger) *SalesLedger {
	return &SalesLedger{
		db:     db,
		logger: logger.With().Str("component", "sales_ledger").Logger(),
	}
}

// append writes one sale row inside the caller's transaction.
func (l *SalesLedger) append(ctx context.Context, tx *sqlx.Tx, sale *domain.Sale) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO sales (sale_date, product_serial, product_name, quantity, amount)
		VALUES (?, ?, ?, ?, ?)`,
		sale.SaleDate, sale.ProductSerial, sale.ProductName, sale.Quantity, sale.Amount)
	if err != nil {
		return fmt.Errorf("unable to append sale: %w", err)
	}
	sale.ID, _ = res.LastInsertId()
	return nil
}

// addToMonth adds amount to one monthly bucket inside the caller's
// transaction, so ledger and aggregate always commit together.
func (l *SalesLedger) addToMonth(ctx context.Context, tx *sqlx.Tx, month int, amount float64) error {
	if month < 0 || month >= MonthsPerYear {
		return validationf("month index %d out of range", month)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE monthly_sales SET amount = amount + ? WHERE month = ?`, amount, month); err != nil {
		return fmt.Errorf("unable to update monthly total: %w", err)
	}
	return nil
}

// GetAll returns every sale, most recent date first, then most recent
// insertion first.
func (l *SalesLedger) GetAll(ctx context.Context) ([]domain.Sale, error) {
	var sales []domain.Sale
	err := l.db.SelectContext(ctx, &sales, `SELECT id, sale_date, product_serial, product_name, quantity, amount
		FROM sales ORDER BY sale_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("unable to list sales: %w", err)
	}
	return sales, nil
}

// TodaySummary counts the sales recorded on the given date and sums
// their revenue.
func (l *SalesLedger) TodaySummary(ctx context.Context, date domain.Date) (*domain.TodaySummary, error) {
	var summary domain.TodaySummary
	err := l.db.GetContext(ctx, &summary,
		`SELECT COUNT(*) AS cnt, COALESCE(SUM(amount), 0) AS revenue FROM sales WHERE sale_date = ?`, date)
	if err != nil {
		return nil, fmt.Errorf("unable to summarize sales: %w", err)
	}
	return &summary, nil
}

// TopSelling aggregates all-time quantity sold per product name,
// descending by quantity with name as a deterministic tiebreak.
func (l *SalesLedger) TopSelling(ctx context.Context, limit int) ([]domain.TopSeller, error) {
	if limit < 1 {
		limit = 1
	}
	var sellers []domain.TopSeller
	err := l.db.SelectContext(ctx, &sellers, `SELECT product_name, SUM(quantity) AS qty_sold FROM sales
		GROUP BY product_name ORDER BY qty_sold DESC, product_name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to rank products: %w", err)
	}
	return sellers, nil
}

// MonthlyTotals returns the fixed 12-bucket revenue totals, index 0 =
// January. Untouched months stay at zero.
func (l *SalesLedger) MonthlyTotals(ctx context.Context) ([MonthsPerYear]float64, error) {
	var totals [MonthsPerYear]float64
	rows, err := l.db.QueryxContext(ctx, `SELECT month, amount FROM monthly_sales ORDER BY month`)
	if err != nil {
		return totals, fmt.Errorf("unable to load monthly totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var month int
		var amount float64
		if err := rows.Scan(&month, &amount); err != nil {
			return totals, fmt.Errorf("unable to scan monthly total: %w", err)
		}
		if month >= 0 && month < MonthsPerYear {
			totals[month] = amount
		}
	}
	if err := rows.Err(); err != nil {
		return totals, fmt.Errorf("unable to read monthly totals: %w", err)
	}
	return totals, nil
}
