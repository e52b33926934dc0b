package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"pharmadesk/m/domain"
)

// LowStockThreshold is the quantity below which a committed sale line
// raises a low-stock warning. A remaining quantity of zero is out of
// stock, never low stock.
const LowStockThreshold = 5

// BillingEngine commits multi-line bills as single atomic
// transactions: every line's stock decrement, ledger append and
// monthly-bucket update succeed together or not at all.
type BillingEngine struct {
	db     *sqlx.DB
	ledger *SalesLedger
	logger zerolog.Logger
}

// NewBillingEngine creates a BillingEngine writing through the given
// ledger.
func NewBillingEngine(db *sqlx.DB, ledger *SalesLedger, logger zerolog.Logger) *BillingEngine {
	return &BillingEngine{
		db:     db,
		ledger: ledger,
		logger: logger.With().Str("component", "billing_engine").Logger(),
	}
}

// billProduct is the slice of the product row a bill line needs.
type billProduct struct {
	Name     string  `db:"name"`
	Price    float64 `db:"price"`
	Quantity int64   `db:"quantity"`
}

// RecordBill validates and commits the bill. Lines are processed
// strictly sequentially inside one transaction; each line re-reads the
// product row, so cumulative demand across lines for the same serial
// is checked against the running remaining balance, not a stale
// snapshot. The first failing line aborts the whole bill and rolls
// back every earlier line's effects.
func (e *BillingEngine) RecordBill(ctx context.Context, saleDate domain.Date, lines []domain.BillLine) (*domain.BillResult, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyBill
	}
	if saleDate.IsZero() {
		return nil, validationf("sale date is required")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, validationf("invalid quantity for product S#%d", line.Serial)
		}
		if line.UnitAmount < 0 {
			return nil, validationf("invalid unit amount for product S#%d", line.Serial)
		}
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to start bill transaction: %w", err)
	}
	defer tx.Rollback()

	monthIndex := saleDate.MonthIndex()
	var warnings []domain.LowStockWarning

	for _, line := range lines {
		var p billProduct
		err := tx.GetContext(ctx, &p, `SELECT name, price, quantity FROM products WHERE serial = ?`, line.Serial)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("product S#%d: %w", line.Serial, ErrProductNotFound)
			}
			return nil, fmt.Errorf("unable to read stock for S#%d: %w", line.Serial, err)
		}

		if p.Quantity <= 0 {
			return nil, &OutOfStockError{Serial: line.Serial, Name: p.Name}
		}
		if p.Quantity < line.Quantity {
			return nil, &InsufficientStockError{
				Serial:    line.Serial,
				Name:      p.Name,
				Requested: line.Quantity,
				Available: p.Quantity,
			}
		}

		newQuantity := p.Quantity - line.Quantity
		if _, err := tx.ExecContext(ctx, `UPDATE products SET quantity = ? WHERE serial = ?`, newQuantity, line.Serial); err != nil {
			return nil, fmt.Errorf("unable to decrement stock for S#%d: %w", line.Serial, err)
		}

		unit := line.UnitAmount
		if unit == 0 {
			unit = p.Price
		}
		sale := &domain.Sale{
			SaleDate:      saleDate,
			ProductSerial: line.Serial,
			ProductName:   p.Name,
			Quantity:      line.Quantity,
			Amount:        unit * float64(line.Quantity),
		}
		if err := e.ledger.append(ctx, tx, sale); err != nil {
			return nil, err
		}
		if err := e.ledger.addToMonth(ctx, tx, monthIndex, sale.Amount); err != nil {
			return nil, err
		}

		if newQuantity > 0 && newQuantity < LowStockThreshold {
			warnings = append(warnings, domain.LowStockWarning{
				ProductSerial:     line.Serial,
				ProductName:       p.Name,
				RemainingQuantity: newQuantity,
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("unable to commit bill: %w", err)
	}

	e.logger.Info().
		Str("sale_date", saleDate.String()).
		Int("lines", len(lines)).
		Int("low_stock_warnings", len(warnings)).
		Msg("bill recorded")
	return &domain.BillResult{Warnings: warnings}, nil
}
