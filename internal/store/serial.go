package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// SerialAllocator issues unique, monotonically increasing product
// serials backed by the serial_counter row. Each allocation advances
// the counter by exactly one inside its own transaction, so a failed
// persist never leaves a partially visible increment and two
// concurrent calls can never observe the same pre-increment value.
type SerialAllocator struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewSerialAllocator creates a SerialAllocator on the given handle.
func NewSerialAllocator(db *sqlx.DB, logger zerolog.Logger) *SerialAllocator {
	return &SerialAllocator{
		db:     db,
		logger: logger.With().Str("component", "serial_allocator").Logger(),
	}
}

// Next allocates the next serial. The new counter value is durably
// committed before it is returned.
func (a *SerialAllocator) Next(ctx context.Context) (int64, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("unable to allocate serial: %w", err)
	}
	defer tx.Rollback()

	var counter int64
	if err := tx.GetContext(ctx, &counter, `SELECT counter FROM serial_counter WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("unable to read serial counter: %w", err)
	}

	next := counter + 1
	if _, err := tx.ExecContext(ctx, `UPDATE serial_counter SET counter = ? WHERE id = 1`, next); err != nil {
		return 0, fmt.Errorf("unable to advance serial counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("unable to persist serial counter: %w", err)
	}

	a.logger.Debug().Int64("serial", next).Msg("allocated serial")
	return next, nil
}

// Sync raises the counter to the highest existing product serial if it
// has fallen behind. Startup runs this before the first allocation.
func (a *SerialAllocator) Sync(ctx context.Context) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to sync serial counter: %w", err)
	}
	defer tx.Rollback()

	var maxSerial int64
	if err := tx.GetContext(ctx, &maxSerial, `SELECT COALESCE(MAX(serial), 0) FROM products`); err != nil {
		return fmt.Errorf("unable to read max serial: %w", err)
	}
	var counter int64
	if err := tx.GetContext(ctx, &counter, `SELECT counter FROM serial_counter WHERE id = 1`); err != nil {
		return fmt.Errorf("unable to read serial counter: %w", err)
	}
	if maxSerial <= counter {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE serial_counter SET counter = ? WHERE id = 1`, maxSerial); err != nil {
		return fmt.Errorf("unable to raise serial counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to persist serial counter: %w", err)
	}

	a.logger.Info().Int64("counter", maxSerial).Msg("serial counter raised to catalog max")
	return nil
}
