package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// DefaultOwnerPassword is the password seeded on a fresh database. The
// owner is expected to change it through the settings surface.
const DefaultOwnerPassword = "owner123"

type migration struct {
	version int
	apply   func(tx *sqlx.Tx) error
}

func statements(stmts ...string) func(tx *sqlx.Tx) error {
	return func(tx *sqlx.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

var all = []migration{
	{1, statements(
		`CREATE TABLE IF NOT EXISTS products (
			serial INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			company TEXT,
			distributor TEXT,
			batch TEXT,
			purchase_date TEXT NOT NULL,
			exp_date TEXT NOT NULL,
			price REAL NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS sales (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sale_date TEXT NOT NULL,
			product_serial INTEGER NOT NULL,
			product_name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			amount REAL NOT NULL,
			FOREIGN KEY (product_serial) REFERENCES products(serial)
		);`,
		`CREATE TABLE IF NOT EXISTS monthly_sales (
			month INTEGER PRIMARY KEY,
			amount REAL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS serial_counter (
			id INTEGER PRIMARY KEY,
			counter INTEGER DEFAULT 1000
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`INSERT OR IGNORE INTO serial_counter (id, counter) VALUES (1, 1000);`,
	)},
	{2, statements(
		`ALTER TABLE products ADD COLUMN salt TEXT NOT NULL DEFAULT '';`,
	)},
	{3, statements(
		`ALTER TABLE products ADD COLUMN mfg_date TEXT;`,
	)},
	{4, seedDefaults},
}

// seedDefaults fills the fixed rows the engine assumes exist: one
// monthly bucket per calendar month, the default UI theme and a hashed
// owner password.
func seedDefaults(tx *sqlx.Tx) error {
	for month := 0; month < 12; month++ {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO monthly_sales (month, amount) VALUES (?, 0)`, month); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES ('ui_theme', 'light')`); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultOwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES ('owner_password', ?)`, string(hashed))
	return err
}

// Run applies pending schema migrations in order, each in its own
// transaction, then re-synchronizes the serial counter against the
// product catalog. The steady-state read path assumes a fully migrated
// schema; there are no per-read column fallbacks.
func Run(db *sqlx.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("unable to create schema_migrations: %w", err)
	}

	var current int
	if err := db.Get(&current, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return fmt.Errorf("unable to read schema version: %w", err)
	}

	for _, m := range all {
		if m.version <= current {
			continue
		}
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
	}

	return syncSerialCounter(db)
}

// syncSerialCounter raises the counter to the highest existing product
// serial, keeping the invariant counter >= MAX(products.serial) even
// after counter loss or externally inserted rows.
func syncSerialCounter(db *sqlx.DB) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("unable to sync serial counter: %w", err)
	}
	defer tx.Rollback()

	var maxSerial int64
	if err := tx.Get(&maxSerial, `SELECT COALESCE(MAX(serial), 0) FROM products`); err != nil {
		return fmt.Errorf("unable to read max serial: %w", err)
	}
	var counter int64
	if err := tx.Get(&counter, `SELECT counter FROM serial_counter WHERE id = 1`); err != nil {
		return fmt.Errorf("unable to read serial counter: %w", err)
	}
	if maxSerial > counter {
		if _, err := tx.Exec(`UPDATE serial_counter SET counter = ? WHERE id = 1`, maxSerial); err != nil {
			return fmt.Errorf("unable to raise serial counter: %w", err)
		}
	}
	return tx.Commit()
}
