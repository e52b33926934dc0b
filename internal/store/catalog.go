package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"pharmadesk/m/domain"
)

// NearExpiryMonths is the window within which a product counts as
// nearing expiry.
const NearExpiryMonths = 6

// productColumns is the canonical select list. An empty mfg_date falls
// back to the purchase date, matching how legacy rows were recorded.
const productColumns = `serial, name, salt, company, distributor, batch, purchase_date,
	COALESCE(NULLIF(mfg_date, ''), purchase_date) AS mfg_date, exp_date, price, quantity`

// ProductCatalog provides CRUD over the products table plus the
// per-product stock quantity ledger.
type ProductCatalog struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewProductCatalog creates a ProductCatalog on the given handle.
func NewProductCatalog(db *sqlx.DB, logger zerolog.Logger) *ProductCatalog {
	return &ProductCatalog{
		db:     db,
		logger: logger.With().Str("component", "product_catalog").Logger(),
	}
}

func validateProduct(p *domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return validationf("product name is required")
	}
	if p.Price <= 0 {
		return validationf("price must be greater than zero")
	}
	if p.Quantity < 0 {
		return validationf("quantity must not be negative")
	}
	if p.PurchaseDate.IsZero() || p.ExpDate.IsZero() {
		return validationf("purchase_date and exp_date are required")
	}
	if p.MfgDate.IsZero() {
		p.MfgDate = p.PurchaseDate
	}
	if p.ExpDate.Before(p.MfgDate) {
		return validationf("exp_date must not be before mfg_date")
	}
	return nil
}

// Add inserts a new product under its allocator-issued serial. A
// duplicate serial is reported as ErrDuplicateSerial, distinct from
// generic storage failures.
func (c *ProductCatalog) Add(ctx context.Context, p *domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, `INSERT INTO products
		(serial, name, salt, company, distributor, batch, purchase_date, mfg_date, exp_date, price, quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Serial, p.Name, p.Salt, p.Company, p.Distributor, p.Batch,
		p.PurchaseDate, p.MfgDate, p.ExpDate, p.Price, p.Quantity)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, "products.serial") {
			c.logger.Warn().Int64("serial", p.Serial).Msg("duplicate serial on add")
			return ErrDuplicateSerial
		}
		return fmt.Errorf("unable to add product: %w", err)
	}
	return nil
}

// Update rewrites every mutable field of the product identified by its
// serial.
func (c *ProductCatalog) Update(ctx context.Context, p *domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx, `UPDATE products SET name = ?, salt = ?, company = ?, distributor = ?,
		batch = ?, purchase_date = ?, mfg_date = ?, exp_date = ?, price = ?, quantity = ? WHERE serial = ?`,
		p.Name, p.Salt, p.Company, p.Distributor, p.Batch,
		p.PurchaseDate, p.MfgDate, p.ExpDate, p.Price, p.Quantity, p.Serial)
	if err != nil {
		return fmt.Errorf("unable to update product: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetBySerial loads one product.
func (c *ProductCatalog) GetBySerial(ctx context.Context, serial int64) (*domain.Product, error) {
	var p domain.Product
	err := c.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE serial = ?`, serial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("unable to load product: %w", err)
	}
	return &p, nil
}

// ListAll returns every product, ascending by serial.
func (c *ProductCatalog) ListAll(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products ORDER BY serial`); err != nil {
		return nil, fmt.Errorf("unable to list products: %w", err)
	}
	return products, nil
}

// UpdateQuantity sets the stock quantity of one product in a single
// atomic write.
func (c *ProductCatalog) UpdateQuantity(ctx context.Context, serial, newQuantity int64) error {
	if newQuantity < 0 {
		return validationf("quantity must not be negative")
	}
	res, err := c.db.ExecContext(ctx, `UPDATE products SET quantity = ? WHERE serial = ?`, newQuantity, serial)
	if err != nil {
		return fmt.Errorf("unable to update quantity: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrProductNotFound
	}
	return nil
}

// FindDuplicates returns products matching both name and batch exactly.
// Advisory only: nothing enforces uniqueness of the pair.
func (c *ProductCatalog) FindDuplicates(ctx context.Context, name, batch string) ([]domain.Product, error) {
	var products []domain.Product
	err := c.db.SelectContext(ctx, &products,
		`SELECT `+productColumns+` FROM products WHERE name = ? AND batch = ? ORDER BY serial`, name, batch)
	if err != nil {
		return nil, fmt.Errorf("unable to find duplicates: %w", err)
	}
	return products, nil
}

// DistinctCompanies lists the distinct non-empty company names.
func (c *ProductCatalog) DistinctCompanies(ctx context.Context) ([]string, error) {
	return c.distinctNonEmpty(ctx, "company")
}

// DistinctDistributors lists the distinct non-empty distributor names.
func (c *ProductCatalog) DistinctDistributors(ctx context.Context) ([]string, error) {
	return c.distinctNonEmpty(ctx, "distributor")
}

// distinctNonEmpty reads distinct trimmed values of a column. The
// column name comes from code, never from user input.
func (c *ProductCatalog) distinctNonEmpty(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT TRIM(%s) AS v FROM products
		WHERE %s IS NOT NULL AND TRIM(%s) <> '' ORDER BY v`, column, column, column)
	var values []string
	if err := c.db.SelectContext(ctx, &values, query); err != nil {
		return nil, fmt.Errorf("unable to list %s values: %w", column, err)
	}
	return values, nil
}

// ExpiringSoon returns in-stock products expiring within
// NearExpiryMonths of now, soonest first. Already expired products are
// excluded.
func (c *ProductCatalog) ExpiringSoon(ctx context.Context, now domain.Date) ([]domain.Product, error) {
	limit := now.AddMonths(NearExpiryMonths)
	var products []domain.Product
	err := c.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products
		WHERE quantity > 0 AND exp_date >= ? AND exp_date <= ? ORDER BY exp_date, serial`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list near-expiry products: %w", err)
	}
	return products, nil
}

// Expired returns in-stock products whose expiry date has passed.
func (c *ProductCatalog) Expired(ctx context.Context, now domain.Date) ([]domain.Product, error) {
	var products []domain.Product
	err := c.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products
		WHERE quantity > 0 AND exp_date < ? ORDER BY exp_date, serial`, now)
	if err != nil {
		return nil, fmt.Errorf("unable to list expired products: %w", err)
	}
	return products, nil
}
