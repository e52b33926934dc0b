package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/m/internal/database"
)

func TestRun_CreatesSchemaAndSeeds(t *testing.T) {
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Run(db))

	var counter int64
	require.NoError(t, db.Get(&counter, `SELECT counter FROM serial_counter WHERE id = 1`))
	assert.Equal(t, int64(1000), counter)

	var monthRows int
	require.NoError(t, db.Get(&monthRows, `SELECT COUNT(*) FROM monthly_sales`))
	assert.Equal(t, 12, monthRows)

	var theme string
	require.NoError(t, db.Get(&theme, `SELECT value FROM settings WHERE key = 'ui_theme'`))
	assert.Equal(t, "light", theme)

	var hash string
	require.NoError(t, db.Get(&hash, `SELECT value FROM settings WHERE key = 'owner_password'`))
	assert.NotEqual(t, DefaultOwnerPassword, hash, "password must be stored hashed")

	var version int
	require.NoError(t, db.Get(&version, `SELECT MAX(version) FROM schema_migrations`))
	assert.Equal(t, 4, version)
}

func TestRun_IsIdempotent(t *testing.T) {
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Run(db))
	require.NoError(t, Run(db))

	var applied int
	require.NoError(t, db.Get(&applied, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 4, applied)
}

func TestRun_RaisesSerialCounterBehindCatalog(t *testing.T) {
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Run(db))

	_, err = db.Exec(`INSERT INTO products (serial, name, purchase_date, exp_date, price, quantity)
		VALUES (7000, 'Imported', '2026-01-01', '2027-01-01', 10, 5)`)
	require.NoError(t, err)

	require.NoError(t, Run(db))

	var counter int64
	require.NoError(t, db.Get(&counter, `SELECT counter FROM serial_counter WHERE id = 1`))
	assert.Equal(t, int64(7000), counter)
}
