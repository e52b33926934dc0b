package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Setting keys used by the application.
const (
	KeyOwnerPassword = "owner_password"
	KeyUITheme       = "ui_theme"
)

// Settings is the key/value store backing the owner password and UI
// theme. The password is stored as a bcrypt hash.
type Settings struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewSettings creates a Settings store on the given handle.
func NewSettings(db *sqlx.DB, logger zerolog.Logger) *Settings {
	return &Settings{
		db:     db,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// Get reads one setting, returning fallback when the key is absent.
func (s *Settings) Get(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fallback, nil
		}
		return "", fmt.Errorf("unable to read setting %s: %w", key, err)
	}
	return value, nil
}

// Set upserts one setting.
func (s *Settings) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("unable to write setting %s: %w", key, err)
	}
	return nil
}

// VerifyPassword checks a candidate against the stored owner password
// hash.
func (s *Settings) VerifyPassword(ctx context.Context, password string) (bool, error) {
	hash, err := s.Get(ctx, KeyOwnerPassword, "")
	if err != nil {
		return false, err
	}
	if hash == "" {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// UpdatePassword hashes and stores a new owner password.
func (s *Settings) UpdatePassword(ctx context.Context, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return validationf("password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("unable to secure password: %w", err)
	}
	if err := s.Set(ctx, KeyOwnerPassword, string(hashed)); err != nil {
		return err
	}
	s.logger.Info().Msg("owner password updated")
	return nil
}

// Theme returns the stored UI theme, defaulting to light.
func (s *Settings) Theme(ctx context.Context) (string, error) {
	return s.Get(ctx, KeyUITheme, "light")
}

// SetTheme stores the UI theme. Anything other than dark normalizes to
// light.
func (s *Settings) SetTheme(ctx context.Context, theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != "dark" {
		theme = "light"
	}
	return s.Set(ctx, KeyUITheme, theme)
}
