// Package bootstrap handles one-time initialization tasks for the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/larder/internal/domain"
)

// MinAdminPasswordLength is stricter than the signup minimum.
const MinAdminPasswordLength = 12

// AdminConfig contains configuration for the initial admin account.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// Validate checks that the admin configuration is valid.
func (c *AdminConfig) Validate() error {
	if c.Username == "" {
		return errors.New("admin username is required")
	}
	if c.Email == "" {
		return errors.New("admin email is required")
	}
	if len(c.Password) < MinAdminPasswordLength {
		return fmt.Errorf("admin password must be at least %d characters", MinAdminPasswordLength)
	}
	return nil
}

// EnsureAdmin creates the initial admin account if it doesn't exist.
// It is idempotent and safe to call on every startup.
//
// A nil config or an empty password skips creation with a warning, which
// allows running without an admin in development.
func EnsureAdmin(ctx context.Context, accounts domain.AccountService, cfg *AdminConfig, logger *slog.Logger) error {
	if cfg == nil || cfg.Password == "" {
		logger.Warn("bootstrap: skipping admin creation - ADMIN_PASSWORD not set",
			"hint", "Set ADMIN_EMAIL and ADMIN_PASSWORD to create an admin account on first startup",
		)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid admin configuration: %w", err)
	}

	err := accounts.EnsureAdmin(ctx, domain.SignupParams{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure admin account: %w", err)
	}

	logger.Info("bootstrap: admin account ready", "username", cfg.Username)
	return nil
}
