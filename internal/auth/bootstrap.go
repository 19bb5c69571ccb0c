package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/openvote/backend/internal/models"
	"github.com/openvote/backend/pkg/utils"
)

// EnsureAdmin seeds the bootstrap admin account once at startup. If a user
// with the configured email already exists it does nothing, so restarts and
// concurrent instances are safe.
func EnsureAdmin(ctx context.Context, store UserStore, email, password string, logger *zap.Logger) error {
	_, err := store.GetByEmail(ctx, email)
	if err == nil {
		logger.Info("admin account already exists", zap.String("email", email))
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("look up admin: %w", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := store.Create(ctx, email, hash, models.RoleAdmin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("admin account created", zap.String("email", email))
	return nil
}
