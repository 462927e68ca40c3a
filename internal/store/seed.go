package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twiztd/cpbc-volunteer-app/internal/auth"
)

// Seed creates the initial super admin account when the directory is empty.
// The "at most one super admin" invariant is enforced from this point on by
// the transfer protocol; "at least one" is not enforced anywhere, so a zero
// count after bootstrap is logged as an operational warning and left for
// operators to resolve.
func Seed(ctx context.Context, db *sql.DB, email, password string) error {
	queries := New(db)

	count, err := queries.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("counting admin users: %w", err)
	}

	if count > 0 {
		supers, err := queries.CountActiveSuperAdmins(ctx)
		if err != nil {
			return fmt.Errorf("counting super admins: %w", err)
		}
		if supers == 0 {
			slog.Warn("no active super admin account exists; role transfers are impossible until one is restored manually")
		}
		return nil
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	admin, err := queries.CreateAdmin(ctx, CreateAdminParams{
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         "Administrator",
		IsSuperAdmin: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating super admin: %w", err)
	}

	slog.Info("created initial super admin account",
		"id", admin.ID,
		"email", admin.Email,
	)

	return nil
}
