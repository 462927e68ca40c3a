// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the business rules of the volunteer app: admin
// authentication and account management, the super admin transfer protocol,
// the password reset lifecycle, and volunteer signup handling.
package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twiztd/cpbc-volunteer-app/internal/auth"
	"github.com/twiztd/cpbc-volunteer-app/internal/mailer"
	"github.com/twiztd/cpbc-volunteer-app/internal/model"
	"github.com/twiztd/cpbc-volunteer-app/internal/store"
)

// MinPasswordLength is the minimum accepted admin password length.
const MinPasswordLength = 6

// resetTokenBytes is the entropy of a generated reset token. The token is
// hex-encoded, so the stored string is twice this length.
const resetTokenBytes = 32

// AdminService manages admin accounts: login, creation, updates, the super
// admin role, and password resets.
type AdminService struct {
	db      *sql.DB
	queries *store.Queries
	tokens  *auth.TokenIssuer
	mailer  *mailer.Mailer

	resetTTL time.Duration
	now      func() time.Time
}

// NewAdminService creates an AdminService. resetTTL bounds how long a
// password reset token stays valid.
func NewAdminService(db *sql.DB, tokens *auth.TokenIssuer, m *mailer.Mailer, resetTTL time.Duration) *AdminService {
	return &AdminService{
		db:       db,
		queries:  store.New(db),
		tokens:   tokens,
		mailer:   m,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// SetClock overrides the service's time source. Used in tests to exercise
// reset token expiry deterministically.
func (s *AdminService) SetClock(now func() time.Time) {
	s.now = now
}

// Login verifies credentials and returns a signed session token along with
// the account. Unknown emails, wrong passwords, and inactive accounts all
// fail with ErrInvalidCredentials.
func (s *AdminService) Login(ctx context.Context, email, password string) (string, model.AdminUser, error) {
	admin, err := s.queries.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn comparable CPU so an unknown email is not distinguishable
			// from a wrong password by response timing.
			_, _ = auth.CheckPassword(password, dummyHash)
			return "", model.AdminUser{}, ErrInvalidCredentials
		}
		return "", model.AdminUser{}, fmt.Errorf("looking up account: %w", err)
	}

	ok, err := auth.CheckPassword(password, admin.PasswordHash)
	if err != nil || !ok {
		return "", model.AdminUser{}, ErrInvalidCredentials
	}

	if !admin.IsActive {
		return "", model.AdminUser{}, ErrInvalidCredentials
	}

	// Transparently upgrade hashes created with older parameters.
	if auth.NeedsRehash(admin.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			err = s.queries.UpdateAdminPassword(ctx, store.UpdateAdminPasswordParams{
				ID:           admin.ID,
				PasswordHash: newHash,
				UpdatedAt:    s.now(),
			})
			if err != nil {
				slog.Warn("rehashing password on login failed", "admin_id", admin.ID, "error", err)
			}
		}
	}

	token, err := s.tokens.Issue(admin.Email)
	if err != nil {
		return "", model.AdminUser{}, fmt.Errorf("issuing token: %w", err)
	}
	return token, admin, nil
}

// dummyHash is verified against when an email lookup misses, to keep login
// timing uniform. Any well-formed argon2id string works; the check always
// fails.
var dummyHash = func() string {
	h, err := auth.HashPassword("timing-equalization-placeholder")
	if err != nil {
		panic(err)
	}
	return h
}()

// ResolveByEmail returns the active account carrying the given email. It is
// the directory lookup behind token verification: inactive and unknown
// accounts are both reported as sql.ErrNoRows so the transport layer treats
// them identically.
func (s *AdminService) ResolveByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	admin, err := s.queries.GetAdminByEmail(ctx, email)
	if err != nil {
		return model.AdminUser{}, err
	}
	if !admin.IsActive {
		return model.AdminUser{}, sql.ErrNoRows
	}
	return admin, nil
}

// CreateAdminInput holds the fields accepted when creating an account.
type CreateAdminInput struct {
	Email    string
	Password string
	Name     string
}

// CreateAdmin creates a regular admin account. The email is stored
// lower-cased; duplicates under case-insensitive comparison fail with
// ErrDuplicateEmail.
func (s *AdminService) CreateAdmin(ctx context.Context, input CreateAdminInput) (model.AdminUser, error) {
	if len(input.Password) < MinPasswordLength {
		return model.AdminUser{}, ErrPasswordTooShort
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	if _, err := s.queries.GetAdminByEmail(ctx, email); err == nil {
		return model.AdminUser{}, ErrDuplicateEmail
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.AdminUser{}, fmt.Errorf("checking for duplicate email: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return model.AdminUser{}, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now()
	admin, err := s.queries.CreateAdmin(ctx, store.CreateAdminParams{
		Email:        email,
		PasswordHash: hash,
		Name:         input.Name,
		IsSuperAdmin: false,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return model.AdminUser{}, ErrDuplicateEmail
		}
		return model.AdminUser{}, fmt.Errorf("creating account: %w", err)
	}

	slog.Info("admin account created", "admin_id", admin.ID, "email", admin.Email)
	return admin, nil
}

// ListAdmins returns all admin accounts.
func (s *AdminService) ListAdmins(ctx context.Context) ([]model.AdminUser, error) {
	return s.queries.ListAdmins(ctx)
}

// UpdateAdminInput holds the mutable account fields. Nil means unchanged.
type UpdateAdminInput struct {
	Active *bool
	Name   *string
}

// UpdateAdmin mutates an account's active flag and display name. An account
// can never deactivate itself, and the account holding the super admin flag
// can never be deactivated by anyone. The guards are checked against the row
// as read inside the transaction that writes it, so a role transfer committing
// between read and write cannot slip a super admin past the flag check.
func (s *AdminService) UpdateAdmin(ctx context.Context, caller model.AdminUser, targetID int64, input UpdateAdminInput) (model.AdminUser, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.AdminUser{}, fmt.Errorf("beginning update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)

	target, err := qtx.GetAdminByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AdminUser{}, ErrAdminNotFound
		}
		return model.AdminUser{}, fmt.Errorf("looking up account: %w", err)
	}

	active := target.IsActive
	if input.Active != nil {
		if !*input.Active && target.IsActive {
			if target.ID == caller.ID {
				return model.AdminUser{}, ErrSelfDeactivation
			}
			// Checked by flag rather than identity so the guard holds even if
			// the singleton invariant has been violated out of band.
			if target.IsSuperAdmin {
				return model.AdminUser{}, ErrSuperAdminDeactivation
			}
		}
		active = *input.Active
	}

	name := target.Name
	if input.Name != nil {
		name = *input.Name
	}

	err = qtx.UpdateAdmin(ctx, store.UpdateAdminParams{
		ID:        target.ID,
		IsActive:  active,
		Name:      name,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return model.AdminUser{}, fmt.Errorf("updating account: %w", err)
	}

	updated, err := qtx.GetAdminByID(ctx, target.ID)
	if err != nil {
		return model.AdminUser{}, fmt.Errorf("reloading account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.AdminUser{}, fmt.Errorf("committing update: %w", err)
	}

	if input.Active != nil && !*input.Active && target.IsActive {
		slog.Warn("admin account deactivated",
			"admin_id", target.ID, "by", caller.Email, "category", model.EventCategoryAdmin)
	}

	return updated, nil
}

// TransferSuperAdmin moves the super admin role from the caller to the target
// account. Preconditions are re-checked against rows read inside the same
// transaction that performs the writes, so the clear-old/set-new pair commits
// as one atomic unit and concurrent transfers cannot leave zero or two
// holders of the role.
func (s *AdminService) TransferSuperAdmin(ctx context.Context, caller model.AdminUser, targetID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transfer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)

	current, err := qtx.GetAdminByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotSuperAdmin
		}
		return fmt.Errorf("looking up caller: %w", err)
	}
	if !current.IsSuperAdmin {
		return ErrNotSuperAdmin
	}

	if targetID == current.ID {
		return ErrSelfTransfer
	}

	target, err := qtx.GetAdminByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAdminNotFound
		}
		return fmt.Errorf("looking up target: %w", err)
	}
	if !target.IsActive {
		return ErrTargetInactive
	}

	now := s.now()
	if err := qtx.SetSuperAdmin(ctx, current.ID, false, now); err != nil {
		return fmt.Errorf("clearing role: %w", err)
	}
	if err := qtx.SetSuperAdmin(ctx, target.ID, true, now); err != nil {
		return fmt.Errorf("setting role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transfer: %w", err)
	}

	slog.Warn("super admin role transferred",
		"from", current.Email, "to", target.Email, "category", model.EventCategoryAdmin)
	return nil
}

// RequestPasswordReset starts the reset flow for the account carrying the
// given email. It never reports whether the account exists: unknown and
// inactive emails succeed silently, and the reset email is dispatched after
// the token is stored, fire-and-forget.
func (s *AdminService) RequestPasswordReset(ctx context.Context, email string) error {
	admin, err := s.queries.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("looking up account: %w", err)
	}
	if !admin.IsActive {
		slog.Info("password reset requested for inactive account", "admin_id", admin.ID)
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("generating reset token: %w", err)
	}

	now := s.now()
	err = s.queries.SetAdminResetToken(ctx, store.SetAdminResetTokenParams{
		ID:             admin.ID,
		ResetToken:     token,
		ResetExpiresAt: now.Add(s.resetTTL),
		UpdatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	go func() {
		if err := s.mailer.NotifyPasswordReset(admin.Email, token); err != nil {
			slog.Error("sending reset email failed",
				"admin_id", admin.ID, "error", err, "category", model.EventCategoryEmail)
		}
	}()

	return nil
}

// CompletePasswordReset consumes a reset token and sets a new password.
// A token is single-use: success clears it, and an expired token is cleared
// on the attempt that detects the expiry.
func (s *AdminService) CompletePasswordReset(ctx context.Context, token, password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	admin, err := s.queries.GetAdminByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("looking up reset token: %w", err)
	}

	now := s.now()
	if !admin.ResetExpiresAt.Valid || admin.ResetExpiresAt.Time.Before(now) {
		if err := s.queries.ClearAdminResetToken(ctx, admin.ID, now); err != nil {
			return fmt.Errorf("clearing expired token: %w", err)
		}
		return ErrResetTokenExpired
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	// The write is conditioned on the token still being on the row, so a
	// concurrent completion racing this one consumes it exactly once.
	rows, err := s.queries.ConsumeAdminResetToken(ctx, store.ConsumeAdminResetTokenParams{
		ID:           admin.ID,
		ResetToken:   token,
		PasswordHash: hash,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if rows == 0 {
		return ErrResetTokenInvalid
	}

	slog.Info("password reset completed", "admin_id", admin.ID)
	return nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
// Both the modernc and mattn drivers embed this text in their error strings.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
