// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models shared across the application,
// including AdminUser, Volunteer, and ministry selection structures.
package model

import (
	"database/sql"
	"time"
)

// AdminUser represents an administrator account for the dashboard.
type AdminUser struct {
	ID             int64          `json:"id"`
	Email          string         `json:"email"`
	PasswordHash   string         `json:"-"` // Never expose in JSON
	Name           string         `json:"name"`
	IsActive       bool           `json:"is_active"`
	IsSuperAdmin   bool           `json:"is_super_admin"`
	ResetToken     sql.NullString `json:"-"`
	ResetExpiresAt sql.NullTime   `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// HasPendingReset reports whether a reset token is recorded for the account.
// The token and its expiry are always set and cleared together.
func (a *AdminUser) HasPendingReset() bool {
	return a.ResetToken.Valid && a.ResetExpiresAt.Valid
}
