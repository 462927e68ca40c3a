// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to HTTP
// status codes; messages are safe to show to callers.
var (
	// ErrInvalidCredentials covers a wrong password, an unknown email, and an
	// inactive account. The three cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	ErrDuplicateEmail = errors.New("an account with this email already exists")
	ErrAdminNotFound  = errors.New("admin account not found")

	ErrSelfDeactivation       = errors.New("cannot deactivate your own account")
	ErrSuperAdminDeactivation = errors.New("the super admin account cannot be deactivated")

	ErrNotSuperAdmin  = errors.New("only the super admin can perform this action")
	ErrSelfTransfer   = errors.New("cannot transfer the super admin role to yourself")
	ErrTargetInactive = errors.New("cannot transfer the super admin role to an inactive account")

	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")

	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	ErrResetTokenExpired = errors.New("reset token has expired, please request a new one")

	ErrVolunteerNotFound = errors.New("volunteer not found")
)
