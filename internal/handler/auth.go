// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/twiztd/cpbc-volunteer-app/internal/service"
)

// forgotPasswordMessage is returned for every forgot-password request,
// whether or not the email matches an account. Keeping the response
// identical prevents probing for registered addresses.
const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

// LoginRequest is the request body for POST /api/admin/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response body for a successful login.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	Admin       AdminResponse `json:"admin"`
}

// Login handles POST /api/admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, "Email and password are required", nil)
		return
	}

	if locked, remaining := h.login.IsAccountLocked(req.Email); locked {
		slog.Warn("login attempt on locked account", "remaining", remaining.Round(time.Second))
		WriteError(w, http.StatusTooManyRequests, "account_locked",
			fmt.Sprintf("Account temporarily locked. Try again in %s.", remaining.Round(time.Second)), nil)
		return
	}

	token, admin, err := h.admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.login.RecordFailedAttempt(req.Email)
		}
		writeServiceError(w, err)
		return
	}

	h.login.RecordSuccessfulLogin(req.Email)

	WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Admin:       toAdminResponse(admin),
	})
}

// ForgotPasswordRequest is the request body for POST /api/admin/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /api/admin/forgot-password. The response is
// byte-identical for known and unknown emails.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		WriteBadRequest(w, "Email is required", nil)
		return
	}

	if err := h.admins.RequestPasswordReset(r.Context(), req.Email); err != nil {
		slog.Error("password reset request failed", "error", err)
		WriteInternalError(w, "An internal error occurred")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": forgotPasswordMessage})
}

// ResetPasswordRequest is the request body for POST /api/admin/reset-password.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPassword handles POST /api/admin/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		WriteBadRequest(w, "Reset token is required", nil)
		return
	}

	if err := h.admins.CompletePasswordReset(r.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully."})
}
