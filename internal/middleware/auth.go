// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/twiztd/cpbc-volunteer-app/internal/auth"
	"github.com/twiztd/cpbc-volunteer-app/internal/model"
	"github.com/twiztd/cpbc-volunteer-app/internal/service"
)

// ContextKeyAdmin is the context key for the authenticated admin account.
const ContextKeyAdmin ContextKey = "admin"

// Authenticate validates the Bearer token on the Authorization header and
// resolves it to a live admin account. The token only proves identity; the
// account's current active status is re-checked on every request, so a token
// issued before a deactivation stops working immediately. A missing header,
// a bad token, and a token for an unknown or inactive account all produce the
// same 401 response.
func Authenticate(tokens *auth.TokenIssuer, admins *service.AdminService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Missing Authorization header", nil)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format. Use: Bearer <token>", nil)
				return
			}

			email, err := tokens.Verify(parts[1])
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
				return
			}

			admin, err := admins.ResolveByEmail(r.Context(), email)
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAdmin, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSuperAdmin rejects callers without the super admin role. It must be
// used after Authenticate in the middleware chain.
func RequireSuperAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, ok := GetAdmin(r)
			if !ok {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			if !admin.IsSuperAdmin {
				WriteAPIError(w, http.StatusForbidden, "forbidden", "Super admin access required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetAdmin retrieves the authenticated admin from the request context.
func GetAdmin(r *http.Request) (model.AdminUser, bool) {
	admin, ok := r.Context().Value(ContextKeyAdmin).(model.AdminUser)
	return admin, ok
}
