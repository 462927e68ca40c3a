// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"time"

	"github.com/twiztd/cpbc-volunteer-app/internal/middleware"
	"github.com/twiztd/cpbc-volunteer-app/internal/model"
	"github.com/twiztd/cpbc-volunteer-app/internal/service"
)

// AdminResponse represents an admin account in API responses. The password
// hash and reset token never appear here.
type AdminResponse struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAdminResponse(a model.AdminUser) AdminResponse {
	return AdminResponse{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		IsActive:     a.IsActive,
		IsSuperAdmin: a.IsSuperAdmin,
		CreatedAt:    a.CreatedAt,
	}
}

// ListAdmins handles GET /api/admin/users.
func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.ListAdmins(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list admin users")
		return
	}

	resp := make([]AdminResponse, 0, len(admins))
	for _, a := range admins {
		resp = append(resp, toAdminResponse(a))
	}
	WriteSuccess(w, resp, &Meta{Total: len(resp)})
}

// CreateAdminRequest is the request body for POST /api/admin/users.
type CreateAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// CreateAdmin handles POST /api/admin/users. Restricted to the super admin.
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		WriteBadRequest(w, "Email is required", nil)
		return
	}

	admin, err := h.admins.CreateAdmin(r.Context(), service.CreateAdminInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteCreated(w, toAdminResponse(admin))
}

// UpdateAdminRequest is the request body for PATCH /api/admin/users/{id}.
type UpdateAdminRequest struct {
	IsActive *bool   `json:"is_active,omitempty"`
	Name     *string `json:"name,omitempty"`
}

// UpdateAdmin handles PATCH /api/admin/users/{id}.
func (h *Handler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetAdmin(r)
	if !ok {
		WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid admin ID", nil)
		return
	}

	var req UpdateAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	admin, err := h.admins.UpdateAdmin(r.Context(), caller, id, service.UpdateAdminInput{
		Active: req.IsActive,
		Name:   req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteSuccess(w, toAdminResponse(admin), nil)
}

// TransferSuperAdmin handles POST /api/admin/users/{id}/transfer-super-admin.
// Restricted to the super admin; {id} names the account receiving the role.
func (h *Handler) TransferSuperAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetAdmin(r)
	if !ok {
		WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid admin ID", nil)
		return
	}

	if err := h.admins.TransferSuperAdmin(r.Context(), caller, targetID); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Super admin role transferred successfully."})
}
