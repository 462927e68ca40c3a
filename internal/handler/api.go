// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the REST API handlers for the volunteer app.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/twiztd/cpbc-volunteer-app/internal/middleware"
	"github.com/twiztd/cpbc-volunteer-app/internal/service"
	"github.com/twiztd/cpbc-volunteer-app/internal/taxonomy"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	admins  *service.AdminService
	signups *service.SignupService
	login   *middleware.LoginProtection
}

// NewHandler creates a new API handler.
func NewHandler(admins *service.AdminService, signups *service.SignupService, login *middleware.LoginProtection) *Handler {
	return &Handler{
		admins:  admins,
		signups: signups,
		login:   login,
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains list metadata.
type Meta struct {
	Total int `json:"total"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteConflict writes a 409 Conflict response.
func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// ParseIDParam parses the {id} URL parameter as an int64.
func ParseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// decodeJSON decodes the request body into dst. Returns false with a 400
// response already written when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return false
	}
	return true
}

// writeServiceError maps service layer errors onto the API error taxonomy.
func writeServiceError(w http.ResponseWriter, err error) {
	var selErr *taxonomy.SelectionError

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteUnauthorized(w, err.Error())
	case errors.Is(err, service.ErrNotSuperAdmin),
		errors.Is(err, service.ErrSelfDeactivation),
		errors.Is(err, service.ErrSuperAdminDeactivation):
		WriteForbidden(w, err.Error())
	case errors.Is(err, service.ErrDuplicateEmail):
		WriteConflict(w, err.Error())
	case errors.Is(err, service.ErrAdminNotFound),
		errors.Is(err, service.ErrVolunteerNotFound):
		WriteNotFound(w, err.Error())
	case errors.Is(err, service.ErrSelfTransfer),
		errors.Is(err, service.ErrTargetInactive),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrResetTokenInvalid),
		errors.Is(err, service.ErrResetTokenExpired):
		WriteBadRequest(w, err.Error(), nil)
	case errors.As(err, &selErr):
		WriteBadRequest(w, selErr.Error(), nil)
	case errors.Is(err, sql.ErrNoRows):
		WriteNotFound(w, "Not found")
	default:
		WriteInternalError(w, "An internal error occurred")
	}
}
