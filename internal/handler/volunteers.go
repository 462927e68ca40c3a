// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/twiztd/cpbc-volunteer-app/internal/middleware"
	"github.com/twiztd/cpbc-volunteer-app/internal/model"
	"github.com/twiztd/cpbc-volunteer-app/internal/service"
	"github.com/twiztd/cpbc-volunteer-app/internal/store"
)

// MinistrySelectionPayload is a (category, ministry area) pair in request and
// response bodies.
type MinistrySelectionPayload struct {
	Category     string `json:"category"`
	MinistryArea string `json:"ministry_area"`
}

// VolunteerResponse represents a volunteer in API responses.
type VolunteerResponse struct {
	ID         int64                      `json:"id"`
	Name       string                     `json:"name"`
	Phone      string                     `json:"phone"`
	Email      string                     `json:"email"`
	SignupDate time.Time                  `json:"signup_date"`
	Ministries []MinistrySelectionPayload `json:"ministries"`
}

func toVolunteerResponse(v model.Volunteer) VolunteerResponse {
	resp := VolunteerResponse{
		ID:         v.ID,
		Name:       v.Name,
		Phone:      v.Phone,
		Email:      v.Email,
		SignupDate: v.SignupDate,
		Ministries: make([]MinistrySelectionPayload, 0, len(v.Ministries)),
	}
	for _, m := range v.Ministries {
		resp.Ministries = append(resp.Ministries, MinistrySelectionPayload{
			Category:     m.Category,
			MinistryArea: m.MinistryArea,
		})
	}
	return resp
}

func toSelections(payload []MinistrySelectionPayload) []model.MinistrySelection {
	sels := make([]model.MinistrySelection, 0, len(payload))
	for _, p := range payload {
		sels = append(sels, model.MinistrySelection{
			Category:     p.Category,
			MinistryArea: p.MinistryArea,
		})
	}
	return sels
}

// SubmitVolunteerRequest is the request body for POST /api/volunteers.
type SubmitVolunteerRequest struct {
	Name       string                     `json:"name"`
	Phone      string                     `json:"phone"`
	Email      string                     `json:"email"`
	Ministries []MinistrySelectionPayload `json:"ministries"`
}

// SubmitVolunteer handles POST /api/volunteers, the public signup endpoint.
func (h *Handler) SubmitVolunteer(w http.ResponseWriter, r *http.Request) {
	var req SubmitVolunteerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	details := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "Name is required"
	}
	if strings.TrimSpace(req.Phone) == "" {
		details["phone"] = "Phone is required"
	}
	if strings.TrimSpace(req.Email) == "" {
		details["email"] = "Email is required"
	}
	if len(details) > 0 {
		WriteBadRequest(w, "Missing required fields", details)
		return
	}

	volunteer, err := h.signups.Submit(r.Context(), service.SubmitInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Selections: toSelections(req.Ministries),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteCreated(w, toVolunteerResponse(volunteer))
}

// ListVolunteers handles GET /api/admin/volunteers. Supports ministry_area
// and category filters and name/date/ministry sorting.
func (h *Handler) ListVolunteers(w http.ResponseWriter, r *http.Request) {
	params := store.ListVolunteersParams{
		MinistryArea: r.URL.Query().Get("ministry_area"),
		Category:     r.URL.Query().Get("category"),
		SortBy:       r.URL.Query().Get("sort_by"),
	}

	vols, err := h.signups.List(r.Context(), params)
	if err != nil {
		WriteInternalError(w, "Failed to list volunteers")
		return
	}

	resp := make([]VolunteerResponse, 0, len(vols))
	for _, v := range vols {
		resp = append(resp, toVolunteerResponse(v))
	}
	WriteSuccess(w, resp, &Meta{Total: len(resp)})
}

// GetVolunteer handles GET /api/admin/volunteers/{id}.
func (h *Handler) GetVolunteer(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid volunteer ID", nil)
		return
	}

	volunteer, err := h.signups.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteSuccess(w, toVolunteerResponse(volunteer), nil)
}

// DeleteVolunteer handles DELETE /api/admin/volunteers/{id}.
func (h *Handler) DeleteVolunteer(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid volunteer ID", nil)
		return
	}

	if err := h.signups.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Volunteer deleted."})
}

// ReplaceMinistriesRequest is the request body for
// PUT /api/admin/volunteers/{id}/ministries.
type ReplaceMinistriesRequest struct {
	Ministries []MinistrySelectionPayload `json:"ministries"`
}

// ReplaceMinistries handles PUT /api/admin/volunteers/{id}/ministries. The
// volunteer's selection set is replaced as a whole.
func (h *Handler) ReplaceMinistries(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid volunteer ID", nil)
		return
	}

	var req ReplaceMinistriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	volunteer, err := h.signups.ReplaceSelections(r.Context(), id, toSelections(req.Ministries))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteSuccess(w, toVolunteerResponse(volunteer), nil)
}

// NoteResponse represents a volunteer note in API responses.
type NoteResponse struct {
	ID         int64     `json:"id"`
	AdminEmail string    `json:"admin_email,omitempty"`
	NoteText   string    `json:"note_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListNotes handles GET /api/admin/volunteers/{id}/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid volunteer ID", nil)
		return
	}

	notes, err := h.signups.Notes(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, NoteResponse{
			ID:         n.ID,
			AdminEmail: n.AdminEmail,
			NoteText:   n.NoteText,
			CreatedAt:  n.CreatedAt,
		})
	}
	WriteSuccess(w, resp, &Meta{Total: len(resp)})
}

// AddNoteRequest is the request body for POST /api/admin/volunteers/{id}/notes.
type AddNoteRequest struct {
	NoteText string `json:"note_text"`
}

// AddNote handles POST /api/admin/volunteers/{id}/notes.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetAdmin(r)
	if !ok {
		WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid volunteer ID", nil)
		return
	}

	var req AddNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.NoteText) == "" {
		WriteBadRequest(w, "Note text is required", nil)
		return
	}

	note, err := h.signups.AddNote(r.Context(), id, caller, req.NoteText)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteCreated(w, NoteResponse{
		ID:         note.ID,
		AdminEmail: note.AdminEmail,
		NoteText:   note.NoteText,
		CreatedAt:  note.CreatedAt,
	})
}

// ExportVolunteers handles GET /api/admin/reports/export, streaming all
// volunteer data as a CSV attachment.
func (h *Handler) ExportVolunteers(w http.ResponseWriter, r *http.Request) {
	vols, err := h.signups.List(r.Context(), store.ListVolunteersParams{})
	if err != nil {
		WriteInternalError(w, "Failed to export volunteers")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=volunteers_export.csv")

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ID", "Name", "Phone", "Email", "Signup Date", "Ministry Areas", "Categories"})

	for _, v := range vols {
		areas := make([]string, 0, len(v.Ministries))
		seen := make(map[string]bool)
		var categories []string
		for _, m := range v.Ministries {
			areas = append(areas, m.MinistryArea)
			if !seen[m.Category] {
				seen[m.Category] = true
				categories = append(categories, m.Category)
			}
		}

		_ = cw.Write([]string{
			strconv.FormatInt(v.ID, 10),
			v.Name,
			v.Phone,
			v.Email,
			v.SignupDate.Format("2006-01-02 15:04:05"),
			strings.Join(areas, ", "),
			strings.Join(categories, ", "),
		})
	}

	cw.Flush()
}
