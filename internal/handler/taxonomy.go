// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
)

// MinistryAreasResponse maps category names to their ordered area lists,
// for rendering the signup form.
type MinistryAreasResponse struct {
	Categories []CategoryPayload `json:"categories"`
}

// CategoryPayload is one taxonomy category with its areas.
type CategoryPayload struct {
	Category string   `json:"category"`
	Areas    []string `json:"areas"`
}

// MinistryAreas handles GET /api/ministry-areas, the public taxonomy listing.
func (h *Handler) MinistryAreas(w http.ResponseWriter, _ *http.Request) {
	cats := h.signups.Taxonomy().Categories()

	resp := MinistryAreasResponse{Categories: make([]CategoryPayload, 0, len(cats))}
	for _, c := range cats {
		resp.Categories = append(resp.Categories, CategoryPayload{
			Category: c.Name,
			Areas:    c.Areas,
		})
	}

	WriteJSON(w, http.StatusOK, resp)
}
