// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Volunteer represents a public volunteer signup.
type Volunteer struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	SignupDate time.Time `json:"signup_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Ministries holds the volunteer's selections when loaded.
	Ministries []MinistrySelection `json:"ministries"`
}

// MinistrySelection is a (category, ministry area) pair chosen by a volunteer.
type MinistrySelection struct {
	ID           int64  `json:"id,omitempty"`
	Category     string `json:"category"`
	MinistryArea string `json:"ministry_area"`
}

// VolunteerNote is a free-text note an admin attached to a volunteer.
// AdminID is nullable so notes survive the author's removal.
type VolunteerNote struct {
	ID          int64         `json:"id"`
	VolunteerID int64         `json:"volunteer_id"`
	AdminID     sql.NullInt64 `json:"admin_id,omitempty"`
	AdminEmail  string        `json:"admin_email,omitempty"`
	NoteText    string        `json:"note_text"`
	CreatedAt   time.Time     `json:"created_at"`
}

// CustomMinistry is a persisted (category, area) pair appended to the
// built-in taxonomy at startup.
type CustomMinistry struct {
	ID           int64     `json:"id"`
	Category     string    `json:"category"`
	MinistryArea string    `json:"ministry_area"`
	CreatedAt    time.Time `json:"created_at"`
}
