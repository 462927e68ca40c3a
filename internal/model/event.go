// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth   = "auth"
	EventCategoryAdmin  = "admin"
	EventCategorySignup = "signup"
	EventCategoryEmail  = "email"
	EventCategorySystem = "system"
)

// Event represents an audit log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	AdminID   sql.NullInt64
	Metadata  string // JSON string
	CreatedAt time.Time
}
