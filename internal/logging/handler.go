// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a custom slog handler that integrates with the
// audit event log. Logs at WARN level and above are forwarded to the
// database-backed events table.
package logging

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/twiztd/cpbc-volunteer-app/internal/model"
	"github.com/twiztd/cpbc-volunteer-app/internal/store"
)

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// WARN and ERROR level logs to the events table for auditing.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level // minimum level to persist (default: WARN)
}

// NewEventLogHandler creates an EventLogHandler that wraps the given handler.
// Logs at WARN level and above are written to both the wrapped handler and
// the events table.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   slog.LevelWarn,
	}
}

// NewEventLogHandlerWithLevel creates an EventLogHandler with a custom
// minimum persistence level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeEvent(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
	}
}

// writeEvent persists a log record to the events table. A background context
// is used so the event is recorded even when the request context is already
// cancelled.
func (h *EventLogHandler) writeEvent(r slog.Record) {
	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     slogLevelToEventLevel(r.Level),
		Category:  extractCategory(r),
		Message:   r.Message,
		AdminID:   extractAdminID(r),
		Metadata:  extractMetadata(r),
		CreatedAt: r.Time,
	})
}

func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// extractCategory looks for a "category" attribute, falling back to inference
// from the message text.
func extractCategory(r slog.Record) string {
	var category string

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = a.Value.String()
			return false
		}
		return true
	})

	if category != "" {
		return category
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "token") || strings.Contains(msg, "password") || strings.Contains(msg, "auth"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "admin") || strings.Contains(msg, "account"):
		return model.EventCategoryAdmin
	case strings.Contains(msg, "volunteer") || strings.Contains(msg, "signup"):
		return model.EventCategorySignup
	case strings.Contains(msg, "email") || strings.Contains(msg, "smtp") || strings.Contains(msg, "notification"):
		return model.EventCategoryEmail
	default:
		return model.EventCategorySystem
	}
}

// extractAdminID looks for an "admin_id" attribute on the record.
func extractAdminID(r slog.Record) sql.NullInt64 {
	var id sql.NullInt64

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "admin_id" {
			if v, ok := a.Value.Any().(int64); ok {
				id = sql.NullInt64{Int64: v, Valid: true}
			}
			return false
		}
		return true
	})

	return id
}

// extractMetadata collects the remaining attributes into a JSON string.
func extractMetadata(r slog.Record) string {
	if r.NumAttrs() == 0 {
		return "{}"
	}

	var sb strings.Builder
	sb.WriteString("{")
	first := true

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			return true // already extracted
		}
		if !first {
			sb.WriteString(",")
		}
		first = false
		sb.WriteString(`"`)
		sb.WriteString(escapeJSON(a.Key))
		sb.WriteString(`":"`)
		sb.WriteString(escapeJSON(a.Value.String()))
		sb.WriteString(`"`)
		return true
	})

	sb.WriteString("}")
	return sb.String()
}

// escapeJSON escapes special characters in a string for JSON.
func escapeJSON(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
