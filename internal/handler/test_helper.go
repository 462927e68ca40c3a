// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/twiztd/cpbc-volunteer-app/internal/auth"
	"github.com/twiztd/cpbc-volunteer-app/internal/mailer"
	"github.com/twiztd/cpbc-volunteer-app/internal/middleware"
	"github.com/twiztd/cpbc-volunteer-app/internal/model"
	"github.com/twiztd/cpbc-volunteer-app/internal/service"
	"github.com/twiztd/cpbc-volunteer-app/internal/store"
	"github.com/twiztd/cpbc-volunteer-app/internal/taxonomy"
	"github.com/twiztd/cpbc-volunteer-app/internal/testutil"
)

const testJWTSecret = "test-secret-key-32-bytes-long!!!"

// testEnv bundles the wired application stack for handler tests.
type testEnv struct {
	db      *sql.DB
	queries *store.Queries
	admins  *service.AdminService
	signups *service.SignupService
	login   *middleware.LoginProtection
	tokens  *auth.TokenIssuer
	router  http.Handler
}

// testSetup builds an in-memory database with the full schema and a router
// with the complete route surface, so tests exercise middleware, handlers,
// and services together.
func testSetup(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	// In-memory SQLite needs a single connection or each new
	// connection sees an empty database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enabling foreign keys: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	m := mailer.New(mailer.Config{ResetURL: "http://localhost/reset"})
	tokens := auth.NewTokenIssuer(testJWTSecret, 8*time.Hour)
	admins := service.NewAdminService(db, tokens, m, time.Hour)
	signups := service.NewSignupService(db, taxonomy.Builtin(), m)

	login := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       100,
		IPBurst:           100,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	})

	h := NewHandler(admins, signups, login)
	router := NewRouter(RouterConfig{
		DB:          db,
		Tokens:      tokens,
		Handler:     h,
		Logger:      testutil.TestLogger(),
		PublicRPS:   1000,
		PublicBurst: 1000,
	})

	return &testEnv{
		db:      db,
		queries: store.New(db),
		admins:  admins,
		signups: signups,
		login:   login,
		tokens:  tokens,
		router:  router,
	}
}

// seedAdmin creates an admin account directly in the store and returns it.
func (e *testEnv) seedAdmin(t *testing.T, email, password string, super bool) model.AdminUser {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	now := time.Now().UTC()
	admin, err := e.queries.CreateAdmin(context.Background(), store.CreateAdminParams{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test Admin",
		IsSuperAdmin: super,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("creating admin: %v", err)
	}
	return admin
}

// loginAs seeds an admin and returns a bearer token for it.
func (e *testEnv) loginAs(t *testing.T, email string, super bool) string {
	t.Helper()

	e.seedAdmin(t, email, "password123", super)
	token, _, err := e.admins.Login(context.Background(), email, "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return token
}

// doJSON sends a request with an optional JSON body and bearer token.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals the recorded response body into dst.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}
