// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestListAdmins(t *testing.T) {
	env := testSetup(t)
	token := env.loginAs(t, "super@crosspointbaptist.org", true)
	env.seedAdmin(t, "second@crosspointbaptist.org", "password123", false)

	t.Run("requires authentication", func(t *testing.T) {
		w := env.doJSON(t, http.MethodGet, "/api/admin/users", "", nil)
		assertStatusCode(t, w, http.StatusUnauthorized)
	})

	t.Run("lists all accounts", func(t *testing.T) {
		w := env.doJSON(t, http.MethodGet, "/api/admin/users", token, nil)
		assertStatusCode(t, w, http.StatusOK)

		var resp struct {
			Data []AdminResponse `json:"data"`
			Meta *Meta           `json:"meta"`
		}
		decodeBody(t, w, &resp)
		if len(resp.Data) != 2 {
			t.Fatalf("expected 2 admins, got %d", len(resp.Data))
		}
		if resp.Meta == nil || resp.Meta.Total != 2 {
			t.Error("expected meta total 2")
		}
	})
}

func TestCreateAdmin(t *testing.T) {
	env := testSetup(t)
	superToken := env.loginAs(t, "super@crosspointbaptist.org", true)
	regularToken := env.loginAs(t, "regular@crosspointbaptist.org", false)

	t.Run("super admin creates account", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/admin/users", superToken, CreateAdminRequest{
			Email:    "New.Admin@CrossPointBaptist.org",
			Password: "secret-enough",
			Name:     "New Admin",
		})
		assertStatusCode(t, w, http.StatusCreated)

		var resp struct {
			Data AdminResponse `json:"data"`
		}
		decodeBody(t, w, &resp)
		if resp.Data.Email != "new.admin@crosspointbaptist.org" {
			t.Errorf("expected lower-cased email, got %q", resp.Data.Email)
		}
		if !resp.Data.IsActive {
			t.Error("expected new account to be active")
		}
		if resp.Data.IsSuperAdmin {
			t.Error("new account must not be super admin")
		}
	})

	t.Run("regular admin is forbidden", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/admin/users", regularToken, CreateAdminRequest{
			Email:    "another@crosspointbaptist.org",
			Password: "secret-enough",
			Name:     "Another",
		})
		assertStatusCode(t, w, http.StatusForbidden)
		assertErrorResponse(t, w, "forbidden")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/admin/users", superToken, CreateAdminRequest{
			Email:    "NEW.ADMIN@crosspointbaptist.org",
			Password: "secret-enough",
			Name:     "Dup",
		})
		assertStatusCode(t, w, http.StatusConflict)
		assertErrorResponse(t, w, "conflict")
	})

	t.Run("short password rejected", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/admin/users", superToken, CreateAdminRequest{
			Email:    "short@crosspointbaptist.org",
			Password: "tiny",
			Name:     "Short",
		})
		assertStatusCode(t, w, http.StatusBadRequest)
	})
}

func TestUpdateAdmin(t *testing.T) {
	env := testSetup(t)
	superToken := env.loginAs(t, "super@crosspointbaptist.org", true)
	target := env.seedAdmin(t, "target@crosspointbaptist.org", "password123", false)

	t.Run("rename", func(t *testing.T) {
		name := "Renamed"
		w := env.doJSON(t, http.MethodPatch,
			fmt.Sprintf("/api/admin/users/%d", target.ID), superToken,
			UpdateAdminRequest{Name: &name})
		assertStatusCode(t, w, http.StatusOK)

		var resp struct {
			Data AdminResponse `json:"data"`
		}
		decodeBody(t, w, &resp)
		if resp.Data.Name != "Renamed" {
			t.Errorf("expected renamed account, got %q", resp.Data.Name)
		}
	})

	t.Run("deactivate", func(t *testing.T) {
		inactive := false
		w := env.doJSON(t, http.MethodPatch,
			fmt.Sprintf("/api/admin/users/%d", target.ID), superToken,
			UpdateAdminRequest{IsActive: &inactive})
		assertStatusCode(t, w, http.StatusOK)

		var resp struct {
			Data AdminResponse `json:"data"`
		}
		decodeBody(t, w, &resp)
		if resp.Data.IsActive {
			t.Error("expected deactivated account")
		}
	})

	t.Run("deactivated account cannot authenticate", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/admin/login", "", LoginRequest{
			Email:    "target@crosspointbaptist.org",
			Password: "password123",
		})
		assertStatusCode(t, w, http.StatusUnauthorized)
	})

	t.Run("self-deactivation forbidden", func(t *testing.T) {
		inactive := false
		super, err := env.queries.GetAdminByEmail(context.Background(), "super@crosspointbaptist.org")
		if err != nil {
			t.Fatalf("loading super admin: %v", err)
		}
		w := env.doJSON(t, http.MethodPatch,
			fmt.Sprintf("/api/admin/users/%d", super.ID), superToken,
			UpdateAdminRequest{IsActive: &inactive})
		assertStatusCode(t, w, http.StatusForbidden)
	})

	t.Run("unknown account", func(t *testing.T) {
		inactive := false
		w := env.doJSON(t, http.MethodPatch, "/api/admin/users/9999", superToken,
			UpdateAdminRequest{IsActive: &inactive})
		assertStatusCode(t, w, http.StatusNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPatch, "/api/admin/users/abc", superToken,
			UpdateAdminRequest{})
		assertStatusCode(t, w, http.StatusBadRequest)
	})
}

func TestTransferSuperAdmin(t *testing.T) {
	env := testSetup(t)
	superToken := env.loginAs(t, "super@crosspointbaptist.org", true)
	regularToken := env.loginAs(t, "regular@crosspointbaptist.org", false)

	regular, err := env.queries.GetAdminByEmail(context.Background(), "regular@crosspointbaptist.org")
	if err != nil {
		t.Fatalf("loading regular admin: %v", err)
	}
	super, err := env.queries.GetAdminByEmail(context.Background(), "super@crosspointbaptist.org")
	if err != nil {
		t.Fatalf("loading super admin: %v", err)
	}

	transferPath := func(id int64) string {
		return fmt.Sprintf("/api/admin/users/%d/transfer-super-admin", id)
	}

	t.Run("regular admin forbidden", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, transferPath(super.ID), regularToken, nil)
		assertStatusCode(t, w, http.StatusForbidden)
	})

	t.Run("self transfer rejected", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, transferPath(super.ID), superToken, nil)
		assertStatusCode(t, w, http.StatusBadRequest)
	})

	t.Run("unknown target", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, transferPath(9999), superToken, nil)
		assertStatusCode(t, w, http.StatusNotFound)
	})

	t.Run("transfer swaps roles", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, transferPath(regular.ID), superToken, nil)
		assertStatusCode(t, w, http.StatusOK)

		count, err := env.queries.CountActiveSuperAdmins(context.Background())
		if err != nil {
			t.Fatalf("counting super admins: %v", err)
		}
		if count != 1 {
			t.Errorf("expected exactly 1 active super admin, got %d", count)
		}

		// The old super admin may no longer create accounts.
		w = env.doJSON(t, http.MethodPost, "/api/admin/users", superToken, CreateAdminRequest{
			Email:    "post-transfer@crosspointbaptist.org",
			Password: "secret-enough",
			Name:     "Post Transfer",
		})
		assertStatusCode(t, w, http.StatusForbidden)

		// The new super admin may.
		w = env.doJSON(t, http.MethodPost, "/api/admin/users", regularToken, CreateAdminRequest{
			Email:    "post-transfer@crosspointbaptist.org",
			Password: "secret-enough",
			Name:     "Post Transfer",
		})
		assertStatusCode(t, w, http.StatusCreated)
	})
}
