// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

// assertStatusCode checks that the response has the expected status code.
func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("expected status %d, got %d: %s", expected, w.Code, w.Body.String())
	}
}

// assertErrorResponse unmarshals and validates an error response.
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error.Code != expectedCode {
		t.Errorf("expected code %q, got %q", expectedCode, resp.Error.Code)
	}
	return resp
}
