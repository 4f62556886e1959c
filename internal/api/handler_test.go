//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorWithDetails(w, http.StatusInternalServerError, "Failed to save", errors.New("disk full"))

	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] != "Failed to save" || got["details"] != "disk full" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestDecodeRejectsEmptyAndOversizedBodies(t *testing.T) {
	var v map[string]any

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := Decode(httptest.NewRecorder(), r, &v); err == nil {
		t.Error("expected error for empty body")
	}

	big := `{"x":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	if err := Decode(httptest.NewRecorder(), r, &v); err == nil {
		t.Error("expected error for oversized body")
	}
}
