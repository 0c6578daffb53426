package limits_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/tasktracker/internal/app/system/limits"
)

func TestParseForm(t *testing.T) {
	req := httptest.NewRequest("POST", "/tasks", strings.NewReader("task=Clean+Lobby"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := limits.ParseForm(httptest.NewRecorder(), req); err != nil {
		t.Fatalf("ParseForm failed: %v", err)
	}
	if got := req.PostForm.Get("task"); got != "Clean Lobby" {
		t.Errorf("task = %q", got)
	}
}

func TestParseForm_TooLarge(t *testing.T) {
	body := "title=" + strings.Repeat("x", limits.MaxFormSize+1)
	req := httptest.NewRequest("POST", "/admin/catalog", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := limits.ParseForm(httptest.NewRecorder(), req); err == nil {
		t.Error("expected an error for an oversized body")
	}
}
