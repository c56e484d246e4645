package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/health":            "/health",
		"/room":              "/room",
		"/messages":          "/messages",
		"/stats":             "/stats",
		"/metrics":           "/metrics",
		"/":                  "/other",
		"/admin":             "/other",
		"/messages/anything": "/other",
		"/a8f3c91b-scanner":  "/other",
	}

	for path, want := range cases {
		if got := normalizePath(path); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLoggerIncludesNamespace(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logger(logger, "testing-room")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/room", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if line["namespace"] != "testing-room" {
		t.Errorf("namespace = %v, want testing-room", line["namespace"])
	}
	if line["path"] != "/room" {
		t.Errorf("path = %v, want /room", line["path"])
	}
	if status, ok := line["status"].(float64); !ok || int(status) != http.StatusTeapot {
		t.Errorf("status = %v, want %d", line["status"], http.StatusTeapot)
	}
}

func TestLoggerServerErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logger(logger, "testing-room")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stats", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if line["level"] != "error" {
		t.Errorf("level = %v, want error", line["level"])
	}
}
