package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"casedesk/internal/ops"
)

type fakeAPI struct {
	mu      sync.Mutex
	ratings []map[string]any
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok := func(data any) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
	}
	if r.URL.Path == "/auth/login" {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Invalid credentials"})
			return
		}
		ok(map[string]any{"token": "tok", "user": map[string]any{"_id": "u1", "email": body["email"], "role": "user"}})
		return
	}
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Token expired"})
		return
	}
	switch r.Method + " " + r.URL.Path {
	case "GET /auth/profile":
		ok(map[string]any{"_id": "u1", "email": "rae@example.com", "role": "user"})
	case "GET /questions":
		ok(map[string]any{"questions": []map[string]any{
			{"_id": "c1", "title": "Knee MRI", "description": "<p>left knee</p>", "active": true},
			{"_id": "c2", "title": "Chest X-ray", "description": "<p>PA view</p>", "active": true},
		}, "currentPage": 1, "totalPages": 1, "totalItems": 2})
	case "GET /ratings/user":
		ok(map[string]any{"ratings": f.ratings})
	case "POST /ratings":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.ratings = append(f.ratings, map[string]any{"questionId": map[string]any{"_id": body["questionId"], "title": "Knee MRI"}, "userId": "u1", "rating": body["rating"]})
		ok(nil)
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "not found"})
	}
}

func runCLI(t *testing.T, base, creds string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-api", base, "-credentials", creds, "-password", "pw"}, args...)
	err := run(context.Background(), full, &out, &errOut)
	return out.String(), err
}

func TestRatingSessionAcrossRuns(t *testing.T) {
	ts := httptest.NewServer(&fakeAPI{})
	defer ts.Close()
	creds := filepath.Join(t.TempDir(), "credentials.json")

	if _, err := runCLI(t, ts.URL, creds, "worklist"); !errors.Is(err, ops.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn before login, got %v", err)
	}
	out, err := runCLI(t, ts.URL, creds, "login", "rae@example.com")
	if err != nil || !strings.Contains(out, "signed in as rae@example.com") {
		t.Fatalf("login: %q %v", out, err)
	}
	out, err = runCLI(t, ts.URL, creds, "worklist", "knee")
	if err != nil || !strings.Contains(out, "c1\tKnee MRI\tleft knee") || !strings.Contains(out, "1 of 2 unrated") {
		t.Fatalf("worklist: %q %v", out, err)
	}
	if _, err := runCLI(t, ts.URL, creds, "rate", "c1", "7"); err == nil {
		t.Fatalf("expected out-of-scale score to fail")
	}
	out, err = runCLI(t, ts.URL, creds, "rate", "c1", "4")
	if err != nil || !strings.Contains(out, "1 cases left") {
		t.Fatalf("rate: %q %v", out, err)
	}
	out, err = runCLI(t, ts.URL, creds, "ratings")
	if err != nil || !strings.Contains(out, "c1\tKnee MRI\t4") || !strings.Contains(out, "1 ratings, mean 4.00/5") {
		t.Fatalf("ratings: %q %v", out, err)
	}
	if _, err := runCLI(t, ts.URL, creds, "analytics"); err == nil {
		t.Fatalf("expected admin gate to refuse a rater")
	}
	if _, err := runCLI(t, ts.URL, creds, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	out, err = runCLI(t, ts.URL, creds, "status")
	if err != nil || strings.TrimSpace(out) != "not signed in" {
		t.Fatalf("status after logout: %q %v", out, err)
	}
}

func TestLoginRejected(t *testing.T) {
	ts := httptest.NewServer(&fakeAPI{})
	defer ts.Close()
	creds := filepath.Join(t.TempDir(), "credentials.json")
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"-api", ts.URL, "-credentials", creds, "-password", "nope", "login", "rae@example.com"}, &out, &errOut)
	if !errors.Is(err, ops.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if !strings.Contains(errOut.String(), "[error] Invalid credentials") {
		t.Fatalf("expected notice on stderr, got %q", errOut.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), []string{"frobnicate"}, &out, &errOut); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
