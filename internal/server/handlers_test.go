package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/codesync/codesync/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		Mode:      "release",
		Secret:    "test-secret",
		ReadLimit: 32768,
	}
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, store))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestRegisterLoginValidateFlow(t *testing.T) {
	srv := newTestServer(t)

	// Register.
	resp, _ := postJSON(t, srv.URL+"/register", map[string]string{
		"firstname": "Bob",
		"user_id":   "bob@example.com",
		"password":  "hunter22",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	// Duplicate registration conflicts.
	resp, body := postJSON(t, srv.URL+"/register", map[string]string{
		"firstname": "Bob",
		"user_id":   "bob@example.com",
		"password":  "hunter22",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d", resp.StatusCode)
	}
	if body["message"] != "user already exists" {
		t.Errorf("duplicate register message = %v", body["message"])
	}

	// Login with the right password.
	resp, _ = postJSON(t, srv.URL+"/login", map[string]string{
		"user_id":  "bob@example.com",
		"password": "hunter22",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login status = %d", resp.StatusCode)
	}

	// Login with a wrong password.
	resp, body = postJSON(t, srv.URL+"/login", map[string]string{
		"user_id":  "bob@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d", resp.StatusCode)
	}
	if body["message"] != "invalid credentials" {
		t.Errorf("bad login message = %v", body["message"])
	}

	// Email validation over the registered accounts.
	resp, body = postJSON(t, srv.URL+"/users/validate", map[string]string{
		"email": "bob@example.com",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("validate status = %d", resp.StatusCode)
	}
	if body["exists"] != true {
		t.Errorf("validate exists = %v, want true", body["exists"])
	}

	_, body = postJSON(t, srv.URL+"/users/validate", map[string]string{
		"email": "nobody@example.com",
	})
	if body["exists"] != false {
		t.Errorf("validate exists = %v, want false", body["exists"])
	}
}

func TestHandlersRejectMissingFields(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		path string
		body map[string]string
	}{
		{"register without password", "/register", map[string]string{"firstname": "Bob", "user_id": "b@e.c"}},
		{"login without user id", "/login", map[string]string{"password": "pw"}},
		{"validate without email", "/users/validate", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, srv.URL+tt.path, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if body["message"] == "" {
				t.Error("missing user-facing message")
			}
		})
	}
}

func TestStoreAuthenticate(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.CreateUser(ctx, "Ann", "ann@example.com", "s3cret"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := store.Authenticate(ctx, "ann@example.com", "s3cret"); err != nil {
		t.Errorf("Authenticate: %v", err)
	}
	if err := store.Authenticate(ctx, "ann@example.com", "nope"); err != ErrInvalidCredentials {
		t.Errorf("Authenticate wrong password = %v, want %v", err, ErrInvalidCredentials)
	}
	if err := store.Authenticate(ctx, "ghost@example.com", "s3cret"); err != ErrInvalidCredentials {
		t.Errorf("Authenticate unknown user = %v, want %v", err, ErrInvalidCredentials)
	}
}

func TestStoreCreateUserConcurrentDuplicates(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "race.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	const racers = 4
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for range racers {
		wg.Go(func() {
			results <- store.CreateUser(ctx, "Bob", "bob@example.com", "hunter22")
		})
	}
	wg.Wait()
	close(results)

	var created, conflicts int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrUserExists):
			conflicts++
		default:
			t.Errorf("CreateUser: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
	if conflicts != racers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, racers-1)
	}
}
