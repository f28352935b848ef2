package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"opensky-ingest/internal/apperr"
	"opensky-ingest/internal/credentials"
	"opensky-ingest/pkg/logger"
)

func tokenServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("expected grant_type=client_credentials, got %q", got)
		}
		if r.PostForm.Get("client_id") != "my-client" || r.PostForm.Get("client_secret") != "my-secret" {
			t.Errorf("client credentials must travel in the form body: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var clientCreds = credentials.Credentials{ClientID: "my-client", ClientSecret: "my-secret"}

func TestAcquireTokenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, http.StatusOK, `{"access_token":"tok-123","token_type":"Bearer","expires_in":1800}`, &calls)

	p := NewProvider(srv.URL, 5*time.Second, logger.Nop())
	authz, err := p.AcquireToken(context.Background(), clientCreds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if authz != Bearer("tok-123") || authz.Scheme() != "bearer" {
		t.Errorf("unexpected authorization: %+v", authz)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one round trip, got %d", calls.Load())
	}

	req := httptest.NewRequest(http.MethodGet, "/states/all", nil)
	authz.Apply(req)
	if got := req.Header.Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("unexpected Authorization header %q", got)
	}
}

func TestAcquireTokenNoCaching(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, http.StatusOK, `{"access_token":"tok","expires_in":1800}`, &calls)
	p := NewProvider(srv.URL, 5*time.Second, logger.Nop())

	for i := 0; i < 2; i++ {
		if _, err := p.AcquireToken(context.Background(), clientCreds); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("expected one exchange per call, got %d", calls.Load())
	}
}

func TestAcquireTokenRejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid_client"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"empty token", http.StatusOK, `{"access_token":""}`},
		{"missing token", http.StatusOK, `{"token_type":"Bearer"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := tokenServer(t, tc.status, tc.body, &calls)
			p := NewProvider(srv.URL, 5*time.Second, logger.Nop())

			_, err := p.AcquireToken(context.Background(), clientCreds)
			if !errors.Is(err, apperr.ErrAuthRejected) {
				t.Errorf("expected AuthRejected, got %v", err)
			}
			if calls.Load() != 1 {
				t.Errorf("no retry expected, got %d calls", calls.Load())
			}
		})
	}
}

func TestAcquireTokenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewProvider(url, time.Second, logger.Nop()).AcquireToken(context.Background(), clientCreds)
	if !errors.Is(err, apperr.ErrAuthRejected) {
		t.Errorf("expected AuthRejected for transport failure, got %v", err)
	}
}

func TestAcquireTokenBasicAuth(t *testing.T) {
	p := NewProvider("http://127.0.0.1:1/unused", time.Second, logger.Nop())
	authz, err := p.AcquireToken(context.Background(), credentials.Credentials{Username: "pilot", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if authz.Scheme() != "basic" {
		t.Errorf("expected basic scheme, got %q", authz.Scheme())
	}

	req := httptest.NewRequest(http.MethodGet, "/states/all", nil)
	authz.Apply(req)
	user, pass, ok := req.BasicAuth()
	if !ok || user != "pilot" || pass != "pw" {
		t.Errorf("unexpected basic auth: %q %q %v", user, pass, ok)
	}
}

func TestAcquireTokenUnavailable(t *testing.T) {
	_, err := NewProvider("", time.Second, logger.Nop()).AcquireToken(context.Background(), credentials.Credentials{ClientID: "only-id"})
	if !errors.Is(err, apperr.ErrAuthUnavailable) {
		t.Errorf("expected AuthUnavailable, got %v", err)
	}
}
