package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/mqttdesk/internal/auth"
)

const testAPIKey = "desk-key-for-tests"

func authEnv(t *testing.T) *testEnv {
	t.Helper()
	hash, err := auth.HashKey(testAPIKey)
	if err != nil {
		t.Fatalf("HashKey() error: %v", err)
	}
	return newTestEnv(t, func(d *Deps) {
		d.Security.APIKeyHash = hash
	})
}

func TestToken_AuthDisabled(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/auth/token", `{"api_key":"anything"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if code := errorCode(t, w); code != ErrCodeAuthDisabled {
		t.Errorf("code = %q, want %q", code, ErrCodeAuthDisabled)
	}
}

func TestAuth_OpenWhenDisabled(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/brokers", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuth_TokenFlow(t *testing.T) {
	env := authEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/brokers", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	w = env.do(t, http.MethodPost, "/api/v1/auth/token", `{"api_key":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	w = env.do(t, http.MethodPost, "/api/v1/auth/token", `{"api_key":"`+testAPIKey+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("token exchange status = %d, body = %s", w.Code, w.Body.String())
	}
	var tok tokenResponse
	decode(t, w, &tok)
	if tok.TokenType != "Bearer" || tok.AccessToken == "" {
		t.Fatalf("token response = %+v", tok)
	}
	if !tok.ExpiresAt.After(time.Now()) {
		t.Errorf("ExpiresAt = %v, want a future time", tok.ExpiresAt)
	}

	w = env.do(t, http.MethodGet, "/api/v1/brokers", "", "Authorization", "Bearer "+tok.AccessToken)
	if w.Code != http.StatusOK {
		t.Errorf("with token: status = %d, want %d", w.Code, http.StatusOK)
	}

	// Health stays public.
	w = env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuth_RejectsForgedToken(t *testing.T) {
	env := authEnv(t)

	forged, _, err := auth.IssueToken("another-secret-that-is-32-chars-long!!", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/v1/brokers", "", "Authorization", "Bearer "+forged)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuth_QueryTokenOnlyForWebSocket(t *testing.T) {
	env := authEnv(t)
	token, _, err := auth.IssueToken(testJWTSecret, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/v1/brokers?token="+token, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token on REST route: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	// Not an upgrade request, so the handler fails after auth passes.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusUnauthorized {
		t.Error("query token on WebSocket route was rejected")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := bearerToken(req); got != tt.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
