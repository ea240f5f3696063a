package http

import (
	"encoding/json"
	stdhttp "net/http"
	"testing"
)

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.request(t, stdhttp.MethodPost, "/api/register", "", RegisterRequest{Username: "alice", Password: "password123"})
	if status != stdhttp.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}
	var resp AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal auth response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected non-empty token")
	}

	status, _ = env.request(t, stdhttp.MethodPost, "/api/register", "", RegisterRequest{Username: "alice", Password: "password123"})
	if status != stdhttp.StatusConflict {
		t.Fatalf("expected 409 for duplicate user, got %d", status)
	}

	status, body = env.request(t, stdhttp.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "password123"})
	if status != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	status, _ = env.request(t, stdhttp.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "wrong"})
	if status != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", status)
	}
}

func TestGuestLogin_TokenWorksForProtectedRoutes(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.request(t, stdhttp.MethodPost, "/api/guest", "", nil)
	if status != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var resp AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal auth response: %v", err)
	}

	status, _ = env.request(t, stdhttp.MethodGet, "/api/rooms", resp.Token, nil)
	if status != stdhttp.StatusOK {
		t.Fatalf("expected guest token to pass auth, got %d", status)
	}
}

func TestGuestLogin_CookieResumesSameGuest(t *testing.T) {
	env := newTestEnv(t)

	req, err := stdhttp.NewRequest(stdhttp.MethodPost, env.ts.URL+"/api/guest", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("guest login: %v", err)
	}
	var first AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&first); err != nil {
		t.Fatalf("decode first response: %v", err)
	}
	resp.Body.Close()

	var sessionCookie *stdhttp.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "guest_session" {
			sessionCookie = ck
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("expected guest_session cookie on first login")
	}

	req, err = stdhttp.NewRequest(stdhttp.MethodPost, env.ts.URL+"/api/guest", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.AddCookie(sessionCookie)
	resp, err = env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("guest login with cookie: %v", err)
	}
	var second AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&second); err != nil {
		t.Fatalf("decode second response: %v", err)
	}
	resp.Body.Close()

	firstClaims, err := env.auth.ValidateToken(first.Token)
	if err != nil {
		t.Fatalf("validate first token: %v", err)
	}
	secondClaims, err := env.auth.ValidateToken(second.Token)
	if err != nil {
		t.Fatalf("validate second token: %v", err)
	}
	if firstClaims.UserID != secondClaims.UserID {
		t.Fatalf("cookie did not reattach guest: user %d then %d", firstClaims.UserID, secondClaims.UserID)
	}
}

func TestAuthMiddleware_RejectsMissingAndBadTokens(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.request(t, stdhttp.MethodGet, "/api/rooms", "", nil)
	if status != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	status, _ = env.request(t, stdhttp.MethodGet, "/api/rooms", "garbage", nil)
	if status != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", status)
	}
}
