// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mbaxter/vitals/internal/models"
)

func TestAuthStartRedirectsWithSignedState(t *testing.T) {
	env := newTestEnv(nil)

	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/whoop/start", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location header: %v", err)
	}
	if !strings.HasPrefix(location.String(), "https://auth.example.com/authorize") {
		t.Errorf("Location = %s", location)
	}

	state := location.Query().Get("state")
	if state == "" {
		t.Fatal("redirect carries no state")
	}
	if err := verifyState("signing-secret", state, models.ProviderWhoop); err != nil {
		t.Errorf("state does not verify: %v", err)
	}
	// The state is provider-bound.
	if err := verifyState("signing-secret", state, models.ProviderStrava); err == nil {
		t.Error("whoop state verified for strava")
	}
}

func TestAuthStartUnknownProvider(t *testing.T) {
	env := newTestEnv(nil)

	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/garmin/start", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAuthCallbackCompletesWhoopSignIn(t *testing.T) {
	env := newTestEnv(nil)

	state, err := signState("signing-secret", models.ProviderWhoop, time.Now())
	if err != nil {
		t.Fatalf("signState: %v", err)
	}

	target := "/api/v1/auth/whoop/callback?code=authcode&state=" + url.QueryEscape(state)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env.whoop.exchangeCalls != 1 {
		t.Errorf("exchange calls = %d, want 1", env.whoop.exchangeCalls)
	}
	if env.store.upsertWhoopCalls != 1 || env.store.updateTokenCalls != 1 {
		t.Errorf("store calls: upsert=%d tokens=%d, want 1/1", env.store.upsertWhoopCalls, env.store.updateTokenCalls)
	}
	if env.store.lastPair == nil || env.store.lastPair.AccessToken != "access-authcode" {
		t.Errorf("stored pair = %+v", env.store.lastPair)
	}

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["provider"] != "whoop" || data["linked"] != true {
		t.Errorf("callback payload = %v", data)
	}
	// Tokens never leak into the response.
	if strings.Contains(rec.Body.String(), "access-authcode") {
		t.Error("response echoes the access token")
	}
}

func TestAuthCallbackCompletesStravaSignIn(t *testing.T) {
	env := newTestEnv(nil)

	state, err := signState("signing-secret", models.ProviderStrava, time.Now())
	if err != nil {
		t.Fatalf("signState: %v", err)
	}

	target := "/api/v1/auth/strava/callback?code=authcode&state=" + url.QueryEscape(state)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env.store.upsertStravaCalls != 1 || env.store.updateTokenCalls != 1 {
		t.Errorf("store calls: upsert=%d tokens=%d", env.store.upsertStravaCalls, env.store.updateTokenCalls)
	}
}

func TestAuthCallbackRejectsBadState(t *testing.T) {
	env := newTestEnv(nil)

	tests := []struct {
		name  string
		state string
	}{
		{"garbage state", "not-a-jwt"},
		{"foreign signature", mustSign(t, "other-secret", models.ProviderWhoop)},
		{"wrong provider", mustSign(t, "signing-secret", models.ProviderStrava)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/auth/whoop/callback?code=authcode&state=" + url.QueryEscape(tt.state)
			rec := httptest.NewRecorder()
			env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}

	if env.whoop.exchangeCalls != 0 {
		t.Errorf("code exchanged %d times despite invalid state", env.whoop.exchangeCalls)
	}
	if env.store.updateTokenCalls != 0 {
		t.Error("tokens stored despite invalid state")
	}
}

func TestAuthCallbackRejectsExpiredState(t *testing.T) {
	env := newTestEnv(nil)

	state, err := signState("signing-secret", models.ProviderWhoop, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("signState: %v", err)
	}

	target := "/api/v1/auth/whoop/callback?code=authcode&state=" + url.QueryEscape(state)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for expired state", rec.Code)
	}
}

func TestAuthCallbackPropagatesProviderDenial(t *testing.T) {
	env := newTestEnv(nil)

	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/whoop/callback?error=access_denied", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if env.whoop.exchangeCalls != 0 {
		t.Error("code exchange attempted after provider denial")
	}
}

func TestAuthCallbackMissingParameters(t *testing.T) {
	env := newTestEnv(nil)

	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/whoop/callback", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func mustSign(t *testing.T, secret string, provider models.Provider) string {
	t.Helper()
	state, err := signState(secret, provider, time.Now())
	if err != nil {
		t.Fatalf("signState: %v", err)
	}
	return state
}
