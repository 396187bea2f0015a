// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mbaxter/vitals/internal/config"
	"github.com/mbaxter/vitals/internal/models"
)

func whoopClientFor(tokenURL string) *Client {
	return NewWhoopClient(&config.WhoopConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURI:  "https://example.com/api/v1/auth/whoop/callback",
		AuthURL:      "https://auth.example.com/oauth2/auth",
		TokenURL:     tokenURL,
		Scopes:       []string{"offline", "read:recovery"},
	})
}

func TestRefreshSendsFormEncodedRequest(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-acc","refresh_token":"new-ref","expires_in":3600,"token_type":"bearer"}`))
	}))
	defer srv.Close()

	client := whoopClientFor(srv.URL)
	before := time.Now().UTC()

	pair, err := client.Refresh(context.Background(), "old-ref")
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	for key, want := range map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": "old-ref",
		"client_id":     "cid",
		"client_secret": "csecret",
		"scope":         "offline",
	} {
		if got := gotForm.Get(key); got != want {
			t.Errorf("form[%s] = %q, want %q", key, got, want)
		}
	}

	if pair.AccessToken != "new-acc" || pair.RefreshToken != "new-ref" {
		t.Errorf("pair = %+v", pair)
	}

	// Stored expiry carries the 5-minute safety buffer: 3600s - 300s.
	wantExpiry := before.Add(55 * time.Minute)
	if pair.ExpiresAt.Before(wantExpiry.Add(-5*time.Second)) || pair.ExpiresAt.After(wantExpiry.Add(10*time.Second)) {
		t.Errorf("ExpiresAt = %v, want ~%v", pair.ExpiresAt, wantExpiry)
	}
}

func TestRefreshKeepsOldTokenWhenProviderDoesNotRotate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-acc","expires_in":7200}`))
	}))
	defer srv.Close()

	pair, err := whoopClientFor(srv.URL).Refresh(context.Background(), "keep-me")
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if pair.RefreshToken != "keep-me" {
		t.Errorf("RefreshToken = %q, want carried-forward old token", pair.RefreshToken)
	}
}

func TestRefreshNon2xxReturnsTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
	}))
	defer srv.Close()

	_, err := whoopClientFor(srv.URL).Refresh(context.Background(), "revoked")
	if err == nil {
		t.Fatal("Refresh() error = nil, want RefreshError")
	}

	var refreshErr *RefreshError
	if !errors.As(err, &refreshErr) {
		t.Fatalf("error type = %T, want *RefreshError", err)
	}
	if refreshErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", refreshErr.StatusCode)
	}
	if refreshErr.Code != "invalid_grant" || refreshErr.Description != "refresh token revoked" {
		t.Errorf("error payload = %q/%q", refreshErr.Code, refreshErr.Description)
	}
	if refreshErr.Provider != models.ProviderWhoop {
		t.Errorf("Provider = %s, want whoop", refreshErr.Provider)
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("code"); got != "auth-code-1" {
			t.Errorf("code = %q", got)
		}
		if got := r.PostForm.Get("redirect_uri"); got == "" {
			t.Error("redirect_uri missing")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"acc","refresh_token":"ref","expires_in":3600}`))
	}))
	defer srv.Close()

	pair, err := whoopClientFor(srv.URL).ExchangeCode(context.Background(), "auth-code-1")
	if err != nil {
		t.Fatalf("ExchangeCode() error: %v", err)
	}
	if !pair.HasAccessToken() || !pair.HasRefreshToken() {
		t.Errorf("pair = %+v", pair)
	}
}

func TestBuildAuthorizationURL(t *testing.T) {
	whoop := whoopClientFor("https://t.example.com/token")
	u, err := url.Parse(whoop.BuildAuthorizationURL("state-123"))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "cid" || q.Get("response_type") != "code" || q.Get("state") != "state-123" {
		t.Errorf("query = %v", q)
	}
	if got := q.Get("scope"); !strings.Contains(got, " ") {
		t.Errorf("whoop scope = %q, want space-separated", got)
	}

	strava := NewStravaClient(&config.StravaConfig{
		ClientID:    "sid",
		RedirectURI: "https://example.com/cb",
		AuthURL:     "https://www.strava.com/oauth/authorize",
		TokenURL:    "https://www.strava.com/oauth/token",
		Scopes:      []string{"read", "activity:read_all"},
	})
	su, err := url.Parse(strava.BuildAuthorizationURL("s"))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if got := su.Query().Get("scope"); got != "read,activity:read_all" {
		t.Errorf("strava scope = %q, want comma-separated", got)
	}
}

func TestRefreshEmptyAccessTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"expires_in":3600}`))
	}))
	defer srv.Close()

	if _, err := whoopClientFor(srv.URL).Refresh(context.Background(), "r"); err == nil {
		t.Error("Refresh() = nil error for response without access token")
	}
}
