// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mbaxter/vitals/internal/chat"
	"github.com/mbaxter/vitals/internal/models"
)

func postChat(t *testing.T, env *testEnv, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestChatRelaysMessage(t *testing.T) {
	env := newTestEnv(nil)
	env.relay.reply = "You slept 7h42m last night."

	rec := postChat(t, env, `{"message":"How did I sleep?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["reply"] != "You slept 7h42m last night." {
		t.Errorf("reply = %v", data["reply"])
	}
	if env.relay.calls != 1 {
		t.Errorf("relay calls = %d, want 1", env.relay.calls)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(nil)

	for _, body := range []string{`{}`, `{"message":""}`, `not json`} {
		rec := postChat(t, env, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
	if env.relay.calls != 0 {
		t.Errorf("relay called %d times for invalid requests", env.relay.calls)
	}
}

func TestChatUnconfiguredIs503(t *testing.T) {
	env := newTestEnv(nil)
	env.relay.configured = false

	rec := postChat(t, env, `{"message":"hi"}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != models.ErrCodeConfiguration {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestChatUpstreamErrorIs502(t *testing.T) {
	env := newTestEnv(nil)
	env.relay.err = &chat.RelayError{StatusCode: http.StatusTooManyRequests, Message: "rate limited"}

	rec := postChat(t, env, `{"message":"hi"}`)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != models.ErrCodeUpstream {
		t.Errorf("error = %+v", resp.Error)
	}
}
