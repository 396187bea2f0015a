// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/mbaxter/vitals/internal/config"
	"github.com/mbaxter/vitals/internal/models"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestDailySyncRejectsMissingSecretWithZeroSideEffects(t *testing.T) {
	env := newTestEnv(nil)
	router := env.server.Router()

	tests := []struct {
		name   string
		target string
		header string
	}{
		{"no credentials", "/api/v1/cron/daily-sync", ""},
		{"wrong header", "/api/v1/cron/daily-sync", "wrong"},
		{"wrong query secret", "/api/v1/cron/daily-sync?secret=wrong", ""},
		{"wrong query token", "/api/v1/cron/daily-sync?token=wrong", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("X-Cron-Secret", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			resp := decodeResponse(t, rec)
			if resp.Error == nil || resp.Error.Code != models.ErrCodeUnauthorized {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}

	if env.syncer.runs != 0 {
		t.Errorf("sync ran %d times on unauthorized requests", env.syncer.runs)
	}
	if env.store.updateTokenCalls != 0 {
		t.Error("store mutated on unauthorized request")
	}
}

func TestDailySyncUnconfiguredSecretIs500(t *testing.T) {
	env := newTestEnv(func(cfg *config.Config) {
		cfg.Security.CronSecret = ""
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/daily-sync", nil)
	req.Header.Set("X-Cron-Secret", "anything")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != models.ErrCodeConfiguration {
		t.Errorf("error = %+v", resp.Error)
	}
	if env.syncer.runs != 0 {
		t.Error("sync ran despite unconfigured secret")
	}
}

func TestDailySyncDryRunDoesZeroWork(t *testing.T) {
	env := newTestEnv(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cron/daily-sync?dryRun=true", nil)
	req.Header.Set("X-Cron-Secret", "topsecret")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %#v", resp.Data)
	}
	if data["ok"] != true || data["dryRun"] != true || data["endpoint"] != "daily-sync" {
		t.Errorf("dry-run payload = %v", data)
	}
	if data["timestamp"] == "" {
		t.Error("dry-run payload missing timestamp")
	}

	if env.syncer.runs != 0 {
		t.Error("dry run executed the orchestrator")
	}
}

func TestDailySyncRunsAndReturnsReport(t *testing.T) {
	env := newTestEnv(nil)
	env.syncer.report = &models.SyncReport{
		TotalUsers:      2,
		SuccessfulUsers: 1,
		FailedUsers:     1,
		Errors:          []string{"User: whoop recoveries: upstream 500"},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/daily-sync", nil)
	req.Header.Set("X-Cron-Secret", "topsecret")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	// Per-user failures still answer 200; errors[] is the signal.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env.syncer.runs != 1 {
		t.Errorf("sync ran %d times, want 1", env.syncer.runs)
	}

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %#v", resp.Data)
	}
	if data["total_users"] != float64(2) || data["failed_users"] != float64(1) {
		t.Errorf("report payload = %v", data)
	}
}

func TestDailySyncAcceptsQuerySecret(t *testing.T) {
	env := newTestEnv(nil)

	for _, target := range []string{
		"/api/v1/cron/daily-sync?secret=topsecret",
		"/api/v1/cron/daily-sync?token=topsecret",
	} {
		rec := httptest.NewRecorder()
		env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", target, rec.Code)
		}
	}
	if env.syncer.runs != 2 {
		t.Errorf("sync ran %d times, want 2", env.syncer.runs)
	}
}

func TestDailySyncOrchestratorFailureIs500(t *testing.T) {
	env := newTestEnv(nil)
	env.syncer.err = errUpstream

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/daily-sync", nil)
	req.Header.Set("X-Cron-Secret", "topsecret")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
