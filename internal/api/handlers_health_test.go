// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func getHealth(t *testing.T, env *testEnv) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %#v", resp.Data)
	}
	return rec.Code, data
}

func TestHealthReportsConfigPresence(t *testing.T) {
	env := newTestEnv(nil) // whoop credentials set, strava and chat not

	code, data := getHealth(t, env)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if data["ok"] != true {
		t.Errorf("ok = %v", data["ok"])
	}

	envMap, ok := data["env"].(map[string]interface{})
	if !ok {
		t.Fatalf("env = %#v", data["env"])
	}
	wantPresence := map[string]bool{
		"whoopClientId":      true,
		"whoopClientSecret":  true,
		"stravaClientId":     false,
		"stravaClientSecret": false,
		"chatApiKey":         false,
		"cronSecret":         true,
		"sessionSecret":      true,
	}
	for key, want := range wantPresence {
		if envMap[key] != want {
			t.Errorf("env[%s] = %v, want %v", key, envMap[key], want)
		}
	}
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	env := newTestEnv(nil)
	env.store.pingErr = errors.New("database is locked")

	code, data := getHealth(t, env)
	if code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", code)
	}
	if data["ok"] != false {
		t.Errorf("ok = %v, want false", data["ok"])
	}

	checks := data["checks"].(map[string]interface{})
	db := checks["db"].(map[string]interface{})
	if db["ok"] != false || db["error"] != "database is locked" {
		t.Errorf("db check = %v", db)
	}
}

func TestHealthToleratesSpatialProbeFailure(t *testing.T) {
	env := newTestEnv(nil)
	env.store.spatialErr = errors.New("extension not loaded")

	code, data := getHealth(t, env)
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite spatial failure", code)
	}
	if data["ok"] != true {
		t.Errorf("ok = %v, want true", data["ok"])
	}

	checks := data["checks"].(map[string]interface{})
	spatial := checks["spatial"].(map[string]interface{})
	if spatial["ok"] != false {
		t.Errorf("spatial check = %v", spatial)
	}
}

func TestHealthIncludesSpatialVersionAndUptime(t *testing.T) {
	env := newTestEnv(nil)

	_, data := getHealth(t, env)
	checks := data["checks"].(map[string]interface{})

	spatial := checks["spatial"].(map[string]interface{})
	if spatial["ok"] != true || spatial["version"] != "1.1.0" {
		t.Errorf("spatial check = %v", spatial)
	}
	if _, ok := checks["uptimeMs"]; !ok {
		t.Error("missing uptimeMs")
	}
}
