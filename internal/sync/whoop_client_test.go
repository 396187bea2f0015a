// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mbaxter/vitals/internal/config"
)

func whoopClientFor(t *testing.T, srv *httptest.Server, pageSize, maxPages int) *WhoopClient {
	t.Helper()
	return NewWhoopClient(
		&config.WhoopConfig{APIURL: srv.URL},
		&config.SyncConfig{PageSize: pageSize, MaxPages: maxPages},
	)
}

func testWindow() (time.Time, time.Time) {
	return time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
}

func recoveryJSON(cycleID int64) string {
	return fmt.Sprintf(`{"cycle_id":%d,"sleep_id":%d,"user_id":42,"score_state":"SCORED","created_at":"2026-03-13T08:00:00Z","updated_at":"2026-03-13T08:00:00Z"}`, cycleID, cycleID+1000)
}

func TestGetRecoveriesFollowsNextTokenCursor(t *testing.T) {
	var tokensSeen []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/recovery" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		if got := r.URL.Query().Get("start"); got != "2026-03-13T00:00:00Z" {
			t.Errorf("start = %q", got)
		}

		token := r.URL.Query().Get("nextToken")
		tokensSeen = append(tokensSeen, token)

		w.Header().Set("Content-Type", "application/json")
		switch token {
		case "":
			fmt.Fprintf(w, `{"records":[%s,%s],"next_token":"page2"}`, recoveryJSON(1), recoveryJSON(2))
		case "page2":
			fmt.Fprintf(w, `{"records":[%s],"next_token":null}`, recoveryJSON(3))
		default:
			t.Errorf("unexpected nextToken %q", token)
		}
	}))
	defer srv.Close()

	client := whoopClientFor(t, srv, 2, 10)
	start, end := testWindow()

	records, err := client.GetRecoveries(context.Background(), "tok", start, end)
	if err != nil {
		t.Fatalf("GetRecoveries: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	// Provider order is preserved across pages.
	for i, want := range []int64{1, 2, 3} {
		if records[i].CycleID != want {
			t.Errorf("records[%d].CycleID = %d, want %d", i, records[i].CycleID, want)
		}
	}
	if len(tokensSeen) != 2 || tokensSeen[0] != "" || tokensSeen[1] != "page2" {
		t.Errorf("cursor sequence = %v", tokensSeen)
	}
}

func TestGetRecoveriesStopsAtPageCap(t *testing.T) {
	var pages int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		// Cursor never signals completion.
		fmt.Fprintf(w, `{"records":[%s],"next_token":"more"}`, recoveryJSON(int64(pages)))
	}))
	defer srv.Close()

	client := whoopClientFor(t, srv, 1, 3)
	start, end := testWindow()

	records, err := client.GetRecoveries(context.Background(), "tok", start, end)
	if err != nil {
		t.Fatalf("GetRecoveries: %v", err)
	}
	if pages != 3 {
		t.Errorf("made %d requests, want 3", pages)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}

func TestWhoopClientCapsConfiguredMaxPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"records":[],"next_token":"more"}`)
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		configured int
		want       int
	}{
		{"over cap", 500, maxPageSafetyCap},
		{"zero", 0, maxPageSafetyCap},
		{"within cap", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := whoopClientFor(t, srv, 25, tt.configured)
			if client.maxPages != tt.want {
				t.Errorf("maxPages = %d, want %d", client.maxPages, tt.want)
			}
		})
	}
}

func TestWhoopClientReturnsTypedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprintf(w, `{"error":"invalid_token"}`)
	}))
	defer srv.Close()

	client := whoopClientFor(t, srv, 25, 10)

	_, err := client.GetProfile(context.Background(), "expired")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid_token" {
		t.Errorf("Message = %q, want invalid_token", apiErr.Message)
	}
}

func TestWhoopClientRejectsMalformedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// cycle_id missing: fails payload validation.
		fmt.Fprintf(w, `{"records":[{"user_id":42,"score_state":"SCORED"}],"next_token":null}`)
	}))
	defer srv.Close()

	client := whoopClientFor(t, srv, 25, 10)
	start, end := testWindow()

	if _, err := client.GetRecoveries(context.Background(), "tok", start, end); err == nil {
		t.Fatal("expected validation error for record without cycle_id")
	}
}

func TestGetCycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/cycle/93845" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"id":93845,"user_id":42,"start":"2026-03-13T04:00:00Z","score_state":"SCORED","score":{"strain":12.3,"kilojoule":8100,"average_heart_rate":62,"max_heart_rate":158}}`)
	}))
	defer srv.Close()

	client := whoopClientFor(t, srv, 25, 10)

	cycle, err := client.GetCycle(context.Background(), "tok", 93845)
	if err != nil {
		t.Fatalf("GetCycle: %v", err)
	}
	if cycle.ID != 93845 {
		t.Errorf("ID = %d, want 93845", cycle.ID)
	}
	if cycle.End != nil {
		t.Errorf("End = %v, want nil for ongoing cycle", cycle.End)
	}
	if cycle.Score == nil || cycle.Score.Strain != 12.3 {
		t.Errorf("Score = %+v, want strain 12.3", cycle.Score)
	}
}
