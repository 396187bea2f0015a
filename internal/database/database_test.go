// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mbaxter/vitals/internal/config"
	"github.com/mbaxter/vitals/internal/models"
)

// newTestDB creates a file-backed DuckDB in a temp directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "vitals_test.duckdb"),
		MaxMemory: "256MB",
		Threads:   1,
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})
	return db
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestUpsertWhoopUserIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u1, err := db.UpsertWhoopUser(ctx, 42, "a@example.com", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("UpsertWhoopUser() error: %v", err)
	}
	if u1.WhoopUserID == nil || *u1.WhoopUserID != 42 {
		t.Errorf("WhoopUserID = %v, want 42", u1.WhoopUserID)
	}

	// Second upsert with updated identity must reuse the same row.
	u2, err := db.UpsertWhoopUser(ctx, 42, "new@example.com", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("second UpsertWhoopUser() error: %v", err)
	}
	if u2.ID != u1.ID {
		t.Errorf("second upsert created new row: id %d vs %d", u2.ID, u1.ID)
	}
	if u2.Email != "new@example.com" {
		t.Errorf("Email = %q, want updated value", u2.Email)
	}

	users, err := db.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("len(users) = %d, want 1", len(users))
	}
}

func TestUpdateTokensAtomicAndMonotonic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := db.UpsertWhoopUser(ctx, 7, "u@example.com", "U", "Ser")
	if err != nil {
		t.Fatalf("UpsertWhoopUser() error: %v", err)
	}

	first := &models.TokenPair{
		AccessToken:  "acc1",
		RefreshToken: "ref1",
		ExpiresAt:    time.Now().UTC().Add(30 * time.Minute).Truncate(time.Microsecond),
	}
	if err := db.UpdateTokens(ctx, u.ID, models.ProviderWhoop, first); err != nil {
		t.Fatalf("UpdateTokens() error: %v", err)
	}

	second := &models.TokenPair{
		AccessToken:  "acc2",
		RefreshToken: "ref2",
		ExpiresAt:    first.ExpiresAt.Add(time.Hour),
	}
	if err := db.UpdateTokens(ctx, u.ID, models.ProviderWhoop, second); err != nil {
		t.Fatalf("second UpdateTokens() error: %v", err)
	}

	got, err := db.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser() error: %v", err)
	}
	pair := got.Tokens(models.ProviderWhoop)
	if pair == nil {
		t.Fatal("Tokens(whoop) = nil after update")
	}
	if pair.AccessToken != "acc2" || pair.RefreshToken != "ref2" {
		t.Errorf("stored pair = %+v, want acc2/ref2", pair)
	}
	if !pair.ExpiresAt.After(first.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want strictly after %v", pair.ExpiresAt, first.ExpiresAt)
	}
}

func TestUpdateTokensUnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateTokens(context.Background(), 999, models.ProviderStrava, &models.TokenPair{
		AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != ErrUserNotFound {
		t.Errorf("UpdateTokens(unknown user) = %v, want ErrUserNotFound", err)
	}
}

func TestUpsertCyclesIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 27, 6, 0, 0, 0, time.UTC)
	strain := 12.5
	cycles := []models.Cycle{
		{ID: 100, UserID: 1, Start: start, ScoreState: "SCORED", Strain: &strain,
			CreatedAt: start, UpdatedAt: start},
		{ID: 101, UserID: 1, Start: start.Add(24 * time.Hour), ScoreState: "PENDING_SCORE",
			CreatedAt: start, UpdatedAt: start},
	}

	newRows, err := db.UpsertCycles(ctx, cycles)
	if err != nil {
		t.Fatalf("UpsertCycles() error: %v", err)
	}
	if newRows != 2 {
		t.Errorf("first upsert newRows = %d, want 2", newRows)
	}

	// Same batch again: zero new, still two rows.
	newRows, err = db.UpsertCycles(ctx, cycles)
	if err != nil {
		t.Fatalf("second UpsertCycles() error: %v", err)
	}
	if newRows != 0 {
		t.Errorf("second upsert newRows = %d, want 0", newRows)
	}

	count, err := db.CountRecords(ctx, "cycles")
	if err != nil {
		t.Fatalf("CountRecords() error: %v", err)
	}
	if count != 2 {
		t.Errorf("cycles count = %d, want 2", count)
	}
}

func TestUpsertCyclesUpdatesContent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 27, 6, 0, 0, 0, time.UTC)
	cycle := models.Cycle{ID: 200, UserID: 1, Start: start, ScoreState: "PENDING_SCORE",
		CreatedAt: start, UpdatedAt: start}

	if _, err := db.UpsertCycles(ctx, []models.Cycle{cycle}); err != nil {
		t.Fatalf("UpsertCycles() error: %v", err)
	}

	// Re-sync after WHOOP scores the cycle.
	strain := 15.2
	end := start.Add(23 * time.Hour)
	cycle.ScoreState = "SCORED"
	cycle.Strain = &strain
	cycle.End = &end
	cycle.UpdatedAt = start.Add(time.Hour)

	newRows, err := db.UpsertCycles(ctx, []models.Cycle{cycle})
	if err != nil {
		t.Fatalf("second UpsertCycles() error: %v", err)
	}
	if newRows != 0 {
		t.Errorf("newRows = %d, want 0 for content update", newRows)
	}

	var state string
	var gotStrain *float64
	err = db.conn.QueryRowContext(ctx,
		"SELECT score_state, strain FROM cycles WHERE id = 200").Scan(&state, &gotStrain)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if state != "SCORED" || gotStrain == nil || *gotStrain != 15.2 {
		t.Errorf("stored cycle = %s/%v, want SCORED/15.2", state, gotStrain)
	}
}

func TestUpsertAllRecordKinds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 27, 22, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)

	sleeps := []models.Sleep{{ID: 1, UserID: 1, Start: start, End: end, ScoreState: "SCORED",
		CreatedAt: end, UpdatedAt: end}}
	recoveries := []models.Recovery{{CycleID: 10, SleepID: 1, UserID: 1, ScoreState: "SCORED",
		CreatedAt: end, UpdatedAt: end}}
	workouts := []models.Workout{{ID: 5, UserID: 1, Start: start, End: start.Add(time.Hour),
		SportID: 1, ScoreState: "SCORED", CreatedAt: end, UpdatedAt: end}}
	activities := []models.Activity{{ID: 900, UserID: 1, Name: "Run", SportType: "Run",
		StartDate: start, CreatedAt: end, UpdatedAt: end}}

	for _, tc := range []struct {
		table string
		fn    func() (int, error)
	}{
		{"sleeps", func() (int, error) { return db.UpsertSleeps(ctx, sleeps) }},
		{"recoveries", func() (int, error) { return db.UpsertRecoveries(ctx, recoveries) }},
		{"workouts", func() (int, error) { return db.UpsertWorkouts(ctx, workouts) }},
		{"activities", func() (int, error) { return db.UpsertActivities(ctx, activities) }},
	} {
		newRows, err := tc.fn()
		if err != nil {
			t.Fatalf("upsert %s error: %v", tc.table, err)
		}
		if newRows != 1 {
			t.Errorf("%s newRows = %d, want 1", tc.table, newRows)
		}

		newRows, err = tc.fn()
		if err != nil {
			t.Fatalf("re-upsert %s error: %v", tc.table, err)
		}
		if newRows != 0 {
			t.Errorf("%s second newRows = %d, want 0", tc.table, newRows)
		}

		count, err := db.CountRecords(ctx, tc.table)
		if err != nil {
			t.Fatalf("CountRecords(%s) error: %v", tc.table, err)
		}
		if count != 1 {
			t.Errorf("%s count = %d, want 1", tc.table, count)
		}
	}
}

func TestEmptyBatchesAreNoOps(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if n, err := db.UpsertCycles(ctx, nil); n != 0 || err != nil {
		t.Errorf("UpsertCycles(nil) = %d, %v", n, err)
	}
	if n, err := db.UpsertActivities(ctx, nil); n != 0 || err != nil {
		t.Errorf("UpsertActivities(nil) = %d, %v", n, err)
	}
}
