// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package sync

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"github.com/mbaxter/vitals/internal/logging"
	"github.com/mbaxter/vitals/internal/metrics"
	"github.com/mbaxter/vitals/internal/models"
	"github.com/mbaxter/vitals/internal/models/strava"
	"github.com/mbaxter/vitals/internal/models/whoop"
)

// Store is the persistence surface the orchestrator needs. *database.DB
// satisfies it.
type Store interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	UpsertWhoopUser(ctx context.Context, whoopUserID int64, email, firstName, lastName string) (*models.User, error)
	UpsertStravaAthlete(ctx context.Context, athleteID int64, firstName, lastName string) (*models.User, error)
	UpsertCycles(ctx context.Context, cycles []models.Cycle) (int, error)
	UpsertSleeps(ctx context.Context, sleeps []models.Sleep) (int, error)
	UpsertRecoveries(ctx context.Context, recoveries []models.Recovery) (int, error)
	UpsertWorkouts(ctx context.Context, workouts []models.Workout) (int, error)
	UpsertActivities(ctx context.Context, activities []models.Activity) (int, error)
}

// TokenSource provides fresh access tokens. *oauth.Service satisfies it.
type TokenSource interface {
	RefreshAll(ctx context.Context) models.RefreshSummary
	GetFreshTokens(ctx context.Context, userID int64, provider models.Provider, force bool) (*models.TokenPair, error)
}

// WhoopAPI is the WHOOP fetch surface. *WhoopClient and
// *CircuitBreakerWhoopClient both satisfy it.
type WhoopAPI interface {
	GetProfile(ctx context.Context, accessToken string) (*whoop.Profile, error)
	GetRecoveries(ctx context.Context, accessToken string, start, end time.Time) ([]whoop.Recovery, error)
	GetSleeps(ctx context.Context, accessToken string, start, end time.Time) ([]whoop.Sleep, error)
	GetWorkouts(ctx context.Context, accessToken string, start, end time.Time) ([]whoop.Workout, error)
	GetCycle(ctx context.Context, accessToken string, cycleID int64) (*whoop.Cycle, error)
}

// StravaAPI is the Strava fetch surface. *StravaClient satisfies it.
type StravaAPI interface {
	GetAthlete(ctx context.Context, accessToken string) (*strava.Athlete, error)
	GetActivities(ctx context.Context, accessToken string, start, end time.Time) ([]strava.SummaryActivity, error)
}

// Broadcaster pushes completed reports to dashboard clients. *websocket.Hub
// satisfies it; nil disables broadcasting.
type Broadcaster interface {
	BroadcastSyncReport(report *models.SyncReport)
}

// Orchestrator runs the scheduled sync: refresh every token, then pull each
// user's trailing window of records and upsert them. Users are processed
// sequentially with a fixed delay between them to bound upstream load; record
// kinds within one user are fetched in parallel (bounded fan-out).
//
// Failure isolation is at user granularity, not transactional: one user's
// failure is recorded and the batch continues, and a crash mid-batch is
// repaired by the next run's idempotent upserts.
type Orchestrator struct {
	store       Store
	tokens      TokenSource
	whoop       WhoopAPI
	strava      StravaAPI
	broadcaster Broadcaster

	windowDays int
	userDelay  time.Duration

	// now is swapped in tests to pin the window.
	now func() time.Time
}

// NewOrchestrator wires the orchestrator. broadcaster may be nil.
func NewOrchestrator(store Store, tokens TokenSource, whoopAPI WhoopAPI, stravaAPI StravaAPI, broadcaster Broadcaster, windowDays int, userDelay time.Duration) *Orchestrator {
	return &Orchestrator{
		store:       store,
		tokens:      tokens,
		whoop:       whoopAPI,
		strava:      stravaAPI,
		broadcaster: broadcaster,
		windowDays:  windowDays,
		userDelay:   userDelay,
		now:         time.Now,
	}
}

// Run executes one full sync pass. The returned report aggregates per-user
// results and all collected errors; err is non-nil only when the orchestrator
// itself cannot proceed (e.g. the user list is unreadable) — per-user
// failures never surface as err.
func (o *Orchestrator) Run(ctx context.Context) (*models.SyncReport, error) {
	started := o.now()
	window := ComputeWindow(started, o.windowDays)

	report := &models.SyncReport{
		Timestamp:   started.UTC(),
		WindowStart: window.Start,
		WindowEnd:   window.End,
	}

	logging.Info().
		Time("window_start", window.Start).
		Time("window_end", window.End).
		Msg("Sync run started")

	// Step 1: force-refresh every stored token so the fetch phase never
	// races a stale per-user expiry check.
	report.Refresh = o.tokens.RefreshAll(ctx)

	// Step 2: re-read users, now expected to carry fresh access tokens.
	users, err := o.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	report.TotalUsers = len(users)

	// Step 3: per user, sequentially.
	for i := range users {
		if i > 0 && o.userDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.userDelay):
			}
		}
		report.AddUserResult(o.syncUser(ctx, &users[i], window))
	}

	report.DurationMs = time.Since(started).Milliseconds()
	metrics.RecordSyncRun(time.Since(started))

	logging.Info().
		Int("total", report.TotalUsers).
		Int("successful", report.SuccessfulUsers).
		Int("failed", report.FailedUsers).
		Int64("duration_ms", report.DurationMs).
		Msg("Sync run complete")

	if o.broadcaster != nil {
		o.broadcaster.BroadcastSyncReport(report)
	}

	return report, nil
}

// syncUser runs one user's pipeline. Every error is recorded into the result
// rather than propagated; the batch always continues.
func (o *Orchestrator) syncUser(ctx context.Context, user *models.User, window Window) models.UserSyncResult {
	result := models.UserSyncResult{
		UserID: user.ID,
		Name:   user.DisplayName(),
	}

	attempted := false

	if user.Tokens(models.ProviderWhoop) != nil {
		attempted = true
		o.syncWhoop(ctx, user, window, &result)
	}
	if user.Tokens(models.ProviderStrava) != nil {
		attempted = true
		o.syncStrava(ctx, user, window, &result)
	}

	if !attempted {
		result.Errors = append(result.Errors, "no linked provider")
	}

	result.Success = len(result.Errors) == 0
	return result
}

// freshAccessToken resolves a usable access token for one provider, mapping
// the "no refresh token" condition to a needs-re-authentication error string.
func (o *Orchestrator) freshAccessToken(ctx context.Context, userID int64, provider models.Provider) (string, error) {
	pair, err := o.tokens.GetFreshTokens(ctx, userID, provider, false)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("refresh").Inc()
		return "", fmt.Errorf("%s: %w", provider, err)
	}
	if pair == nil || !pair.HasAccessToken() {
		metrics.SyncErrors.WithLabelValues("refresh").Inc()
		return "", fmt.Errorf("%s: needs re-authentication", provider)
	}
	return pair.AccessToken, nil
}

// syncWhoop pulls the user's WHOOP window: profile upsert, parallel
// recovery/sleep/workout fetch, cycle derivation, filter, upsert.
func (o *Orchestrator) syncWhoop(ctx context.Context, user *models.User, window Window, result *models.UserSyncResult) {
	accessToken, err := o.freshAccessToken(ctx, user.ID, models.ProviderWhoop)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}

	// Profile validates the token and refreshes the identity row.
	profile, err := o.whoop.GetProfile(ctx, accessToken)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("profile").Inc()
		result.Errors = append(result.Errors, fmt.Sprintf("whoop profile: %v", err))
		return
	}
	if _, err := o.store.UpsertWhoopUser(ctx, profile.UserID, profile.Email, profile.FirstName, profile.LastName); err != nil {
		metrics.SyncErrors.WithLabelValues("store").Inc()
		result.Errors = append(result.Errors, fmt.Sprintf("whoop identity: %v", err))
		return
	}

	// Fetch the three windowed collections in parallel (bounded fan-out of
	// three requests). A failed kind is recorded and the others proceed.
	var (
		recoveries []whoop.Recovery
		sleeps     []whoop.Sleep
		workouts   []whoop.Workout

		mu gosync.Mutex
		wg gosync.WaitGroup
	)

	addError := func(stage, msg string) {
		mu.Lock()
		defer mu.Unlock()
		metrics.SyncErrors.WithLabelValues(stage).Inc()
		result.Errors = append(result.Errors, msg)
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		recs, err := o.whoop.GetRecoveries(ctx, accessToken, window.Start, window.End)
		if err != nil {
			addError("fetch", fmt.Sprintf("whoop recoveries: %v", err))
			return
		}
		mu.Lock()
		recoveries = recs
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		recs, err := o.whoop.GetSleeps(ctx, accessToken, window.Start, window.End)
		if err != nil {
			addError("fetch", fmt.Sprintf("whoop sleeps: %v", err))
			return
		}
		mu.Lock()
		sleeps = recs
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		recs, err := o.whoop.GetWorkouts(ctx, accessToken, window.Start, window.End)
		if err != nil {
			addError("fetch", fmt.Sprintf("whoop workouts: %v", err))
			return
		}
		mu.Lock()
		workouts = recs
		mu.Unlock()
	}()
	wg.Wait()

	// Derive cycles from the distinct cycle ids the recovery batch
	// references. A failed per-id lookup is treated as not-found and
	// excluded, never fatal.
	cycles := o.deriveCycles(ctx, accessToken, recoveries)

	// Defensive window filtering: upstream "since" parameters over-return.
	recoveries = filterInWindow(recoveries, window, func(r *whoop.Recovery) time.Time { return r.CreatedAt })
	sleeps = filterInWindow(sleeps, window, func(s *whoop.Sleep) time.Time { return s.End })
	workouts = filterInWindow(workouts, window, func(w *whoop.Workout) time.Time { return w.End })
	cycles = filterInWindow(cycles, window, func(c *whoop.Cycle) time.Time { return c.Start })

	userID := user.ID

	cycleRecords := make([]models.Cycle, 0, len(cycles))
	for i := range cycles {
		cycleRecords = append(cycleRecords, cycleFromWhoop(&cycles[i], userID))
	}
	sleepRecords := make([]models.Sleep, 0, len(sleeps))
	for i := range sleeps {
		sleepRecords = append(sleepRecords, sleepFromWhoop(&sleeps[i], userID))
	}
	recoveryRecords := make([]models.Recovery, 0, len(recoveries))
	for i := range recoveries {
		recoveryRecords = append(recoveryRecords, recoveryFromWhoop(&recoveries[i], userID))
	}
	workoutRecords := make([]models.Workout, 0, len(workouts))
	for i := range workouts {
		workoutRecords = append(workoutRecords, workoutFromWhoop(&workouts[i], userID))
	}

	if n, err := o.store.UpsertCycles(ctx, cycleRecords); err != nil {
		addError("store", fmt.Sprintf("store cycles: %v", err))
	} else {
		result.NewCycles += n
		metrics.SyncRecordsNew.WithLabelValues("cycles").Add(float64(n))
	}
	if n, err := o.store.UpsertSleeps(ctx, sleepRecords); err != nil {
		addError("store", fmt.Sprintf("store sleeps: %v", err))
	} else {
		result.NewSleeps += n
		metrics.SyncRecordsNew.WithLabelValues("sleeps").Add(float64(n))
	}
	if n, err := o.store.UpsertRecoveries(ctx, recoveryRecords); err != nil {
		addError("store", fmt.Sprintf("store recoveries: %v", err))
	} else {
		result.NewRecoveries += n
		metrics.SyncRecordsNew.WithLabelValues("recoveries").Add(float64(n))
	}
	if n, err := o.store.UpsertWorkouts(ctx, workoutRecords); err != nil {
		addError("store", fmt.Sprintf("store workouts: %v", err))
	} else {
		result.NewWorkouts += n
		metrics.SyncRecordsNew.WithLabelValues("workouts").Add(float64(n))
	}
}

// deriveCycles fetches the distinct cycles referenced by a recovery batch,
// one concurrent lookup per id. Failed lookups are logged and swallowed.
func (o *Orchestrator) deriveCycles(ctx context.Context, accessToken string, recoveries []whoop.Recovery) []whoop.Cycle {
	seen := make(map[int64]struct{}, len(recoveries))
	ids := make([]int64, 0, len(recoveries))
	for i := range recoveries {
		id := recoveries[i].CycleID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		mu     gosync.Mutex
		wg     gosync.WaitGroup
		cycles = make([]whoop.Cycle, 0, len(ids))
	)

	for _, id := range ids {
		wg.Add(1)
		go func(cycleID int64) {
			defer wg.Done()
			cycle, err := o.whoop.GetCycle(ctx, accessToken, cycleID)
			if err != nil {
				logging.Warn().Err(err).Int64("cycle_id", cycleID).Msg("Cycle lookup failed, excluding from batch")
				return
			}
			mu.Lock()
			cycles = append(cycles, *cycle)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	// Restore deterministic order after the concurrent fan-out.
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].ID < cycles[j].ID })
	return cycles
}

// syncStrava pulls the user's Strava window: athlete identity refresh plus
// windowed activity summaries.
func (o *Orchestrator) syncStrava(ctx context.Context, user *models.User, window Window, result *models.UserSyncResult) {
	accessToken, err := o.freshAccessToken(ctx, user.ID, models.ProviderStrava)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}

	athlete, err := o.strava.GetAthlete(ctx, accessToken)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("profile").Inc()
		result.Errors = append(result.Errors, fmt.Sprintf("strava athlete: %v", err))
		return
	}
	if _, err := o.store.UpsertStravaAthlete(ctx, athlete.ID, athlete.FirstName, athlete.LastName); err != nil {
		metrics.SyncErrors.WithLabelValues("store").Inc()
		result.Errors = append(result.Errors, fmt.Sprintf("strava identity: %v", err))
		return
	}

	activities, err := o.strava.GetActivities(ctx, accessToken, window.Start, window.End)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("fetch").Inc()
		result.Errors = append(result.Errors, fmt.Sprintf("strava activities: %v", err))
		return
	}

	activities = filterInWindow(activities, window, func(a *strava.SummaryActivity) time.Time { return a.StartDate })

	records := make([]models.Activity, 0, len(activities))
	for i := range activities {
		records = append(records, activityFromStrava(&activities[i], user.ID))
	}

	if n, err := o.store.UpsertActivities(ctx, records); err != nil {
		metrics.SyncErrors.WithLabelValues("store").Inc()
		result.Errors = append(result.Errors, fmt.Sprintf("store activities: %v", err))
	} else {
		result.NewActivities += n
		metrics.SyncRecordsNew.WithLabelValues("activities").Add(float64(n))
	}
}
