// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"context"
	"errors"
	"time"

	"github.com/mbaxter/vitals/internal/chat"
	"github.com/mbaxter/vitals/internal/config"
	"github.com/mbaxter/vitals/internal/models"
	"github.com/mbaxter/vitals/internal/models/strava"
	"github.com/mbaxter/vitals/internal/models/whoop"
)

// Shared handler-test fakes. Every mutating call is counted so tests can
// assert zero side effects on rejected requests.

type fakeAPIStore struct {
	pingErr    error
	spatialErr error

	upsertWhoopCalls  int
	upsertStravaCalls int
	updateTokenCalls  int

	lastPair *models.TokenPair
}

func (s *fakeAPIStore) Ping(_ context.Context) error {
	return s.pingErr
}

func (s *fakeAPIStore) SpatialVersion(_ context.Context) (string, error) {
	if s.spatialErr != nil {
		return "", s.spatialErr
	}
	return "1.1.0", nil
}

func (s *fakeAPIStore) UpsertWhoopUser(_ context.Context, whoopUserID int64, email, firstName, lastName string) (*models.User, error) {
	s.upsertWhoopCalls++
	return &models.User{ID: 1, Email: email, FirstName: firstName, LastName: lastName, WhoopUserID: &whoopUserID}, nil
}

func (s *fakeAPIStore) UpsertStravaAthlete(_ context.Context, athleteID int64, firstName, lastName string) (*models.User, error) {
	s.upsertStravaCalls++
	return &models.User{ID: 2, FirstName: firstName, LastName: lastName, StravaAthleteID: &athleteID}, nil
}

func (s *fakeAPIStore) UpdateTokens(_ context.Context, _ int64, _ models.Provider, pair *models.TokenPair) error {
	s.updateTokenCalls++
	s.lastPair = pair
	return nil
}

type fakeSyncRunner struct {
	runs   int
	report *models.SyncReport
	err    error
}

func (f *fakeSyncRunner) Run(_ context.Context) (*models.SyncReport, error) {
	f.runs++
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &models.SyncReport{TotalUsers: 1, SuccessfulUsers: 1}, nil
}

type fakeAuthClient struct {
	provider      models.Provider
	exchangeCalls int
	exchangeErr   error
}

func (f *fakeAuthClient) Provider() models.Provider { return f.provider }

func (f *fakeAuthClient) BuildAuthorizationURL(state string) string {
	return "https://auth.example.com/authorize?state=" + state
}

func (f *fakeAuthClient) ExchangeCode(_ context.Context, code string) (*models.TokenPair, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &models.TokenPair{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

type fakeWhoopProfile struct {
	err error
}

func (f *fakeWhoopProfile) GetProfile(_ context.Context, _ string) (*whoop.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &whoop.Profile{UserID: 42, Email: "u@example.com", FirstName: "User"}, nil
}

type fakeStravaProfile struct {
	err error
}

func (f *fakeStravaProfile) GetAthlete(_ context.Context, _ string) (*strava.Athlete, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &strava.Athlete{ID: 555, FirstName: "User"}, nil
}

type fakeChatRelay struct {
	configured bool
	reply      string
	err        error
	calls      int
}

func (f *fakeChatRelay) Configured() bool { return f.configured }

func (f *fakeChatRelay) Complete(_ context.Context, _ []chat.Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// testEnv bundles a server with its fakes.
type testEnv struct {
	server *Server
	store  *fakeAPIStore
	syncer *fakeSyncRunner
	whoop  *fakeAuthClient
	strava *fakeAuthClient
	relay  *fakeChatRelay
}

func newTestEnv(mutate func(cfg *config.Config)) *testEnv {
	cfg := &config.Config{}
	cfg.Security.CronSecret = "topsecret"
	cfg.Security.SessionSecret = "signing-secret"
	cfg.Security.RateLimitDisabled = true
	cfg.Whoop.ClientID = "wid"
	cfg.Whoop.ClientSecret = "wsecret"
	if mutate != nil {
		mutate(cfg)
	}

	env := &testEnv{
		store:  &fakeAPIStore{},
		syncer: &fakeSyncRunner{},
		whoop:  &fakeAuthClient{provider: models.ProviderWhoop},
		strava: &fakeAuthClient{provider: models.ProviderStrava},
		relay:  &fakeChatRelay{configured: true, reply: "hello"},
	}
	env.server = NewServer(cfg, env.store, env.syncer, &fakeWhoopProfile{}, &fakeStravaProfile{}, env.relay, nil, env.whoop, env.strava)
	return env
}

var errUpstream = errors.New("upstream unavailable")
