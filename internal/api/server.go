// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package api implements the HTTP surface: health diagnostics, the
// cron-secret-protected sync trigger, the OAuth sign-in flow, the chatbot
// relay, and the dashboard websocket.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbaxter/vitals/internal/chat"
	"github.com/mbaxter/vitals/internal/config"
	"github.com/mbaxter/vitals/internal/middleware"
	"github.com/mbaxter/vitals/internal/models"
	"github.com/mbaxter/vitals/internal/models/strava"
	"github.com/mbaxter/vitals/internal/models/whoop"
)

// Store is the persistence surface the handlers need. *database.DB satisfies
// it.
type Store interface {
	Ping(ctx context.Context) error
	SpatialVersion(ctx context.Context) (string, error)
	UpsertWhoopUser(ctx context.Context, whoopUserID int64, email, firstName, lastName string) (*models.User, error)
	UpsertStravaAthlete(ctx context.Context, athleteID int64, firstName, lastName string) (*models.User, error)
	UpdateTokens(ctx context.Context, userID int64, provider models.Provider, pair *models.TokenPair) error
}

// SyncRunner triggers one full sync pass. *sync.Orchestrator satisfies it.
type SyncRunner interface {
	Run(ctx context.Context) (*models.SyncReport, error)
}

// AuthClient performs the interactive half of the OAuth flow for one
// provider. *oauth.Client satisfies it.
type AuthClient interface {
	Provider() models.Provider
	BuildAuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*models.TokenPair, error)
}

// WhoopProfileFetcher resolves the signed-in WHOOP identity after code
// exchange.
type WhoopProfileFetcher interface {
	GetProfile(ctx context.Context, accessToken string) (*whoop.Profile, error)
}

// StravaAthleteFetcher resolves the signed-in Strava identity after code
// exchange.
type StravaAthleteFetcher interface {
	GetAthlete(ctx context.Context, accessToken string) (*strava.Athlete, error)
}

// ChatRelay forwards chatbot conversations upstream. *chat.Client satisfies
// it.
type ChatRelay interface {
	Configured() bool
	Complete(ctx context.Context, messages []chat.Message) (string, error)
}

// Server holds handler dependencies and builds the router.
type Server struct {
	cfg    *config.Config
	store  Store
	syncer SyncRunner

	authClients   map[models.Provider]AuthClient
	whoopProfile  WhoopProfileFetcher
	stravaProfile StravaAthleteFetcher

	chatRelay ChatRelay
	wsHandler http.Handler

	startTime time.Time
	// now is swapped in tests.
	now func() time.Time
}

// NewServer wires the HTTP layer. wsHandler may be nil to disable the
// dashboard socket (tests).
func NewServer(
	cfg *config.Config,
	store Store,
	syncer SyncRunner,
	whoopProfile WhoopProfileFetcher,
	stravaProfile StravaAthleteFetcher,
	chatRelay ChatRelay,
	wsHandler http.Handler,
	authClients ...AuthClient,
) *Server {
	clients := make(map[models.Provider]AuthClient, len(authClients))
	for _, c := range authClients {
		clients[c.Provider()] = c
	}
	return &Server{
		cfg:           cfg,
		store:         store,
		syncer:        syncer,
		authClients:   clients,
		whoopProfile:  whoopProfile,
		stravaProfile: stravaProfile,
		chatRelay:     chatRelay,
		wsHandler:     wsHandler,
		startTime:     time.Now(),
		now:           time.Now,
	}
}

// Router assembles the chi router with the full middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Cron-Secret", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if !s.cfg.Security.RateLimitDisabled {
		limit := s.cfg.Security.RateLimitReqs
		window := s.cfg.Security.RateLimitWindow
		if limit <= 0 {
			limit = 100
		}
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.LimitByIP(limit, window))
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/cron/daily-sync", s.handleDailySync)
		r.Post("/cron/daily-sync", s.handleDailySync)

		r.Route("/auth/{provider}", func(r chi.Router) {
			r.Get("/start", s.handleAuthStart)
			r.Get("/callback", s.handleAuthCallback)
		})

		r.Post("/chat", s.handleChat)

		if s.wsHandler != nil {
			r.Handle("/ws", s.wsHandler)
		}
	})

	return r
}

func (s *Server) corsOrigins() []string {
	if len(s.cfg.Security.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.Security.CORSOrigins
}
