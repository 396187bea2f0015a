// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/mbaxter/vitals/internal/logging"
	"github.com/mbaxter/vitals/internal/metrics"
	"github.com/mbaxter/vitals/internal/models"
)

// TokenStore is the persistence surface the service needs. *database.DB
// satisfies it; tests substitute an in-memory fake.
type TokenStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateTokens(ctx context.Context, userID int64, provider models.Provider, pair *models.TokenPair) error
}

// Refresher exchanges a refresh token for a fresh pair against one provider.
type Refresher interface {
	Provider() models.Provider
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

// Service owns the refresh-before-expiry decision and the batch refresh used
// by the scheduled sync job. The same GetFreshTokens contract serves both the
// interactive callback path and the batch job — there is exactly one policy.
type Service struct {
	store        TokenStore
	clients      map[models.Provider]Refresher
	providers    []models.Provider // registration order, for deterministic batches
	refreshDelay time.Duration

	// now is swapped in tests to pin the lookahead decision.
	now func() time.Time
}

// NewService creates a token service over the given store and provider
// clients. refreshDelay is the pause between requests in RefreshAll.
func NewService(store TokenStore, refreshDelay time.Duration, clients ...Refresher) *Service {
	m := make(map[models.Provider]Refresher, len(clients))
	order := make([]models.Provider, 0, len(clients))
	for _, c := range clients {
		m[c.Provider()] = c
		order = append(order, c.Provider())
	}
	return &Service{
		store:        store,
		clients:      m,
		providers:    order,
		refreshDelay: refreshDelay,
		now:          time.Now,
	}
}

// GetFreshTokens returns a usable token pair for the user and provider.
//
// The stored pair is returned unchanged unless force is set, the access token
// is missing, or the stored expiry falls within the 10-minute lookahead — in
// which case one refresh is performed and persisted first.
//
// A user with no refresh token at all yields (nil, nil): "needs full
// re-authentication", which is a distinct condition from a transient refresh
// failure (non-nil error).
func (s *Service) GetFreshTokens(ctx context.Context, userID int64, provider models.Provider, force bool) (*models.TokenPair, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	pair := user.Tokens(provider)
	if pair == nil || !pair.HasRefreshToken() {
		return nil, nil
	}

	if !force && !pair.NeedsRefresh(s.now(), refreshLookahead) {
		return pair, nil
	}

	client, ok := s.clients[provider]
	if !ok {
		return nil, fmt.Errorf("no token client configured for provider %q", provider)
	}

	fresh, err := client.Refresh(ctx, pair.RefreshToken)
	metrics.RecordTokenRefresh(string(provider), err)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateTokens(ctx, userID, provider, fresh); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed %s tokens for user %d: %w", provider, userID, err)
	}

	logging.Debug().
		Int64("user_id", userID).
		Str("provider", string(provider)).
		Time("expires_at", fresh.ExpiresAt).
		Msg("Refreshed provider tokens")

	return fresh, nil
}

// RefreshAll force-refreshes every user/provider pair that holds a refresh
// token. Users are processed sequentially with a fixed inter-request delay to
// respect upstream rate limits; a single failure is captured into the summary
// and never aborts the loop.
//
// The scheduled job uses this instead of per-user expiry checks, which might
// be stale by the time the batch reaches a user.
func (s *Service) RefreshAll(ctx context.Context) models.RefreshSummary {
	summary := models.RefreshSummary{}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("RefreshAll could not list users")
		summary.Failed++
		summary.Errors = append(summary.Errors, models.RefreshFailure{Error: err.Error()})
		return summary
	}

	first := true
	for i := range users {
		user := &users[i]
		for _, provider := range s.providers {
			pair := user.Tokens(provider)
			if pair == nil || !pair.HasRefreshToken() {
				continue
			}

			if !first && s.refreshDelay > 0 {
				select {
				case <-ctx.Done():
					summary.Failed++
					summary.Errors = append(summary.Errors, models.RefreshFailure{
						UserID: user.ID, Provider: provider, Error: ctx.Err().Error(),
					})
					return summary
				case <-time.After(s.refreshDelay):
				}
			}
			first = false

			if _, err := s.GetFreshTokens(ctx, user.ID, provider, true); err != nil {
				logging.Warn().
					Err(err).
					Int64("user_id", user.ID).
					Str("provider", string(provider)).
					Msg("Token refresh failed")
				summary.Failed++
				summary.Errors = append(summary.Errors, models.RefreshFailure{
					UserID: user.ID, Provider: provider, Error: err.Error(),
				})
				continue
			}
			summary.Successful++
		}
	}

	logging.Info().
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Msg("Token refresh batch complete")

	return summary
}
