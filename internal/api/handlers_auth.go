// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbaxter/vitals/internal/logging"
	"github.com/mbaxter/vitals/internal/models"
)

// callbackResponse confirms a completed sign-in without echoing tokens.
type callbackResponse struct {
	Provider string `json:"provider"`
	UserID   int64  `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Linked   bool   `json:"linked"`
}

// handleAuthStart issues the provider redirect carrying a signed state token.
func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := models.Provider(chi.URLParam(r, "provider"))
	client, ok := s.authClients[provider]
	if !ok || !provider.Valid() {
		respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "unknown provider")
		return
	}
	if s.cfg.Security.SessionSecret == "" {
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeConfiguration, "session secret is not configured")
		return
	}

	state, err := signState(s.cfg.Security.SessionSecret, provider, s.now())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeInternal, "failed to sign state token")
		return
	}

	http.Redirect(w, r, client.BuildAuthorizationURL(state), http.StatusFound)
}

// handleAuthCallback completes the flow: verify state, exchange the code,
// fetch the provider identity, upsert the user, and persist the token pair.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provider := models.Provider(chi.URLParam(r, "provider"))
	client, ok := s.authClients[provider]
	if !ok || !provider.Valid() {
		respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "unknown provider")
		return
	}
	if s.cfg.Security.SessionSecret == "" {
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeConfiguration, "session secret is not configured")
		return
	}

	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "provider denied authorization: "+errCode)
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "missing code or state parameter")
		return
	}

	if err := verifyState(s.cfg.Security.SessionSecret, state, provider); err != nil {
		respondError(w, r, http.StatusUnauthorized, models.ErrCodeUnauthorized, err.Error())
		return
	}

	pair, err := client.ExchangeCode(ctx, code)
	if err != nil {
		logging.Warn().Err(err).Str("provider", string(provider)).Msg("Code exchange failed")
		respondError(w, r, http.StatusBadGateway, models.ErrCodeUpstream, err.Error())
		return
	}

	var user *models.User
	switch provider {
	case models.ProviderWhoop:
		profile, err := s.whoopProfile.GetProfile(ctx, pair.AccessToken)
		if err != nil {
			respondError(w, r, http.StatusBadGateway, models.ErrCodeUpstream, err.Error())
			return
		}
		user, err = s.store.UpsertWhoopUser(ctx, profile.UserID, profile.Email, profile.FirstName, profile.LastName)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, models.ErrCodeInternal, err.Error())
			return
		}
	case models.ProviderStrava:
		athlete, err := s.stravaProfile.GetAthlete(ctx, pair.AccessToken)
		if err != nil {
			respondError(w, r, http.StatusBadGateway, models.ErrCodeUpstream, err.Error())
			return
		}
		user, err = s.store.UpsertStravaAthlete(ctx, athlete.ID, athlete.FirstName, athlete.LastName)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, models.ErrCodeInternal, err.Error())
			return
		}
	}

	if err := s.store.UpdateTokens(ctx, user.ID, provider, pair); err != nil {
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeInternal, err.Error())
		return
	}

	logging.Info().
		Int64("user_id", user.ID).
		Str("provider", string(provider)).
		Msg("Provider linked")

	respondSuccess(w, r, http.StatusOK, callbackResponse{
		Provider: string(provider),
		UserID:   user.ID,
		Name:     user.DisplayName(),
		Linked:   true,
	})
}
