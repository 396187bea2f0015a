// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/mbaxter/vitals/internal/logging"
	"github.com/mbaxter/vitals/internal/models"
)

// dryRunResponse is the payload returned when ?dryRun=true short-circuits the
// sync trigger.
type dryRunResponse struct {
	OK        bool   `json:"ok"`
	Endpoint  string `json:"endpoint"`
	DryRun    bool   `json:"dryRun"`
	Timestamp string `json:"timestamp"`
}

// handleDailySync is the scheduler-invoked sync trigger. Authentication is a
// pre-shared secret; an unauthorized or dry-run request performs zero provider
// calls and zero writes. A batch with per-user failures still answers 200 —
// the report's errors[] is the caller's signal, not the HTTP status.
func (s *Server) handleDailySync(w http.ResponseWriter, r *http.Request) {
	secret := s.cfg.Security.CronSecret
	if secret == "" {
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeConfiguration, "cron secret is not configured")
		return
	}

	if !cronSecretMatches(r, secret) {
		respondError(w, r, http.StatusUnauthorized, models.ErrCodeUnauthorized, "invalid cron secret")
		return
	}

	if r.URL.Query().Get("dryRun") == "true" {
		respondSuccess(w, r, http.StatusOK, dryRunResponse{
			OK:        true,
			Endpoint:  "daily-sync",
			DryRun:    true,
			Timestamp: s.now().UTC().Format(time.RFC3339),
		})
		return
	}

	report, err := s.syncer.Run(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Sync run failed")
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeInternal, err.Error())
		return
	}

	respondSuccess(w, r, http.StatusOK, report)
}

// cronSecretMatches checks the X-Cron-Secret header and the ?secret=/?token=
// query fallbacks in constant time.
func cronSecretMatches(r *http.Request, secret string) bool {
	candidates := []string{
		r.Header.Get("X-Cron-Secret"),
		r.URL.Query().Get("secret"),
		r.URL.Query().Get("token"),
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) == 1 {
			return true
		}
	}
	return false
}
