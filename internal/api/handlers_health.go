// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"net/http"
	"time"

	"github.com/mbaxter/vitals/internal/models"
)

// handleHealth reports configuration presence and runtime probes. It never
// mutates state, so it is safe for load balancers and uptime monitors to poll.
//
// The spatial probe is informational: the store works without the extension,
// so its failure does not flip the aggregate ok.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := models.HealthStatus{
		Env: map[string]bool{
			"whoopClientId":      s.cfg.Whoop.ClientID != "",
			"whoopClientSecret":  s.cfg.Whoop.ClientSecret != "",
			"stravaClientId":     s.cfg.Strava.ClientID != "",
			"stravaClientSecret": s.cfg.Strava.ClientSecret != "",
			"chatApiKey":         s.cfg.Chat.APIKey != "",
			"cronSecret":         s.cfg.Security.CronSecret != "",
			"sessionSecret":      s.cfg.Security.SessionSecret != "",
		},
		Timestamp: s.now().UTC(),
	}
	status.Checks.UptimeMs = time.Since(s.startTime).Milliseconds()

	status.Checks.DB.OK = true
	if err := s.store.Ping(ctx); err != nil {
		status.Checks.DB = models.CheckResult{OK: false, Error: err.Error()}
	}

	if version, err := s.store.SpatialVersion(ctx); err != nil {
		status.Checks.Spatial = models.SpatialCheck{OK: false, Error: err.Error()}
	} else {
		status.Checks.Spatial = models.SpatialCheck{OK: true, Version: version}
	}

	status.OK = status.Checks.DB.OK

	httpStatus := http.StatusOK
	if !status.OK {
		httpStatus = http.StatusInternalServerError
	}
	respondSuccess(w, r, httpStatus, status)
}
