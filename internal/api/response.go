// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/mbaxter/vitals/internal/logging"
	"github.com/mbaxter/vitals/internal/middleware"
	"github.com/mbaxter/vitals/internal/models"
)

// writeJSON serializes v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondSuccess writes a success envelope carrying data.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	resp := models.NewSuccessResponse(data)
	resp.Metadata.RequestID = middleware.GetRequestID(r.Context())
	writeJSON(w, status, resp)
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := models.NewErrorResponse(code, message)
	resp.Metadata.RequestID = middleware.GetRequestID(r.Context())
	writeJSON(w, status, resp)
}
