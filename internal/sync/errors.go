// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package sync

import (
	"fmt"

	"github.com/mbaxter/vitals/internal/models"
)

// APIError is returned when a provider data endpoint answers non-2xx. It is
// scoped to one record kind within one user's pipeline — the batch records it
// and moves on, it never aborts the run.
type APIError struct {
	Provider   models.Provider
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API request failed with status %d", e.Provider, e.StatusCode)
}
