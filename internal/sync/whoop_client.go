// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package sync implements the data fetch clients and the scheduled
// orchestrator that pulls fitness records from the linked providers into the
// store. Batch semantics are at-least-once with idempotent upserts: re-running
// the same window never duplicates rows, and one user's failure never blocks
// another's pipeline.
package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/mbaxter/vitals/internal/config"
	"github.com/mbaxter/vitals/internal/metrics"
	"github.com/mbaxter/vitals/internal/models"
	"github.com/mbaxter/vitals/internal/models/whoop"
)

// maxPageSafetyCap bounds pagination even when configuration asks for more,
// so a provider whose cursor never signals completion cannot loop forever.
const maxPageSafetyCap = 10

// WhoopClient fetches profile and record collections from the WHOOP developer
// API. Access tokens are passed per call; the client itself holds no
// credentials and is safe for concurrent use.
type WhoopClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	maxPages   int
}

// NewWhoopClient creates a WHOOP data client.
func NewWhoopClient(cfg *config.WhoopConfig, syncCfg *config.SyncConfig) *WhoopClient {
	maxPages := syncCfg.MaxPages
	if maxPages <= 0 || maxPages > maxPageSafetyCap {
		maxPages = maxPageSafetyCap
	}
	return &WhoopClient{
		baseURL:    cfg.APIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		pageSize:   syncCfg.PageSize,
		maxPages:   maxPages,
	}
}

// get performs one authenticated GET and decodes the JSON body into out.
func (c *WhoopClient) get(ctx context.Context, accessToken, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whoop request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read whoop response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Provider: models.ProviderWhoop, StatusCode: resp.StatusCode}
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			apiErr.Message = errBody.Message
			if apiErr.Message == "" {
				apiErr.Message = errBody.Error
			}
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse whoop response: %w", err)
	}
	return nil
}

// GetProfile fetches the basic profile, validating the token and providing
// the identity for upsert.
func (c *WhoopClient) GetProfile(ctx context.Context, accessToken string) (*whoop.Profile, error) {
	var profile whoop.Profile
	err := c.get(ctx, accessToken, "/v1/user/profile/basic", nil, &profile)
	metrics.RecordProviderRequest("whoop", "profile", err)
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// windowQuery builds the start/end/limit parameters shared by the windowed
// collection endpoints.
func (c *WhoopClient) windowQuery(start, end time.Time) url.Values {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(c.pageSize))
	return q
}

// collectPages pages through one windowed collection endpoint following the
// opaque next_token cursor, concatenating pages in provider order. Pagination
// stops when the cursor signals completion or the page cap is reached.
func collectPages[T any](ctx context.Context, c *WhoopClient, accessToken, path string, start, end time.Time, validate func(*T) error) ([]T, error) {
	var all []T
	var nextToken string

	for page := 0; page < c.maxPages; page++ {
		q := c.windowQuery(start, end)
		if nextToken != "" {
			q.Set("nextToken", nextToken)
		}

		var col whoop.Collection[T]
		if err := c.get(ctx, accessToken, path, q, &col); err != nil {
			return nil, err
		}

		for i := range col.Records {
			if err := validate(&col.Records[i]); err != nil {
				return nil, err
			}
		}
		all = append(all, col.Records...)

		if !col.HasNext() {
			return all, nil
		}
		nextToken = *col.NextToken
	}

	// Cursor never signaled completion; return what we have.
	return all, nil
}

// GetRecoveries fetches recovery records for the window.
func (c *WhoopClient) GetRecoveries(ctx context.Context, accessToken string, start, end time.Time) ([]whoop.Recovery, error) {
	records, err := collectPages(ctx, c, accessToken, "/v1/recovery", start, end,
		func(r *whoop.Recovery) error { return r.Validate() })
	metrics.RecordProviderRequest("whoop", "recovery", err)
	return records, err
}

// GetSleeps fetches sleep records for the window.
func (c *WhoopClient) GetSleeps(ctx context.Context, accessToken string, start, end time.Time) ([]whoop.Sleep, error) {
	records, err := collectPages(ctx, c, accessToken, "/v1/activity/sleep", start, end,
		func(s *whoop.Sleep) error { return s.Validate() })
	metrics.RecordProviderRequest("whoop", "sleep", err)
	return records, err
}

// GetWorkouts fetches workout records for the window.
func (c *WhoopClient) GetWorkouts(ctx context.Context, accessToken string, start, end time.Time) ([]whoop.Workout, error) {
	records, err := collectPages(ctx, c, accessToken, "/v1/activity/workout", start, end,
		func(w *whoop.Workout) error { return w.Validate() })
	metrics.RecordProviderRequest("whoop", "workout", err)
	return records, err
}

// GetCycle fetches a single cycle by id. Used to derive cycle records from
// the cycle ids referenced by a recovery batch.
func (c *WhoopClient) GetCycle(ctx context.Context, accessToken string, cycleID int64) (*whoop.Cycle, error) {
	var cycle whoop.Cycle
	err := c.get(ctx, accessToken, "/v1/cycle/"+strconv.FormatInt(cycleID, 10), nil, &cycle)
	metrics.RecordProviderRequest("whoop", "cycle", err)
	if err != nil {
		return nil, err
	}
	if err := cycle.Validate(); err != nil {
		return nil, err
	}
	return &cycle, nil
}
