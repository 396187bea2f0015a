// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

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
	"github.com/mbaxter/vitals/internal/models/strava"
)

// StravaClient fetches the athlete and activity summaries from the Strava v3
// API. Strava paginates with page numbers; an empty page signals exhaustion.
type StravaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	maxPages   int
}

// NewStravaClient creates a Strava data client.
func NewStravaClient(cfg *config.StravaConfig, syncCfg *config.SyncConfig) *StravaClient {
	maxPages := syncCfg.MaxPages
	if maxPages <= 0 || maxPages > maxPageSafetyCap {
		maxPages = maxPageSafetyCap
	}
	return &StravaClient{
		baseURL:    cfg.APIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		pageSize:   syncCfg.PageSize,
		maxPages:   maxPages,
	}
}

// get performs one authenticated GET and decodes the JSON body into out.
func (c *StravaClient) get(ctx context.Context, accessToken, path string, query url.Values, out any) error {
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
		return fmt.Errorf("strava request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read strava response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Provider: models.ProviderStrava, StatusCode: resp.StatusCode}
		var errBody struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			apiErr.Message = errBody.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse strava response: %w", err)
	}
	return nil
}

// GetAthlete fetches the authenticated athlete.
func (c *StravaClient) GetAthlete(ctx context.Context, accessToken string) (*strava.Athlete, error) {
	var athlete strava.Athlete
	err := c.get(ctx, accessToken, "/athlete", nil, &athlete)
	metrics.RecordProviderRequest("strava", "athlete", err)
	if err != nil {
		return nil, err
	}
	if err := athlete.Validate(); err != nil {
		return nil, err
	}
	return &athlete, nil
}

// GetActivities fetches activity summaries for the window, paging by page
// number until a short page, an empty page, or the page cap.
func (c *StravaClient) GetActivities(ctx context.Context, accessToken string, start, end time.Time) ([]strava.SummaryActivity, error) {
	var all []strava.SummaryActivity

	for page := 1; page <= c.maxPages; page++ {
		q := url.Values{}
		q.Set("after", strconv.FormatInt(start.UTC().Unix(), 10))
		q.Set("before", strconv.FormatInt(end.UTC().Unix(), 10))
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(c.pageSize))

		var batch []strava.SummaryActivity
		if err := c.get(ctx, accessToken, "/athlete/activities", q, &batch); err != nil {
			metrics.RecordProviderRequest("strava", "activities", err)
			return nil, err
		}

		for i := range batch {
			if err := batch[i].Validate(); err != nil {
				metrics.RecordProviderRequest("strava", "activities", err)
				return nil, err
			}
		}
		all = append(all, batch...)

		if len(batch) < c.pageSize {
			break
		}
	}

	metrics.RecordProviderRequest("strava", "activities", nil)
	return all, nil
}
