// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package oauth implements the token lifecycle for the supported fitness
// providers: authorization-code exchange at sign-in, refresh-before-expiry,
// and the service that decides when a stored pair needs refreshing.
//
// One policy applies everywhere: the stored expiry carries a 5-minute safety
// buffer, and reads refresh anything expiring within a 10-minute lookahead.
// Refresh-token rotation is tolerated both ways — a response that omits the
// refresh token keeps the previous one.
package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mbaxter/vitals/internal/config"
	"github.com/mbaxter/vitals/internal/models"
)

const (
	// expiryBuffer is subtracted from the provider-reported lifetime when
	// computing the stored expiry, so "needs refresh" checks trigger early
	// rather than racing true expiry.
	expiryBuffer = 5 * time.Minute

	// refreshLookahead is the window ahead of "now" within which a stored
	// pair is refreshed on read.
	refreshLookahead = 10 * time.Minute
)

// RefreshError is returned when a provider's token endpoint answers non-2xx.
// It carries the HTTP status and the provider's error code/description so
// batch summaries can distinguish revoked grants from transient failures.
type RefreshError struct {
	Provider    models.Provider
	StatusCode  int
	Code        string
	Description string
}

func (e *RefreshError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s token request failed with status %d: %s (%s)",
			e.Provider, e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("%s token request failed with status %d", e.Provider, e.StatusCode)
}

// tokenResponse is the provider token endpoint's success payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// tokenErrorResponse is the provider token endpoint's error payload
// (RFC 6749 §5.2; Strava uses "message" instead).
type tokenErrorResponse struct {
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

// Client performs token exchange and refresh against one provider's OAuth
// endpoints. Construct one per provider; it is stateless and safe for
// concurrent use.
type Client struct {
	provider     models.Provider
	clientID     string
	clientSecret string
	redirectURI  string
	authURL      string
	tokenURL     string
	scopes       []string
	httpClient   *http.Client
}

// NewWhoopClient creates a token client for the WHOOP OAuth endpoints.
func NewWhoopClient(cfg *config.WhoopConfig) *Client {
	return &Client{
		provider:     models.ProviderWhoop,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		authURL:      cfg.AuthURL,
		tokenURL:     cfg.TokenURL,
		scopes:       cfg.Scopes,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewStravaClient creates a token client for the Strava OAuth endpoints.
func NewStravaClient(cfg *config.StravaConfig) *Client {
	return &Client{
		provider:     models.ProviderStrava,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		authURL:      cfg.AuthURL,
		tokenURL:     cfg.TokenURL,
		scopes:       cfg.Scopes,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Provider returns which provider this client talks to.
func (c *Client) Provider() models.Provider {
	return c.provider
}

// BuildAuthorizationURL constructs the provider authorization URL for the
// sign-in redirect. state must be an unguessable value the callback verifies.
func (c *Client) BuildAuthorizationURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURI)
	params.Set("response_type", "code")
	params.Set("state", state)

	// WHOOP expects space-separated scopes, Strava comma-separated.
	switch c.provider {
	case models.ProviderStrava:
		params.Set("scope", strings.Join(c.scopes, ","))
		params.Set("approval_prompt", "auto")
	default:
		params.Set("scope", strings.Join(c.scopes, " "))
	}

	return c.authURL + "?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*models.TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("redirect_uri", c.redirectURI)

	return c.postToken(ctx, data, "")
}

// Refresh exchanges a refresh token for a fresh token pair. When the
// provider's response omits a refresh token, the input token is carried
// forward (non-rotating providers).
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)

	// WHOOP requires the offline scope to be re-asserted on refresh.
	if c.provider == models.ProviderWhoop {
		data.Set("scope", "offline")
	}

	return c.postToken(ctx, data, refreshToken)
}

// postToken posts a form-encoded token request and decodes the result into a
// TokenPair with the buffered expiry applied.
func (c *Client) postToken(ctx context.Context, data url.Values, previousRefreshToken string) (*models.TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request to %s failed: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		refreshErr := &RefreshError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
		}
		var errBody tokenErrorResponse
		if json.Unmarshal(body, &errBody) == nil {
			refreshErr.Code = errBody.ErrorCode
			refreshErr.Description = errBody.ErrorDescription
			if refreshErr.Code == "" && errBody.Message != "" {
				refreshErr.Code = errBody.Message
			}
		}
		return nil, refreshErr
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%s token response contained no access token", c.provider)
	}

	pair := &models.TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(token.ExpiresIn)*time.Second - expiryBuffer),
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = previousRefreshToken
	}

	return pair, nil
}
