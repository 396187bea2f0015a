// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package sync

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mbaxter/vitals/internal/logging"
	"github.com/mbaxter/vitals/internal/metrics"
	"github.com/mbaxter/vitals/internal/models/whoop"
)

// CircuitBreakerWhoopClient wraps WhoopClient with the circuit breaker
// pattern so a degraded WHOOP API cannot stall every sync run: after repeated
// failures the breaker opens and calls fail fast until the API recovers.
//
// The breaker uses real time for its interval and timeout calculations; unit
// tests exercise the wrapped client directly.
type CircuitBreakerWhoopClient struct {
	client *WhoopClient
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerWhoopClient wraps client. Breaker settings: at most 3
// half-open probes, counts reset every minute while closed, 2-minute cooldown
// once open, trips at a 60% failure rate over at least 10 requests.
func NewCircuitBreakerWhoopClient(client *WhoopClient) *CircuitBreakerWhoopClient {
	cbName := "whoop-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)
			logging.Info().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerWhoopClient{client: client, cb: cb, name: cbName}
}

// execute runs one API call through the breaker.
func (c *CircuitBreakerWhoopClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	return c.cb.Execute(fn)
}

// castResult converts the breaker's untyped result back to the caller's type.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type %T", result)
	}
	return typed, nil
}

// GetProfile proxies WhoopClient.GetProfile through the breaker.
func (c *CircuitBreakerWhoopClient) GetProfile(ctx context.Context, accessToken string) (*whoop.Profile, error) {
	return castResult[*whoop.Profile](c.execute(func() (interface{}, error) {
		return c.client.GetProfile(ctx, accessToken)
	}))
}

// GetRecoveries proxies WhoopClient.GetRecoveries through the breaker.
func (c *CircuitBreakerWhoopClient) GetRecoveries(ctx context.Context, accessToken string, start, end time.Time) ([]whoop.Recovery, error) {
	return castResult[[]whoop.Recovery](c.execute(func() (interface{}, error) {
		return c.client.GetRecoveries(ctx, accessToken, start, end)
	}))
}

// GetSleeps proxies WhoopClient.GetSleeps through the breaker.
func (c *CircuitBreakerWhoopClient) GetSleeps(ctx context.Context, accessToken string, start, end time.Time) ([]whoop.Sleep, error) {
	return castResult[[]whoop.Sleep](c.execute(func() (interface{}, error) {
		return c.client.GetSleeps(ctx, accessToken, start, end)
	}))
}

// GetWorkouts proxies WhoopClient.GetWorkouts through the breaker.
func (c *CircuitBreakerWhoopClient) GetWorkouts(ctx context.Context, accessToken string, start, end time.Time) ([]whoop.Workout, error) {
	return castResult[[]whoop.Workout](c.execute(func() (interface{}, error) {
		return c.client.GetWorkouts(ctx, accessToken, start, end)
	}))
}

// GetCycle proxies WhoopClient.GetCycle through the breaker.
func (c *CircuitBreakerWhoopClient) GetCycle(ctx context.Context, accessToken string, cycleID int64) (*whoop.Cycle, error) {
	return castResult[*whoop.Cycle](c.execute(func() (interface{}, error) {
		return c.client.GetCycle(ctx, accessToken, cycleID)
	}))
}

func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
