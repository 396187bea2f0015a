// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mbaxter/vitals/internal/models"
)

// stateTTL bounds how long a sign-in redirect may sit before the callback.
const stateTTL = 10 * time.Minute

// stateClaims is the JWT payload of the OAuth state parameter. Signing the
// state keeps the flow stateless on the server while still binding the
// callback to a request this server issued for this provider.
type stateClaims struct {
	Provider string `json:"provider"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

// signState issues a state token for the given provider.
func signState(secret string, provider models.Provider, now time.Time) (string, error) {
	claims := stateClaims{
		Provider: string(provider),
		Nonce:    uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// verifyState checks the signature, expiry, and provider binding of a state
// token returned to the callback.
func verifyState(secret, state string, provider models.Provider) error {
	var claims stateClaims
	token, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("invalid state token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("state token is not valid")
	}
	if claims.Provider != string(provider) {
		return fmt.Errorf("state token was issued for provider %q", claims.Provider)
	}
	return nil
}
