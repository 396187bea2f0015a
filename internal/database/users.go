// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mbaxter/vitals/internal/models"
)

// ErrUserNotFound is returned when a lookup matches no user row.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, first_name, last_name,
	whoop_user_id, strava_athlete_id,
	whoop_access_token, whoop_refresh_token, whoop_expires_at,
	strava_access_token, strava_refresh_token, strava_expires_at,
	created_at, updated_at`

// scanUser reads one user row into a models.User.
func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var email, firstName, lastName sql.NullString
	var whoopID, stravaID sql.NullInt64
	var wAccess, wRefresh, sAccess, sRefresh sql.NullString
	var wExpires, sExpires sql.NullTime

	err := row.Scan(&u.ID, &email, &firstName, &lastName,
		&whoopID, &stravaID,
		&wAccess, &wRefresh, &wExpires,
		&sAccess, &sRefresh, &sExpires,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.Email = email.String
	u.FirstName = firstName.String
	u.LastName = lastName.String
	if whoopID.Valid {
		u.WhoopUserID = &whoopID.Int64
	}
	if stravaID.Valid {
		u.StravaAthleteID = &stravaID.Int64
	}
	if wAccess.Valid {
		u.WhoopAccessToken = &wAccess.String
	}
	if wRefresh.Valid {
		u.WhoopRefreshToken = &wRefresh.String
	}
	if wExpires.Valid {
		t := wExpires.Time.UTC()
		u.WhoopExpiresAt = &t
	}
	if sAccess.Valid {
		u.StravaAccessToken = &sAccess.String
	}
	if sRefresh.Valid {
		u.StravaRefreshToken = &sRefresh.String
	}
	if sExpires.Valid {
		t := sExpires.Time.UTC()
		u.StravaExpiresAt = &t
	}

	return &u, nil
}

// ListUsers returns all users ordered by id.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM users ORDER BY id", userColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}

// GetUser returns the user with the given internal id.
func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM users WHERE id = ?", userColumns), id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

// UpsertWhoopUser creates or updates the user row holding the given WHOOP
// identity and returns the stored user. Identity fields are refreshed on
// every sync run; token columns are untouched.
func (db *DB) UpsertWhoopUser(ctx context.Context, whoopUserID int64, email, firstName, lastName string) (*models.User, error) {
	var existingID int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT id FROM users WHERE whoop_user_id = ?", whoopUserID).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		row := db.conn.QueryRowContext(ctx,
			`INSERT INTO users (email, first_name, last_name, whoop_user_id)
			 VALUES (?, ?, ?, ?) RETURNING id`,
			email, firstName, lastName, whoopUserID)
		if err := row.Scan(&existingID); err != nil {
			return nil, fmt.Errorf("failed to insert whoop user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up whoop user: %w", err)
	default:
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, first_name = ?, last_name = ?, updated_at = current_timestamp
			 WHERE id = ?`,
			email, firstName, lastName, existingID)
		if err != nil {
			return nil, fmt.Errorf("failed to update whoop user: %w", err)
		}
	}

	return db.GetUser(ctx, existingID)
}

// UpsertStravaAthlete creates or updates the user row holding the given
// Strava identity and returns the stored user.
func (db *DB) UpsertStravaAthlete(ctx context.Context, athleteID int64, firstName, lastName string) (*models.User, error) {
	var existingID int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT id FROM users WHERE strava_athlete_id = ?", athleteID).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		row := db.conn.QueryRowContext(ctx,
			`INSERT INTO users (first_name, last_name, strava_athlete_id)
			 VALUES (?, ?, ?) RETURNING id`,
			firstName, lastName, athleteID)
		if err := row.Scan(&existingID); err != nil {
			return nil, fmt.Errorf("failed to insert strava athlete: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up strava athlete: %w", err)
	default:
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET first_name = ?, last_name = ?, updated_at = current_timestamp
			 WHERE id = ?`,
			firstName, lastName, existingID)
		if err != nil {
			return nil, fmt.Errorf("failed to update strava athlete: %w", err)
		}
	}

	return db.GetUser(ctx, existingID)
}

// UpdateTokens overwrites the stored token pair for one user and provider in
// a single atomic row update. Concurrent refreshes for the same user are
// last-write-wins; the row is never left partially updated.
func (db *DB) UpdateTokens(ctx context.Context, userID int64, provider models.Provider, pair *models.TokenPair) error {
	if pair == nil {
		return fmt.Errorf("token pair is nil")
	}

	var query string
	switch provider {
	case models.ProviderWhoop:
		query = `UPDATE users
			SET whoop_access_token = ?, whoop_refresh_token = ?, whoop_expires_at = ?, updated_at = current_timestamp
			WHERE id = ?`
	case models.ProviderStrava:
		query = `UPDATE users
			SET strava_access_token = ?, strava_refresh_token = ?, strava_expires_at = ?, updated_at = current_timestamp
			WHERE id = ?`
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}

	result, err := db.conn.ExecContext(ctx, query,
		pair.AccessToken, pair.RefreshToken, pair.ExpiresAt.UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update %s tokens for user %d: %w", provider, userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}
