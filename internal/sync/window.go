// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package sync

import (
	"time"
)

// Window is the half-open UTC time range [Start, End) one sync run processes.
type Window struct {
	Start time.Time
	End   time.Time
}

// ComputeWindow returns the trailing window of fully-elapsed days: from the
// start of the day `days` days before now, up to the start of the current
// day. The partial current day is never included, so half-finished daily
// aggregates are never stored.
func ComputeWindow(now time.Time, days int) Window {
	if days < 1 {
		days = 1
	}
	utc := now.UTC()
	today := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return Window{
		Start: today.AddDate(0, 0, -days),
		End:   today,
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(w.Start) && u.Before(w.End)
}

// filterInWindow keeps only records whose relevant timestamp falls inside the
// window. Defensive: upstream "since" parameters are allowed to over-return.
func filterInWindow[T any](records []T, w Window, timestamp func(*T) time.Time) []T {
	filtered := records[:0:0]
	for i := range records {
		if w.Contains(timestamp(&records[i])) {
			filtered = append(filtered, records[i])
		}
	}
	return filtered
}
