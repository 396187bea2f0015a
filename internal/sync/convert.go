// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package sync

import (
	"github.com/mbaxter/vitals/internal/models"
	"github.com/mbaxter/vitals/internal/models/strava"
	"github.com/mbaxter/vitals/internal/models/whoop"
)

// The converters translate validated provider payloads into storage records.
// userID is the internal user id, not the provider's — provider ids live only
// in the external-id columns.

func cycleFromWhoop(c *whoop.Cycle, userID int64) models.Cycle {
	out := models.Cycle{
		ID:             c.ID,
		UserID:         userID,
		Start:          c.Start,
		End:            c.End,
		TimezoneOffset: c.TimezoneOffset,
		ScoreState:     c.ScoreState,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Score != nil {
		strain := c.Score.Strain
		kj := c.Score.Kilojoule
		avg := c.Score.AverageHeartRate
		maxHR := c.Score.MaxHeartRate
		out.Strain = &strain
		out.Kilojoule = &kj
		out.AvgHeartRate = &avg
		out.MaxHeartRate = &maxHR
	}
	return out
}

func sleepFromWhoop(s *whoop.Sleep, userID int64) models.Sleep {
	out := models.Sleep{
		ID:             s.ID,
		UserID:         userID,
		Start:          s.Start,
		End:            s.End,
		TimezoneOffset: s.TimezoneOffset,
		Nap:            s.Nap,
		ScoreState:     s.ScoreState,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.Score != nil {
		out.PerformancePct = s.Score.SleepPerformancePercentage
		out.EfficiencyPct = s.Score.SleepEfficiencyPercentage
		out.ConsistencyPct = s.Score.SleepConsistencyPercentage
		out.RespiratoryRate = s.Score.RespiratoryRate

		st := s.Score.StageSummary
		inBed, awake := st.TotalInBedTimeMilli, st.TotalAwakeTimeMilli
		light, sws, rem := st.TotalLightSleepTimeMilli, st.TotalSlowWaveSleepTimeMilli, st.TotalRemSleepTimeMilli
		cycles, disturbances := st.SleepCycleCount, st.DisturbanceCount
		out.TimeInBedMilli = &inBed
		out.AwakeTimeMilli = &awake
		out.LightSleepMilli = &light
		out.SlowWaveSleepMilli = &sws
		out.RemSleepMilli = &rem
		out.SleepCycleCount = &cycles
		out.DisturbanceCount = &disturbances
	}
	return out
}

func recoveryFromWhoop(r *whoop.Recovery, userID int64) models.Recovery {
	out := models.Recovery{
		CycleID:    r.CycleID,
		SleepID:    r.SleepID,
		UserID:     userID,
		ScoreState: r.ScoreState,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Score != nil {
		calibrating := r.Score.UserCalibrating
		score := r.Score.RecoveryScore
		rhr := r.Score.RestingHeartRate
		hrv := r.Score.HRVRmssdMilli
		out.UserCalibrating = &calibrating
		out.RecoveryScore = &score
		out.RestingHeartRate = &rhr
		out.HRVRmssdMilli = &hrv
		out.SpO2Percentage = r.Score.SpO2Percentage
		out.SkinTempCelsius = r.Score.SkinTempCelsius
	}
	return out
}

func workoutFromWhoop(w *whoop.Workout, userID int64) models.Workout {
	out := models.Workout{
		ID:             w.ID,
		UserID:         userID,
		Start:          w.Start,
		End:            w.End,
		TimezoneOffset: w.TimezoneOffset,
		SportID:        w.SportID,
		ScoreState:     w.ScoreState,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
	if w.Score != nil {
		strain := w.Score.Strain
		avg := w.Score.AverageHeartRate
		maxHR := w.Score.MaxHeartRate
		kj := w.Score.Kilojoule
		out.Strain = &strain
		out.AvgHeartRate = &avg
		out.MaxHeartRate = &maxHR
		out.Kilojoule = &kj
		out.DistanceMeter = w.Score.DistanceMeter
		out.AltitudeGainMeter = w.Score.AltitudeGainMeter
	}
	return out
}

func activityFromStrava(a *strava.SummaryActivity, userID int64) models.Activity {
	sportType := a.SportType
	if sportType == "" {
		sportType = a.Type
	}
	return models.Activity{
		ID:                 a.ID,
		UserID:             userID,
		Name:               a.Name,
		SportType:          sportType,
		StartDate:          a.StartDate,
		Timezone:           a.Timezone,
		ElapsedTimeSec:     a.ElapsedTime,
		MovingTimeSec:      a.MovingTime,
		DistanceMeters:     a.Distance,
		TotalElevationGain: a.TotalElevationGain,
		AverageSpeed:       a.AverageSpeed,
		MaxSpeed:           a.MaxSpeed,
		AverageHeartrate:   a.AverageHeartrate,
		MaxHeartrate:       a.MaxHeartrate,
		AverageWatts:       a.AverageWatts,
		Kilojoules:         a.Kilojoules,
	}
}
