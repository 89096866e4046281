// Package estimator predicts the current queue at a station from its last
// reported queue length and its hour-of-day history.
package estimator

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	HoursPerDay = 24

	staleAfterMin = 30.0
	peakAfterMin  = 20.0

	maxHistoryWeight = 0.5
	peakMultiplier   = 1.3

	staleConfidence          = 60
	minBlendConfidence       = 50.0
	staleNoProfileConfidence = 40
)

var ErrInvalidInput = errors.New("invalid estimator input")

type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Reading is a read-only snapshot of what the repository knows about a
// station. Nil fields are absent, which is different from zero.
type Reading struct {
	LastQueueLength *int
	LastUpdatedAt   *time.Time
	HourlyAverage   []float64
}

type Result struct {
	PredictedQueueLength int   `json:"predicted_queue_length"`
	Status               Level `json:"status"`
	Confidence           int   `json:"confidence"`
	TrafficDensity       Level `json:"traffic_density"`
	Extrapolated         bool  `json:"is_extrapolated"`
}

// Estimate computes the queue judgement for r at instant now. The hour of day
// and weekday are taken from now's location, so callers pass now already
// converted to the station's local time.
func Estimate(r Reading, now time.Time) (Result, error) {
	if r.LastQueueLength != nil && *r.LastQueueLength < 0 {
		return Result{}, fmt.Errorf("%w: negative queue length %d", ErrInvalidInput, *r.LastQueueLength)
	}
	if r.HourlyAverage != nil {
		if err := ValidateProfile(r.HourlyAverage); err != nil {
			return Result{}, err
		}
	}

	hour := now.Hour()
	age := AgeMinutes(r.LastUpdatedAt, now)

	predicted := 0
	if r.LastQueueLength != nil {
		predicted = *r.LastQueueLength
	}
	confidence := 100
	extrapolated := false

	if r.HourlyAverage != nil {
		avg, err := ProfileAt(r.HourlyAverage, hour)
		if err != nil {
			return Result{}, err
		}
		if age > staleAfterMin {
			predicted = int(math.Round(avg))
			confidence = staleConfidence
			extrapolated = true
		} else {
			w := math.Min(age/60, maxHistoryWeight)
			predicted = int(math.Round(float64(predicted)*(1-w) + avg*w))
			confidence = int(math.Round(math.Max(minBlendConfidence, 100-age)))
		}
	} else if r.LastQueueLength != nil && age > staleAfterMin {
		confidence = staleNoProfileConfidence
	}

	if IsPeak(now) && age > peakAfterMin {
		predicted = int(math.Round(float64(predicted) * peakMultiplier))
	}

	densityBase := predicted
	if r.LastQueueLength != nil {
		densityBase = *r.LastQueueLength
	}

	return Result{
		PredictedQueueLength: predicted,
		Status:               StatusFor(predicted),
		Confidence:           confidence,
		TrafficDensity:       DensityFor(densityBase),
		Extrapolated:         extrapolated,
	}, nil
}

// StatusFor buckets a queue length for display: up to 5 is low, 6-15 medium.
func StatusFor(q int) Level {
	switch {
	case q <= 5:
		return Low
	case q <= 15:
		return Medium
	default:
		return High
	}
}

// DensityFor buckets a queue length into a traffic density.
func DensityFor(q int) Level {
	switch {
	case q >= 20:
		return High
	case q >= 10:
		return Medium
	default:
		return Low
	}
}

// IsPeak reports whether t falls in a weekday rush window (08-10 or 17-20,
// both inclusive by hour).
func IsPeak(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return IsRushHour(t.Hour())
}

// IsRushHour reports whether hour of day h is inside a rush window,
// regardless of weekday.
func IsRushHour(h int) bool {
	return (h >= 8 && h <= 10) || (h >= 17 && h <= 20)
}

// AgeMinutes returns how long ago updated was, in minutes. A missing
// timestamp is infinitely old; a timestamp ahead of now counts as fresh.
func AgeMinutes(updated *time.Time, now time.Time) float64 {
	if updated == nil {
		return math.Inf(1)
	}
	age := now.Sub(*updated).Minutes()
	if age < 0 {
		return 0
	}
	return age
}

func ValidateProfile(profile []float64) error {
	if len(profile) != HoursPerDay {
		return fmt.Errorf("%w: hourly profile has %d entries, want %d", ErrInvalidInput, len(profile), HoursPerDay)
	}
	for i, v := range profile {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: hourly profile[%d] = %v", ErrInvalidInput, i, v)
		}
	}
	return nil
}

// ProfileAt returns the average for hour, which must be in [0,23].
func ProfileAt(profile []float64, hour int) (float64, error) {
	if hour < 0 || hour >= HoursPerDay {
		return 0, fmt.Errorf("%w: hour index %d out of range", ErrInvalidInput, hour)
	}
	if hour >= len(profile) {
		return 0, fmt.Errorf("%w: hourly profile has %d entries, want %d", ErrInvalidInput, len(profile), HoursPerDay)
	}
	return profile[hour], nil
}
