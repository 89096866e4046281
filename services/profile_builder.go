package services

import (
	"sort"
	"time"

	"cngflow/estimator"
	"cngflow/models"

	"gonum.org/v1/gonum/stat"
)

// QueueSample is one stored report as seen by the profile builder.
type QueueSample struct {
	StationID   string
	QueueLength int
	ReportedAt  time.Time
}

// BuildProfiles turns raw reports into 24 hourly averages per station,
// bucketing by the hour of day in loc. Stations with fewer than minSamples
// reports are skipped. Hours without any report take the station's overall
// mean. Rows come back ordered by station and hour.
func BuildProfiles(samples []QueueSample, loc *time.Location, minSamples int, now time.Time) []models.HourlyProfile {
	if loc == nil {
		loc = time.UTC
	}

	type buckets struct {
		all    []float64
		byHour [estimator.HoursPerDay][]float64
	}
	byStation := make(map[string]*buckets)
	for _, s := range samples {
		if s.QueueLength < 0 {
			continue
		}
		b, ok := byStation[s.StationID]
		if !ok {
			b = &buckets{}
			byStation[s.StationID] = b
		}
		v := float64(s.QueueLength)
		h := s.ReportedAt.In(loc).Hour()
		b.all = append(b.all, v)
		b.byHour[h] = append(b.byHour[h], v)
	}

	ids := make([]string, 0, len(byStation))
	for id, b := range byStation {
		if len(b.all) < minSamples || len(b.all) == 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]models.HourlyProfile, 0, len(ids)*estimator.HoursPerDay)
	for _, id := range ids {
		b := byStation[id]
		overall := stat.Mean(b.all, nil)
		for h := 0; h < estimator.HoursPerDay; h++ {
			avg := overall
			if len(b.byHour[h]) > 0 {
				avg = stat.Mean(b.byHour[h], nil)
			}
			rows = append(rows, models.HourlyProfile{
				StationID:   id,
				Hour:        h,
				AvgQueue:    avg,
				SampleCount: len(b.byHour[h]),
				UpdatedAt:   now,
			})
		}
	}
	return rows
}
