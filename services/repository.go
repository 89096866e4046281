package services

import (
	"context"
	"errors"
	"time"

	"cngflow/models"
)

var ErrStationNotFound = errors.New("station not found")

// HistoryCursor marks the last report of a history page. Reports sharing a
// timestamp are ordered by id, so ReportedAt alone is not enough to resume.
// An empty ID resumes strictly before ReportedAt.
type HistoryCursor struct {
	ReportedAt time.Time
	ID         string
}

// precedes reports whether u sorts after the cursor in newest-first order.
func (c HistoryCursor) precedes(u models.QueueUpdate) bool {
	if u.ReportedAt.Before(c.ReportedAt) {
		return true
	}
	return c.ID != "" && u.ReportedAt.Equal(c.ReportedAt) && u.ID < c.ID
}

// newerOrEqual reports whether a report taken at t may replace the reading
// currently held by st.
func newerOrEqual(st models.Station, t time.Time) bool {
	return st.LastUpdatedAt == nil || !t.Before(*st.LastUpdatedAt)
}

// StationRepository is the storage boundary for stations, their queue
// reports and their hour-of-day profiles. Returned values are snapshots:
// mutating them never changes what the repository holds.
type StationRepository interface {
	ListStations(ctx context.Context) ([]models.Station, error)
	GetStation(ctx context.Context, id string) (models.Station, error)

	// HourlyProfiles returns complete 24-entry profiles keyed by station id.
	// Stations without a complete profile are absent from the map.
	HourlyProfiles(ctx context.Context) (map[string][]float64, error)
	HourlyProfile(ctx context.Context, stationID string) ([]float64, error)

	// RecordUpdate stores u. It becomes the station's latest reading unless
	// the station already holds a newer one.
	RecordUpdate(ctx context.Context, u models.QueueUpdate) (models.Station, error)
	// ListUpdates returns reports newest first, ties broken by id descending.
	ListUpdates(ctx context.Context, stationID string, limit int, before *HistoryCursor) ([]models.QueueUpdate, error)
	CountUpdatesSince(ctx context.Context, since time.Time) (int64, error)
}

func assembleProfiles(rows []models.HourlyProfile) map[string][]float64 {
	byStation := make(map[string][]float64)
	seen := make(map[string]int)
	for _, r := range rows {
		if r.Hour < 0 || r.Hour >= 24 {
			continue
		}
		p, ok := byStation[r.StationID]
		if !ok {
			p = make([]float64, 24)
			byStation[r.StationID] = p
		}
		p[r.Hour] = r.AvgQueue
		seen[r.StationID]++
	}
	for id, n := range seen {
		if n != 24 {
			delete(byStation, id)
		}
	}
	return byStation
}
