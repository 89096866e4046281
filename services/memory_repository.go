package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"cngflow/models"
)

// MemoryStationRepository keeps everything in process. It backs
// STATION_STORE=memory and the handler tests.
type MemoryStationRepository struct {
	mu       sync.RWMutex
	stations map[string]models.Station
	profiles map[string][]float64
	updates  map[string][]models.QueueUpdate
}

func NewMemoryStationRepository(stations []models.Station, profiles map[string][]float64) *MemoryStationRepository {
	r := &MemoryStationRepository{
		stations: make(map[string]models.Station, len(stations)),
		profiles: make(map[string][]float64, len(profiles)),
		updates:  make(map[string][]models.QueueUpdate),
	}
	for _, st := range stations {
		r.stations[st.ID] = st.Clone()
	}
	for id, p := range profiles {
		if len(p) != 24 {
			continue
		}
		r.profiles[id] = append([]float64(nil), p...)
	}
	return r
}

// NewSampleMemoryRepository returns a repository holding the demo dataset.
func NewSampleMemoryRepository(now time.Time) *MemoryStationRepository {
	stations, profiles := SampleStations(now)
	return NewMemoryStationRepository(stations, profiles)
}

func (r *MemoryStationRepository) ListStations(ctx context.Context) ([]models.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Station, 0, len(r.stations))
	for _, st := range r.stations {
		out = append(out, st.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryStationRepository) GetStation(ctx context.Context, id string) (models.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.stations[id]
	if !ok {
		return models.Station{}, ErrStationNotFound
	}
	return st.Clone(), nil
}

func (r *MemoryStationRepository) HourlyProfiles(ctx context.Context) (map[string][]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]float64, len(r.profiles))
	for id, p := range r.profiles {
		out[id] = append([]float64(nil), p...)
	}
	return out, nil
}

func (r *MemoryStationRepository) HourlyProfile(ctx context.Context, stationID string) ([]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[stationID]
	if !ok {
		return nil, nil
	}
	return append([]float64(nil), p...), nil
}

// SetProfile replaces a station's hourly profile. Profiles that are not 24
// entries long are dropped.
func (r *MemoryStationRepository) SetProfile(stationID string, profile []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(profile) != 24 {
		delete(r.profiles, stationID)
		return
	}
	r.profiles[stationID] = append([]float64(nil), profile...)
}

func (r *MemoryStationRepository) RecordUpdate(ctx context.Context, u models.QueueUpdate) (models.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stations[u.StationID]
	if !ok {
		return models.Station{}, ErrStationNotFound
	}

	if newerOrEqual(st, u.ReportedAt) {
		q := u.QueueLength
		reported := u.ReportedAt
		st.LastQueueLength = &q
		st.LastUpdatedAt = &reported
		st.IsClosed = u.IsClosed
		st.LowPressure = u.LowPressure
		st.UpdatedAt = reported
		r.stations[st.ID] = st
	}

	r.updates[st.ID] = append(r.updates[st.ID], u)
	return st.Clone(), nil
}

func (r *MemoryStationRepository) ListUpdates(ctx context.Context, stationID string, limit int, before *HistoryCursor) ([]models.QueueUpdate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.updates[stationID]
	out := make([]models.QueueUpdate, 0, len(all))
	for _, u := range all {
		if before != nil && !before.precedes(u) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReportedAt.Equal(out[j].ReportedAt) {
			return out[i].ReportedAt.After(out[j].ReportedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryStationRepository) CountUpdatesSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, list := range r.updates {
		for _, u := range list {
			if !u.ReportedAt.Before(since) {
				n++
			}
		}
	}
	return n, nil
}
