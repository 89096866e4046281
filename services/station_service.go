package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"cngflow/estimator"
	"cngflow/models"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultRadiusKm = 20.0
	MinSearchLen    = 2

	snapshotTTL     = 15 * time.Second
	freshReadingAge = 30 * time.Minute

	// An alternative must beat the congested station by this many vehicles.
	minQueueSavings = 3
	maxAlternatives = 3
)

var ErrInvalidQuery = errors.New("invalid station query")

type SortOrder string

const (
	SortDistance SortOrder = "distance"
	SortQueue    SortOrder = "queue"
	SortUpdated  SortOrder = "updated"
)

func ParseSortOrder(s string) (SortOrder, bool) {
	switch o := SortOrder(s); o {
	case SortDistance, SortQueue, SortUpdated:
		return o, true
	}
	return "", false
}

// StationView is a station together with its estimate at the time of the
// request.
type StationView struct {
	models.Station
	Estimate   estimator.Result `json:"estimate"`
	Display    Display          `json:"display"`
	DistanceKm *float64         `json:"distance_km,omitempty"`
}

type ListQuery struct {
	Origin   *Point
	RadiusKm float64
	Sort     SortOrder
	Color    Color
	Search   string
}

type Alternative struct {
	StationView
	QueueSavings int    `json:"queue_savings"`
	Reason       string `json:"reason"`
}

type AlternativesResult struct {
	Station      StationView   `json:"station"`
	Congested    bool          `json:"congested"`
	Alternatives []Alternative `json:"alternatives"`
}

type HourStat struct {
	Hour     int     `json:"hour"`
	Average  float64 `json:"average"`
	RushHour bool    `json:"rush_hour"`
}

type Analytics struct {
	StationID    string      `json:"station_id"`
	HasProfile   bool        `json:"has_profile"`
	Hours        []HourStat  `json:"hours"`
	BusiestHour  *int        `json:"busiest_hour"`
	QuietestHour *int        `json:"quietest_hour"`
	LocalHour    int         `json:"local_hour"`
	PeakNow      bool        `json:"peak_now"`
	Current      StationView `json:"current"`
}

type Overview struct {
	Stations       int           `json:"stations"`
	Closed         int           `json:"closed"`
	LowPressure    int           `json:"low_pressure"`
	FreshReadings  int           `json:"fresh_readings"`
	UpdatesLast24h int64         `json:"updates_last_24h"`
	ByColor        map[Color]int `json:"by_color"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

type stationSnapshot struct {
	Stations []models.Station     `json:"stations"`
	Profiles map[string][]float64 `json:"profiles"`
}

// StationService joins repository data with fresh estimates. Only the
// repository snapshot is cached; estimates are recomputed per request.
type StationService struct {
	repo  StationRepository
	cache *CacheService
	loc   *time.Location
	now   func() time.Time

	// gen counts invalidations; a snapshot read under an older gen is not
	// written back to the cache.
	gen atomic.Uint64
}

func NewStationService(repo StationRepository, cache *CacheService, loc *time.Location) *StationService {
	if loc == nil {
		loc = time.UTC
	}
	if cache == nil {
		cache = DisabledCache()
	}
	return &StationService{repo: repo, cache: cache, loc: loc, now: time.Now}
}

// SetClock replaces the time source.
func (s *StationService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *StationService) Location() *time.Location {
	return s.loc
}

func (s *StationService) snapshot(ctx context.Context) (stationSnapshot, error) {
	gen := s.gen.Load()

	var snap stationSnapshot
	err := s.cache.Get(ctx, SnapshotCacheKey, &snap)
	if err == nil && snap.Stations != nil {
		snapshotCacheResults.WithLabelValues("hit").Inc()
		return snap, nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		log.Printf("snapshot cache read failed: %v", err)
	}
	snapshotCacheResults.WithLabelValues("miss").Inc()

	stations, err := s.repo.ListStations(ctx)
	if err != nil {
		return stationSnapshot{}, err
	}
	profiles, err := s.repo.HourlyProfiles(ctx)
	if err != nil {
		return stationSnapshot{}, err
	}
	if stations == nil {
		stations = []models.Station{}
	}
	snap = stationSnapshot{Stations: stations, Profiles: profiles}
	s.storeSnapshot(ctx, gen, snap)
	return snap, nil
}

// storeSnapshot caches snap unless the cache was invalidated after gen was
// read, in which case snap may predate the write that invalidated it.
func (s *StationService) storeSnapshot(ctx context.Context, gen uint64, snap stationSnapshot) bool {
	if s.gen.Load() != gen {
		snapshotCacheResults.WithLabelValues("stale").Inc()
		return false
	}
	if err := s.cache.Set(ctx, SnapshotCacheKey, snap, snapshotTTL); err != nil {
		log.Printf("snapshot cache write failed: %v", err)
		return false
	}
	return true
}

// Invalidate drops the cached snapshot so the next read goes to the
// repository.
func (s *StationService) Invalidate(ctx context.Context) {
	s.gen.Add(1)
	if err := s.cache.Delete(ctx, SnapshotCacheKey); err != nil {
		log.Printf("snapshot cache delete failed: %v", err)
	}
}

func (s *StationService) view(st models.Station, profile []float64, now time.Time) (StationView, error) {
	res, err := estimator.Estimate(estimator.Reading{
		LastQueueLength: st.LastQueueLength,
		LastUpdatedAt:   st.LastUpdatedAt,
		HourlyAverage:   profile,
	}, now.In(s.loc))
	if err != nil {
		estimateErrors.Inc()
		return StationView{}, fmt.Errorf("estimate station %s: %w", st.ID, err)
	}
	estimatesComputed.WithLabelValues(string(res.Status)).Inc()

	return StationView{
		Station:  st,
		Estimate: res,
		Display:  Present(st, res, now),
	}, nil
}

func (s *StationService) views(snap stationSnapshot, now time.Time) ([]StationView, error) {
	out := make([]StationView, 0, len(snap.Stations))
	for _, st := range snap.Stations {
		v, err := s.view(st, snap.Profiles[st.ID], now)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Get returns the view of a single station.
func (s *StationService) Get(ctx context.Context, id string) (StationView, error) {
	st, err := s.repo.GetStation(ctx, id)
	if err != nil {
		return StationView{}, err
	}
	profile, err := s.repo.HourlyProfile(ctx, id)
	if err != nil {
		return StationView{}, err
	}
	return s.view(st, profile, s.now())
}

func (s *StationService) List(ctx context.Context, q ListQuery) ([]StationView, error) {
	if q.Origin != nil && !q.Origin.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidQuery)
	}
	if q.RadiusKm < 0 {
		return nil, fmt.Errorf("%w: negative radius", ErrInvalidQuery)
	}
	if q.RadiusKm == 0 {
		q.RadiusKm = DefaultRadiusKm
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.views(snap, s.now())
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	if len([]rune(search)) < MinSearchLen {
		search = ""
	}

	out := make([]StationView, 0, len(all))
	for _, v := range all {
		if q.Origin != nil {
			d := roundKm(DistanceKm(*q.Origin, Point{Lat: v.Lat, Lng: v.Lng}))
			if d > q.RadiusKm {
				continue
			}
			v.DistanceKm = &d
		}
		if q.Color != "" && v.Display.Color != q.Color {
			continue
		}
		if search != "" && !matches(v.Station, search) {
			continue
		}
		out = append(out, v)
	}

	sortViews(out, q.Sort)
	return out, nil
}

func matches(st models.Station, needle string) bool {
	for _, field := range []string{st.Name, st.Address, st.Brand} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func sortViews(views []StationView, order SortOrder) {
	switch order {
	case SortDistance:
		sort.SliceStable(views, func(i, j int) bool {
			a, b := views[i].DistanceKm, views[j].DistanceKm
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return *a < *b
		})
	case SortQueue:
		sort.SliceStable(views, func(i, j int) bool {
			ua, ub := views[i].Display.Color == ColorGray, views[j].Display.Color == ColorGray
			if ua != ub {
				return ub
			}
			return views[i].Estimate.PredictedQueueLength < views[j].Estimate.PredictedQueueLength
		})
	case SortUpdated:
		sort.SliceStable(views, func(i, j int) bool {
			a, b := views[i].LastUpdatedAt, views[j].LastUpdatedAt
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return a.After(*b)
		})
	}
}

// Alternatives suggests nearby stations with a meaningfully shorter queue
// when the given station is congested.
func (s *StationService) Alternatives(ctx context.Context, id string, radiusKm float64) (AlternativesResult, error) {
	if radiusKm < 0 {
		return AlternativesResult{}, fmt.Errorf("%w: negative radius", ErrInvalidQuery)
	}
	if radiusKm == 0 {
		radiusKm = DefaultRadiusKm
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return AlternativesResult{}, err
	}
	now := s.now()
	all, err := s.views(snap, now)
	if err != nil {
		return AlternativesResult{}, err
	}

	var target *StationView
	for i := range all {
		if all[i].ID == id {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return AlternativesResult{}, ErrStationNotFound
	}

	result := AlternativesResult{
		Station:      *target,
		Congested:    target.Estimate.Status == estimator.High || target.IsClosed,
		Alternatives: []Alternative{},
	}
	if !result.Congested {
		return result, nil
	}

	origin := Point{Lat: target.Lat, Lng: target.Lng}
	for _, v := range all {
		if v.ID == target.ID || v.IsClosed || v.Display.Color == ColorGray {
			continue
		}
		d := roundKm(DistanceKm(origin, Point{Lat: v.Lat, Lng: v.Lng}))
		if d > radiusKm {
			continue
		}
		savings := target.Estimate.PredictedQueueLength - v.Estimate.PredictedQueueLength
		if !target.IsClosed && savings < minQueueSavings {
			continue
		}
		v.DistanceKm = &d
		result.Alternatives = append(result.Alternatives, Alternative{
			StationView:  v,
			QueueSavings: savings,
			Reason: fmt.Sprintf("queue %d at %s, %d at %s (%.1f km)",
				target.Estimate.PredictedQueueLength, target.Name,
				v.Estimate.PredictedQueueLength, v.Name, d),
		})
	}

	sort.SliceStable(result.Alternatives, func(i, j int) bool {
		a, b := result.Alternatives[i], result.Alternatives[j]
		if a.Estimate.PredictedQueueLength != b.Estimate.PredictedQueueLength {
			return a.Estimate.PredictedQueueLength < b.Estimate.PredictedQueueLength
		}
		return *a.DistanceKm < *b.DistanceKm
	})
	if len(result.Alternatives) > maxAlternatives {
		result.Alternatives = result.Alternatives[:maxAlternatives]
	}
	return result, nil
}

func (s *StationService) Analytics(ctx context.Context, id string) (Analytics, error) {
	st, err := s.repo.GetStation(ctx, id)
	if err != nil {
		return Analytics{}, err
	}
	profile, err := s.repo.HourlyProfile(ctx, id)
	if err != nil {
		return Analytics{}, err
	}
	now := s.now()
	current, err := s.view(st, profile, now)
	if err != nil {
		return Analytics{}, err
	}

	local := now.In(s.loc)
	a := Analytics{
		StationID:  id,
		HasProfile: profile != nil,
		Hours:      make([]HourStat, 0, estimator.HoursPerDay),
		LocalHour:  local.Hour(),
		PeakNow:    estimator.IsPeak(local),
		Current:    current,
	}
	for h := 0; h < estimator.HoursPerDay; h++ {
		hs := HourStat{Hour: h, RushHour: estimator.IsRushHour(h)}
		if profile != nil {
			hs.Average = profile[h]
		}
		a.Hours = append(a.Hours, hs)
	}
	if profile != nil {
		busiest, quietest := floats.MaxIdx(profile), floats.MinIdx(profile)
		a.BusiestHour = &busiest
		a.QuietestHour = &quietest
	}
	return a, nil
}

func (s *StationService) Overview(ctx context.Context) (Overview, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return Overview{}, err
	}
	now := s.now()
	all, err := s.views(snap, now)
	if err != nil {
		return Overview{}, err
	}
	since := now.Add(-24 * time.Hour)
	n, err := s.repo.CountUpdatesSince(ctx, since)
	if err != nil {
		return Overview{}, err
	}

	o := Overview{
		Stations:       len(all),
		UpdatesLast24h: n,
		ByColor: map[Color]int{
			ColorGreen: 0, ColorYellow: 0, ColorRed: 0, ColorGray: 0,
		},
		GeneratedAt: now.UTC(),
	}
	for _, v := range all {
		o.ByColor[v.Display.Color]++
		if v.IsClosed {
			o.Closed++
		}
		if v.LowPressure {
			o.LowPressure++
		}
		if v.LastUpdatedAt != nil && now.Sub(*v.LastUpdatedAt) <= freshReadingAge {
			o.FreshReadings++
		}
	}
	return o, nil
}

// Busiest returns up to limit stations with the longest predicted queue.
// Stations with nothing to estimate from are left out.
func (s *StationService) Busiest(ctx context.Context, limit int) ([]StationView, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.views(snap, s.now())
	if err != nil {
		return nil, err
	}

	out := make([]StationView, 0, len(all))
	for _, v := range all {
		if v.Display.Color != ColorGray {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Estimate.PredictedQueueLength > out[j].Estimate.PredictedQueueLength
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
