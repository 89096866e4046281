package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"cngflow/models"

	"github.com/google/uuid"
)

const (
	MaxQueueLength  = 200
	MaxNotesLength  = 280
	PointsPerUpdate = 10

	EventQueueUpdated = "queue_updated"

	maxClockSkew = 5 * time.Minute
	maxReportAge = 24 * time.Hour
)

var ErrInvalidUpdate = errors.New("invalid queue update")

// UpdateRequest is a queue report as received from the app or a sensor.
type UpdateRequest struct {
	StationID   string     `json:"station_id"`
	QueueLength *int       `json:"queue_length"`
	Notes       string     `json:"notes"`
	IsClosed    bool       `json:"is_closed"`
	LowPressure bool       `json:"low_pressure"`
	ReportedAt  *time.Time `json:"ts,omitempty"`
}

// QueueEvent is what gets published on QueueUpdatesChannel. It only tells
// listeners which station changed.
type QueueEvent struct {
	Type        string    `json:"type"`
	StationID   string    `json:"station_id"`
	QueueLength int       `json:"queue_length"`
	IsClosed    bool      `json:"is_closed"`
	LowPressure bool      `json:"low_pressure"`
	Source      string    `json:"source"`
	ReportedAt  time.Time `json:"reported_at"`
}

type QueueService struct {
	repo     StationRepository
	cache    *CacheService
	stations *StationService
	now      func() time.Time
}

func NewQueueService(repo StationRepository, cache *CacheService, stations *StationService) *QueueService {
	if cache == nil {
		cache = DisabledCache()
	}
	return &QueueService{repo: repo, cache: cache, stations: stations, now: time.Now}
}

func (s *QueueService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *QueueService) validate(req UpdateRequest, now time.Time) error {
	if strings.TrimSpace(req.StationID) == "" {
		return fmt.Errorf("%w: station_id is required", ErrInvalidUpdate)
	}
	if req.QueueLength == nil {
		return fmt.Errorf("%w: queue_length is required", ErrInvalidUpdate)
	}
	if q := *req.QueueLength; q < 0 || q > MaxQueueLength {
		return fmt.Errorf("%w: queue_length %d outside 0..%d", ErrInvalidUpdate, q, MaxQueueLength)
	}
	if utf8.RuneCountInString(req.Notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes longer than %d characters", ErrInvalidUpdate, MaxNotesLength)
	}
	if req.ReportedAt != nil {
		if req.ReportedAt.After(now.Add(maxClockSkew)) {
			return fmt.Errorf("%w: ts is in the future", ErrInvalidUpdate)
		}
		if req.ReportedAt.Before(now.Add(-maxReportAge)) {
			return fmt.Errorf("%w: ts older than %s", ErrInvalidUpdate, maxReportAge)
		}
	}
	return nil
}

// Submit stores a queue report and makes it the station's latest reading.
// The returned station carries the new reading; callers estimate from it.
func (s *QueueService) Submit(ctx context.Context, req UpdateRequest, source string) (models.QueueUpdate, models.Station, error) {
	now := s.now()
	if err := s.validate(req, now); err != nil {
		updatesRejected.WithLabelValues("invalid").Inc()
		return models.QueueUpdate{}, models.Station{}, err
	}

	reported := now.UTC()
	if req.ReportedAt != nil && req.ReportedAt.Before(now) {
		reported = req.ReportedAt.UTC()
	}
	u := models.QueueUpdate{
		ID:          uuid.NewString(),
		StationID:   strings.TrimSpace(req.StationID),
		QueueLength: *req.QueueLength,
		Notes:       strings.TrimSpace(req.Notes),
		IsClosed:    req.IsClosed,
		LowPressure: req.LowPressure,
		Source:      source,
		ReportedAt:  reported,
	}

	st, err := s.repo.RecordUpdate(ctx, u)
	if errors.Is(err, ErrStationNotFound) {
		updatesRejected.WithLabelValues("unknown_station").Inc()
		return models.QueueUpdate{}, models.Station{}, err
	}
	if err != nil {
		updatesRejected.WithLabelValues("storage").Inc()
		return models.QueueUpdate{}, models.Station{}, err
	}
	updatesAccepted.WithLabelValues(source).Inc()
	s.invalidate(ctx)

	if s.cache.Available() {
		evt := QueueEvent{
			Type:        EventQueueUpdated,
			StationID:   u.StationID,
			QueueLength: u.QueueLength,
			IsClosed:    u.IsClosed,
			LowPressure: u.LowPressure,
			Source:      u.Source,
			ReportedAt:  u.ReportedAt,
		}
		if err := s.cache.Publish(ctx, QueueUpdatesChannel, evt); err != nil {
			log.Printf("redis publish failed for station=%s: %v", u.StationID, err)
		} else {
			updatesPublished.Inc()
		}
	}

	// A reader that loaded the repository before RecordUpdate may have
	// cached its snapshot after the first delete.
	s.invalidate(ctx)
	return u, st, nil
}

func (s *QueueService) invalidate(ctx context.Context) {
	if s.stations != nil {
		s.stations.Invalidate(ctx)
		return
	}
	if err := s.cache.Delete(ctx, SnapshotCacheKey); err != nil {
		log.Printf("snapshot cache delete failed: %v", err)
	}
}

// History returns a station's reports, newest first.
func (s *QueueService) History(ctx context.Context, stationID string, limit int, before *HistoryCursor) ([]models.QueueUpdate, error) {
	if _, err := s.repo.GetStation(ctx, stationID); err != nil {
		return nil, err
	}
	return s.repo.ListUpdates(ctx, stationID, limit, before)
}
