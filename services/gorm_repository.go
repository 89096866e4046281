package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cngflow/models"

	"gorm.io/gorm"
)

type GormStationRepository struct {
	db *gorm.DB
}

func NewGormStationRepository(db *gorm.DB) *GormStationRepository {
	return &GormStationRepository{db: db}
}

func (r *GormStationRepository) Migrate() error {
	return r.db.AutoMigrate(&models.Station{}, &models.QueueUpdate{}, &models.HourlyProfile{})
}

func (r *GormStationRepository) ListStations(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	if err := r.db.WithContext(ctx).Order("id").Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	return stations, nil
}

func (r *GormStationRepository) GetStation(ctx context.Context, id string) (models.Station, error) {
	var st models.Station
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Station{}, ErrStationNotFound
	}
	if err != nil {
		return models.Station{}, fmt.Errorf("get station %s: %w", id, err)
	}
	return st, nil
}

func (r *GormStationRepository) HourlyProfiles(ctx context.Context) (map[string][]float64, error) {
	var rows []models.HourlyProfile
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load hourly profiles: %w", err)
	}
	return assembleProfiles(rows), nil
}

func (r *GormStationRepository) HourlyProfile(ctx context.Context, stationID string) ([]float64, error) {
	var rows []models.HourlyProfile
	if err := r.db.WithContext(ctx).Where("station_id = ?", stationID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load hourly profile %s: %w", stationID, err)
	}
	return assembleProfiles(rows)[stationID], nil
}

func (r *GormStationRepository) RecordUpdate(ctx context.Context, u models.QueueUpdate) (models.Station, error) {
	var st models.Station
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", u.StationID).First(&st).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStationNotFound
			}
			return err
		}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Station{}).
			Where("id = ?", u.StationID).
			Where("(last_updated_at IS NULL OR last_updated_at <= ?)", u.ReportedAt).
			Updates(map[string]interface{}{
				"last_queue_length": u.QueueLength,
				"last_updated_at":   u.ReportedAt,
				"is_closed":         u.IsClosed,
				"low_pressure":      u.LowPressure,
			})
		if res.Error != nil {
			return res.Error
		}
		// A newer reading may have landed since the row was read above.
		return tx.Where("id = ?", u.StationID).First(&st).Error
	})
	if errors.Is(err, ErrStationNotFound) {
		return models.Station{}, err
	}
	if err != nil {
		return models.Station{}, fmt.Errorf("record update for %s: %w", u.StationID, err)
	}
	return st, nil
}

func (r *GormStationRepository) ListUpdates(ctx context.Context, stationID string, limit int, before *HistoryCursor) ([]models.QueueUpdate, error) {
	query := r.db.WithContext(ctx).Model(&models.QueueUpdate{}).
		Where("station_id = ?", stationID).
		Order("reported_at DESC").
		Order("id DESC").
		Limit(limit)
	if before != nil {
		if before.ID == "" {
			query = query.Where("reported_at < ?", before.ReportedAt)
		} else {
			query = query.Where("(reported_at < ? OR (reported_at = ? AND id < ?))",
				before.ReportedAt, before.ReportedAt, before.ID)
		}
	}

	var rows []models.QueueUpdate
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list updates for %s: %w", stationID, err)
	}
	return rows, nil
}

func (r *GormStationRepository) CountUpdatesSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.QueueUpdate{}).Where("reported_at >= ?", since).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count updates: %w", err)
	}
	return n, nil
}

// SeedIfEmpty inserts stations (and their profiles) when the stations table
// has no rows.
func (r *GormStationRepository) SeedIfEmpty(ctx context.Context, stations []models.Station, profiles map[string][]float64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Station{}).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&stations).Error; err != nil {
			return err
		}
		var rows []models.HourlyProfile
		for id, p := range profiles {
			for h, v := range p {
				rows = append(rows, models.HourlyProfile{StationID: id, Hour: h, AvgQueue: v, UpdatedAt: now})
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return false, fmt.Errorf("seed stations: %w", err)
	}
	return true, nil
}
