package models

import "time"

type HourlyProfile struct {
	StationID   string    `gorm:"column:station_id;primaryKey" json:"station_id"`
	Hour        int       `gorm:"column:hour;primaryKey" json:"hour"`
	AvgQueue    float64   `gorm:"column:avg_queue" json:"avg_queue"`
	SampleCount int       `gorm:"column:sample_count" json:"sample_count"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (HourlyProfile) TableName() string { return "station_hourly_profiles" }
