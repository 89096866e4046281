package models

import "time"

const (
	SourceApp  = "app"
	SourceMQTT = "mqtt"
)

type QueueUpdate struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	StationID   string    `gorm:"column:station_id;index:idx_queue_updates_station_ts,priority:1" json:"station_id"`
	QueueLength int       `gorm:"column:queue_length" json:"queue_length"`
	Notes       string    `gorm:"column:notes" json:"notes,omitempty"`
	IsClosed    bool      `gorm:"column:is_closed" json:"is_closed"`
	LowPressure bool      `gorm:"column:low_pressure" json:"low_pressure"`
	Source      string    `gorm:"column:source" json:"source"`
	ReportedAt  time.Time `gorm:"column:reported_at;index:idx_queue_updates_station_ts,priority:2" json:"reported_at"`
}

func (QueueUpdate) TableName() string { return "queue_updates" }
