package models

import "time"

type Station struct {
	ID              string     `gorm:"column:id;primaryKey" json:"id"`
	Name            string     `gorm:"column:name;not null" json:"name"`
	Brand           string     `gorm:"column:brand" json:"brand"`
	Address         string     `gorm:"column:address" json:"address"`
	Lat             float64    `gorm:"column:lat" json:"lat"`
	Lng             float64    `gorm:"column:lng" json:"lng"`
	OperatingHours  string     `gorm:"column:operating_hours" json:"operating_hours"`
	Phone           *string    `gorm:"column:phone" json:"phone,omitempty"`
	PaymentModes    []string   `gorm:"column:payment_modes;serializer:json" json:"payment_modes"`
	LastQueueLength *int       `gorm:"column:last_queue_length" json:"last_queue_length"`
	LastUpdatedAt   *time.Time `gorm:"column:last_updated_at" json:"last_updated_at"`
	IsClosed        bool       `gorm:"column:is_closed" json:"is_closed"`
	LowPressure     bool       `gorm:"column:low_pressure" json:"low_pressure"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Station) TableName() string { return "stations" }

// Clone returns a deep copy so snapshots handed to callers never alias
// repository state.
func (s Station) Clone() Station {
	c := s
	if s.Phone != nil {
		v := *s.Phone
		c.Phone = &v
	}
	if s.PaymentModes != nil {
		c.PaymentModes = append([]string(nil), s.PaymentModes...)
	}
	if s.LastQueueLength != nil {
		v := *s.LastQueueLength
		c.LastQueueLength = &v
	}
	if s.LastUpdatedAt != nil {
		v := *s.LastUpdatedAt
		c.LastUpdatedAt = &v
	}
	return c
}
