package services

import (
	"time"

	"cngflow/models"
)

type sampleStation struct {
	station    models.Station
	queue      *int
	updatedAgo time.Duration
}

func qp(v int) *int { return &v }

func sp(v string) *string { return &v }

var sampleStations = []sampleStation{
	{
		station: models.Station{
			ID:             "pump_001",
			Name:           "Indian Oil - Sector 18",
			Brand:          "Indian Oil",
			Address:        "Sector 18, Noida, UP",
			Lat:            28.5672,
			Lng:            77.3256,
			OperatingHours: "5:00 AM - 11:00 PM",
			Phone:          sp("+91 98765 43210"),
			PaymentModes:   []string{"Cash", "Card", "UPI"},
		},
		queue:      qp(3),
		updatedAgo: 15 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_002",
			Name:           "Bharat Petroleum - DLF Phase 2",
			Brand:          "Bharat Petroleum",
			Address:        "DLF Phase 2, Gurgaon, Haryana",
			Lat:            28.4912,
			Lng:            77.0895,
			OperatingHours: "24 Hours",
			Phone:          sp("+91 98765 43211"),
			PaymentModes:   []string{"Cash", "Card"},
		},
		queue:      qp(12),
		updatedAgo: 30 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_003",
			Name:           "IGL Station - Connaught Place",
			Brand:          "IGL",
			Address:        "Connaught Place, New Delhi",
			Lat:            28.6315,
			Lng:            77.2167,
			OperatingHours: "6:00 AM - 10:00 PM",
			Phone:          sp("+91 98765 43212"),
			PaymentModes:   []string{"Cash", "Card", "UPI", "Paytm"},
		},
		queue:      qp(25),
		updatedAgo: 5 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_004",
			Name:           "Indian Oil - Dwarka",
			Brand:          "Indian Oil",
			Address:        "Sector 6, Dwarka, New Delhi",
			Lat:            28.5921,
			Lng:            77.0460,
			OperatingHours: "5:00 AM - 11:00 PM",
			Phone:          sp("+91 98765 43213"),
			PaymentModes:   []string{"Cash", "UPI"},
		},
		queue:      qp(0),
		updatedAgo: 45 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_005",
			Name:           "Shell - Greater Noida",
			Brand:          "Shell",
			Address:        "Knowledge Park, Greater Noida",
			Lat:            28.4744,
			Lng:            77.5040,
			OperatingHours: "24 Hours",
			Phone:          sp("+91 98765 43214"),
			PaymentModes:   []string{"Cash", "Card", "UPI"},
		},
		queue:      nil,
		updatedAgo: 120 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_006",
			Name:           "Indian Oil - Rohini Sector 3",
			Brand:          "Indian Oil",
			Address:        "Sector 3, Rohini, Delhi",
			Lat:            28.7495,
			Lng:            77.1045,
			OperatingHours: "5:00 AM - 11:00 PM",
			Phone:          sp("+91 98765 43215"),
			PaymentModes:   []string{"Cash", "Card", "UPI"},
		},
		queue:      qp(10),
		updatedAgo: 25 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_007",
			Name:           "Bharat Petroleum - Janakpuri",
			Brand:          "Bharat Petroleum",
			Address:        "District Centre, Janakpuri, Delhi",
			Lat:            28.6219,
			Lng:            77.0878,
			OperatingHours: "24 Hours",
			Phone:          sp("+91 98765 43216"),
			PaymentModes:   []string{"Cash", "Card"},
		},
		queue:      qp(2),
		updatedAgo: 10 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_008",
			Name:           "IGL Station - Vasant Kunj",
			Brand:          "IGL",
			Address:        "Vasant Kunj, New Delhi",
			Lat:            28.5245,
			Lng:            77.1492,
			OperatingHours: "6:00 AM - 10:00 PM",
			Phone:          sp("+91 98765 43217"),
			PaymentModes:   []string{"Cash", "Card", "UPI"},
		},
		queue:      qp(22),
		updatedAgo: 8 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_009",
			Name:           "Indian Oil - Mayur Vihar",
			Brand:          "Indian Oil",
			Address:        "Mayur Vihar Phase 1, Delhi",
			Lat:            28.6083,
			Lng:            77.2908,
			OperatingHours: "5:00 AM - 11:00 PM",
			Phone:          sp("+91 98765 43218"),
			PaymentModes:   []string{"Cash", "Card", "UPI"},
		},
		queue:      qp(13),
		updatedAgo: 40 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_010",
			Name:           "Shell - Saket",
			Brand:          "Shell",
			Address:        "Saket District Centre, Delhi",
			Lat:            28.5244,
			Lng:            77.2066,
			OperatingHours: "24 Hours",
			Phone:          sp("+91 98765 43219"),
			PaymentModes:   []string{"Cash", "Card", "UPI", "Paytm"},
		},
		queue:      qp(4),
		updatedAgo: 12 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_011",
			Name:           "Bharat Petroleum - Faridabad",
			Brand:          "Bharat Petroleum",
			Address:        "Sector 15, Faridabad, Haryana",
			Lat:            28.4089,
			Lng:            77.3178,
			OperatingHours: "5:00 AM - 11:00 PM",
			Phone:          sp("+91 98765 43220"),
			PaymentModes:   []string{"Cash", "Card"},
		},
		queue:      qp(14),
		updatedAgo: 35 * time.Minute,
	},
	{
		station: models.Station{
			ID:             "pump_012",
			Name:           "IGL Station - Karol Bagh",
			Brand:          "IGL",
			Address:        "Karol Bagh, Central Delhi",
			Lat:            28.6514,
			Lng:            77.1907,
			OperatingHours: "6:00 AM - 10:00 PM",
			Phone:          sp("+91 98765 43221"),
			PaymentModes:   []string{"Cash", "UPI"},
		},
		queue:      qp(28),
		updatedAgo: 20 * time.Minute,
	},
}

var sampleProfiles = map[string][]float64{
	"pump_001": {0, 0, 0, 0, 2, 5, 8, 12, 15, 10, 8, 12, 18, 15, 12, 10, 8, 15, 20, 18, 12, 8, 5, 2},
	"pump_002": {2, 1, 1, 1, 3, 8, 15, 20, 25, 18, 15, 18, 22, 20, 18, 15, 12, 18, 25, 22, 15, 10, 5, 3},
	"pump_005": {1, 0, 0, 0, 2, 5, 10, 15, 18, 12, 10, 14, 20, 18, 15, 12, 10, 15, 18, 15, 10, 6, 3, 2},
	"pump_006": {1, 1, 0, 1, 3, 7, 12, 18, 20, 15, 12, 15, 22, 18, 15, 12, 10, 18, 22, 20, 15, 8, 4, 2},
	"pump_007": {2, 1, 1, 1, 4, 8, 14, 20, 22, 16, 12, 14, 20, 18, 14, 11, 9, 16, 20, 18, 14, 10, 6, 3},
	"pump_008": {2, 1, 1, 2, 5, 10, 16, 22, 25, 18, 14, 16, 24, 20, 16, 13, 11, 20, 25, 22, 16, 12, 8, 4},
	"pump_009": {1, 1, 0, 1, 3, 8, 15, 20, 22, 16, 12, 14, 20, 17, 14, 11, 9, 17, 22, 20, 15, 10, 5, 2},
	"pump_010": {2, 1, 1, 1, 4, 9, 15, 20, 23, 17, 13, 15, 21, 18, 15, 12, 10, 18, 23, 20, 15, 11, 6, 3},
	"pump_011": {1, 0, 0, 1, 3, 7, 14, 19, 21, 15, 11, 13, 19, 16, 13, 10, 8, 16, 21, 19, 14, 9, 5, 2},
	"pump_012": {3, 2, 1, 2, 6, 12, 18, 25, 28, 20, 16, 18, 26, 22, 18, 15, 13, 22, 28, 25, 18, 14, 10, 5},
}

// SampleStations returns the Delhi NCR demo dataset with readings aged
// relative to now.
func SampleStations(now time.Time) ([]models.Station, map[string][]float64) {
	stations := make([]models.Station, 0, len(sampleStations))
	for _, s := range sampleStations {
		st := s.station.Clone()
		if s.queue != nil {
			q := *s.queue
			updated := now.Add(-s.updatedAgo)
			st.LastQueueLength = &q
			st.LastUpdatedAt = &updated
		}
		st.CreatedAt = now
		st.UpdatedAt = now
		stations = append(stations, st)
	}

	profiles := make(map[string][]float64, len(sampleProfiles))
	for id, p := range sampleProfiles {
		profiles[id] = append([]float64(nil), p...)
	}
	return stations, profiles
}
