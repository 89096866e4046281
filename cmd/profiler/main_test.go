package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cngflow/services"
)

func sampleRows(t *testing.T) []services.QueueSample {
	t.Helper()
	base := time.Date(2025, 6, 9, 3, 30, 0, 0, time.UTC)
	var samples []services.QueueSample
	for i := 0; i < 6; i++ {
		samples = append(samples,
			services.QueueSample{StationID: "pump_001", QueueLength: 10 + i, ReportedAt: base.Add(time.Duration(i) * time.Hour)},
			services.QueueSample{StationID: "pump_002", QueueLength: i, ReportedAt: base.Add(time.Duration(i) * time.Hour)},
		)
	}
	samples = append(samples, services.QueueSample{StationID: "pump_003", QueueLength: 4, ReportedAt: base})
	return samples
}

func TestBuildUpsertBatch(t *testing.T) {
	rows := services.BuildProfiles(sampleRows(t), time.UTC, 5, time.Now())
	if len(rows) != 48 {
		t.Fatalf("got %d rows, want 48 (two stations above the sample floor)", len(rows))
	}

	batch := buildUpsertBatch(rows)
	if batch.Len() != len(rows) {
		t.Errorf("batch.Len() = %d, want %d", batch.Len(), len(rows))
	}
	if got := countStations(rows); got != 2 {
		t.Errorf("countStations() = %d, want 2", got)
	}
}

func TestUpsertSQLTargetsProfileKey(t *testing.T) {
	if !strings.Contains(upsertProfileSQL, "ON CONFLICT (station_id, hour)") {
		t.Error("upsert must conflict on the profile primary key")
	}
}

func TestProfilesEventJSON(t *testing.T) {
	ts := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	data, err := json.Marshal(ProfilesEvent{Type: "profiles_rebuilt", Stations: 3, TS: ts})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"profiles_rebuilt","stations":3,"ts":"2025-06-10T00:00:00Z"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestCountStationsEmpty(t *testing.T) {
	if got := countStations(nil); got != 0 {
		t.Errorf("countStations(nil) = %d, want 0", got)
	}
}
