package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"cngflow/estimator"
	"cngflow/models"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// Tuesday noon in Delhi, outside both rush windows.
var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, ist)

func newTestStationService(t *testing.T) (*StationService, *MemoryStationRepository) {
	t.Helper()
	repo := NewSampleMemoryRepository(testNow)
	svc := NewStationService(repo, DisabledCache(), ist)
	svc.SetClock(func() time.Time { return testNow })
	return svc, repo
}

func ids(views []StationView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStationServiceGet(t *testing.T) {
	svc, _ := newTestStationService(t)

	tests := []struct {
		id         string
		wantQueue  int
		wantConf   int
		wantColor  Color
		wantExtrap bool
	}{
		{"pump_001", 7, 85, ColorYellow, false},
		{"pump_002", 17, 70, ColorYellow, false},
		{"pump_003", 25, 100, ColorRed, false},
		{"pump_004", 0, 40, ColorGreen, false},
		{"pump_005", 20, 60, ColorRed, true},
		{"pump_012", 27, 80, ColorRed, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			v, err := svc.Get(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if v.Estimate.PredictedQueueLength != tt.wantQueue {
				t.Errorf("predicted = %d, want %d", v.Estimate.PredictedQueueLength, tt.wantQueue)
			}
			if v.Estimate.Confidence != tt.wantConf {
				t.Errorf("confidence = %d, want %d", v.Estimate.Confidence, tt.wantConf)
			}
			if v.Estimate.Extrapolated != tt.wantExtrap {
				t.Errorf("extrapolated = %v, want %v", v.Estimate.Extrapolated, tt.wantExtrap)
			}
			if v.Display.Color != tt.wantColor {
				t.Errorf("color = %q, want %q", v.Display.Color, tt.wantColor)
			}
		})
	}

	if _, err := svc.Get(context.Background(), "pump_999"); !errors.Is(err, ErrStationNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrStationNotFound", err)
	}
}

func TestStationServiceListFilters(t *testing.T) {
	svc, _ := newTestStationService(t)
	ctx := context.Background()

	all, err := svc.List(ctx, ListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 12 {
		t.Fatalf("List() returned %d stations, want 12", len(all))
	}
	for _, v := range all {
		if v.DistanceKm != nil {
			t.Errorf("%s has a distance without an origin", v.ID)
		}
	}

	tests := []struct {
		name string
		q    ListQuery
		want []string
	}{
		{"search by brand", ListQuery{Search: "Shell"}, []string{"pump_005", "pump_010"}},
		{"search by address", ListQuery{Search: "noida"}, []string{"pump_001", "pump_005"}},
		{"short search ignored", ListQuery{Search: "s"}, nil},
		{"green only", ListQuery{Color: ColorGreen}, []string{"pump_004", "pump_007"}},
		{
			"radius around Connaught Place by distance",
			ListQuery{Origin: &Point{Lat: 28.6315, Lng: 77.2167}, RadiusKm: 10, Sort: SortDistance},
			[]string{"pump_003", "pump_012", "pump_009"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if tt.want == nil {
				if len(got) != 12 {
					t.Errorf("got %d stations, want 12", len(got))
				}
				return
			}
			if !equalIDs(ids(got), tt.want...) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestStationServiceListDistance(t *testing.T) {
	svc, _ := newTestStationService(t)

	got, err := svc.List(context.Background(), ListQuery{
		Origin: &Point{Lat: 28.6315, Lng: 77.2167},
		Sort:   SortDistance,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0].ID != "pump_003" {
		t.Fatalf("nearest = %v, want pump_003 first", ids(got))
	}
	if d := *got[0].DistanceKm; d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
	if d := *got[1].DistanceKm; d != 3.4 {
		t.Errorf("distance to Karol Bagh = %v, want 3.4", d)
	}
	for _, v := range got {
		if *v.DistanceKm > DefaultRadiusKm {
			t.Errorf("%s at %.1f km is outside the default radius", v.ID, *v.DistanceKm)
		}
	}
}

func TestStationServiceListSortQueue(t *testing.T) {
	svc, repo := newTestStationService(t)
	ctx := context.Background()

	// A station with no reading and no profile is unknown and sorts last.
	repo.stations["pump_013"] = models.Station{ID: "pump_013", Name: "Unknown"}

	got, err := svc.List(ctx, ListQuery{Sort: SortQueue})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ID != "pump_004" {
		t.Errorf("first = %s, want pump_004", got[0].ID)
	}
	if last := got[len(got)-1]; last.ID != "pump_013" || last.Display.Color != ColorGray {
		t.Errorf("last = %s (%s), want gray pump_013", last.ID, last.Display.Color)
	}
	for i := 1; i < len(got)-1; i++ {
		if got[i].Estimate.PredictedQueueLength < got[i-1].Estimate.PredictedQueueLength {
			t.Errorf("queue order broken at %d: %v", i, ids(got))
		}
	}
}

func TestStationServiceListSortUpdated(t *testing.T) {
	svc, _ := newTestStationService(t)

	got, err := svc.List(context.Background(), ListQuery{Sort: SortUpdated})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ID != "pump_003" {
		t.Errorf("most recent = %s, want pump_003", got[0].ID)
	}
	if got[len(got)-1].ID != "pump_005" {
		t.Errorf("last = %s, want pump_005 (never updated)", got[len(got)-1].ID)
	}
}

func TestStationServiceListInvalid(t *testing.T) {
	svc, _ := newTestStationService(t)
	ctx := context.Background()

	if _, err := svc.List(ctx, ListQuery{Origin: &Point{Lat: 91}}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("lat 91 error = %v, want ErrInvalidQuery", err)
	}
	if _, err := svc.List(ctx, ListQuery{RadiusKm: -1}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("negative radius error = %v, want ErrInvalidQuery", err)
	}
}

func TestStationServiceBadProfileSurfaces(t *testing.T) {
	svc, repo := newTestStationService(t)
	bad := make([]float64, 24)
	bad[3] = math.NaN()
	repo.profiles["pump_001"] = bad

	_, err := svc.Get(context.Background(), "pump_001")
	if !errors.Is(err, estimator.ErrInvalidInput) {
		t.Errorf("Get error = %v, want ErrInvalidInput", err)
	}
}

func TestStationServiceAlternatives(t *testing.T) {
	svc, _ := newTestStationService(t)
	ctx := context.Background()

	res, err := svc.Alternatives(ctx, "pump_012", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Congested {
		t.Fatal("pump_012 should be congested")
	}
	got := make([]string, len(res.Alternatives))
	for i, a := range res.Alternatives {
		got[i] = a.ID
		if a.QueueSavings < minQueueSavings {
			t.Errorf("%s saves only %d", a.ID, a.QueueSavings)
		}
		if a.DistanceKm == nil || *a.DistanceKm > DefaultRadiusKm {
			t.Errorf("%s distance %v outside radius", a.ID, a.DistanceKm)
		}
	}
	if !equalIDs(got, "pump_004", "pump_007", "pump_010") {
		t.Errorf("alternatives = %v, want [pump_004 pump_007 pump_010]", got)
	}

	calm, err := svc.Alternatives(ctx, "pump_007", 0)
	if err != nil {
		t.Fatal(err)
	}
	if calm.Congested || len(calm.Alternatives) != 0 {
		t.Errorf("pump_007 congested=%v alternatives=%d, want none", calm.Congested, len(calm.Alternatives))
	}

	if _, err := svc.Alternatives(ctx, "nope", 0); !errors.Is(err, ErrStationNotFound) {
		t.Errorf("unknown station error = %v", err)
	}
}

func TestStationServiceAnalytics(t *testing.T) {
	svc, _ := newTestStationService(t)
	ctx := context.Background()

	a, err := svc.Analytics(ctx, "pump_001")
	if err != nil {
		t.Fatal(err)
	}
	if !a.HasProfile || len(a.Hours) != 24 {
		t.Fatalf("HasProfile=%v hours=%d", a.HasProfile, len(a.Hours))
	}
	if a.BusiestHour == nil || *a.BusiestHour != 18 {
		t.Errorf("BusiestHour = %v, want 18", a.BusiestHour)
	}
	if a.QuietestHour == nil || *a.QuietestHour != 0 {
		t.Errorf("QuietestHour = %v, want 0", a.QuietestHour)
	}
	if a.LocalHour != 12 || a.PeakNow {
		t.Errorf("LocalHour=%d PeakNow=%v, want 12 false", a.LocalHour, a.PeakNow)
	}
	if !a.Hours[9].RushHour || a.Hours[12].RushHour {
		t.Error("rush hour flags wrong")
	}

	none, err := svc.Analytics(ctx, "pump_003")
	if err != nil {
		t.Fatal(err)
	}
	if none.HasProfile || none.BusiestHour != nil {
		t.Errorf("pump_003 has no profile, got %+v", none)
	}
}

func TestStationServiceOverviewAndBusiest(t *testing.T) {
	svc, _ := newTestStationService(t)
	ctx := context.Background()

	o, err := svc.Overview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if o.Stations != 12 {
		t.Errorf("Stations = %d, want 12", o.Stations)
	}
	if o.FreshReadings != 8 {
		t.Errorf("FreshReadings = %d, want 8", o.FreshReadings)
	}
	want := map[Color]int{ColorGreen: 2, ColorYellow: 4, ColorRed: 6, ColorGray: 0}
	for c, n := range want {
		if o.ByColor[c] != n {
			t.Errorf("ByColor[%s] = %d, want %d", c, o.ByColor[c], n)
		}
	}

	top, err := svc.Busiest(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(top), "pump_012", "pump_003", "pump_008") {
		t.Errorf("Busiest = %v, want [pump_012 pump_003 pump_008]", ids(top))
	}
}

func TestDistanceKm(t *testing.T) {
	cp := Point{Lat: 28.6315, Lng: 77.2167}
	kb := Point{Lat: 28.6514, Lng: 77.1907}
	if d := roundKm(DistanceKm(cp, kb)); d != 3.4 {
		t.Errorf("DistanceKm = %v, want 3.4", d)
	}
	if d := DistanceKm(cp, cp); d != 0 {
		t.Errorf("DistanceKm(self) = %v, want 0", d)
	}
}

// racingRepo runs during once, right after ListStations has read its rows.
type racingRepo struct {
	*MemoryStationRepository
	during func()
}

func (r *racingRepo) ListStations(ctx context.Context) ([]models.Station, error) {
	out, err := r.MemoryStationRepository.ListStations(ctx)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return out, err
}

func TestSnapshotReadBeforeUpdateIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo := &racingRepo{MemoryStationRepository: NewSampleMemoryRepository(testNow)}
	svc := NewStationService(repo, DisabledCache(), ist)
	svc.SetClock(func() time.Time { return testNow })
	qs := NewQueueService(repo, DisabledCache(), svc)
	qs.SetClock(func() time.Time { return testNow })

	repo.during = func() {
		if _, _, err := qs.Submit(ctx, UpdateRequest{StationID: "pump_012", QueueLength: intPtr(2)}, models.SourceApp); err != nil {
			t.Errorf("Submit: %v", err)
		}
	}

	gen := svc.gen.Load()
	stations, err := repo.ListStations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	snap := stationSnapshot{Stations: stations}
	if svc.storeSnapshot(ctx, gen, snap) {
		t.Error("snapshot loaded before the update was cached")
	}
	if !svc.storeSnapshot(ctx, svc.gen.Load(), snap) {
		t.Error("snapshot with a current generation should be cached")
	}
}
