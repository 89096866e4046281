package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cngflow/config"
	"cngflow/models"
	"cngflow/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const upsertProfileSQL = `
	INSERT INTO station_hourly_profiles (station_id, hour, avg_queue, sample_count, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (station_id, hour) DO UPDATE SET
		avg_queue = EXCLUDED.avg_queue,
		sample_count = EXCLUDED.sample_count,
		updated_at = EXCLUDED.updated_at
`

// ProfilesEvent is published on ProfilesChannel after a successful cycle.
type ProfilesEvent struct {
	Type     string    `json:"type"`
	Stations int       `json:"stations"`
	TS       time.Time `json:"ts"`
}

var (
	samplesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cngflow_profiler_samples_read_total",
		Help: "Total number of queue reports read by the profiler.",
	})
	profilesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cngflow_profiler_profiles_stored_total",
		Help: "Total number of station profiles upserted.",
	})
	profilesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cngflow_profiler_failures_total",
		Help: "Total number of profiler cycle failures.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cngflow_profiler_cycle_duration_seconds",
		Help:    "Duration of a full profile rebuild cycle.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// DB pool
	dbPool, err := pgxpool.New(ctx, cfg.Database.GetURL())
	if err != nil {
		log.Fatalf("db pool init failed: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}
	log.Printf("db connected")

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, snapshots will expire on their own: %v", err)
	}
	defer cache.Close()

	// HTTP health + metrics
	go serveHTTP(cfg.Server.MetricsAddr)

	interval := time.Duration(cfg.Profiler.IntervalSec) * time.Second
	lookback := time.Duration(cfg.Profiler.LookbackDays) * 24 * time.Hour
	loc := cfg.Station.Location()

	log.Printf("profiler running: interval=%s lookback=%s min_samples=%d tz=%s",
		interval, lookback, cfg.Profiler.MinSamples, loc)

	p := &profiler{
		pool:       dbPool,
		cache:      cache,
		loc:        loc,
		lookback:   lookback,
		minSamples: cfg.Profiler.MinSamples,
	}

	// Run first cycle immediately
	p.runCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.runCycle(ctx)
		case <-ctx.Done():
			log.Printf("profiler shutting down")
			return
		}
	}
}

type profiler struct {
	pool       *pgxpool.Pool
	cache      *services.CacheService
	loc        *time.Location
	lookback   time.Duration
	minSamples int
}

func (p *profiler) runCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC().Truncate(time.Second)

	samples, err := p.fetchSamples(ctx, now.Add(-p.lookback))
	if err != nil {
		profilesFailed.Inc()
		log.Printf("query queue_updates failed: %v", err)
		return
	}
	samplesRead.Add(float64(len(samples)))

	rows := services.BuildProfiles(samples, p.loc, p.minSamples, now)
	if len(rows) == 0 {
		log.Printf("no station has %d reports in the lookback window, skipping", p.minSamples)
		return
	}

	stations, err := p.storeProfiles(ctx, rows)
	if err != nil {
		profilesFailed.Inc()
		log.Printf("profile upsert failed: %v", err)
		return
	}
	profilesStored.Add(float64(stations))

	if err := p.cache.Delete(ctx, services.SnapshotCacheKey); err != nil {
		log.Printf("snapshot cache delete failed: %v", err)
	}
	evt := ProfilesEvent{Type: "profiles_rebuilt", Stations: stations, TS: now}
	if err := p.cache.Publish(ctx, services.ProfilesChannel, evt); err != nil {
		log.Printf("redis publish failed: %v", err)
	}

	log.Printf("profile cycle completed: %d samples, %d stations (%.2fs)",
		len(samples), stations, time.Since(start).Seconds())
}

func (p *profiler) fetchSamples(ctx context.Context, since time.Time) ([]services.QueueSample, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT station_id, queue_length, reported_at
		FROM queue_updates
		WHERE reported_at >= $1
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []services.QueueSample
	for rows.Next() {
		var s services.QueueSample
		if err := rows.Scan(&s.StationID, &s.QueueLength, &s.ReportedAt); err != nil {
			return nil, fmt.Errorf("row scan: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func buildUpsertBatch(rows []models.HourlyProfile) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertProfileSQL, r.StationID, r.Hour, r.AvgQueue, r.SampleCount, r.UpdatedAt)
	}
	return batch
}

func countStations(rows []models.HourlyProfile) int {
	seen := make(map[string]struct{})
	for _, r := range rows {
		seen[r.StationID] = struct{}{}
	}
	return len(seen)
}

// storeProfiles upserts every row in one transaction so readers never see a
// station with a partially replaced profile.
func (p *profiler) storeProfiles(ctx context.Context, rows []models.HourlyProfile) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, buildUpsertBatch(rows))
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("upsert %s hour %d: %w", rows[i].StationID, rows[i].Hour, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return countStations(rows), nil
}

func serveHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("metrics server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("metrics server failed: %v", err)
	}
}
