package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cngflow/config"
	"cngflow/handlers"
	"cngflow/services"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open station store: %v", err)
	}

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("Redis unavailable, running without cache and live feed: %v", err)
	}
	defer cache.Close()

	stations := services.NewStationService(repo, cache, cfg.Station.Location())
	queues := services.NewQueueService(repo, cache, stations)

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.Deps{
		Stations: stations,
		Queues:   queues,
		Cache:    cache,
		CORS:     cfg.CORS,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s (store=%s, tz=%s)", srv.Addr, cfg.Store.Driver, cfg.Station.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
		log.Printf("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (services.StationRepository, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Printf("Using in-memory station store with sample data")
		return services.NewSampleMemoryRepository(time.Now()), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := services.NewGormStationRepository(db)
	if cfg.Store.AutoMigrate {
		if err := repo.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		stations, profiles := services.SampleStations(time.Now())
		seeded, err := repo.SeedIfEmpty(ctx, stations, profiles)
		if err != nil {
			return nil, err
		}
		if seeded {
			log.Printf("Seeded %d sample stations", len(stations))
		}
	}
	return repo, nil
}
