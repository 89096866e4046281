package main

import (
	"context"
	"testing"

	"cngflow/config"
	"cngflow/services"
)

func TestOpenRepositoryMemory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.StoreDriverMemory}}

	repo, err := openRepository(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openRepository: %v", err)
	}
	if _, ok := repo.(*services.MemoryStationRepository); !ok {
		t.Fatalf("repo is %T, want *services.MemoryStationRepository", repo)
	}
	stations, err := repo.ListStations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stations) != 12 {
		t.Errorf("got %d sample stations, want 12", len(stations))
	}
}
