package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cngflow/config"
	"cngflow/models"
	"cngflow/services"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// QueuePayload is what a station sensor publishes on cngflow/queue/<station_id>.
type QueuePayload struct {
	TS          string `json:"ts"`
	StationID   string `json:"station_id"`
	QueueLength *int   `json:"queue_length"`
	Notes       string `json:"notes"`
	IsClosed    bool   `json:"is_closed"`
	LowPressure bool   `json:"low_pressure"`
}

var (
	msgsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cngflow_collector_messages_received_total",
		Help: "Total number of MQTT messages received by collector.",
	})
	msgsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cngflow_collector_messages_stored_total",
		Help: "Total number of queue reports accepted from MQTT.",
	})
	msgsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cngflow_collector_messages_failed_total",
		Help: "Total number of messages rejected or failed to store.",
	})
)

var errMalformed = errors.New("malformed payload")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if cfg.Store.Driver != config.StoreDriverPostgres {
		log.Fatalf("collector needs STATION_STORE=%s, got %s", config.StoreDriverPostgres, cfg.Store.Driver)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db handle failed: %v", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}
	repo := services.NewGormStationRepository(db)

	// Redis is optional: without it reports are stored but not announced.
	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, skipping live events: %v", err)
	}
	defer cache.Close()

	queues := services.NewQueueService(repo, cache, nil)

	go serveHTTP(cfg.Server.MetricsAddr)

	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = "collector-" + time.Now().Format("20060102150405")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.URL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, message mqtt.Message) {
		if err := processMessage(ctx, queues, message.Topic(), message.Payload()); err != nil {
			log.Printf("message on %s rejected: %v", message.Topic(), err)
		}
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(cfg.MQTT.Topic, 1, nil)
		token.Wait()
		if token.Error() != nil {
			log.Printf("mqtt subscribe error: %v", token.Error())
			return
		}
		log.Printf("collector subscribed to topic=%s", cfg.MQTT.Topic)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		log.Fatalf("mqtt connection failed: %v", token.Error())
	}

	log.Printf("collector running, mqtt=%s db=ok metrics=%s", cfg.MQTT.URL, cfg.Server.MetricsAddr)

	<-ctx.Done()
	log.Printf("collector shutting down")
	client.Disconnect(250)
}

func serveHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
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

// stationFromTopic returns the last topic level, the station id in
// cngflow/queue/<station_id>.
func stationFromTopic(topic string) string {
	i := strings.LastIndex(topic, "/")
	if i < 0 || i == len(topic)-1 {
		return ""
	}
	return topic[i+1:]
}

func decodePayload(topic string, raw []byte) (services.UpdateRequest, error) {
	var payload QueuePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return services.UpdateRequest{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	req := services.UpdateRequest{
		StationID:   payload.StationID,
		QueueLength: payload.QueueLength,
		Notes:       payload.Notes,
		IsClosed:    payload.IsClosed,
		LowPressure: payload.LowPressure,
	}
	if req.StationID == "" {
		req.StationID = stationFromTopic(topic)
	}
	if payload.TS != "" {
		parsed, err := time.Parse(time.RFC3339, payload.TS)
		if err == nil {
			ts := parsed.UTC()
			req.ReportedAt = &ts
		}
	}
	return req, nil
}

func processMessage(ctx context.Context, queues *services.QueueService, topic string, raw []byte) error {
	msgsReceived.Inc()

	req, err := decodePayload(topic, raw)
	if err != nil {
		msgsFailed.Inc()
		return err
	}

	if _, _, err := queues.Submit(ctx, req, models.SourceMQTT); err != nil {
		msgsFailed.Inc()
		return err
	}

	msgsStored.Inc()
	return nil
}
