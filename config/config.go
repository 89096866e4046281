package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Store    StoreConfig
	Station  StationConfig
	MQTT     MQTTConfig
	Profiler ProfilerConfig
}

type ServerConfig struct {
	Port int
	// MetricsAddr is where the collector and profiler serve /metrics.
	MetricsAddr string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// GetURL returns the postgres:// form expected by pgxpool.
func (d DatabaseConfig) GetURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Host            string
	Port            int
	Password        string
	DB              int
	ConnectAttempts int
}

type CORSConfig struct {
	AllowedOrigins string
}

type StoreConfig struct {
	Driver      string
	AutoMigrate bool
}

type StationConfig struct {
	Timezone string
	location *time.Location
}

// Location is the zone used for hour-of-day bucketing of queue reports.
func (s StationConfig) Location() *time.Location {
	if s.location == nil {
		return time.UTC
	}
	return s.location
}

type MQTTConfig struct {
	URL      string
	Topic    string
	ClientID string
}

type ProfilerConfig struct {
	IntervalSec  int
	LookbackDays int
	MinSamples   int
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisAttempts, err := getIntEnv("REDIS_CONNECT_ATTEMPTS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_CONNECT_ATTEMPTS: %w", err)
	}

	driver := strings.ToLower(getEnv("STATION_STORE", StoreDriverPostgres))
	if driver != StoreDriverPostgres && driver != StoreDriverMemory {
		return nil, fmt.Errorf("invalid STATION_STORE %q: want %s or %s", driver, StoreDriverPostgres, StoreDriverMemory)
	}
	autoMigrate, err := getBoolEnv("DB_AUTO_MIGRATE", true)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	tz := getEnv("STATION_TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid STATION_TIMEZONE: %w", err)
	}

	interval, err := getPositiveIntEnv("PROFILE_INTERVAL_SEC", 900)
	if err != nil {
		return nil, fmt.Errorf("invalid PROFILE_INTERVAL_SEC: %w", err)
	}
	lookback, err := getPositiveIntEnv("PROFILE_LOOKBACK_DAYS", 28)
	if err != nil {
		return nil, fmt.Errorf("invalid PROFILE_LOOKBACK_DAYS: %w", err)
	}
	minSamples, err := getPositiveIntEnv("PROFILE_MIN_SAMPLES", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid PROFILE_MIN_SAMPLES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        serverPort,
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "cngflow"),
			Password: getEnv("DB_PASSWORD", "cngflow_dev_password"),
			Name:     getEnv("DB_NAME", "cngflow"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            redisPort,
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              redisDB,
			ConnectAttempts: redisAttempts,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Store: StoreConfig{
			Driver:      driver,
			AutoMigrate: autoMigrate,
		},
		Station: StationConfig{
			Timezone: tz,
			location: loc,
		},
		MQTT: MQTTConfig{
			URL:      getEnv("MQTT_URL", "tcp://localhost:1883"),
			Topic:    getEnv("MQTT_TOPIC", "cngflow/queue/+"),
			ClientID: getEnv("MQTT_CLIENT_ID", ""),
		},
		Profiler: ProfilerConfig{
			IntervalSec:  interval,
			LookbackDays: lookback,
			MinSamples:   minSamples,
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func getPositiveIntEnv(key string, fallback int) (int, error) {
	v, err := getIntEnv(key, fallback)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", v)
	}
	return v, nil
}
