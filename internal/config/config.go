package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	MQTT struct {
		Broker   string
		ClientID string
		Username string
		Password string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Cache struct {
		TTL time.Duration
	}
	Gateway struct {
		PowerLossThresholdW float64
		StoreTimeout        time.Duration
		FanoutQueueSize     int
	}
	API struct {
		Port      string
		BasePath  string
		JWTSecret string
	}
	Kafka struct {
		Broker string
		Topic  string
	}
	Telegram struct {
		BotToken      string
		ChatID        int64
		RatePerSecond int
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// MQTT settings
	cfg.MQTT.Broker = os.Getenv("MQTT_BROKER")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "unit-gateway")
	cfg.MQTT.Username = os.Getenv("MQTT_USERNAME")
	cfg.MQTT.Password = os.Getenv("MQTT_PASSWORD")

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Redis settings
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.Redis.DB = db
	}

	// Cache TTL
	cfg.Cache.TTL = 300 * time.Second
	if ttl, err := strconv.Atoi(os.Getenv("CACHE_TTL_SECONDS")); err == nil && ttl > 0 {
		cfg.Cache.TTL = time.Duration(ttl) * time.Second
	}

	// Gateway settings
	cfg.Gateway.PowerLossThresholdW = 5
	if w, err := strconv.ParseFloat(os.Getenv("POWER_LOSS_THRESHOLD_W"), 64); err == nil {
		cfg.Gateway.PowerLossThresholdW = w
	}
	cfg.Gateway.StoreTimeout = 5 * time.Second
	if s, err := strconv.Atoi(os.Getenv("STORE_TIMEOUT_SECONDS")); err == nil && s > 0 {
		cfg.Gateway.StoreTimeout = time.Duration(s) * time.Second
	}
	if qs, err := strconv.Atoi(os.Getenv("FANOUT_QUEUE_SIZE")); err == nil {
		cfg.Gateway.FanoutQueueSize = qs
	}

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")
	cfg.API.JWTSecret = os.Getenv("JWT_SECRET")

	// Kafka export settings (export disabled when broker is empty)
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "unit_telemetry")

	// Telegram escalation settings (escalation disabled when token is empty)
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	cfg.Telegram.RatePerSecond = 1
	if r, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_PER_SECOND")); err == nil && r > 0 {
		cfg.Telegram.RatePerSecond = r
	}

	// Logging settings
	cfg.Logging.Dir = getEnv("LOG_DIR", "logs")
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	// Validate required settings
	missing := []string{}
	if cfg.MQTT.Broker == "" {
		missing = append(missing, "MQTT_BROKER")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Redis.Addr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	// Accept a bare port number as the listen address
	if !strings.HasPrefix(cfg.API.Port, ":") {
		cfg.API.Port = ":" + cfg.API.Port
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Gateway.FanoutQueueSize == 0 {
		cfg.Gateway.FanoutQueueSize = 256
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
