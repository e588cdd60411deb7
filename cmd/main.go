package main

import (
	"context"
	"log"

	"unit-gateway/internal/api"
	"unit-gateway/internal/cache"
	"unit-gateway/internal/config"
	"unit-gateway/internal/db"
	"unit-gateway/internal/export"
	"unit-gateway/internal/fanout"
	"unit-gateway/internal/gateway"
	"unit-gateway/internal/logging"
	"unit-gateway/internal/mqtt"
	"unit-gateway/internal/providers"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()
	if err := dbConn.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}

	units := db.NewUnitStore(dbConn)
	statuses := db.NewStatusStore(dbConn)
	tasks := db.NewTaskStore(dbConn)

	// Connect to the snapshot cache
	snapshots := cache.New(cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Cache.TTL,
	})
	defer snapshots.Close()
	if err := snapshots.Ping(context.Background()); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fan-out workers
	hub := fanout.NewHub(snapshots, cfg.Gateway.FanoutQueueSize, logger)
	go hub.Run(ctx)

	registry := fanout.NewRegistry(cfg.Gateway.FanoutQueueSize, logger)
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		registry.SetEscalator(providers.NewTelegram(
			cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.RatePerSecond, logger))
		logger.Infof("Telegram escalation enabled for chat %d", cfg.Telegram.ChatID)
	}
	go registry.Run(ctx)

	// Transport client and command dispatcher
	client, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	}, logger)
	if err != nil {
		log.Fatalf("MQTT connection failed: %v", err)
	}
	defer client.Close()

	dispatcher := mqtt.NewDispatcher(units, client, logger)

	// Ingestion core
	svc := gateway.New(units, statuses, tasks, snapshots, hub, registry, dispatcher, logger, gateway.Options{
		PowerLossThresholdW: cfg.Gateway.PowerLossThresholdW,
		StoreTimeout:        cfg.Gateway.StoreTimeout,
	})

	if cfg.Kafka.Broker != "" {
		producer := export.NewProducer(cfg.Kafka.Broker, cfg.Kafka.Topic, cfg.Gateway.FanoutQueueSize, logger)
		defer producer.Close()
		go producer.Run(ctx)
		svc.SetExporter(producer)
		logger.Infof("Telemetry export enabled (topic %s)", cfg.Kafka.Topic)
	}

	router := mqtt.NewRouter(units, svc, logger)
	if err := client.Subscribe(router); err != nil {
		log.Fatalf("MQTT subscribe failed: %v", err)
	}

	// Start API server
	auth := api.NewAuthenticator(cfg.API.JWTSecret)
	handler := api.NewHandler(units, tasks, snapshots, hub, registry, dispatcher, auth, logger)
	engine := api.NewRouter(logger, cfg, handler)
	logger.Infof("Starting API server on %s", cfg.API.Port)
	if err := engine.Run(cfg.API.Port); err != nil {
		logger.Errorf("API server failed: %v", err)
	}
}
