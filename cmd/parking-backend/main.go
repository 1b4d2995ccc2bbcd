// v2
// cmd/parking-backend/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"

	"github.com/mtmab2408/smart-parking-backend/internal/api"
	"github.com/mtmab2408/smart-parking-backend/internal/config"
	"github.com/mtmab2408/smart-parking-backend/internal/ingest"
	"github.com/mtmab2408/smart-parking-backend/internal/logging"
	"github.com/mtmab2408/smart-parking-backend/internal/reconcile"
	"github.com/mtmab2408/smart-parking-backend/internal/storage"
	"github.com/mtmab2408/smart-parking-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet; write straight to stderr and bail.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, logFile := logging.Init(cfg.LogDir)
	defer logFile.Close()
	logger.Info("starting parking backend", "httpBind", cfg.HTTPBind, "storage", cfg.StorageDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store storage.Store
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pg, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Error("postgres init failed", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
	default:
		store = storage.NewMemoryStore()
	}

	if cfg.SeedPath != "" {
		if err := storage.Seed(ctx, store, cfg.SeedPath, logger); err != nil {
			logger.Error("seed failed", "error", err)
			os.Exit(1)
		}
	}

	hub := ws.NewHub(logger)
	rec := reconcile.New(store, logger)
	coord := ingest.NewCoordinator(store, rec, hub, logger)

	if cfg.MQTTEnabled {
		client, err := ingest.StartMQTT(ingest.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, coord, logger)
		if err != nil {
			logger.Error("mqtt init failed", "error", err)
			os.Exit(1)
		}
		defer client.Disconnect(250)
	}

	if cfg.KafkaEnabled() {
		consumer := ingest.StartKafka(ctx, ingest.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, coord, logger)
		defer consumer.Close()
	}

	router := api.NewRouter(
		api.NewHandler(store, coord, logger),
		ws.NewHandler(hub, store, logger),
	)
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	server := &http.Server{
		Addr:    cfg.HTTPBind,
		Handler: handlers.LoggingHandler(os.Stdout, cors(router)),
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPBind)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	logger.Info("shutting down")
	cancel()
	_ = server.Shutdown(context.Background())
}
