package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/skycam/internal/api"
	"github.com/your-org/skycam/internal/api/ws"
	"github.com/your-org/skycam/internal/astro"
	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/edgeclient"
	"github.com/your-org/skycam/internal/observability"
	"github.com/your-org/skycam/internal/orchestrator"
	"github.com/your-org/skycam/internal/queue"
	"github.com/your-org/skycam/internal/schedule"
	"github.com/your-org/skycam/internal/storage"
	"github.com/your-org/skycam/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting skycam brain", "port", cfg.Brain.Port, "edge", cfg.Brain.EdgeURL)

	loc, err := astro.ResolveLocation(cfg.Location.Latitude, cfg.Location.Longitude, cfg.Location.Timezone)
	if err != nil {
		slog.Error("resolve location", "error", err)
		os.Exit(1)
	}
	sun := astro.NewCalculator(loc)
	evaluator := schedule.NewEvaluator(sun, loc.TZ(), cfg.Schedules)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Relay fusion-worker events to dashboard clients
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "brain-events", func(ctx context.Context, msg jetstream.Msg) error {
		var event dto.WSEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			return err
		}
		hub.BroadcastEvent(&event)
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	// Edge client and control loop
	edge := edgeclient.New(cfg.Brain.EdgeURL, cfg.Brain.EdgeAPIKey,
		edgeclient.WithTimeouts(cfg.Brain.MeterTimeout(), cfg.Brain.CaptureTimeout(), 10*time.Second))

	orch := orchestrator.New(cfg.Brain, evaluator, cfg.Profiles, edge, db, producer, hub)
	go orch.Run(ctx)

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:       cfg.Brain.APIKey,
		Config:       cfg,
		Evaluator:    evaluator,
		Orchestrator: orch,
		Store:        db,
		Edge:         edge,
		Hub:          hub,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Brain.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("brain API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down brain...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("brain stopped")
}
