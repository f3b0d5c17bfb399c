package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/your-org/skycam/internal/astro"
	"github.com/your-org/skycam/internal/camera"
	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/edge"
	edgeapi "github.com/your-org/skycam/internal/edge/api"
	"github.com/your-org/skycam/internal/observability"
	"github.com/your-org/skycam/internal/schedule"
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

	slog.Info("starting skycam edge", "port", cfg.Edge.Port, "backend", cfg.Edge.CameraBackend)

	// The edge resolves its own solar windows so deployed profiles keep
	// working when the brain is unreachable.
	loc, err := astro.ResolveLocation(cfg.Location.Latitude, cfg.Location.Longitude, cfg.Location.Timezone)
	if err != nil {
		slog.Error("resolve location", "error", err)
		os.Exit(1)
	}
	evaluator := schedule.NewEvaluator(astro.NewCalculator(loc), loc.TZ(), cfg.Schedules)

	cam := newCamera(cfg)
	initCtx, initCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := cam.Initialize(initCtx); err != nil {
		// Keep serving: every sensor endpoint reports not_ready until
		// the camera comes up, and readiness is re-probed per request.
		slog.Warn("camera initialization failed, serving in not-ready state", "error", err)
	}
	initCancel()
	defer cam.Close()

	store, err := edge.OpenStateStore(cfg.Edge.StateDB)
	if err != nil {
		slog.Error("open state store", "path", cfg.Edge.StateDB, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	deploy, err := edge.NewDeploymentManager(store)
	if err != nil {
		slog.Error("restore deployment state", "error", err)
		os.Exit(1)
	}
	slog.Info("deployment state restored", "mode", deploy.State().Mode.String())

	executor := edge.NewExecutor(cam, deploy, evaluator, store, cfg.Edge.OutputDir)

	router := edgeapi.NewRouter(edgeapi.RouterConfig{
		APIKey:   cfg.Edge.APIKey,
		Camera:   cam,
		Executor: executor,
		Deploy:   deploy,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Edge.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // long bracket sequences
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("edge API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down edge...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("edge stopped")
}

func newCamera(cfg *config.Config) camera.Camera {
	switch cfg.Edge.CameraBackend {
	case "mock":
		return camera.NewMock(cfg.Edge.MockLux)
	default:
		return camera.NewRpicam(cfg.Edge.CameraBinary)
	}
}
