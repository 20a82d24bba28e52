// Command studio runs the local studio service: the HTTP API the editor talks
// to, debounced auto-assembly and the system tray.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/heimdex/heimdex-studio/internal/api"
	"github.com/heimdex/heimdex-studio/internal/config"
	"github.com/heimdex/heimdex-studio/internal/db"
	"github.com/heimdex/heimdex-studio/internal/logging"
	"github.com/heimdex/heimdex-studio/internal/playback"
	"github.com/heimdex/heimdex-studio/internal/render"
	"github.com/heimdex/heimdex-studio/internal/scheduler"
	"github.com/heimdex/heimdex-studio/internal/studio"
	"github.com/heimdex/heimdex-studio/internal/ui"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("heimdex studio: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting heimdex studio", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))
	if path, ok := cfg.ConfigPath(); ok {
		logger.Info("loaded config file", "path", logging.SanitizePath(path))
	}

	lock := flock.New(cfg.LockPath())
	if locked, err := lock.TryLock(); err != nil {
		return fmt.Errorf("acquire data dir lock: %w", err)
	} else if !locked {
		return fmt.Errorf("another heimdex studio instance is using %s", cfg.DataDir())
	}
	defer lock.Unlock()

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer database.Close()

	repo := studio.NewRepository(database.Conn())
	deviceID, err := ensureSecret(repo, "device_id", 16)
	if err != nil {
		return fmt.Errorf("ensure device id: %w", err)
	}
	authToken, err := ensureSecret(repo, "auth_token", 32)
	if err != nil {
		return fmt.Errorf("ensure auth token: %w", err)
	}
	printBanner(os.Stdout, cfg.Port(), authToken, deviceID)

	svc := studio.NewService(studio.ServiceConfig{
		Repository:  repo,
		Renderer:    newRenderer(cfg, deviceID, logger),
		Distributor: newDistributor(cfg, logger),
		AspectRatio: cfg.AspectRatio(),
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(cfg.Debounce(), svc.AutoAssemble, svc.ClearAutoAssembled, logger)
	svc.SetScheduler(sched)
	sched.Start(ctx)
	defer sched.Stop()

	server := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Service:        svc,
		Repository:     repo,
		PlaybackServer: playback.NewServer(svc.Store(), logger),
		Scheduler:      sched,
		Logger:         logger,
		StartTime:      startTime,
		DeviceID:       deviceID,
	})

	// The tray's quit item cancels the same context a signal would.
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Stats:     svc,
			Scheduler: sched,
			Logger:    logger,
			APIURL:    "http://" + server.Addr(),
			OnQuit:    quit,
		})
		go tray.Run(gctx)
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func newRenderer(cfg *config.EnvConfig, deviceID string, logger *slog.Logger) render.Client {
	if cfg.RendererURL() == "" {
		logger.Warn("no renderer configured, preview and assembly are unavailable")
		return render.NewStubClient(logger)
	}
	c := render.NewHTTPClient(cfg.RendererURL(), cfg.RendererToken(), cfg.RenderTimeout(), logger)
	c.SetDeviceID(deviceID)
	logger.Info("renderer configured", "base_url", cfg.RendererURL(), "timeout", cfg.RenderTimeout(),
		"token", logging.SanitizeToken(cfg.RendererToken()))
	return c
}

func newDistributor(cfg *config.EnvConfig, logger *slog.Logger) render.Distributor {
	if cfg.DistributionURL() == "" {
		return render.NewStubDistributor(logger)
	}
	return render.NewHTTPDistributor(cfg.DistributionURL(), cfg.RendererToken(), logger)
}

// ensureSecret returns the hex value stored under key, generating n random
// bytes on first run.
func ensureSecret(repo studio.Repository, key string, n int) (string, error) {
	ctx := context.Background()
	if existing, err := repo.GetConfig(ctx, key); err == nil && existing != "" {
		return existing, nil
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)
	if err := repo.SetConfig(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}

func printBanner(w io.Writer, port int, authToken, deviceID string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔═══════════════════════════════════════════════════════════╗")
	fmt.Fprintf(w, "║                 HEIMDEX STUDIO v%-26s║\n", config.Version)
	fmt.Fprintln(w, "╠═══════════════════════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  API URL:    http://127.0.0.1:%-27d ║\n", port)
	fmt.Fprintf(w, "║  Auth Token: %-45s ║\n", authToken)
	fmt.Fprintf(w, "║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Fprintln(w, "╚═══════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
}
