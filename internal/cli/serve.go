package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auber_controller/internal/device"
	"auber_controller/internal/handlers"
	"auber_controller/internal/logger"
	"auber_controller/internal/server"
	"auber_controller/internal/service"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the controller loop",
		Long: `Opens the instrument on device.port (falling back to the simulator when it cannot be
reached), seeds the preset programs, starts the controller tick loop and serves the API.
SIGINT or SIGTERM stops the loop and drains in-flight requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *GlobalOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := logger.Get(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	conn, repos, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	link := device.Open(ctx, cfg.Device, log.Named("device"))
	defer func() { _ = link.Close() }()

	services := service.NewService(repos, link, service.Options{
		Bounds:     cfg.Instrument,
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
		SignupRole: cfg.Auth.SignupRole,
	}, log.Named("controller"))

	if cfg.Controller.SeedPresets {
		n, err := services.Programs.SeedPresets(ctx)
		if err != nil {
			return fmt.Errorf("seed presets: %w", err)
		}
		if n > 0 {
			log.Infow("presets_seeded", "count", n)
		}
	}

	// context for background goroutines
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go services.Loop.Run(loopCtx, cfg.Controller.TickInterval)

	srv := &server.Server{}
	apiHandler := handlers.NewHandler(services, log.Named("http"))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(cfg.Port, apiHandler.InitRoutes())
	}()
	log.Infow("server_started", "port", cfg.Port, "db", cfg.DB.Path, "simulated", link.Simulated(),
		"tick", cfg.Controller.TickInterval)

	return waitForShutdown(ctx, cancel, srv, errCh, log)
}

// waitForShutdown blocks until a signal or a server failure, then stops the loop and the server.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, srv *server.Server, errCh <-chan error, log *logger.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
