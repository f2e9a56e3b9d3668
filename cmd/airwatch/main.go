package main

//	@title			AirWatch API
//	@version		0.1.0
//	@description	Home air-quality monitor: readings, AQI forecasts, alert settings and history export.
//	@BasePath		/api/v1

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/HerbHall/airwatch/api/swagger"
	"github.com/HerbHall/airwatch/internal/config"
	"github.com/HerbHall/airwatch/internal/server"
	"github.com/HerbHall/airwatch/internal/version"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Println(version.String())
			return
		case "forecast":
			os.Exit(runForecast(os.Args[2:]))
		case "ha-remove":
			os.Exit(runHARemove(os.Args[2:]))
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if err := runServe(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "airwatch: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads .env, the configuration and the logger. Subcommands share it.
func bootstrap(configPath string) (*config.ViperConfig, *zap.Logger, error) {
	// .env is optional; values there become environment variables that the
	// AW_ prefix picks up.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	// Load configuration (before logger, so log level/format can be configured).
	v, err := server.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logConfigSource(v, logger)
	return config.New(v), logger, nil
}

func logConfigSource(v *viper.Viper, logger *zap.Logger) {
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
		return
	}
	logger.Warn("no configuration file found, using defaults",
		zap.String("component", "config"),
	)
}

func runServe(configPath string) error {
	cfg, logger, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("AirWatch server starting", zap.String("version", version.Short()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	srv := server.New(app.serverCfg, logger, app.ready, app.components, app.routes...)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("AirWatch server ready", zap.String("addr", app.serverCfg.Addr()))
	fmt.Fprintf(os.Stderr, "\n  AirWatch %s is ready!\n  POST readings to http://localhost:%d/api/v1/readings\n\n", version.Short(), app.serverCfg.Port)

	// Wait for shutdown signal or server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	app.stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("AirWatch server stopped")
	return nil
}
