package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/internal/insight"
	"github.com/HerbHall/airwatch/internal/server"
	"github.com/HerbHall/airwatch/internal/settings"
)

// runForecast prints one forecast computed from the stored history. A zero
// horizon uses the saved settings.
func runForecast(args []string) int {
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	horizon := fs.Int("horizon", 0, "forecast horizon in minutes (0 uses saved settings)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *horizon < 0 {
		fmt.Fprintln(os.Stderr, "airwatch forecast: --horizon must not be negative")
		return 2
	}

	cfg, logger, err := bootstrap(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "airwatch forecast: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	serverCfg := server.DefaultConfig()
	forecastCfg := insight.DefaultConfig()
	if err := cfg.Decode("server", &serverCfg); err != nil {
		fmt.Fprintf(os.Stderr, "airwatch forecast: %v\n", err)
		return 1
	}
	if err := cfg.Decode("forecast", &forecastCfg); err != nil {
		fmt.Fprintf(os.Stderr, "airwatch forecast: %v\n", err)
		return 1
	}
	table, err := aqi.TableForProfile(cfg.GetString("aqi.profile"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "airwatch forecast: %v\n", err)
		return 1
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, cfg, serverCfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "airwatch forecast: %v\n", err)
		return 1
	}
	defer db.Close()

	svc := insight.NewService(forecastCfg, table,
		history.NewStore(db.DB()), settings.NewStore(db.DB()), logger.Named("insight"))

	if limit := svc.MaxHorizonMinutes(); *horizon > limit {
		fmt.Fprintf(os.Stderr, "airwatch forecast: --horizon must not exceed %d\n", limit)
		return 2
	}

	var res insight.Result
	if *horizon == 0 {
		res = svc.Forecast(ctx)
	} else {
		res = svc.ForecastFor(ctx, *horizon)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "airwatch forecast: %v\n", err)
		return 1
	}
	return 0
}
