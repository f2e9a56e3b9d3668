package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/airwatch/internal/mqtt"
)

// runHARemove clears the retained Home Assistant discovery configs so the
// monitor's entities disappear from Home Assistant.
func runHARemove(args []string) int {
	fs := flag.NewFlagSet("ha-remove", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, logger, err := bootstrap(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "airwatch ha-remove: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	mqttCfg := mqtt.DefaultConfig()
	if err := cfg.Decode("mqtt", &mqttCfg); err != nil {
		fmt.Fprintf(os.Stderr, "airwatch ha-remove: %v\n", err)
		return 1
	}
	if !mqttCfg.Enabled() {
		fmt.Fprintln(os.Stderr, "airwatch ha-remove: mqtt.broker_url is not set")
		return 1
	}
	// Discovery must stay off for this connection or OnConnect republishes it.
	mqttCfg.HADiscovery = false

	ctx, cancel := context.WithTimeout(context.Background(), mqttCfg.Timeout+5*time.Second)
	defer cancel()

	pub := mqtt.NewPublisher(mqttCfg, logger.Named("mqtt"))
	if err := pub.Start(ctx, nil); err != nil {
		fmt.Fprintf(os.Stderr, "airwatch ha-remove: %v\n", err)
		return 1
	}
	defer func() { _ = pub.Stop(ctx) }()

	if !pub.RemoveHADiscovery() {
		fmt.Fprintln(os.Stderr, "airwatch ha-remove: broker not connected or publish failed")
		return 1
	}
	fmt.Println("Home Assistant discovery configs removed")
	return 0
}
