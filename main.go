package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/internal/server"
)

var version = "0.1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "carrierbridge",
	Short:   "Multi-carrier shipping bridge for Canada Post, Purolator and Freightcom",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var carriersCmd = &cobra.Command{
	Use:   "carriers",
	Short: "List the enabled carriers and their services",
	RunE:  runCarriers,
}

func init() {
	rootCmd.AddCommand(serveCmd, carriersCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.Background())
	}

	metrics := initMetrics()
	rateCache, closeCache := initRateCache(ctx, cfg, logger, metrics)
	defer closeCache()

	registry := initShipperRegistry(cfg, logger, metrics, rateCache)

	logger.Info("Starting carrier bridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Strings("carriers", registry.Names()),
	)

	srv := server.New(server.Config{Port: cfg.Port, Metrics: metrics}, registry, catalog, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runCarriers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range enabledCarriers(cfg) {
		v, ok := catalog.Lookup(name)
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%s (%s/%s)\n", name, v.DimensionUnit, v.WeightUnit)
		for _, key := range v.Services.Keys() {
			code, _ := v.Services.Resolve(key)
			fmt.Fprintf(out, "  %-40s %s\n", key, code)
		}
	}
	return nil
}
