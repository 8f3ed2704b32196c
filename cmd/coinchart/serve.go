package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/coinchart/internal/api"
	"github.com/newthinker/coinchart/internal/coingecko"
	"github.com/newthinker/coinchart/internal/logger"
	"github.com/newthinker/coinchart/internal/marketdata"
	"github.com/newthinker/coinchart/internal/metrics"
	"github.com/newthinker/coinchart/internal/storage/archive"
	"github.com/newthinker/coinchart/internal/tradingview"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var templatesDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the coinchart server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&templatesDir, "templates", "", "load page templates from this directory instead of the embedded ones")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	log = fileLogger(cfg, log)
	defer log.Sync()

	log.Info("starting coinchart server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	store, err := archive.New(cfg.Storage.Archive)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	if store == nil {
		log.Info("chart archive disabled")
	}

	provider := coingecko.NewWithOptions(coingecko.Options{
		BaseURL:         cfg.CoinGecko.BaseURL,
		APIKey:          cfg.CoinGecko.APIKey,
		RateLimitPerSec: cfg.CoinGecko.RateLimitPerSec,
		RateBurst:       cfg.CoinGecko.RateBurst,
		Timeout:         cfg.CoinGecko.Timeout,
	})

	data := marketdata.NewService(provider, store, reg, marketdata.Options{
		DefaultCurrency: cfg.CoinGecko.VsCurrency,
		HourlyTTL:       cfg.Chart.HourlyTTL,
		DailyTTL:        cfg.Chart.DailyTTL,
		DailyThreshold:  cfg.Chart.DailyThreshold,
	}, log.Named("marketdata"))

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	server, err := api.NewServer(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TemplatesDir: templatesDir,
		MetricsPath:  metricsPath,
		DefaultDays:  cfg.Chart.DefaultDays,
		Ranges:       cfg.Chart.Ranges,
	}, api.Dependencies{
		MarketData: data,
		Symbols:    tradingview.NewResolver(cfg.TradingView),
		Metrics:    reg,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	log.Info("shutting down coinchart server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
