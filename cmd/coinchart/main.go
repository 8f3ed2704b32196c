package main

import (
	"fmt"
	"os"

	"github.com/newthinker/coinchart/internal/config"
	"github.com/newthinker/coinchart/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "coinchart",
	Short: "coinchart - coin detail price charts",
	Long: `coinchart serves coin detail pages backed by CoinGecko market data and
renders their price chart headlessly, either as a TradingView widget embed or
as a local PNG line chart.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads --config, or the defaults when it is not set
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// fileLogger rebuilds the logger once the log file settings are known
func fileLogger(cfg *config.Config, fallback *zap.Logger) *zap.Logger {
	if cfg.Log.File == "" {
		return fallback
	}
	log, err := logger.NewWithFile(debug, logger.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fallback.Warn("log file unavailable, logging to stderr only", zap.Error(err))
		return fallback
	}
	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
