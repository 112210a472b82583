package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Sentinel/internal/di"
	"Sentinel/pkg/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Futures market sentinel",
	Long: `Sentinel polls futures market indicators for one symbol, scores them on a fixed
cadence and publishes a LONG, SHORT or WAIT recommendation with advisory signals.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pollers, the analysis cycle and the read API",
	RunE:  runServe,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Fetch every indicator once, run one analysis and print it as JSON",
	Long: `Fetch every indicator once, run one analysis cycle and print the result.
The result is also delivered to the configured sinks.

Example:
  sentinel once --config config/config.yaml | jq .action`,
	RunE: runOnce,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, onceCmd)
}

func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(configPath); err != nil && os.IsNotExist(err) {
		// fall back to defaults plus environment
		configPath = ""
	}
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	return app.Run()
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the result
	if cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := app.RunOnce(ctx)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(res); encErr != nil {
		return encErr
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
