package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"opensky-ingest/internal/app"
	"opensky-ingest/internal/config"
	"opensky-ingest/pkg/logger"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one fetch, transform and publish cycle",
		Long: `Run one ingestion cycle:
- read OpenSky credentials (Secrets Manager or static config)
- obtain an access token and fetch all state vectors
- filter and normalize them
- publish the records to Kinesis or Kafka in bounded batches

The invocation result is printed as JSON. The command exits non-zero
unless every record was delivered.`,
		RunE: runIngest,
	}

	cmd.Flags().Duration("timeout", 2*time.Minute, "Upper bound for the whole cycle")
	cmd.Flags().String("country", "", "Keep only this origin country (overrides config)")

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(path, envFile)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("country") {
		cfg.Filter.OriginCountry, _ = cmd.Flags().GetString("country")
	}
	log := logger.New(cfg.Logging, "opensky-ingest")

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := app.RunOnce(ctx, cfg, log)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !res.Succeeded() {
		return fmt.Errorf("ingestion finished with status %d (%s)", res.StatusCode, res.Outcome)
	}
	return nil
}
