package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"opensky-ingest/internal/preflight"
	"opensky-ingest/pkg/logger"
)

func preflightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check DNS and TCP reachability of the upstream endpoints",
		Long: `Resolves and connects to each target host:port. Targets come from
--target, then the preflight section of --config, then the OpenSky defaults.
Exits non-zero when any target is unreachable.`,
		RunE: runPreflight,
	}

	cmd.Flags().StringSlice("target", nil, "host:port to probe (repeatable)")
	cmd.Flags().Duration("timeout", 0, "Per-target timeout (default from config, 5s)")

	return cmd
}

func runPreflight(cmd *cobra.Command, args []string) error {
	targets := preflight.DefaultTargets
	timeout := 5 * time.Second
	log := logger.New(logger.Config{Level: "warn", Output: "stderr"}, "opensky-ingest")

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		targets, timeout = cfg.Preflight.Targets, cfg.Preflight.Timeout
		log = logger.New(cfg.Logging, "opensky-ingest")
	}
	if flagTargets, _ := cmd.Flags().GetStringSlice("target"); len(flagTargets) > 0 {
		targets = flagTargets
	}
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	results := preflight.NewChecker(timeout, log).Run(cmd.Context(), targets)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tSTATUS\tADDRESSES\tLATENCY")
	for _, r := range results {
		status := "OK"
		if !r.OK() {
			status = "FAILED: " + r.Err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Target, status, strings.Join(r.Addresses, ","), r.Latency.Round(time.Millisecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !preflight.Healthy(results) {
		return fmt.Errorf("preflight failed")
	}
	return nil
}
