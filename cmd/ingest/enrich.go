package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/spf13/cobra"

	"opensky-ingest/internal/enrich"
	"opensky-ingest/pkg/logger"
)

func enrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich [event.json]",
		Short: "Apply the Firehose enrichment transform to an event file",
		Long: `Reads a Kinesis Firehose transformation event (JSON, from a file or
stdin when the argument is "-" or omitted) and writes the transformation
response to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEnrich,
	}

	cmd.Flags().String("log-level", "warn", "Log level for the transform")

	return cmd
}

func runEnrich(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open event: %w", err)
		}
		defer f.Close()
		in = f
	}

	var event events.KinesisFirehoseEvent
	if err := json.NewDecoder(in).Decode(&event); err != nil {
		return fmt.Errorf("decode firehose event: %w", err)
	}

	level, _ := cmd.Flags().GetString("log-level")
	log := logger.New(logger.Config{Level: level, Output: "stderr"}, "opensky-enrich")

	resp, err := enrich.New(log, nil).Transform(cmd.Context(), event)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
