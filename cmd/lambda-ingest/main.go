package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"opensky-ingest/internal/app"
	"opensky-ingest/internal/config"
	"opensky-ingest/internal/pipeline"
	"opensky-ingest/pkg/logger"
)

// handler runs one ingestion cycle. The trigger payload is ignored.
func handler(ctx context.Context, _ json.RawMessage) (pipeline.Result, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"), "")
	if err != nil {
		log := logger.New(logger.Config{}, "opensky-ingest")
		log.Error("Failed to load configuration", logger.ErrorFields(err))
		return pipeline.ConfigFailure(err), nil
	}

	log := logger.New(cfg.Logging, "opensky-ingest")
	return app.RunOnce(ctx, cfg, log), nil
}

func main() {
	lambda.Start(handler)
}
