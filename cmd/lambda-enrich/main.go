package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"opensky-ingest/internal/enrich"
	"opensky-ingest/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}, "opensky-enrich")

	lambda.Start(enrich.New(log, nil).Transform)
}
