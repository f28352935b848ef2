// Package app wires configuration into a runnable pipeline.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"opensky-ingest/internal/auth"
	"opensky-ingest/internal/config"
	"opensky-ingest/internal/credentials"
	"opensky-ingest/internal/fetcher"
	"opensky-ingest/internal/metrics"
	"opensky-ingest/internal/pipeline"
	"opensky-ingest/internal/publisher"
	"opensky-ingest/internal/stream"
	"opensky-ingest/internal/transform"
	"opensky-ingest/pkg/logger"
)

// Runtime is one fully wired pipeline. Close releases the stream sink.
type Runtime struct {
	Orchestrator *pipeline.Orchestrator
	Metrics      *metrics.Metrics
	Sink         stream.Sink
}

func (r *Runtime) Close() error {
	if r.Sink == nil {
		return nil
	}
	return r.Sink.Close()
}

// Build constructs every dependency from cfg. AWS configuration is only
// loaded when a Secrets Manager secret or a Kinesis stream is used.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Stream.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Stream.Region))
		}
		c, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return aws.Config{}, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	m := metrics.NewMetrics()

	var store credentials.Store
	if cfg.OpenSky.SecretARN != "" {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		store = credentials.NewSecretsManagerStoreFromConfig(c)
	} else {
		store = credentials.StaticStore{Credentials: credentials.Credentials{
			ClientID:     cfg.OpenSky.ClientID,
			ClientSecret: cfg.OpenSky.ClientSecret,
			Username:     cfg.OpenSky.Username,
			Password:     cfg.OpenSky.Password,
		}}
	}

	var sink stream.Sink
	switch strings.ToLower(cfg.Stream.Provider) {
	case config.ProviderKafka:
		sink = stream.NewKafkaSink(stream.NewKafkaWriter(cfg.Kafka, log), cfg.Kafka.Topic)
	case config.ProviderKinesis:
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		sink = stream.NewKinesisSinkFromConfig(c, cfg.Stream.Name)
	default:
		return nil, fmt.Errorf("unknown stream provider %q", cfg.Stream.Provider)
	}

	orch, err := pipeline.New(pipeline.Dependencies{
		Credentials: store,
		SecretRef:   cfg.OpenSky.SecretARN,
		Tokens:      auth.NewProvider(cfg.OpenSky.TokenURL, cfg.OpenSky.RequestTimeout, log),
		Fetcher:     fetcher.NewOpenSkyClient(cfg.OpenSky.BaseURL, cfg.OpenSky.RequestTimeout, log, m),
		Projector:   transform.NewProjector(transform.OriginCountry(cfg.Filter.OriginCountry)),
		Publisher:   publisher.New(sink, cfg.Stream.Publisher(), log, m),
		Logger:      log,
		Metrics:     m,
	})
	if err != nil {
		_ = sink.Close()
		return nil, err
	}

	log.Debug("Pipeline wired", logger.Fields(
		"sink", sink.Name(),
		"credentials", fmt.Sprintf("%T", store),
		"filter", cfg.Filter.OriginCountry,
	))
	return &Runtime{Orchestrator: orch, Metrics: m, Sink: sink}, nil
}

// RunOnce builds a Runtime from cfg, runs one invocation and releases the
// sink. Wiring errors become a config failure result.
func RunOnce(ctx context.Context, cfg *config.Config, log *logger.Logger) pipeline.Result {
	rt, err := Build(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to build pipeline", logger.ErrorFields(err))
		return pipeline.ConfigFailure(err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("Failed to close sink", logger.ErrorFields(err))
		}
	}()
	return rt.Orchestrator.Run(ctx)
}
