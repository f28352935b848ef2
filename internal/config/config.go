package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"opensky-ingest/internal/apperr"
	"opensky-ingest/internal/preflight"
	"opensky-ingest/internal/publisher"
	"opensky-ingest/internal/stream"
	"opensky-ingest/pkg/logger"
)

const (
	ProviderKinesis = "kinesis"
	ProviderKafka   = "kafka"
)

type Config struct {
	OpenSky   OpenSkyConfig      `yaml:"opensky"`
	Filter    FilterConfig       `yaml:"filter"`
	Stream    StreamConfig       `yaml:"stream"`
	Kafka     stream.KafkaConfig `yaml:"kafka"`
	Logging   logger.Config      `yaml:"logging"`
	Preflight PreflightConfig    `yaml:"preflight"`
}

type OpenSkyConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TokenURL       string        `yaml:"token_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// SecretARN points at a Secrets Manager secret holding the credentials.
	// When empty the static credentials below are used.
	SecretARN    string `yaml:"secret_arn"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
}

type FilterConfig struct {
	// OriginCountry keeps only records from this country; empty keeps all.
	OriginCountry string `yaml:"origin_country"`
}

type StreamConfig struct {
	Provider         string  `yaml:"provider"` // "kinesis" or "kafka"
	Name             string  `yaml:"name"`     // Kinesis stream name
	Region           string  `yaml:"region"`
	BatchSize        int     `yaml:"batch_size"`
	Concurrency      int     `yaml:"concurrency"`
	BatchesPerSecond float64 `yaml:"batches_per_second"`
}

// Publisher returns the batching settings for the publisher.
func (s StreamConfig) Publisher() publisher.Config {
	return publisher.Config{
		BatchSize:        s.BatchSize,
		Concurrency:      s.Concurrency,
		BatchesPerSecond: s.BatchesPerSecond,
	}
}

type PreflightConfig struct {
	Targets []string      `yaml:"targets"`
	Timeout time.Duration `yaml:"timeout"`
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and the process environment, in that order.
func Load(configPath, envFile string) (*Config, error) {
	config := &Config{}

	// Set defaults
	config.setDefaults()

	// Load from file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, configError("failed to read config file", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, configError("failed to parse config file", err)
		}
	}

	// Variables already set in the environment win over the .env file
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, configError("failed to load env file", err)
		}
	}

	// Override with environment variables
	if err := config.loadFromEnv(); err != nil {
		return nil, configError("invalid environment", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, configError("invalid configuration", err)
	}

	return config, nil
}

func configError(msg string, err error) error {
	return apperr.Wrap(apperr.CodeConfigInvalid, msg, err)
}

func (c *Config) setDefaults() {
	c.OpenSky.BaseURL = "https://opensky-network.org/api"
	c.OpenSky.TokenURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"
	c.OpenSky.RequestTimeout = 30 * time.Second

	c.Stream.Provider = ProviderKinesis
	c.Stream.BatchSize = publisher.DefaultBatchSize
	c.Stream.Concurrency = 1

	c.Kafka.RequiredAcks = -1
	c.Kafka.WriteTimeout = 10 * time.Second

	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"

	c.Preflight.Timeout = 5 * time.Second
	c.Preflight.Targets = append([]string(nil), preflight.DefaultTargets...)
}

func (c *Config) loadFromEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error

	setString("OPENSKY_BASE_URL", &c.OpenSky.BaseURL)
	setString("OPENSKY_TOKEN_URL", &c.OpenSky.TokenURL)
	setString("OPENSKY_SECRET_ARN", &c.OpenSky.SecretARN)
	setString("OPENSKY_CLIENT_ID", &c.OpenSky.ClientID)
	setString("OPENSKY_CLIENT_SECRET", &c.OpenSky.ClientSecret)
	setString("OPENSKY_USERNAME", &c.OpenSky.Username)
	setString("OPENSKY_PASSWORD", &c.OpenSky.Password)

	if timeout := os.Getenv("OPENSKY_REQUEST_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("OPENSKY_REQUEST_TIMEOUT: %w", err))
		} else {
			c.OpenSky.RequestTimeout = d
		}
	}

	// An explicitly empty value turns the filter off.
	if country, ok := os.LookupEnv("FILTER_ORIGIN_COUNTRY"); ok {
		c.Filter.OriginCountry = country
	}

	setString("STREAM_PROVIDER", &c.Stream.Provider)
	setString("KINESIS_STREAM", &c.Stream.Name)
	setString("AWS_REGION", &c.Stream.Region)

	if size := os.Getenv("STREAM_BATCH_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err != nil {
			errs = append(errs, fmt.Errorf("STREAM_BATCH_SIZE: %w", err))
		} else {
			c.Stream.BatchSize = n
		}
	}

	if concurrency := os.Getenv("STREAM_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err != nil {
			errs = append(errs, fmt.Errorf("STREAM_CONCURRENCY: %w", err))
		} else {
			c.Stream.Concurrency = n
		}
	}

	if bps := os.Getenv("STREAM_BATCHES_PER_SECOND"); bps != "" {
		if f, err := strconv.ParseFloat(bps, 64); err != nil {
			errs = append(errs, fmt.Errorf("STREAM_BATCHES_PER_SECOND: %w", err))
		} else {
			c.Stream.BatchesPerSecond = f
		}
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	setString("KAFKA_TOPIC", &c.Kafka.Topic)

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)

	return errors.Join(errs...)
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.OpenSky.BaseURL == "" {
		errs = append(errs, fmt.Errorf("opensky base URL cannot be empty"))
	}

	if c.OpenSky.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("opensky request timeout must be positive"))
	}

	if c.OpenSky.SecretARN == "" && !c.HasStaticCredentials() {
		errs = append(errs, fmt.Errorf("either opensky secret_arn or static credentials must be set"))
	}

	switch strings.ToLower(c.Stream.Provider) {
	case ProviderKinesis:
		if c.Stream.Name == "" {
			errs = append(errs, fmt.Errorf("stream name is required for kinesis"))
		}
		if c.Stream.BatchSize > stream.KinesisMaxRecords {
			errs = append(errs, fmt.Errorf("stream batch size must not exceed %d", stream.KinesisMaxRecords))
		}
	case ProviderKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, fmt.Errorf("kafka brokers are required"))
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, fmt.Errorf("kafka topic is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("stream provider must be 'kinesis' or 'kafka'"))
	}

	if c.Stream.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("stream batch size must be at least 1"))
	}

	if c.Stream.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("stream concurrency must be at least 1"))
	}

	if c.Stream.BatchesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("stream batches per second cannot be negative"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log level must be 'debug', 'info', 'warn', or 'error'"))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log format must be 'json' or 'console'"))
	}

	return errors.Join(errs...)
}

// HasStaticCredentials reports whether credentials are configured inline.
func (c *Config) HasStaticCredentials() bool {
	o := c.OpenSky
	return (o.ClientID != "" && o.ClientSecret != "") || (o.Username != "" && o.Password != "")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
