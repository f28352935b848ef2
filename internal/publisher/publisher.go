// Package publisher splits transport records into bounded batches and
// delivers them to a stream sink.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"opensky-ingest/internal/metrics"
	"opensky-ingest/internal/model"
	"opensky-ingest/internal/stream"
	"opensky-ingest/pkg/logger"
)

// DefaultBatchSize matches the Kinesis PutRecords ceiling.
const DefaultBatchSize = 500

// Config controls batching and dispatch.
type Config struct {
	BatchSize        int     `yaml:"batch_size"`
	Concurrency      int     `yaml:"concurrency"`
	BatchesPerSecond float64 `yaml:"batches_per_second"`
}

// Publisher delivers records in batches. It keeps no state between calls.
type Publisher struct {
	sink        stream.Sink
	batchSize   int
	concurrency int
	limiter     *RateLimiter
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// New creates a Publisher. The batch size is clamped to the sink's limit.
func New(sink stream.Sink, cfg Config, log *logger.Logger, m *metrics.Metrics) *Publisher {
	size := cfg.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	if limit := sink.MaxBatchSize(); limit > 0 && size > limit {
		size = limit
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	p := &Publisher{
		sink:        sink,
		batchSize:   size,
		concurrency: concurrency,
		limiter:     NewRateLimiter(cfg.BatchesPerSecond, concurrency),
		logger:      log.WithComponent("publisher"),
		metrics:     m,
	}
	bps, burst := p.limiter.GetLimit()
	p.logger.Debug("Publisher configured", logger.Fields(
		"sink", sink.Name(),
		"batch_size", size,
		"concurrency", concurrency,
		"batches_per_second", bps,
		"burst", burst,
	))
	return p
}

// BatchSize returns the effective per-call record limit.
func (p *Publisher) BatchSize() int { return p.batchSize }

// Publish sends every record exactly once. Batch failures are counted in
// the returned report and never stop the remaining batches.
func (p *Publisher) Publish(ctx context.Context, records []model.TransportRecord) model.DeliveryReport {
	report := model.DeliveryReport{RecordsSubmitted: len(records)}
	if len(records) == 0 {
		return report
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.concurrency)

	throttledBefore := p.limiter.Waited()
	batches := split(records, p.batchSize)
	for i, batch := range batches {
		i, batch := i, batch
		if err := p.limiter.Wait(ctx); err != nil {
			mu.Lock()
			report.Merge(failedBatch(len(batch)))
			mu.Unlock()
			p.logger.Error("Batch dispatch cancelled", logger.Fields("batch", i, "size", len(batch), logger.FieldError, err.Error()))
			continue
		}

		g.Go(func() error {
			br := p.deliver(ctx, i, batch)
			mu.Lock()
			report.Merge(br)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	level := p.logger.Info
	if !report.Delivered() {
		level = p.logger.Warn
	}
	level("Publish complete", logger.Fields(
		"sink", p.sink.Name(),
		"records", report.RecordsSubmitted,
		"batches", report.BatchesAttempted,
		"batches_with_failures", report.BatchesWithFailures,
		"failed_records", report.TotalFailedRecords,
		"throttled_batches", p.limiter.Waited()-throttledBefore,
	))
	return report
}

// deliver sends one batch. Records that cannot be encoded count as failed,
// and a sink that panics fails the whole batch.
func (p *Publisher) deliver(ctx context.Context, index int, batch []model.TransportRecord) (br model.DeliveryReport) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Batch delivery panicked", logger.Fields(
				"batch", index,
				"size", len(batch),
				"panic", fmt.Sprint(r),
			))
			if p.metrics != nil {
				p.metrics.RecordBatch(len(batch), len(batch))
			}
			br = failedBatch(len(batch))
		}
	}()

	entries := make([]stream.Entry, 0, len(batch))
	unencodable := 0
	for _, rec := range batch {
		data, err := json.Marshal(rec)
		if err != nil {
			unencodable++
			p.logger.Warn("Dropping unencodable record", logger.Fields("icao24", rec.ICAO24, logger.FieldError, err.Error()))
			continue
		}
		entries = append(entries, stream.Entry{Data: data, PartitionKey: rec.PartitionKey()})
	}

	start := time.Now()
	failed, err := p.sink.PutRecords(ctx, entries)
	if err != nil {
		p.logger.Error("Batch delivery failed", logger.Fields(
			"batch", index,
			"size", len(batch),
			logger.FieldError, err.Error(),
		))
		failed = len(entries)
	}
	failed += unencodable
	if failed > len(batch) {
		failed = len(batch)
	}

	if p.metrics != nil {
		p.metrics.RecordBatch(len(batch), failed)
	}
	p.logger.Debug("Batch delivered", logger.Fields(
		"batch", index,
		"size", len(batch),
		"failed", failed,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))

	br = model.DeliveryReport{BatchesAttempted: 1, TotalFailedRecords: failed}
	if failed > 0 {
		br.BatchesWithFailures = 1
	}
	return br
}

func failedBatch(size int) model.DeliveryReport {
	return model.DeliveryReport{BatchesAttempted: 1, BatchesWithFailures: 1, TotalFailedRecords: size}
}

// split partitions records into consecutive batches of at most size.
func split(records []model.TransportRecord, size int) [][]model.TransportRecord {
	batches := make([][]model.TransportRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}
