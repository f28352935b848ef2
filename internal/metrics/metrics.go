package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics collects counters for one ingestion run
type Metrics struct {
	// State metrics
	statesFetched   atomic.Int64
	decodeFailures  atomic.Int64
	recordsFiltered atomic.Int64

	// Delivery metrics
	recordsPublished atomic.Int64
	failedRecords    atomic.Int64
	batchesAttempted atomic.Int64
	batchesFailed    atomic.Int64

	// API metrics
	apiRequests     atomic.Int64
	apiErrors       atomic.Int64
	apiLatencySum   atomic.Int64
	apiLatencyCount atomic.Int64

	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// State metrics methods

func (m *Metrics) AddStatesFetched(n int) {
	m.statesFetched.Add(int64(n))
}

func (m *Metrics) IncrementDecodeFailures() {
	m.decodeFailures.Add(1)
}

func (m *Metrics) AddRecordsFiltered(n int) {
	m.recordsFiltered.Add(int64(n))
}

// Delivery metrics methods

func (m *Metrics) RecordBatch(size, failed int) {
	m.batchesAttempted.Add(1)
	m.recordsPublished.Add(int64(size - failed))
	if failed > 0 {
		m.batchesFailed.Add(1)
		m.failedRecords.Add(int64(failed))
	}
}

// API metrics methods

func (m *Metrics) IncrementAPIRequests() {
	m.apiRequests.Add(1)
}

func (m *Metrics) IncrementAPIErrors() {
	m.apiErrors.Add(1)
}

func (m *Metrics) RecordAPILatency(latencyMs int64) {
	m.apiLatencySum.Add(latencyMs)
	m.apiLatencyCount.Add(1)
}

func (m *Metrics) GetAPIAverageLatency() float64 {
	count := m.apiLatencyCount.Load()
	if count == 0 {
		return 0
	}
	return float64(m.apiLatencySum.Load()) / float64(count)
}

// Snapshot represents a point-in-time snapshot of all metrics
type Snapshot struct {
	StatesFetched   int64 `json:"states_fetched"`
	DecodeFailures  int64 `json:"decode_failures"`
	RecordsFiltered int64 `json:"records_filtered"`

	RecordsPublished int64 `json:"records_published"`
	FailedRecords    int64 `json:"failed_records"`
	BatchesAttempted int64 `json:"batches_attempted"`
	BatchesFailed    int64 `json:"batches_failed"`

	APIRequests   int64   `json:"api_requests"`
	APIErrors     int64   `json:"api_errors"`
	APIAvgLatency float64 `json:"api_avg_latency_ms"`

	ElapsedMs int64 `json:"elapsed_ms"`
}

// GetSnapshot returns a snapshot of all current metrics
func (m *Metrics) GetSnapshot() Snapshot {
	return Snapshot{
		StatesFetched:    m.statesFetched.Load(),
		DecodeFailures:   m.decodeFailures.Load(),
		RecordsFiltered:  m.recordsFiltered.Load(),
		RecordsPublished: m.recordsPublished.Load(),
		FailedRecords:    m.failedRecords.Load(),
		BatchesAttempted: m.batchesAttempted.Load(),
		BatchesFailed:    m.batchesFailed.Load(),
		APIRequests:      m.apiRequests.Load(),
		APIErrors:        m.apiErrors.Load(),
		APIAvgLatency:    m.GetAPIAverageLatency(),
		ElapsedMs:        time.Since(m.startTime).Milliseconds(),
	}
}

// Fields flattens the snapshot for structured logging
func (s Snapshot) Fields() map[string]interface{} {
	return map[string]interface{}{
		"states_fetched":     s.StatesFetched,
		"decode_failures":    s.DecodeFailures,
		"records_filtered":   s.RecordsFiltered,
		"records_published":  s.RecordsPublished,
		"failed_records":     s.FailedRecords,
		"batches_attempted":  s.BatchesAttempted,
		"batches_failed":     s.BatchesFailed,
		"api_requests":       s.APIRequests,
		"api_errors":         s.APIErrors,
		"api_avg_latency_ms": s.APIAvgLatency,
		"elapsed_ms":         s.ElapsedMs,
	}
}
