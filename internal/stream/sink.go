// Package stream delivers encoded records to a partitioned data stream.
package stream

import "context"

// Entry is one record ready for a batched put.
type Entry struct {
	Data         []byte
	PartitionKey string
}

// Sink is a stream accepting batched puts. PutRecords returns how many of
// the entries were rejected; a non-nil error means the call itself failed.
type Sink interface {
	PutRecords(ctx context.Context, entries []Entry) (failed int, err error)
	// MaxBatchSize is the hard per-call record ceiling.
	MaxBatchSize() int
	Name() string
	Close() error
}
