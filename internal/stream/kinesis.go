package stream

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
)

// KinesisMaxRecords is the PutRecords per-call limit.
const KinesisMaxRecords = 500

// KinesisAPI is the subset of the Kinesis client used by KinesisSink.
type KinesisAPI interface {
	PutRecords(ctx context.Context, params *kinesis.PutRecordsInput, optFns ...func(*kinesis.Options)) (*kinesis.PutRecordsOutput, error)
}

// KinesisSink writes to a Kinesis data stream.
type KinesisSink struct {
	client     KinesisAPI
	streamName string
}

func NewKinesisSink(client KinesisAPI, streamName string) *KinesisSink {
	return &KinesisSink{client: client, streamName: streamName}
}

// NewKinesisSinkFromConfig builds the Kinesis client from an AWS config.
func NewKinesisSinkFromConfig(cfg aws.Config, streamName string) *KinesisSink {
	return NewKinesisSink(kinesis.NewFromConfig(cfg), streamName)
}

func (s *KinesisSink) PutRecords(ctx context.Context, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	if len(entries) > KinesisMaxRecords {
		return 0, fmt.Errorf("kinesis batch of %d exceeds limit %d", len(entries), KinesisMaxRecords)
	}

	records := make([]types.PutRecordsRequestEntry, len(entries))
	for i, e := range entries {
		records[i] = types.PutRecordsRequestEntry{
			Data:         e.Data,
			PartitionKey: aws.String(e.PartitionKey),
		}
	}

	out, err := s.client.PutRecords(ctx, &kinesis.PutRecordsInput{
		StreamName: aws.String(s.streamName),
		Records:    records,
	})
	if err != nil {
		return 0, fmt.Errorf("kinesis put records: %w", err)
	}
	return int(aws.ToInt32(out.FailedRecordCount)), nil
}

func (s *KinesisSink) MaxBatchSize() int { return KinesisMaxRecords }

func (s *KinesisSink) Name() string { return "kinesis:" + s.streamName }

func (s *KinesisSink) Close() error { return nil }
