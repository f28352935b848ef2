// Package enrich implements the Firehose transformation that projects
// delivered state records into their enriched downstream form.
package enrich

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"opensky-ingest/internal/model"
	"opensky-ingest/pkg/logger"
	"opensky-ingest/pkg/utils"
)

// Record is the enriched payload re-emitted for each kept record.
type Record struct {
	ICAO24        string   `json:"icao24"`
	Callsign      *string  `json:"callsign"`
	OriginCountry *string  `json:"origin_country"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Altitude      *float64 `json:"altitude"`
	Velocity      *float64 `json:"velocity"`
	Heading       *float64 `json:"heading"`
	LastContact   *string  `json:"last_contact"`
	EventTime     string   `json:"event_time"`
	Location      string   `json:"location"`
}

// Enricher converts Firehose batches. The zero value is not usable; use New.
type Enricher struct {
	logger *logger.Logger
	now    func() time.Time
}

func New(log *logger.Logger, now func() time.Time) *Enricher {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Enricher{logger: log.WithComponent("enrich"), now: now}
}

// Transform handles one Firehose transformation invocation. Records without
// a position are dropped; records that are not valid JSON fail processing.
func (e *Enricher) Transform(_ context.Context, event events.KinesisFirehoseEvent) (events.KinesisFirehoseResponse, error) {
	resp := events.KinesisFirehoseResponse{
		Records: make([]events.KinesisFirehoseResponseRecord, 0, len(event.Records)),
	}
	var ok, dropped, failed int

	for _, rec := range event.Records {
		out := e.transformRecord(rec)
		switch out.Result {
		case events.KinesisFirehoseTransformedStateOk:
			ok++
		case events.KinesisFirehoseTransformedStateDropped:
			dropped++
		default:
			failed++
		}
		resp.Records = append(resp.Records, out)
	}

	if len(resp.Records) == 0 {
		e.logger.Info("No records to send to output stream")
		return resp, nil
	}
	e.logger.Info("Enrichment complete", logger.Fields(
		"invocation", event.InvocationID,
		"records", len(resp.Records),
		"ok", ok,
		"dropped", dropped,
		"failed", failed,
	))
	return resp, nil
}

func (e *Enricher) transformRecord(rec events.KinesisFirehoseEventRecord) events.KinesisFirehoseResponseRecord {
	out := events.KinesisFirehoseResponseRecord{RecordID: rec.RecordID}

	var src model.TransportRecord
	if err := json.Unmarshal(rec.Data, &src); err != nil {
		e.logger.Warn("Undecodable record", logger.Fields("record_id", rec.RecordID, logger.FieldError, err.Error()))
		out.Result = events.KinesisFirehoseTransformedStateProcessingFailed
		out.Data = rec.Data
		return out
	}

	enriched, keep := Project(src, e.now())
	if !keep {
		out.Result = events.KinesisFirehoseTransformedStateDropped
		return out
	}

	data, err := json.Marshal(enriched)
	if err != nil {
		out.Result = events.KinesisFirehoseTransformedStateProcessingFailed
		out.Data = rec.Data
		return out
	}
	out.Result = events.KinesisFirehoseTransformedStateOk
	out.Data = data
	return out
}

// Project derives the enriched record. It reports false when the source
// has no latitude or longitude.
func Project(src model.TransportRecord, processedAt time.Time) (Record, bool) {
	if src.Latitude == nil || src.Longitude == nil {
		return Record{}, false
	}
	lat, lon := *src.Latitude, *src.Longitude
	return Record{
		ICAO24:        src.ICAO24,
		Callsign:      src.Callsign,
		OriginCountry: src.OriginCountry,
		Latitude:      lat,
		Longitude:     lon,
		Altitude:      src.Altitude,
		Velocity:      src.Velocity,
		Heading:       src.Heading,
		LastContact:   src.LastContact,
		EventTime:     utils.NowISO8601(func() time.Time { return processedAt }),
		Location:      formatCoord(lat) + "," + formatCoord(lon),
	}, true
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
