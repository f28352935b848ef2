package model

// TransportRecord is the flat JSON payload handed to the stream.
// Timestamps are RFC3339 strings in UTC; enumerations are their names.
type TransportRecord struct {
	ICAO24         string   `json:"icao24"`
	Callsign       *string  `json:"callsign"`
	OriginCountry  *string  `json:"origin_country"`
	TimePosition   *string  `json:"time_position"`
	LastContact    *string  `json:"last_contact"`
	Longitude      *float64 `json:"longitude"`
	Latitude       *float64 `json:"latitude"`
	Altitude       *float64 `json:"altitude"`
	OnGround       *bool    `json:"on_ground"`
	Velocity       *float64 `json:"velocity"`
	Heading        *float64 `json:"heading"`
	VerticalRate   *float64 `json:"vertical_rate"`
	Sensors        []int    `json:"sensors"`
	GeoAltitude    *float64 `json:"geo_altitude"`
	Squawk         *string  `json:"squawk"`
	SPI            *bool    `json:"spi"`
	PositionSource *string  `json:"position_source"`
	Category       *string  `json:"category,omitempty"`
}

// PartitionKeyFallback is used when a record has no icao24.
const PartitionKeyFallback = "unknown"

// PartitionKey returns the stream partition key for the record.
func (r TransportRecord) PartitionKey() string {
	if r.ICAO24 == "" {
		return PartitionKeyFallback
	}
	return r.ICAO24
}

// OpenSkyResponse is the body of GET /states/all.
type OpenSkyResponse struct {
	Time   int64   `json:"time"`
	States [][]any `json:"states"`
}

// DeliveryReport aggregates the outcome of one Publish call.
type DeliveryReport struct {
	RecordsSubmitted    int `json:"records_submitted"`
	BatchesAttempted    int `json:"batches_attempted"`
	BatchesWithFailures int `json:"batches_with_failures"`
	TotalFailedRecords  int `json:"total_failed_records"`
}

// Delivered reports whether every batch was accepted with zero failed records.
func (r DeliveryReport) Delivered() bool {
	return r.BatchesWithFailures == 0 && r.TotalFailedRecords == 0
}

// Merge adds other's counts into r.
func (r *DeliveryReport) Merge(other DeliveryReport) {
	r.RecordsSubmitted += other.RecordsSubmitted
	r.BatchesAttempted += other.BatchesAttempted
	r.BatchesWithFailures += other.BatchesWithFailures
	r.TotalFailedRecords += other.TotalFailedRecords
}
