// Package transform filters decoded state vectors and maps them to the
// flat record shape delivered to the stream.
package transform

import (
	"strings"

	"opensky-ingest/internal/model"
	"opensky-ingest/pkg/utils"
)

// Predicate decides whether a state vector is kept.
type Predicate func(model.StateVector) bool

// All keeps every state vector.
func All() Predicate {
	return func(model.StateVector) bool { return true }
}

// OriginCountry keeps state vectors whose origin country equals target.
// An empty target keeps everything.
func OriginCountry(target string) Predicate {
	target = strings.TrimSpace(target)
	if target == "" {
		return All()
	}
	return func(sv model.StateVector) bool {
		return sv.OriginCountry != nil && *sv.OriginCountry == target
	}
}

// Projector applies a Predicate and converts the kept vectors.
type Projector struct {
	keep Predicate
}

func NewProjector(keep Predicate) *Projector {
	if keep == nil {
		keep = All()
	}
	return &Projector{keep: keep}
}

// Project is filter-then-map. Input order is preserved.
func (p *Projector) Project(states []model.StateVector) []model.TransportRecord {
	records := make([]model.TransportRecord, 0, len(states))
	for _, sv := range states {
		if !p.keep(sv) {
			continue
		}
		records = append(records, ToTransportRecord(sv))
	}
	return records
}

// ToTransportRecord copies sv field by field, rendering timestamps as
// RFC3339 strings and enumerations as their names.
func ToTransportRecord(sv model.StateVector) model.TransportRecord {
	rec := model.TransportRecord{
		ICAO24:        sv.ICAO24,
		Callsign:      sv.Callsign,
		OriginCountry: sv.OriginCountry,
		TimePosition:  utils.FormatISO8601Ptr(sv.TimePosition),
		LastContact:   utils.FormatISO8601Ptr(sv.LastContact),
		Longitude:     sv.Longitude,
		Latitude:      sv.Latitude,
		Altitude:      sv.Altitude,
		OnGround:      sv.OnGround,
		Velocity:      sv.Velocity,
		Heading:       sv.Heading,
		VerticalRate:  sv.VerticalRate,
		GeoAltitude:   sv.GeoAltitude,
		Squawk:        sv.Squawk,
		SPI:           sv.SPI,
	}
	if len(sv.Sensors) > 0 {
		rec.Sensors = append([]int(nil), sv.Sensors...)
	}
	if sv.PositionSource != nil {
		name := sv.PositionSource.String()
		rec.PositionSource = &name
	}
	if sv.Category != nil {
		name := sv.Category.String()
		rec.Category = &name
	}
	return rec
}
