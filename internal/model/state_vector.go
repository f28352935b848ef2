package model

import (
	"fmt"
	"time"
)

// PositionSource identifies how a state vector's position was obtained.
type PositionSource int

const (
	PositionADSB PositionSource = iota
	PositionASTERIX
	PositionMLAT
	PositionFLARM
	PositionUnknown
)

var positionSourceNames = [...]string{"ADSB", "ASTERIX", "MLAT", "FLARM", "UNKNOWN"}

func (p PositionSource) String() string {
	if p.Valid() {
		return positionSourceNames[p]
	}
	return fmt.Sprintf("PositionSource(%d)", int(p))
}

func (p PositionSource) Valid() bool {
	return p >= PositionADSB && p <= PositionUnknown
}

// ParsePositionSource maps a name produced by String back to its code.
func ParsePositionSource(name string) (PositionSource, bool) {
	for i, n := range positionSourceNames {
		if n == name {
			return PositionSource(i), true
		}
	}
	return 0, false
}

// AircraftCategory is the emitter category reported by extended responses.
type AircraftCategory int

var aircraftCategoryNames = [...]string{
	"NO_INFO", "NO_CATEGORY", "LIGHT", "SMALL", "LARGE", "HIGH_VORTEX_LARGE",
	"HEAVY", "HIGH_PERFORMANCE", "ROTORCRAFT", "GLIDER", "LIGHTER_THAN_AIR",
	"PARACHUTIST", "ULTRALIGHT", "RESERVED", "UAV", "SPACE",
	"SURFACE_EMERGENCY", "SURFACE_SERVICE", "POINT_OBSTACLE",
	"CLUSTER_OBSTACLE", "LINE_OBSTACLE",
}

func (c AircraftCategory) String() string {
	if c.Valid() {
		return aircraftCategoryNames[c]
	}
	return fmt.Sprintf("AircraftCategory(%d)", int(c))
}

func (c AircraftCategory) Valid() bool {
	return c >= 0 && int(c) < len(aircraftCategoryNames)
}

// ParseAircraftCategory maps a name produced by String back to its code.
func ParseAircraftCategory(name string) (AircraftCategory, bool) {
	for i, n := range aircraftCategoryNames {
		if n == name {
			return AircraftCategory(i), true
		}
	}
	return 0, false
}

// StateVector is one aircraft's position and kinematics snapshot.
// Every field except ICAO24 is optional; nil means the API reported null.
type StateVector struct {
	ICAO24         string
	Callsign       *string
	OriginCountry  *string
	TimePosition   *time.Time
	LastContact    *time.Time
	Longitude      *float64
	Latitude       *float64
	Altitude       *float64 // barometric, meters
	OnGround       *bool
	Velocity       *float64 // m/s
	Heading        *float64 // degrees, clockwise from north
	VerticalRate   *float64 // m/s
	Sensors        []int
	GeoAltitude    *float64 // geometric, meters
	Squawk         *string
	SPI            *bool
	PositionSource *PositionSource
	Category       *AircraftCategory
}

const (
	feetPerMeter           = 3.28084
	knotsPerMeterPerSecond = 1.94384
	fpmPerMeterPerSecond   = 196.85
)

// AltitudeFeet returns the barometric altitude in feet.
func (s StateVector) AltitudeFeet() (float64, bool) {
	return scaled(s.Altitude, feetPerMeter)
}

// VelocityKnots returns the ground speed in knots.
func (s StateVector) VelocityKnots() (float64, bool) {
	return scaled(s.Velocity, knotsPerMeterPerSecond)
}

// VerticalRateFeetPerMinute returns the vertical rate in ft/min.
func (s StateVector) VerticalRateFeetPerMinute() (float64, bool) {
	return scaled(s.VerticalRate, fpmPerMeterPerSecond)
}

func scaled(v *float64, factor float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v * factor, true
}
