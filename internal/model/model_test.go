package model

import (
	"math"
	"testing"
)

func TestPositionSourceNames(t *testing.T) {
	tests := []struct {
		src  PositionSource
		want string
	}{
		{PositionADSB, "ADSB"},
		{PositionASTERIX, "ASTERIX"},
		{PositionMLAT, "MLAT"},
		{PositionFLARM, "FLARM"},
		{PositionUnknown, "UNKNOWN"},
	}
	for _, tc := range tests {
		if got := tc.src.String(); got != tc.want {
			t.Errorf("PositionSource(%d): expected %s, got %s", tc.src, tc.want, got)
		}
		back, ok := ParsePositionSource(tc.want)
		if !ok || back != tc.src {
			t.Errorf("ParsePositionSource(%s) = %v, %v", tc.want, back, ok)
		}
	}
	if PositionSource(5).Valid() {
		t.Error("code 5 must be invalid")
	}
}

func TestAircraftCategoryRange(t *testing.T) {
	if !AircraftCategory(0).Valid() || !AircraftCategory(20).Valid() {
		t.Error("codes 0 and 20 must be valid")
	}
	if AircraftCategory(21).Valid() || AircraftCategory(-1).Valid() {
		t.Error("codes outside 0..20 must be invalid")
	}
	if AircraftCategory(6).String() != "HEAVY" {
		t.Errorf("unexpected name for 6: %s", AircraftCategory(6))
	}
	if c, ok := ParseAircraftCategory("LINE_OBSTACLE"); !ok || c != 20 {
		t.Errorf("ParseAircraftCategory(LINE_OBSTACLE) = %v, %v", c, ok)
	}
}

func TestDerivedUnits(t *testing.T) {
	alt, vel, vr := 10000.0, 230.5, -5.0
	s := StateVector{ICAO24: "abc123", Altitude: &alt, Velocity: &vel, VerticalRate: &vr}

	if ft, ok := s.AltitudeFeet(); !ok || math.Abs(ft-32808.4) > 1e-6 {
		t.Errorf("AltitudeFeet = %v, %v", ft, ok)
	}
	if kts, ok := s.VelocityKnots(); !ok || math.Abs(kts-230.5*1.94384) > 1e-9 {
		t.Errorf("VelocityKnots = %v, %v", kts, ok)
	}
	if fpm, ok := s.VerticalRateFeetPerMinute(); !ok || math.Abs(fpm+984.25) > 1e-9 {
		t.Errorf("VerticalRateFeetPerMinute = %v, %v", fpm, ok)
	}

	var empty StateVector
	if _, ok := empty.AltitudeFeet(); ok {
		t.Error("nil altitude must report ok=false")
	}
}

func TestPartitionKey(t *testing.T) {
	if got := (TransportRecord{ICAO24: "a1b2c3"}).PartitionKey(); got != "a1b2c3" {
		t.Errorf("expected icao24 key, got %s", got)
	}
	if got := (TransportRecord{}).PartitionKey(); got != PartitionKeyFallback {
		t.Errorf("expected fallback key, got %s", got)
	}
}

func TestDeliveryReport(t *testing.T) {
	var r DeliveryReport
	r.Merge(DeliveryReport{RecordsSubmitted: 500, BatchesAttempted: 1})
	if !r.Delivered() {
		t.Error("expected delivered with no failures")
	}
	r.Merge(DeliveryReport{RecordsSubmitted: 200, BatchesAttempted: 1, BatchesWithFailures: 1, TotalFailedRecords: 3})
	if r.Delivered() {
		t.Error("expected not delivered after failures")
	}
	if r.RecordsSubmitted != 700 || r.BatchesAttempted != 2 || r.TotalFailedRecords != 3 {
		t.Errorf("unexpected merge result: %+v", r)
	}
}
