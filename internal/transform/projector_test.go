package transform

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"opensky-ingest/internal/model"
)

func strp(s string) *string   { return &s }
func f64p(f float64) *float64 { return &f }
func boolp(b bool) *bool      { return &b }
func timep(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

func vector(icao, country string) model.StateVector {
	src := model.PositionMLAT
	cat := model.AircraftCategory(6)
	return model.StateVector{
		ICAO24:         icao,
		Callsign:       strp("TST" + icao),
		OriginCountry:  strp(country),
		TimePosition:   timep(1700000000),
		LastContact:    timep(1700000005),
		Longitude:      f64p(-46.6),
		Latitude:       f64p(-23.5),
		Altitude:       f64p(3000),
		OnGround:       boolp(false),
		Velocity:       f64p(120.5),
		Heading:        f64p(45),
		VerticalRate:   f64p(-1.5),
		Sensors:        []int{7, 9},
		GeoAltitude:    f64p(3100),
		Squawk:         strp("7000"),
		SPI:            boolp(false),
		PositionSource: &src,
		Category:       &cat,
	}
}

func TestProjectFiltersThenMaps(t *testing.T) {
	states := []model.StateVector{
		vector("a1", "Brazil"),
		vector("a2", "United States"),
		{ICAO24: "a3"},
		vector("a4", "Brazil"),
	}

	got := NewProjector(OriginCountry("Brazil")).Project(states)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	for i, want := range []string{"a1", "a4"} {
		if got[i].ICAO24 != want {
			t.Errorf("record %d: expected %s, got %s", i, want, got[i].ICAO24)
		}
		if got[i].OriginCountry == nil || *got[i].OriginCountry != "Brazil" {
			t.Errorf("record %d: origin country not filtered: %v", i, got[i].OriginCountry)
		}
	}
}

func TestProjectWithoutFilter(t *testing.T) {
	states := []model.StateVector{vector("a1", "Brazil"), {ICAO24: "a2"}}

	for name, p := range map[string]*Projector{
		"empty target": NewProjector(OriginCountry("  ")),
		"nil":          NewProjector(nil),
	} {
		t.Run(name, func(t *testing.T) {
			if got := p.Project(states); len(got) != len(states) {
				t.Errorf("expected %d records, got %d", len(states), len(got))
			}
		})
	}

	if got := NewProjector(nil).Project(nil); len(got) != 0 {
		t.Errorf("expected empty output for empty input, got %d", len(got))
	}
}

func TestToTransportRecordNormalizes(t *testing.T) {
	rec := ToTransportRecord(vector("abc123", "Brazil"))

	if rec.TimePosition == nil || *rec.TimePosition != "2023-11-14T22:13:20Z" {
		t.Errorf("unexpected time_position: %v", rec.TimePosition)
	}
	if rec.LastContact == nil || *rec.LastContact != "2023-11-14T22:13:25Z" {
		t.Errorf("unexpected last_contact: %v", rec.LastContact)
	}
	if rec.PositionSource == nil || *rec.PositionSource != "MLAT" {
		t.Errorf("unexpected position_source: %v", rec.PositionSource)
	}
	if rec.Category == nil || *rec.Category != "HEAVY" {
		t.Errorf("unexpected category: %v", rec.Category)
	}

	empty := ToTransportRecord(model.StateVector{ICAO24: "x"})
	if empty.TimePosition != nil || empty.PositionSource != nil || empty.Sensors != nil {
		t.Errorf("absent values must stay absent: %+v", empty)
	}
}

func TestTransportRecordJSONRoundTrip(t *testing.T) {
	for _, sv := range []model.StateVector{vector("abc123", "Brazil"), {ICAO24: "bare"}} {
		rec := ToTransportRecord(sv)

		data, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back model.TransportRecord
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !reflect.DeepEqual(rec, back) {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, rec)
		}
	}
}
