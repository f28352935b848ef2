package fetcher

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"opensky-ingest/internal/apperr"
	"opensky-ingest/internal/model"
	"opensky-ingest/pkg/utils"
)

// Positional layout of one row in the /states/all "states" array.
// The category column is only present in extended responses.
const (
	offsetICAO24         = 0  // string
	offsetCallsign       = 1  // string
	offsetOriginCountry  = 2  // string
	offsetTimePosition   = 3  // int, epoch seconds
	offsetLastContact    = 4  // int, epoch seconds
	offsetLongitude      = 5  // float
	offsetLatitude       = 6  // float
	offsetBaroAltitude   = 7  // float, meters
	offsetOnGround       = 8  // bool
	offsetVelocity       = 9  // float, m/s
	offsetTrueTrack      = 10 // float, degrees
	offsetVerticalRate   = 11 // float, m/s
	offsetSensors        = 12 // []int
	offsetGeoAltitude    = 13 // float, meters
	offsetSquawk         = 14 // string
	offsetSPI            = 15 // bool
	offsetPositionSource = 16 // int, see model.PositionSource
	offsetCategory       = 17 // int, see model.AircraftCategory

	stateRowLen = offsetPositionSource + 1
)

var fieldNames = [...]string{
	"icao24", "callsign", "origin_country", "time_position", "last_contact",
	"longitude", "latitude", "baro_altitude", "on_ground", "velocity",
	"true_track", "vertical_rate", "sensors", "geo_altitude", "squawk",
	"spi", "position_source", "category",
}

// DecodeStateVector converts one positional row into a StateVector.
// Any absent required column or unconvertible value fails the whole row.
func DecodeStateVector(row []any) (model.StateVector, error) {
	if len(row) < stateRowLen {
		return model.StateVector{}, apperr.MalformedRecord("row has %d columns, want at least %d", len(row), stateRowLen)
	}

	d := rowDecoder{row: row}
	sv := model.StateVector{
		ICAO24:        d.icao24(),
		Callsign:      d.callsign(),
		OriginCountry: d.str(offsetOriginCountry),
		TimePosition:  d.timestamp(offsetTimePosition),
		LastContact:   d.timestamp(offsetLastContact),
		Longitude:     d.float(offsetLongitude),
		Latitude:      d.float(offsetLatitude),
		Altitude:      d.float(offsetBaroAltitude),
		OnGround:      d.boolean(offsetOnGround),
		Velocity:      d.float(offsetVelocity),
		Heading:       d.float(offsetTrueTrack),
		VerticalRate:  d.float(offsetVerticalRate),
		Sensors:       d.sensors(),
		GeoAltitude:   d.float(offsetGeoAltitude),
		Squawk:        d.str(offsetSquawk),
		SPI:           d.boolean(offsetSPI),
	}
	sv.PositionSource = d.positionSource()
	if len(row) > offsetCategory {
		sv.Category = d.category()
	}

	if d.err != nil {
		return model.StateVector{}, d.err
	}
	return sv, nil
}

// rowDecoder keeps the first conversion error; later accessors become no-ops.
type rowDecoder struct {
	row []any
	err error
}

func (d *rowDecoder) fail(i int, format string, args ...any) {
	if d.err != nil {
		return
	}
	e := apperr.MalformedRecord(format, args...)
	e.WithDetail("index", i).WithDetail("field", fieldNames[i])
	d.err = e
}

func (d *rowDecoder) value(i int) (any, bool) {
	if d.err != nil || d.row[i] == nil {
		return nil, false
	}
	return d.row[i], true
}

func (d *rowDecoder) icao24() string {
	v, ok := d.value(offsetICAO24)
	if !ok {
		d.fail(offsetICAO24, "icao24 is null")
		return ""
	}
	s, isStr := v.(string)
	if !isStr || strings.TrimSpace(s) == "" {
		d.fail(offsetICAO24, "icao24 must be a non-empty string, got %T", v)
		return ""
	}
	return s
}

func (d *rowDecoder) callsign() *string {
	s := d.str(offsetCallsign)
	if s == nil {
		return nil
	}
	trimmed := strings.TrimRight(*s, " ")
	return &trimmed
}

func (d *rowDecoder) str(i int) *string {
	v, ok := d.value(i)
	if !ok {
		return nil
	}
	s, isStr := v.(string)
	if !isStr {
		d.fail(i, "%s must be a string, got %T", fieldNames[i], v)
		return nil
	}
	return &s
}

func (d *rowDecoder) float(i int) *float64 {
	v, ok := d.value(i)
	if !ok {
		return nil
	}
	f, err := toFloat(v)
	if err != nil {
		d.fail(i, "%s: %v", fieldNames[i], err)
		return nil
	}
	return &f
}

func (d *rowDecoder) integer(i int) (int64, bool) {
	v, ok := d.value(i)
	if !ok {
		return 0, false
	}
	n, err := toInt(v)
	if err != nil {
		d.fail(i, "%s: %v", fieldNames[i], err)
		return 0, false
	}
	return n, true
}

// timestamp treats 0 like null: the API uses it for "never seen".
func (d *rowDecoder) timestamp(i int) *time.Time {
	n, ok := d.integer(i)
	if !ok || n == 0 {
		return nil
	}
	t := utils.UnixToTime(n)
	return &t
}

func (d *rowDecoder) boolean(i int) *bool {
	v, ok := d.value(i)
	if !ok {
		return nil
	}
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case string:
		parsed, err := strconv.ParseBool(x)
		if err != nil {
			d.fail(i, "%s: cannot parse %q as bool", fieldNames[i], x)
			return nil
		}
		b = parsed
	default:
		n, err := toInt(v)
		if err != nil || (n != 0 && n != 1) {
			d.fail(i, "%s: cannot convert %v (%T) to bool", fieldNames[i], v, v)
			return nil
		}
		b = n == 1
	}
	return &b
}

func (d *rowDecoder) sensors() []int {
	v, ok := d.value(offsetSensors)
	if !ok {
		return nil
	}
	raw, isSlice := v.([]any)
	if !isSlice {
		d.fail(offsetSensors, "sensors must be an array, got %T", v)
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, s := range raw {
		n, err := toInt(s)
		if err != nil {
			d.fail(offsetSensors, "sensors: %v", err)
			return nil
		}
		out = append(out, int(n))
	}
	return out
}

func (d *rowDecoder) positionSource() *model.PositionSource {
	n, ok := d.integer(offsetPositionSource)
	if !ok {
		return nil
	}
	src := model.PositionSource(n)
	if !src.Valid() {
		d.fail(offsetPositionSource, "unknown position source code %d", n)
		return nil
	}
	return &src
}

func (d *rowDecoder) category() *model.AircraftCategory {
	n, ok := d.integer(offsetCategory)
	if !ok {
		return nil
	}
	c := model.AircraftCategory(n)
	if !c.Valid() {
		d.fail(offsetCategory, "unknown aircraft category code %d", n)
		return nil
	}
	return &c
}

type conversionError struct {
	value any
	want  string
}

func (e *conversionError) Error() string {
	return "cannot convert " + strconv.Quote(toString(e.value)) + " to " + e.want
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return finite(x, v)
	case float32:
		return finite(float64(x), v)
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, &conversionError{value: v, want: "float"}
		}
		return finite(f, v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, &conversionError{value: v, want: "float"}
		}
		return finite(f, v)
	default:
		return 0, &conversionError{value: v, want: "float"}
	}
}

// finite rejects NaN and the infinities, which have no JSON encoding.
func finite(f float64, v any) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &conversionError{value: v, want: "finite float"}
	}
	return f, nil
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, &conversionError{value: v, want: "integer"}
		}
		return integral(f, v)
	case float64:
		return integral(x, v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, &conversionError{value: v, want: "integer"}
		}
		return n, nil
	default:
		return 0, &conversionError{value: v, want: "integer"}
	}
}

func integral(f float64, orig any) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, &conversionError{value: orig, want: "integer"}
	}
	return int64(f), nil
}
