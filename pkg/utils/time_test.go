package utils

import (
	"testing"
	"time"
)

func TestUnixToTimeIsUTC(t *testing.T) {
	got := UnixToTime(1700000000)
	if got.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", got.Location())
	}
	if got.Unix() != 1700000000 {
		t.Errorf("expected 1700000000, got %d", got.Unix())
	}
}

func TestFormatISO8601(t *testing.T) {
	got := FormatISO8601(time.Unix(1700000000, 0))
	if got != "2023-11-14T22:13:20Z" {
		t.Errorf("unexpected ISO-8601 rendering: %s", got)
	}

	if got := FormatISO8601(time.Unix(1700000000, 0).In(time.FixedZone("BRT", -3*3600))); got != "2023-11-14T22:13:20Z" {
		t.Errorf("expected UTC rendering regardless of zone, got %s", got)
	}
}

func TestFormatISO8601Ptr(t *testing.T) {
	if FormatISO8601Ptr(nil) != nil {
		t.Error("nil timestamp should stay nil")
	}
	ts := time.Unix(0, 0)
	if s := FormatISO8601Ptr(&ts); s == nil || *s != "1970-01-01T00:00:00Z" {
		t.Errorf("unexpected rendering: %v", s)
	}
}

func TestNowISO8601(t *testing.T) {
	fixed := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC) }
	if got := NowISO8601(fixed); got != "2024-01-02T03:04:05.000000006Z" {
		t.Errorf("unexpected timestamp: %s", got)
	}
}
