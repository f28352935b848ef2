package utils

import (
	"time"
)

// UnixToTime converts epoch seconds to a UTC time.Time
func UnixToTime(timestamp int64) time.Time {
	return time.Unix(timestamp, 0).UTC()
}

// FormatISO8601 renders t as an RFC3339 string in UTC
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatISO8601Ptr is FormatISO8601 for optional timestamps; nil stays nil
func FormatISO8601Ptr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatISO8601(*t)
	return &s
}

// NowISO8601 returns the current UTC time as an RFC3339 string with nanoseconds
func NowISO8601(now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(time.RFC3339Nano)
}
