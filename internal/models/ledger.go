package models

import (
	"time"
)

// WatermarkLayout is fixed-width so stored watermarks order lexically
const WatermarkLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatWatermark renders t in UTC using WatermarkLayout
func FormatWatermark(t time.Time) string {
	return t.UTC().Format(WatermarkLayout)
}

// ParseWatermark accepts any RFC 3339 timestamp
func ParseWatermark(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
