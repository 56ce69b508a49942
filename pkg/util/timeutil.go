package util

import "time"

// NowUTC returns the current time in UTC for response timestamps.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// MillisSince reports whole milliseconds from start to now, never negative.
func MillisSince(start, now time.Time) int64 {
	if now.Before(start) {
		return 0
	}
	return now.Sub(start).Milliseconds()
}
