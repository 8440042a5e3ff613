package util

import "time"

// DaysSince returns whole days elapsed from t to now, never less than 1.
// A publish timestamp in the future (clock skew, scheduled premiere) also
// yields 1 so per-day rates stay finite.
func DaysSince(t, now time.Time) int {
	days := int(now.Sub(t).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// StartOfUTCDay truncates t to midnight UTC.
func StartOfUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
