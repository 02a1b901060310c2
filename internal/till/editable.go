package till

import "time"

// DefaultEditablePeriod is how long after closing staff may still edit a closure.
const DefaultEditablePeriod = 24 * time.Hour

// IsEditable reports whether now falls before closeTime + window.
func IsEditable(closeTime, now time.Time, window time.Duration) bool {
	return now.Before(closeTime.Add(window))
}

// TruncateToMinute drops seconds and sub-second precision.
func TruncateToMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
