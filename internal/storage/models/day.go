package models

import "time"

// DayFormat is the canonical calendar-day representation used in keys,
// exclusions and scheduled dates.
const DayFormat = "2006-01-02"

// DayKey is the composite uniqueness key shared by the reconciler and the
// duplicate resolver: one property, one normalized calendar day.
type DayKey struct {
	PropertyID string
	Day        string
}

// NormalizeDay buckets a timestamp to a single calendar day.
//
// The rule, applied everywhere a day key is built: a value at exactly
// midnight UTC is treated as date-only (feeds export all-day events that
// way) and formatted as-is; any other instant is converted to the
// property's local zone first, so a checkout at 23:00 UTC lands on the
// following local day rather than producing a drifted duplicate.
func NormalizeDay(t time.Time, loc *time.Location) string {
	u := t.UTC()
	if h, m, s := u.Clock(); h == 0 && m == 0 && s == 0 {
		return u.Format(DayFormat)
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayFormat)
}

// NewDayKey builds the composite key for a property and timestamp.
func NewDayKey(propertyID string, t time.Time, loc *time.Location) DayKey {
	return DayKey{PropertyID: propertyID, Day: NormalizeDay(t, loc)}
}
