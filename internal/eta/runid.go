package eta

import (
	"strings"
	"time"
)

// runIDLayout is the timestamp encoding used by benchmark run ids.
const runIDLayout = "20060102_150405"

// Day-part boundaries (inclusive start hour). Historical exports used a
// 06/12/16/22 table in one place and 05/12/17/22 in another; the 05/12/17/22
// table is the one this system standardizes on.
const (
	morningStart   = 5
	afternoonStart = 12
	eveningStart   = 17
	eveningEnd     = 22 // exclusive; 22:00 onwards is Midnight
)

// BucketForHour maps an hour of day (0..23) to its time bucket.
func BucketForHour(hour int) TimeBucket {
	switch {
	case hour >= morningStart && hour < afternoonStart:
		return BucketMorning
	case hour >= afternoonStart && hour < eveningStart:
		return BucketAfternoon
	case hour >= eveningStart && hour < eveningEnd:
		return BucketEvening
	default:
		return BucketMidnight
	}
}

// DeriveTimeBucket extracts the hour encoded in runID and maps it to a
// bucket. Run ids normally look like 20251129_130103, but older exports
// carried extra non-digit decoration, so the hour is located by position in
// the digit string: a tail of ten or more digits has the hour six digits
// from the end (HHMMSS), eight or nine digits have it four from the end
// (HHMM). Fewer than eight digits is unparseable and buckets as Midnight.
// An in-range position holding an impossible hour falls back to noon.
func DeriveTimeBucket(runID string) TimeBucket {
	digits := digitsOf(runID)
	n := len(digits)
	if n < 8 {
		return BucketMidnight
	}

	var candidate string
	if n >= 10 {
		candidate = digits[n-6 : n-4]
	} else {
		candidate = digits[n-4 : n-2]
	}

	hour := 12
	if h := int(candidate[0]-'0')*10 + int(candidate[1]-'0'); h >= 0 && h <= 23 {
		hour = h
	}
	return BucketForHour(hour)
}

// RunIDTime parses a YYYYMMDD_HHMMSS run id into a UTC timestamp.
func RunIDTime(runID string) (time.Time, error) {
	return time.Parse(runIDLayout, runID)
}

// RunIDFromTime formats t as a run id.
func RunIDFromTime(t time.Time) string {
	return t.Format(runIDLayout)
}

// DayStartRunID returns the run id for 00:00:00 on the given YYYY-MM-DD date
// string, and DayEndRunID the one for 23:59:59. Dashes are tolerated so the
// API can accept both "2025-11-29" and "20251129".
func DayStartRunID(date string) string {
	return strings.ReplaceAll(date, "-", "") + "_000000"
}

func DayEndRunID(date string) string {
	return strings.ReplaceAll(date, "-", "") + "_235959"
}

func digitsOf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
