package matching

import "time"

// DayDistance is the absolute number of calendar days between a and b as seen in loc.
func DayDistance(a, b time.Time, loc *time.Location) int {
	d := civilDay(a, loc) - civilDay(b, loc)
	if d < 0 {
		return int(-d)
	}

	return int(d)
}

func civilDay(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
