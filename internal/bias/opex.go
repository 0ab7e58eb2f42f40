package bias

import "time"

// ThirdFriday returns the third Friday of the given month, the standard
// monthly options expiration date.
func ThirdFriday(year int, month time.Month) time.Time {
	d := time.Date(year, month, 15, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// IsOpexWeek reports whether t falls in the Mon-Fri week containing the
// third Friday of its month.
func IsOpexWeek(t time.Time) bool {
	tf := ThirdFriday(t.Year(), t.Month())
	offset := (int(tf.Weekday()) + 6) % 7 // days since Monday
	start := tf.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 4)

	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(start) && !day.After(end)
}
