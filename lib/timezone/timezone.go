package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Berlin")
	if err != nil {
		panic(err)
	}
}

// force timezone to be in Hamburg because the canteen sites publish their
// dates in local time, a server elsewhere would otherwise look up the
// wrong day around midnight.
func Now() time.Time {
	return time.Now().In(Location)
}

// Date truncates t to midnight of its calendar day in Location.
func Date(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// Today is Date(Now()).
func Today() time.Time {
	return Date(Now())
}

// IsEvenWeek reports whether t falls in an even ISO week.
func IsEvenWeek(t time.Time) bool {
	_, week := t.ISOWeek()
	return week%2 == 0
}
