package report

import (
	"time"
	_ "time/tzdata" // America/New_York must resolve on hosts without zoneinfo
)

var eastern = loadEastern()

func loadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// FormatTime renders t as "M/D H:MM AM ET" in US Eastern time. The zero
// time renders as "Unknown".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.In(eastern).Format("1/2 3:04 PM") + " ET"
}
