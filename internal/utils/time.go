package utils

import (
	"time"

	_ "time/tzdata"
)

var istLoc = mustLoadIST()

func mustLoadIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// IST has no DST; the fixed offset is exact.
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// ISTLoc returns the Indian Standard Time location.
func ISTLoc() *time.Location { return istLoc }

func NowIST() time.Time { return time.Now().In(istLoc) }

// FormatClock renders a wall-clock time like "04:35 PM" in IST.
func FormatClock(t time.Time) string {
	return t.In(istLoc).Format("03:04 PM")
}

// FormatDateTime renders "02 Jan 2006, 04:35 PM" in IST.
func FormatDateTime(t time.Time) string {
	return t.In(istLoc).Format("02 Jan 2006, 03:04 PM")
}
