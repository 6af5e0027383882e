// Package timeutil provides timezone helpers for the portal's local time
// (IST, UTC+5:30). The portal timestamps everything in its own zone and the
// student reads alerts in the same zone, so user-facing times are rendered
// in portal time regardless of where the monitor runs.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// PortalTZ is the portal's timezone (IST, UTC+5:30, no DST).
// Loaded from the tz database when available; the fixed offset is exact
// either way since India has not observed DST since 1945.
var PortalTZ = loadPortalTZ()

func loadPortalTZ() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("UTC+5:30", 5*60*60+30*60)
	}
	return loc
}

// Now returns the current time in portal timezone.
func Now() time.Time {
	return time.Now().In(PortalTZ)
}

// ToPortal converts a time to portal timezone.
func ToPortal(t time.Time) time.Time {
	return t.In(PortalTZ)
}

// StartOfDay returns the start of the day (00:00:00) in portal timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToPortal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, PortalTZ)
}

// IsSameDay reports whether two times fall on the same portal-timezone day.
func IsSameDay(a, b time.Time) bool {
	al, bl := ToPortal(a), ToPortal(b)
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}

// FormatDate formats a time as a short date, e.g. "02 Jan".
func FormatDate(t time.Time) string {
	return ToPortal(t).Format("02 Jan")
}

// FormatFullDate formats a time as a full date, e.g. "02 Jan 2006".
func FormatFullDate(t time.Time) string {
	return ToPortal(t).Format("02 Jan 2006")
}

// FormatDateTime formats a time as date plus clock, e.g. "02 Jan 15:04:05".
func FormatDateTime(t time.Time) string {
	return ToPortal(t).Format("02 Jan 15:04:05")
}

// FormatRelative renders the distance from now in coarse human terms:
// "just now", "5m ago", "3h ago", "2d ago". Used in status output where
// exact timestamps add noise.
func FormatRelative(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
