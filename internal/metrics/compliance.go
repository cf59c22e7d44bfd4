package metrics

import (
	"strings"
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
)

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// RestDay maps a user's configured week-off name to a weekday,
// defaulting to Sunday.
func RestDay(name string) time.Weekday {
	if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok { return d }
	return time.Sunday
}

// FirstComplianceGap walks backward day by day from the anchor day
// (yesterday when now is before 18:00 local, else today) to the first day
// of the current month, skipping the rest day, and returns the first day
// whose logged minutes fall below the daily quota. The walk stops at the
// first gap; older gaps in the month are not reported.
func FirstComplianceGap(entries []domain.Timesheet, now time.Time, restDay time.Weekday, quotaMinutes int) (time.Time, bool) {
	minutesByDay := map[string]int{}
	for _, e := range entries {
		minutesByDay[e.WorkDate.Format("2006-01-02")] += e.Minutes
	}
	anchor := DayStart(now)
	if now.Hour() < 18 { anchor = anchor.AddDate(0, 0, -1) }
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for day := anchor; !day.Before(monthStart); day = day.AddDate(0, 0, -1) {
		if day.Weekday() == restDay { continue }
		if minutesByDay[day.Format("2006-01-02")] < quotaMinutes {
			return day, true
		}
	}
	return time.Time{}, false
}
