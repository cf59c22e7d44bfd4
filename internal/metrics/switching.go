package metrics

import (
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
)

// HighSwitchDays counts calendar days within the trailing 7-day window
// ending at now on which the user's time entries touch more than
// projectsPerDay distinct projects.
func HighSwitchDays(entries []domain.Timesheet, now time.Time, projectsPerDay int) int {
	windowStart := DayStart(now).AddDate(0, 0, -6)
	projectsByDay := map[string]map[int64]struct{}{}
	for _, e := range entries {
		if e.WorkDate.Before(windowStart) || e.WorkDate.After(now) { continue }
		key := e.WorkDate.Format("2006-01-02")
		if projectsByDay[key] == nil { projectsByDay[key] = map[int64]struct{}{} }
		projectsByDay[key][e.ProjectID] = struct{}{}
	}
	days := 0
	for _, projects := range projectsByDay {
		if len(projects) > projectsPerDay { days++ }
	}
	return days
}
