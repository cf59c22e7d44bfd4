package metrics

import (
	"strings"
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
)

// AssignedStoryPoints sums story points over every story assigned to the
// user, regardless of sprint or story status. Used for overload detection.
func AssignedStoryPoints(stories []domain.Story, email string) float64 {
	sum := 0.0
	for _, st := range stories {
		if st.Points == nil { continue }
		for _, a := range st.Assignees {
			if strings.EqualFold(a, email) { sum += *st.Points; break }
		}
	}
	return sum
}

// OverloadPercent converts assigned story points to hours at a fixed
// hours-per-point rate and expresses them against the weekly capacity.
func OverloadPercent(points, hoursPerPoint, weeklyCapacityHours float64) float64 {
	if weeklyCapacityHours <= 0 { return 0 }
	return points * hoursPerPoint / weeklyCapacityHours * 100
}

// WeekEstimatedHours sums task estimated hours for tasks assigned to the
// user that are due within the ISO week containing now (Monday start) and
// are not in a terminal status. Used for underload detection.
func WeekEstimatedHours(tasks []domain.Task, email string, now time.Time) float64 {
	weekStart := WeekStart(now)
	weekEnd := weekStart.AddDate(0, 0, 7)
	sum := 0.0
	for _, t := range tasks {
		if t.DueAt == nil || IsTerminal(t.Status) { continue }
		if t.DueAt.Before(weekStart) || !t.DueAt.Before(weekEnd) { continue }
		for _, a := range t.Assignees {
			if strings.EqualFold(a, email) { sum += t.EstimatedHours; break }
		}
	}
	return sum
}

// UnderloadPercent expresses planned hours against the user's weekly
// capacity (working hours per day × 5).
func UnderloadPercent(plannedHours, workingHoursPerDay float64) float64 {
	capacity := workingHoursPerDay * 5
	if capacity <= 0 { return 0 }
	return plannedHours / capacity * 100
}
