package metrics

import (
	"testing"
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
)

func due(t time.Time) *time.Time { return &t }

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		task domain.Task
		want bool
	}{
		{"past due open", domain.Task{Status: "in_progress", DueAt: due(now.Add(-time.Hour))}, true},
		{"future due", domain.Task{Status: "in_progress", DueAt: due(now.Add(time.Hour))}, false},
		{"no due date", domain.Task{Status: "in_progress"}, false},
		{"completed", domain.Task{Status: "completed", DueAt: due(now.Add(-time.Hour))}, false},
		{"Verified mixed case", domain.Task{Status: "Verified", DueAt: due(now.Add(-time.Hour))}, false},
	}
	for _, c := range cases {
		if got := IsOverdue(c.task, now); got != c.want {
			t.Fatalf("%s: expected %v, got %v", c.name, c.want, got)
		}
	}
}

func TestDaysOverdue_Rounding(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		hoursAgo float64
		want     int
	}{
		{24, 1},
		{48, 2},
		{120, 5},
		{30, 1},  // 1.25 days rounds down
		{40, 2},  // 1.67 days rounds up
	}
	for _, c := range cases {
		task := domain.Task{Status: "todo", DueAt: due(now.Add(-time.Duration(c.hoursAgo * float64(time.Hour))))}
		if got := DaysOverdue(task, now); got != c.want {
			t.Fatalf("%vh overdue: expected %d days, got %d", c.hoursAgo, c.want, got)
		}
	}
	if got := DaysOverdue(domain.Task{Status: "todo"}, now); got != 0 {
		t.Fatalf("expected 0 days for no due date, got %d", got)
	}
}
