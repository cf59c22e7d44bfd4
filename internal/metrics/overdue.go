package metrics

import (
	"math"
	"strings"
	"time"

	"github.com/HamedShams/groona-pulse/internal/domain"
)

var terminalStatuses = map[string]struct{}{
	"completed": {}, "done": {}, "closed": {}, "resolved": {}, "verified": {},
}

func IsTerminal(status string) bool {
	_, ok := terminalStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// IsOverdue reports whether the task is past due and not in a terminal
// status. Tasks without a due date are never overdue.
func IsOverdue(t domain.Task, now time.Time) bool {
	if t.DueAt == nil { return false }
	if IsTerminal(t.Status) { return false }
	return t.DueAt.Before(now)
}

// DaysOverdue is the whole-day distance between now and the due date,
// rounded rather than floored to match the "N days overdue" copy shown to
// users. Returns 0 for tasks without a due date.
func DaysOverdue(t domain.Task, now time.Time) int {
	if t.DueAt == nil { return 0 }
	return int(math.Round(math.Abs(now.Sub(*t.DueAt).Hours()) / 24))
}
